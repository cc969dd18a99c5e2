package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"heatmaptracker/internal/config"
	appLog "heatmaptracker/internal/log"
	"heatmaptracker/internal/render"
	"heatmaptracker/internal/store"
	"heatmaptracker/internal/tracker"
	"heatmaptracker/internal/web"
)

const (
	formatSVG  = "svg"
	formatText = "text"
	formatJSON = "json"
	formatPNG  = "png"
)

// runOnce ingests feeds, renders the selected trackers and exits.
func runOnce(ctx context.Context, conf *config.Config, st store.EntryStore, flags flagConfig) error {
	switch flags.format {
	case formatSVG, formatText, formatJSON, formatPNG:
	default:
		return fmt.Errorf("unknown format %q (want svg, text, json or png)", flags.format)
	}
	ids, err := selectTrackers(conf, flags.tracker)
	if err != nil {
		return err
	}

	srv := web.NewServer(conf, st)
	r := newRefresher(conf, st, srv, "")
	r.year = flags.year
	if err := r.Ingest(ctx); err != nil {
		// Feeds that failed fall back to what the store already has.
		appLog.Error("ics ingest failed", err)
	}

	if flags.format == formatPNG {
		return exportPNGs(ctx, conf, srv, r, ids, flags.out)
	}

	outputs := make([]output, 0, len(ids))
	for _, id := range ids {
		v, err := srv.View(ctx, id, flags.year)
		if err != nil {
			return err
		}
		body, err := renderView(v, flags.format)
		if err != nil {
			return err
		}
		outputs = append(outputs, output{id: id, body: body})
	}
	return writeOutputs(os.Stdout, outputs, flags.out, flags.format)
}

func selectTrackers(conf *config.Config, id string) ([]string, error) {
	if id != "" {
		if _, ok := conf.Tracker(id); !ok {
			return nil, fmt.Errorf("%w: %q", web.ErrTrackerNotFound, id)
		}
		return []string{id}, nil
	}
	if len(conf.Trackers) == 0 {
		return nil, errors.New("no trackers configured")
	}
	ids := make([]string, 0, len(conf.Trackers))
	for _, tc := range conf.Trackers {
		ids = append(ids, tc.ID)
	}
	return ids, nil
}

func renderView(v *tracker.View, format string) ([]byte, error) {
	switch format {
	case formatSVG:
		return []byte(render.SVG(v, render.DefaultSVGOptions()) + "\n"), nil
	case formatText:
		return []byte(render.Text(v) + "\n"), nil
	case formatJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want svg, text, json or png)", format)
	}
}

type output struct {
	id   string
	body []byte
}

// writeOutputs writes to stdout when out is empty or "-", to out itself for
// a single tracker, and to out/<id>.<format> for several.
func writeOutputs(stdout io.Writer, outputs []output, out, format string) error {
	if out == "" || out == "-" {
		for _, o := range outputs {
			if _, err := stdout.Write(o.body); err != nil {
				return err
			}
		}
		return nil
	}
	for _, o := range outputs {
		path := outputPath(out, o.id, format, len(outputs))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, o.body, 0o644); err != nil {
			return err
		}
		appLog.Info("rendered", "tracker", o.id, "format", format, "path", path)
	}
	return nil
}

func outputPath(out, id, format string, count int) string {
	if count == 1 {
		return out
	}
	return filepath.Join(out, id+"."+format)
}

// exportPNGs serves the pages on a loopback port long enough for the
// headless browser to capture them.
func exportPNGs(ctx context.Context, conf *config.Config, srv *web.Server, r *refresher, ids []string, out string) error {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	httpServer := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go httpServer.Serve(lis)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	r.baseURL = pageBaseURL(conf, lis.Addr().String())
	var errs []error
	for _, id := range ids {
		path := web.PNGPath(r.exportDir, id)
		if out != "" {
			path = outputPath(out, id, formatPNG, len(ids))
		}
		if err := r.Export(ctx, id, path); err != nil {
			errs = append(errs, fmt.Errorf("export %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}
