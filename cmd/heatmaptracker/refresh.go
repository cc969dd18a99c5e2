package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/capture"
	"heatmaptracker/internal/config"
	"heatmaptracker/internal/ics"
	appLog "heatmaptracker/internal/log"
	"heatmaptracker/internal/store"
	"heatmaptracker/internal/tracker"
	"heatmaptracker/internal/web"
)

// refresher re-ingests ICS feeds into the store and re-exports PNGs.
type refresher struct {
	cfg       *config.Config
	store     store.EntryStore
	server    *web.Server
	fetcher   *ics.Fetcher
	baseURL   string
	exportDir string
	clock     calendar.Clock
	year      int

	// capture is swapped out in tests.
	capture func(ctx context.Context, opts capture.Options) error
}

func newRefresher(cfg *config.Config, st store.EntryStore, srv *web.Server, baseURL string) *refresher {
	return &refresher{
		cfg:       cfg,
		store:     st,
		server:    srv,
		fetcher:   ics.NewFetcher(filepath.Join(cfg.DataDir, "ics-cache"), &http.Client{Timeout: 30 * time.Second}),
		baseURL:   baseURL,
		exportDir: web.ExportDir(cfg.DataDir),
		clock:     calendar.SystemClock,
		capture:   capture.TrackerPNG,
	}
}

// schedule registers Run on spec. Overlapping runs are skipped.
func (r *refresher) schedule(spec string) (*cron.Cron, error) {
	logger := cronLogger{}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	if _, err := c.AddFunc(spec, func() { r.Run(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return c, nil
}

// Run ingests every tracker's feeds, then exports every tracker's PNG.
func (r *refresher) Run(ctx context.Context) {
	start := time.Now()
	ingestErr := r.Ingest(ctx)
	exportErr := r.ExportAll(ctx, nil)
	if err := errors.Join(ingestErr, exportErr); err != nil {
		appLog.Error("refresh finished with errors", err, "elapsed", time.Since(start).Round(time.Millisecond).String())
		return
	}
	appLog.Info("refresh finished", "elapsed", time.Since(start).Round(time.Millisecond).String())
}

// Ingest replaces the stored entries of every configured ICS source with a
// fresh expansion for its tracker's year.
func (r *refresher) Ingest(ctx context.Context) error {
	var errs []error
	for _, tc := range r.cfg.Trackers {
		if len(tc.ICS) == 0 {
			continue
		}
		year := tracker.ResolveYear(tc.TrackerData, r.year, r.clock)
		results, err := ics.Ingest(ctx, r.fetcher, icsSources(tc.ICS), year)
		if err != nil {
			errs = append(errs, fmt.Errorf("tracker %q: %w", tc.ID, err))
		}
		for _, res := range results {
			n, err := r.store.ReplaceSourceEntries(ctx, tc.ID, res.Source.ID, res.Entries)
			if err != nil {
				errs = append(errs, fmt.Errorf("tracker %q source %q: %w", tc.ID, res.Source.ID, err))
				continue
			}
			appLog.Info("ics entries stored",
				"tracker", tc.ID,
				"source", res.Source.ID,
				"year", year,
				"entries", n,
				"from_cache", res.FromCache,
			)
		}
		if r.server != nil {
			r.server.Invalidate(tc.ID)
		}
	}
	return errors.Join(errs...)
}

// ExportAll captures the page of each tracker in ids (every tracker when
// ids is empty) into the export directory.
func (r *refresher) ExportAll(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		for _, tc := range r.cfg.Trackers {
			ids = append(ids, tc.ID)
		}
	}
	var errs []error
	for _, id := range ids {
		if err := r.Export(ctx, id, web.PNGPath(r.exportDir, id)); err != nil {
			errs = append(errs, fmt.Errorf("export %q: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Export captures one tracker page into path.
func (r *refresher) Export(ctx context.Context, id, path string) error {
	return r.capture(ctx, capture.Options{
		URL:        trackerURL(r.baseURL, id, r.year),
		OutputPath: path,
	})
}

// icsSources maps config feeds to fetcher sources. A feed without an id is
// tagged by its name, then its URL.
func icsSources(cfgs []config.ICSConfig) []ics.Source {
	out := make([]ics.Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			if c.Name != "" {
				id = c.Name
			} else {
				id = c.URL
			}
		}
		out = append(out, ics.Source{ID: id, URL: c.URL, Name: c.Name})
	}
	return out
}

// pageBaseURL is how the headless browser reaches the web server listening
// on listen, with basic auth credentials embedded when enabled.
func pageBaseURL(cfg *config.Config, listen string) string {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		host, port = listen, "80"
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port)}
	if cfg.BasicAuth != nil && cfg.BasicAuth.Username != "" && cfg.BasicAuth.Password != "" {
		u.User = url.UserPassword(cfg.BasicAuth.Username, cfg.BasicAuth.Password)
	}
	return u.String()
}

func trackerURL(base, id string, year int) string {
	u := base + "/trackers/" + url.PathEscape(id)
	if year != 0 {
		u += fmt.Sprintf("?year=%d", year)
	}
	return u
}

// cronLogger routes scheduler logs through the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	appLog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	appLog.Error("cron: "+msg, err, keysAndValues...)
}
