package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heatmaptracker/internal/calendar"
	"heatmaptracker/internal/config"
	appLog "heatmaptracker/internal/log"
	"heatmaptracker/internal/store"
	"heatmaptracker/internal/web"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	year       int
	tracker    string
	format     string
	out        string
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI -listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Warn("unknown log level, keeping info", "log_level", conf.LogLevel)
	} else {
		appLog.SetLevel(level)
	}

	appLog.Info("heatmaptracker starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"data_dir", conf.DataDir,
		"refresh", conf.RefreshCron,
		"trackers", len(conf.Trackers),
		"week_start_day", conf.Settings.WeekStartDay,
		"once", flags.once,
		"format", flags.format,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	st, err := store.NewSQLiteStore(conf.DataDir)
	if err != nil {
		appLog.Error("failed to open entry store", err, "data_dir", conf.DataDir)
		os.Exit(1)
	}
	defer st.Close()

	if flags.once {
		if err := runOnce(ctx, conf, st, flags); err != nil {
			appLog.Error("one-shot run failed", err)
			st.Close()
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, st); err != nil {
		appLog.Error("server failed", err)
		st.Close()
		os.Exit(1)
	}
	appLog.Info("heatmaptracker exiting")
}

const version = "0.1.0"

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./heatmaptracker.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Ingest, render once and exit")
	flag.IntVar(&cfg.year, "year", 0, "Year to render (default: tracker year or current year)")
	flag.StringVar(&cfg.tracker, "tracker", "", "Tracker id to render with -once (default: all)")
	flag.StringVar(&cfg.format, "format", formatText, "Output format with -once: svg, text, json or png")
	flag.StringVar(&cfg.out, "out", "", "Output file, or directory for several trackers (default: stdout; png: export dir)")

	flag.Parse()

	return cfg
}

// serve runs the web server and the refresh schedule until ctx is done.
func serve(ctx context.Context, conf *config.Config, st store.EntryStore) error {
	srv := web.NewServer(conf, st, web.WithClock(calendar.SystemClock))
	httpServer := &http.Server{
		Addr:              conf.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	r := newRefresher(conf, st, srv, pageBaseURL(conf, conf.Listen))
	sched, err := r.schedule(conf.RefreshCron)
	if err != nil {
		return err
	}
	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		errCh <- httpServer.ListenAndServe()
	}()

	// First refresh runs once the listener is up so the PNG capture can
	// reach the pages.
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(time.Second):
			r.Run(ctx)
		}
	}()

	select {
	case err := <-errCh:
		<-sched.Stop().Done()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http shutdown failed", err)
	}
	select {
	case <-sched.Stop().Done():
	case <-shutdownCtx.Done():
		appLog.Warn("refresh still running at shutdown")
	}
	return nil
}
