// Package capture screenshots a tracker page with headless Chromium.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	appLog "heatmaptracker/internal/log"
)

// Default viewport for one tracker year at the page's default geometry.
const (
	DefaultWidth      = 1000
	DefaultHeight     = 420
	DefaultTimeoutSec = 30
)

// ReadySelector matches the page root once the heatmap has been rendered.
const ReadySelector = `[data-ready="true"]`

var (
	ErrURLRequired    = errors.New("capture: URL is required")
	ErrOutputRequired = errors.New("capture: OutputPath is required")
)

// Options defines one capture.
type Options struct {
	// URL of the tracker page, e.g. "http://127.0.0.1:8080/trackers/gym".
	URL string

	// OutputPath receives the PNG. Parent directories are created.
	OutputPath string

	// Width and Height are the viewport in pixels; zero means the defaults.
	Width  int
	Height int

	// Timeout bounds the whole capture; zero means DefaultTimeoutSec.
	Timeout time.Duration
}

func (o Options) normalize() (Options, error) {
	if o.URL == "" {
		return o, ErrURLRequired
	}
	if o.OutputPath == "" {
		return o, ErrOutputRequired
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Timeout <= 0 {
		o.Timeout = time.Duration(DefaultTimeoutSec) * time.Second
	}
	return o, nil
}

// TrackerPNG navigates to the tracker page, waits for ReadySelector and
// writes a full-page screenshot to opts.OutputPath. The file is replaced
// atomically so a concurrent reader never sees a partial PNG.
func TrackerPNG(parentCtx context.Context, opts Options) error {
	opts, err := opts.normalize()
	if err != nil {
		return err
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()

	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	start := time.Now()
	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitVisible(ReadySelector, chromedp.ByQuery),
		// Let the last paint land.
		chromedp.Sleep(200 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}

	if err := writeFileAtomic(opts.OutputPath, png); err != nil {
		return fmt.Errorf("capture: failed to write PNG: %w", err)
	}

	appLog.Info("tracker png captured",
		"path", opts.OutputPath,
		"bytes", len(png),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".capture-*.png.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
