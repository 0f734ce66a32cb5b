package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// frameWaitInterval is how often the page is polled for the new frame
const frameWaitInterval = 100 * time.Millisecond

// shooter screenshots the plot once it shows date
type shooter interface {
	Shoot(ctx context.Context, date string) ([]byte, error)
}

// browserShooter screenshots the plot in a chromedp tab
type browserShooter struct{}

func (browserShooter) Shoot(ctx context.Context, date string) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(ctx,
		waitForFrame(date),
		chromedp.Screenshot(`#plot`, &buf, chromedp.NodeVisible, chromedp.ByID),
	)
	return buf, err
}

// frameReadyJS reports whether the chart has been drawn for date
func frameReadyJS(date string) string {
	return fmt.Sprintf(`(function () {
		const chart = document.getElementById('chart');
		return !!chart && chart.getAttribute('data-date') === %q;
	}())`, date)
}

// waitForFrame polls until the page has drawn the bubbles of date
func waitForFrame(date string) chromedp.Action {
	js := frameReadyJS(date)

	return timedAction("WaitForFrame", chromedp.ActionFunc(func(ctx context.Context) error {
		ticker := time.NewTicker(frameWaitInterval)
		defer ticker.Stop()
		for {
			var ready bool
			if err := chromedp.Evaluate(js, &ready).Do(ctx); err != nil {
				return err
			}
			if ready {
				return nil
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("frame %s never appeared: %w", date, ctx.Err())
			case <-ticker.C:
			}
		}
	}))
}

// capturer moves the slider through every date and saves one PNG per frame
type capturer struct {
	client  *dashboardClient
	shooter shooter
	outDir  string
	logger  *slog.Logger
}

// FrameFileName is the PNG name of a captured date
func FrameFileName(index int, date string) string {
	return fmt.Sprintf("frame_%04d_%s.png", index, strings.ReplaceAll(date, "/", "-"))
}

// captureAll returns the number of frames written
func (c *capturer) captureAll(ctx context.Context, dates []string) (int, error) {
	s := c.shooter
	if s == nil {
		s = browserShooter{}
	}

	written := 0
	for i, date := range dates {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		start := time.Now()
		patch, err := c.client.SetSlider(ctx, i)
		if err != nil {
			return written, fmt.Errorf("failed to move slider to %d: %w", i, err)
		}
		if patch.Date != nil && *patch.Date != date {
			return written, fmt.Errorf("slider %d shows %s, expected %s", i, *patch.Date, date)
		}

		png, err := s.Shoot(ctx, date)
		if err != nil {
			return written, fmt.Errorf("failed to capture %s: %w", date, err)
		}

		path := filepath.Join(c.outDir, FrameFileName(i, date))
		if err := os.WriteFile(path, png, 0644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", path, err)
		}
		written++

		c.logger.Info("Frame captured",
			slog.String("date", date),
			slog.Int("index", i),
			slog.String("file", path),
			slog.Int("bytes", len(png)),
			slog.Duration("duration", time.Since(start)))
	}
	return written, nil
}
