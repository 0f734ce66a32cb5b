package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/chromedp/chromedp"

	"covidpulse/internal/config"
	"covidpulse/internal/infrastructure"
	"covidpulse/internal/validation"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "address of the running dashboard")
	outDir := flag.String("out", "", "output directory for PNG frames (defaults to data/captures relative to executable)")
	headless := flag.Bool("headless", true, "run the browser headless")
	width := flag.Int("width", 0, "viewport width (defaults to the configured render width)")
	height := flag.Int("height", 0, "viewport height (defaults to the configured render height)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall capture timeout")
	flag.Parse()

	paths, err := config.GetPaths()
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}
	if *outDir == "" {
		*outDir = paths.CaptureDir
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", "error", err)
		cfg = config.Default()
	}
	cfg.Logging.FilePath = paths.GetLogPath("capture.log")

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(*outDir); err != nil {
		os.Exit(1)
	}

	if *width <= 0 {
		*width = cfg.Chart.RenderWidth
	}
	if *height <= 0 {
		*height = cfg.Chart.RenderHeight
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	logger.Info("Starting frame capture",
		slog.String("url", *baseURL),
		slog.String("output_dir", *outDir),
		slog.Bool("headless", *headless),
		slog.Int("width", *width),
		slog.Int("height", *height))

	client := newDashboardClient(*baseURL, 30*time.Second)
	dates, err := client.Dates(ctx)
	if err != nil {
		logger.Error("Failed to list dates", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := client.Pause(ctx); err != nil {
		logger.Error("Failed to pause playback", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// setup ChromeDP
	opts := chromedp.DefaultExecAllocatorOptions[:]
	opts = append(opts,
		chromedp.Flag("headless", *headless),
		chromedp.WindowSize(*width, *height+200),
	)

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()

	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	if err := chromedp.Run(browserCtx, openDashboard(*baseURL)); err != nil {
		logger.Error("Failed to open dashboard", slog.String("error", err.Error()))
		os.Exit(1)
	}

	c := &capturer{client: client, outDir: *outDir, logger: logger}
	written, err := c.captureAll(browserCtx, dates)
	if err != nil {
		logger.Error("capture failed", slog.String("error", err.Error()), slog.Int("frames_written", written))
		os.Exit(1)
	}

	total, err := validator.CountFiles(*outDir, "frame_*.png")
	if err != nil {
		logger.Warn("Failed to count captured frames", slog.String("error", err.Error()))
	}
	logger.Info("Capture finished",
		slog.Int("frames", written),
		slog.Int("frames_in_directory", total),
		slog.String("output_dir", *outDir))
	fmt.Printf("captured %d frames into %s\n", written, *outDir)
}

func openDashboard(url string) chromedp.Tasks {
	return chromedp.Tasks{
		timedAction("Navigate", chromedp.Navigate(url)),
		chromedp.WaitVisible(`#plot`, chromedp.ByID),
		chromedp.WaitVisible(`#slider`, chromedp.ByID),
	}
}

func timedAction(name string, act chromedp.Action) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		start := time.Now()
		err := act.Do(ctx)
		slog.Debug("browser action finished",
			slog.String("action", name),
			slog.Duration("duration", time.Since(start)))
		return err
	})
}
