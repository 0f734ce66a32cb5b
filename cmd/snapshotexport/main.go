package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"covidpulse/internal/config"
	"covidpulse/internal/dataset"
	"covidpulse/internal/exporter"
	"covidpulse/internal/infrastructure"
	"covidpulse/internal/validation"
)

// options holds the parsed command line
type options struct {
	source       string
	mode         exporter.Mode
	out          string
	minConfirmed int64
	concurrency  int
	baseDir      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("Snapshot export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func parseFlags(args []string) (*options, error) {
	fs := flag.NewFlagSet("snapshotexport", flag.ContinueOnError)
	source := fs.String("source", "", "dataset .csv/.xlsx path or URL (defaults to the configured dataset source)")
	mode := fs.String("mode", string(exporter.ModeLong), "export layout: long, dates or xlsx")
	out := fs.String("out", "", "output file (long, xlsx) or directory (dates); relative paths land in data/exports")
	minConfirmed := fs.Int64("min-confirmed", -1, "keep rows with Confirmed above this (defaults to the configured value)")
	concurrency := fs.Int("concurrency", 0, "per-date files written at once (0 = GOMAXPROCS)")
	baseDir := fs.String("base", "", "base directory for data/ and logs/ (defaults to the executable directory)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	m, err := exporter.ParseMode(*mode)
	if err != nil {
		return nil, err
	}
	return &options{
		source:       *source,
		mode:         m,
		out:          *out,
		minConfirmed: *minConfirmed,
		concurrency:  *concurrency,
		baseDir:      *baseDir,
	}, nil
}

// defaultOutput names the export target when -out is not given
func defaultOutput(mode exporter.Mode) string {
	switch mode {
	case exporter.ModeDates:
		return "snapshots"
	case exporter.ModeWorkbook:
		return "snapshots.xlsx"
	default:
		return "snapshots.csv"
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	var paths *config.Paths
	if opts.baseDir != "" {
		paths = config.NewPaths(opts.baseDir)
	} else if paths, err = config.GetPaths(); err != nil {
		return fmt.Errorf("failed to initialize paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create required directories: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", slog.String("error", err.Error()))
		cfg = config.Default()
	}
	cfg.Logging.FilePath = paths.GetLogPath("snapshotexport.log")

	logger, err := infrastructure.NewLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", slog.String("error", err.Error()))
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	source := opts.source
	if source == "" {
		source = cfg.Dataset.Source
	}
	minConfirmed := cfg.Dataset.MinConfirmed
	if opts.minConfirmed >= 0 {
		minConfirmed = opts.minConfirmed
	}
	out := opts.out
	if out == "" {
		out = defaultOutput(opts.mode)
	}
	if opts.mode == exporter.ModeDates && !filepath.IsAbs(out) {
		out = paths.GetExportPath(out)
	}

	logger.InfoContext(ctx, "Starting snapshot export",
		slog.String("source", paths.Resolve(source)),
		slog.String("mode", string(opts.mode)),
		slog.String("out", out),
		slog.Int64("min_confirmed", minConfirmed))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateSource(paths.Resolve(source)); err != nil {
		return err
	}
	if opts.mode == exporter.ModeDates {
		if err := validator.ValidateOutputDirectory(out); err != nil {
			return err
		}
	}

	ds, err := dataset.Load(ctx, paths.Resolve(source), dataset.Options{
		MinConfirmed: minConfirmed,
		FetchTimeout: cfg.Dataset.FetchTimeout,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	res, err := exporter.NewSnapshotExporter(paths, opts.concurrency, logger).Export(ctx, ds, opts.mode, out)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
