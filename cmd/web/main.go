package main

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"os"

	"covidpulse/internal/app"
)

// Embedded dashboard page and assets
//
//go:embed all:frontend
var frontendFiles embed.FS

func main() {
	frontendFS, err := frontend()
	if err != nil {
		slog.Warn("Frontend embedding failed", slog.String("error", err.Error()))
	}

	application, err := app.NewApplication(frontendFS)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := application.Run(context.Background()); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// frontend returns the embedded files rooted at frontend/
func frontend() (fs.FS, error) {
	return fs.Sub(frontendFiles, "frontend")
}
