package http

import (
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"covidpulse/pkg/contracts"
)

// pageData is what index.html is executed with
type pageData struct {
	Title      string
	Version    string
	APIVersion string
}

// ServeMainApp serves index.html from the frontend filesystem
func ServeMainApp(frontend fs.FS, logger *slog.Logger) http.HandlerFunc {
	tmpl, err := template.ParseFS(frontend, "index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		if err != nil {
			logger.ErrorContext(r.Context(), "main application page not loadable",
				slog.String("error", err.Error()))
			http.Error(w, "Main application page not found", http.StatusNotFound)
			return
		}
		serveHTML(w, r, tmpl, logger)
	}
}

// ServeStatic serves the frontend assets (app.js, styles)
func ServeStatic(frontend fs.FS) http.Handler {
	return http.FileServerFS(frontend)
}

// serveHTML renders the page with proper headers
func serveHTML(w http.ResponseWriter, r *http.Request, tmpl *template.Template, logger *slog.Logger) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	data := pageData{
		Title:      "COVID-19 Development",
		Version:    contracts.Version,
		APIVersion: contracts.APIVersion,
	}
	if err := tmpl.Execute(w, data); err != nil {
		logger.ErrorContext(r.Context(), "failed to render page",
			slog.String("error", err.Error()))
	}
}
