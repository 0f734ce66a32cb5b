package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"covidpulse/internal/chart"
	"covidpulse/internal/config"
	"covidpulse/internal/dashboard"
	"covidpulse/internal/dataset"
	apierrors "covidpulse/internal/errors"
	"covidpulse/internal/infrastructure"
	customMiddleware "covidpulse/internal/middleware"
	"covidpulse/internal/services"
	handlers "covidpulse/internal/transport/http"
	"covidpulse/internal/validation"
	ws "covidpulse/internal/websocket"
	"covidpulse/pkg/contracts"
)

const (
	AppName = "COVID Pulse"

	// statsInterval is how often the hub logs its counters and runtime stats are sampled
	statsInterval = time.Minute
)

// Application represents the main application container
type Application struct {
	Config           *config.Config
	Paths            *config.Paths
	Router           *chi.Mux
	Server           *http.Server
	Dataset          *dataset.Dataset
	Document         *dashboard.Document
	WebSocketHub     *ws.Hub
	DashboardService *services.DashboardService
	HealthService    *services.HealthService
	SystemMetrics    *infrastructure.SystemMetricsCollector
	Logger           *slog.Logger
	OTelProviders    *infrastructure.OTelProviders
	BusinessMetrics  *infrastructure.BusinessMetrics
	ErrorHandler     *apierrors.ErrorHandler
	FrontendFS       fs.FS
}

// NewApplication loads configuration and builds the application
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.GetVersionString()),
		slog.String("build", contracts.GetFullVersionString()))

	paths, err := config.GetPaths()
	if err != nil {
		return nil, fmt.Errorf("failed to get paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution()

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	return New(context.Background(), cfg, paths, logger, otelProviders, frontendFS)
}

// New wires an application from already loaded dependencies. The dataset is
// loaded from cfg.Dataset.Source, resolved against paths.
func New(ctx context.Context, cfg *config.Config, paths *config.Paths, logger *slog.Logger, otelProviders *infrastructure.OTelProviders, frontendFS fs.FS) (*Application, error) {
	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		FrontendFS:    frontendFS,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	if err := app.initializeServices(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices loads the dataset and builds the document, hub and services
func (a *Application) initializeServices(ctx context.Context) error {
	meter := a.meter()

	metrics, err := infrastructure.CreateBusinessMetrics(meter)
	if err != nil {
		return fmt.Errorf("failed to create business metrics: %w", err)
	}
	a.BusinessMetrics = metrics

	source := a.Paths.Resolve(a.Config.Dataset.Source)
	if err := validation.NewFileValidator(a.Logger).ValidateSource(source); err != nil {
		return fmt.Errorf("invalid dataset source: %w", err)
	}
	start := time.Now()
	ds, err := dataset.Load(ctx, source, dataset.Options{
		MinConfirmed: a.Config.Dataset.MinConfirmed,
		FetchTimeout: a.Config.Dataset.FetchTimeout,
		Logger:       a.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to load dataset %s: %w", source, err)
	}
	metrics.DatasetLoadDuration.Record(ctx, time.Since(start).Seconds())
	a.Dataset = ds

	doc, err := dashboard.NewDocument(ds, chart.DefaultPlotSpec(), dashboard.Options{
		Interval: a.Config.Animation.Interval,
		Palette:  chart.ShuffledPalette(a.Config.Chart.PaletteSeed),
		Logger:   a.Logger,
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to create dashboard document: %w", err)
	}
	a.Document = doc

	hub := ws.NewHub(a.Logger, ws.HubOptions{
		Metrics:        metrics,
		SendBufferSize: a.Config.WebSocket.SendBufferSize,
		PingPeriod:     a.Config.WebSocket.PingPeriod,
		PongWait:       a.Config.WebSocket.PongWait,
		StatsInterval:  statsInterval,
	})
	a.WebSocketHub = hub

	renderer := chart.NewRenderer(doc.Spec(), doc.Mapper(), a.Config.Chart.RenderWidth, a.Config.Chart.RenderHeight)
	a.DashboardService = services.NewDashboardService(doc, renderer, hub, metrics, a.Logger)
	hub.SetHandler(a.DashboardService)

	collector, err := infrastructure.NewSystemMetricsCollector(meter, statsInterval)
	if err != nil {
		return fmt.Errorf("failed to create system metrics collector: %w", err)
	}
	a.SystemMetrics = collector

	a.HealthService = services.NewHealthService(hub, a.DashboardService, collector, source, a.Logger)
	return nil
}

// meter falls back to the global meter when no provider is configured
func (a *Application) meter() metric.Meter {
	if a.OTelProviders != nil && a.OTelProviders.Meter != nil {
		return a.OTelProviders.Meter
	}
	return otel.Meter(infrastructure.MeterName)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	// These don't wrap the ResponseWriter, so they are safe for the upgrade
	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	upgrader := ws.NewUpgrader(a.Config.WebSocket, a.getCORSConfig().AllowedOrigins, a.Logger)
	r.With(customMiddleware.WebSocketTraceMiddleware(a.Logger)).
		HandleFunc("/ws", ws.ServeWS(a.WebSocketHub, upgrader, a.Logger))

	if a.OTelProviders != nil && a.OTelProviders.PrometheusHTTP != nil {
		r.Handle("/metrics", a.OTelProviders.PrometheusHTTP)
	}

	r.Group(func(r chi.Router) {
		// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
		var tracer trace.Tracer
		if a.OTelProviders != nil {
			tracer = a.OTelProviders.Tracer
		}
		r.Use(customMiddleware.NewOTelMiddleware(tracer, a.BusinessMetrics, a.Logger).Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(apierrors.RecoveryMiddleware(a.ErrorHandler))
		r.Use(customMiddleware.SecurityHeaders)

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		r.NotFound(a.ErrorHandler.NotFound)
		r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

		a.setupAPIRoutes(r)
		a.setupFrontendRoutes(r)
	})

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	validator := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.ReadTimeout, a.Logger))

		healthHandler := handlers.NewHealthHandler(a.HealthService, a.Logger)
		r.Get("/health", healthHandler.HealthCheck)
		r.Get("/health/ready", healthHandler.ReadinessCheck)
		r.Get("/health/live", healthHandler.LivenessCheck)
		r.Get("/version", healthHandler.Version)

		r.Mount("/metrics", handlers.NewMetricsHandler(a.WebSocketHub, a.SystemMetrics).Routes())

		r.Mount("/dashboard", handlers.NewDashboardHandler(a.DashboardService, validator, a.Logger, a.ErrorHandler).Routes())
		r.Mount("/chart", handlers.NewChartHandler(a.DashboardService, validator, a.Logger, a.ErrorHandler).Routes())

		r.With(validator.ContentTypeValidator("application/json"), validator.ValidateRequest).
			Post("/logs", handlers.NewClientLogHandler(validator, a.Logger, a.ErrorHandler).Handle)
	})
}

// setupFrontendRoutes serves the embedded page and its assets
func (a *Application) setupFrontendRoutes(r chi.Router) {
	if a.FrontendFS == nil {
		a.Logger.Warn("No frontend filesystem, serving the API only")
		return
	}

	r.Get("/", handlers.ServeMainApp(a.FrontendFS, a.Logger))
	r.Route("/assets", func(r chi.Router) {
		r.Use(customMiddleware.Compress(5))
		r.Handle("/*", handlers.ServeStatic(a.FrontendFS))
	})
}

// getCORSConfig builds the CORS policy; the same origins gate WebSocket upgrades
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	origins := []string{
		fmt.Sprintf("http://localhost:%d", a.Config.Server.Port),
		fmt.Sprintf("http://127.0.0.1:%d", a.Config.Server.Port),
	}
	for _, origin := range a.Config.Security.AllowedOrigins {
		if !contains(origins, origin) {
			origins = append(origins, origin)
		}
	}

	return customMiddleware.CORSConfig{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.Router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
		IdleTimeout:  a.Config.Server.IdleTimeout,
	}
}

// Start starts the hub and the runtime stats collector
func (a *Application) Start(ctx context.Context) {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.Int("port", a.Config.Server.Port),
		slog.Int("dates", a.Dataset.Len()),
		slog.String("level", a.Config.Logging.Level))

	a.WebSocketHub.Start()
	go a.SystemMetrics.Start(ctx)

	if err := a.performStartupHealthCheck(ctx); err != nil {
		a.Logger.WarnContext(ctx, "Startup health check warnings", slog.String("warnings", err.Error()))
	}
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	// Playback stops before the hub so no patch is broadcast into a closed hub
	a.DashboardService.Close()
	a.WebSocketHub.Stop()
	a.SystemMetrics.Stop()

	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}

	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return errors.Join(errs...)
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		// The parent context is done, so shut down on a fresh one
		return a.Stop(context.Background())
	})
	if a.Config.Server.OpenBrowser {
		go a.openBrowserWhenReady(gctx)
	}

	return g.Wait()
}

// openBrowserWhenReady polls the health endpoint and then opens the dashboard
func (a *Application) openBrowserWhenReady(ctx context.Context) {
	url := fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)
	healthURL := url + "/api/health"

	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(500 * time.Millisecond):
		}

		resp, err := http.Get(healthURL)
		if err != nil {
			continue
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			continue
		}

		if err := openBrowser(ctx, url); err != nil {
			a.Logger.ErrorContext(ctx, "Failed to open browser",
				slog.String("error", err.Error()),
				slog.String("url", url))
			fmt.Printf("\n%s is running at %s\n\n", AppName, url)
		}
		return
	}

	a.Logger.ErrorContext(ctx, "Server did not become ready for browser opening",
		slog.String("url", url),
		slog.Int("max_retries", maxRetries))
}

// performStartupHealthCheck verifies the output directories are writable
func (a *Application) performStartupHealthCheck(ctx context.Context) error {
	var warnings []string

	directories := map[string]string{
		"Exports":  a.Paths.ExportsDir,
		"Captures": a.Paths.CaptureDir,
		"Logs":     a.Paths.LogsDir,
	}
	for name, dir := range directories {
		testFile := filepath.Join(dir, ".write_test")
		if err := os.WriteFile(testFile, []byte("test"), 0644); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s directory not writable: %s", name, dir))
			continue
		}
		os.Remove(testFile)
	}

	if a.FrontendFS == nil {
		warnings = append(warnings, "frontend not embedded")
	}

	if len(warnings) > 0 {
		return fmt.Errorf("startup health check warnings: %s", strings.Join(warnings, "; "))
	}

	a.Logger.InfoContext(ctx, "Startup health check passed")
	return nil
}

// browserMethod represents a method to open the browser
type browserMethod struct {
	name string
	cmd  string
	args []string
}

// openBrowser tries each platform method in turn
func openBrowser(ctx context.Context, url string) error {
	var lastErr error
	for _, method := range getBrowserOpenMethods(url) {
		cmd := exec.CommandContext(ctx, method.cmd, method.args...)
		if err := cmd.Start(); err != nil {
			lastErr = err
			slog.Warn("Browser open method failed",
				slog.String("method", method.name),
				slog.String("error", err.Error()))
			continue
		}
		go cmd.Wait()
		slog.Info("Browser opened successfully",
			slog.String("method", method.name),
			slog.String("url", url))
		return nil
	}
	return fmt.Errorf("failed to open browser: %w", lastErr)
}

// getBrowserOpenMethods returns platform-specific browser opening methods
func getBrowserOpenMethods(url string) []browserMethod {
	switch runtime.GOOS {
	case "windows":
		return []browserMethod{
			{name: "rundll32", cmd: "rundll32", args: []string{"url.dll,FileProtocolHandler", url}},
			{name: "start_command", cmd: "cmd", args: []string{"/c", "start", "", url}},
		}
	case "darwin":
		return []browserMethod{
			{name: "open", cmd: "open", args: []string{url}},
		}
	default:
		return []browserMethod{
			{name: "xdg-open", cmd: "xdg-open", args: []string{url}},
			{name: "sensible-browser", cmd: "sensible-browser", args: []string{url}},
		}
	}
}
