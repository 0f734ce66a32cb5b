package http

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"covidpulse/internal/chart"
	apierrors "covidpulse/internal/errors"
	"covidpulse/internal/infrastructure"
	"covidpulse/internal/middleware"
)

// ChartHandler serves rendered frames of the plot
type ChartHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewChartHandler creates a new chart handler
func NewChartHandler(service DashboardServiceInterface, validator *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ChartHandler {
	return &ChartHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "chart_handler"),
		errorHandler: errorHandler,
	}
}

// frameRequest is the {date}.{format} path segment of a frame request
type frameRequest struct {
	Date   string `json:"date" validate:"required,datekey"`
	Format string `json:"format" validate:"required,imageformat"`
}

func parseFrame(frame string) frameRequest {
	ext := path.Ext(frame)
	return frameRequest{
		Date:   strings.TrimSuffix(frame, ext),
		Format: strings.TrimPrefix(ext, "."),
	}
}

// Routes returns the chart routes
func (h *ChartHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{frame}", h.GetFrame)
	return r
}

// GetFrame handles GET /api/chart/{date}.{svg|png}. The date "current" is the
// frame the dashboard shows.
func (h *ChartHandler) GetFrame(w http.ResponseWriter, r *http.Request) {
	frame := chi.URLParam(r, "frame")
	req := parseFrame(frame)
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	format, err := chart.ParseFormat(req.Format)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	img, err := h.service.RenderFrame(r.Context(), format, req.Date)
	if err != nil {
		apiErr := toAPIError(err)
		var known *apierrors.APIError
		if !errors.As(apiErr, &known) {
			infrastructure.WithError(h.logger, err).ErrorContext(r.Context(), "frame render failed",
				slog.String("request_id", middleware.GetRequestID(r.Context())),
				slog.String("frame", frame),
			)
			apiErr = apierrors.ErrRenderFailed
		}
		h.errorHandler.HandleError(w, r, apiErr)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(img)
}
