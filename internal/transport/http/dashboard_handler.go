package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"covidpulse/internal/chart"
	"covidpulse/internal/dashboard"
	"covidpulse/internal/dataset"
	apierrors "covidpulse/internal/errors"
	"covidpulse/internal/infrastructure"
	"covidpulse/internal/middleware"
	"covidpulse/internal/services"
	apiv1 "covidpulse/pkg/contracts/api/v1"
)

// DashboardHandler exposes the dashboard document over REST with RFC 7807 errors
type DashboardHandler struct {
	service      DashboardServiceInterface
	validator    *middleware.ValidationMiddleware
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardServiceInterface, validator *middleware.ValidationMiddleware, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    validator,
		logger:       infrastructure.WithComponent(logger, "dashboard_handler"),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/state", h.GetState)
	r.Get("/dates", h.GetDates)
	r.Get("/countries", h.GetCountries)
	r.Get("/snapshots/{date}", h.GetSnapshot)

	r.With(h.validator.ContentTypeValidator("application/json"), h.validator.ValidateRequest).
		Put("/slider", h.SetSlider)
	r.Post("/playback/toggle", h.TogglePlayback)
	r.Post("/step", h.Step)

	return r
}

// GetState handles GET /api/dashboard/state
func (h *DashboardHandler) GetState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.State(r.Context()))
}

// GetDates handles GET /api/dashboard/dates
func (h *DashboardHandler) GetDates(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Dates(r.Context()))
}

// GetCountries handles GET /api/dashboard/countries
func (h *DashboardHandler) GetCountries(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Countries(r.Context()))
}

// snapshotRequest is the {date} path segment of a snapshot request
type snapshotRequest struct {
	Date string `json:"date" validate:"required,datekey"`
}

// GetSnapshot handles GET /api/dashboard/snapshots/{date}
func (h *DashboardHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	req := snapshotRequest{Date: chi.URLParam(r, "date")}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	snapshot, err := h.service.Snapshot(r.Context(), req.Date)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, snapshot)
}

// SetSlider handles PUT /api/dashboard/slider
func (h *DashboardHandler) SetSlider(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())

	var req apiv1.SliderRequest
	if err := h.validator.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "slider change requested",
		slog.String("request_id", reqID),
		slog.Int("value", *req.Value),
	)

	patch, err := h.service.SetSlider(r.Context(), *req.Value)
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, patch)
}

// TogglePlayback handles POST /api/dashboard/playback/toggle
func (h *DashboardHandler) TogglePlayback(w http.ResponseWriter, r *http.Request) {
	patch, err := h.service.TogglePlayback(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}

	h.logger.InfoContext(r.Context(), "playback toggled",
		slog.String("request_id", middleware.GetRequestID(r.Context())),
		slog.Uint64("revision", patch.Revision),
	)
	render.JSON(w, r, patch)
}

// Step handles POST /api/dashboard/step
func (h *DashboardHandler) Step(w http.ResponseWriter, r *http.Request) {
	patch, err := h.service.Step(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, toAPIError(err))
		return
	}
	render.JSON(w, r, patch)
}

// toAPIError maps service and document errors to API errors. Unknown errors
// pass through so the error handler can still classify them.
func toAPIError(err error) error {
	var rangeErr *dashboard.RangeError
	switch {
	case errors.As(err, &rangeErr):
		return apierrors.SliderOutOfRangeError(rangeErr.Value, rangeErr.Start, rangeErr.End)
	case errors.Is(err, services.ErrInvalidDate):
		return apierrors.ErrValidation("date", "Date must be YYYY-MM-DD, YYYYMMDD or current")
	case errors.Is(err, dataset.ErrDateNotFound):
		return apierrors.ErrDateNotFound
	case errors.Is(err, dashboard.ErrClosed):
		return apierrors.ErrDocumentClosed
	case errors.Is(err, chart.ErrUnknownFormat):
		return apierrors.ErrValidation("format", "Format must be svg or png")
	}
	return err
}
