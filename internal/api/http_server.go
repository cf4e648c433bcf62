package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sessionsnap/internal/billing"
	"sessionsnap/internal/config"
	"sessionsnap/internal/database"
	"sessionsnap/internal/domain"
	"sessionsnap/internal/export"
	"sessionsnap/internal/metrics"
	"sessionsnap/internal/models"
	"sessionsnap/internal/service"

	"github.com/rs/zerolog"
)

// Services are the collaborators behind the HTTP handlers.
type Services struct {
	Calendar domain.CalendarService
	Billing  domain.BillingService
	Clients  domain.ClientService
	Share    domain.ShareService
	// Directory resolves client and project names for exported workbooks.
	Directory func(ctx context.Context) (export.Names, error)
}

// Options carries studio presentation settings used by the handlers.
type Options struct {
	Location   *time.Location
	Currency   string
	ExportsDir string
}

// HTTPServer exposes the calendar, billing and client operations over JSON.
type HTTPServer struct {
	cfg      config.APIConfig
	services Services
	opts     Options
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, services Services, opts Options, logger *zerolog.Logger) *HTTPServer {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Currency == "" {
		opts.Currency = billing.DefaultCurrency
	}

	srv := &HTTPServer{
		cfg:      cfg,
		services: services,
		opts:     opts,
		auth:     NewHTTPAuth(cfg),
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", srv.handleHealth)

	srv.route(mux, "GET /api/v1/calendar/week", permReadCalendar, srv.handleWeek)
	srv.route(mux, "GET /api/v1/calendar/slot", permReadCalendar, srv.handleSlot)
	srv.route(mux, "GET /api/v1/drafts/{operator}", permReadCalendar, srv.handleGetDraft)
	srv.route(mux, "DELETE /api/v1/drafts/{operator}", permWriteBookings, srv.handleClearDraft)
	srv.route(mux, "POST /api/v1/drafts/{operator}/toggle", permWriteBookings, srv.handleToggle)
	srv.route(mux, "POST /api/v1/bookings", permWriteBookings, srv.handleReserve)
	srv.route(mux, "DELETE /api/v1/bookings/{id}", permWriteBookings, srv.handleCancel)

	srv.route(mux, "GET /api/v1/clients", permReadClients, srv.handleListClients)
	srv.route(mux, "POST /api/v1/clients", permWriteClients, srv.handleCreateClient)
	srv.route(mux, "GET /api/v1/clients/{id}/projects", permReadClients, srv.handleListProjects)
	srv.route(mux, "POST /api/v1/projects", permWriteClients, srv.handleCreateProject)

	srv.route(mux, "GET /api/v1/projects/{id}/cost", permReadBilling, srv.handleProjectCost)
	srv.route(mux, "GET /api/v1/projects/{id}/status", permReadBilling, srv.handleProjectStatus)
	srv.route(mux, "GET /api/v1/projects/{id}/bookings", permReadBilling, srv.handleProjectBookings)
	srv.route(mux, "GET /api/v1/projects/{id}/receipt", permReadBilling, srv.handleReceipt)
	srv.route(mux, "GET /api/v1/recipe", permReadBilling, srv.handleRecipe)

	srv.route(mux, "GET /api/v1/export/week.xlsx", permReadCalendar, srv.handleExportWeek)
	srv.route(mux, "GET /api/v1/export/recipe.xlsx", permReadBilling, srv.handleExportRecipe)

	srv.route(mux, "POST /api/v1/share-message", permShare, srv.handleShare)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           loggingMiddleware(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// route registers a handler behind auth and counts requests under its pattern.
func (s *HTTPServer) route(mux *http.ServeMux, pattern, permission string, h http.HandlerFunc) {
	counted := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		metrics.IncHTTP(pattern)
		h(w, r)
	})
	mux.Handle(pattern, s.auth.Require(permission, counted))
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps domain errors to HTTP status codes. Anything unrecognised is a 500
// and is logged; its text is not sent to the caller.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrSlotUnavailable), errors.Is(err, database.ErrNotAvailable):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, billing.ErrBillingConfig), errors.Is(err, billing.ErrUnpricedBooking):
		writeError(w, http.StatusUnprocessableEntity, "could not compute cost: "+err.Error())
	case errors.Is(err, service.ErrEmptyDraft),
		errors.Is(err, service.ErrSlotOutsideHours),
		errors.Is(err, service.ErrInvalidReference),
		errors.Is(err, service.ErrInvalidClient),
		errors.Is(err, service.ErrInvalidProject),
		errors.Is(err, models.ErrProjectBilling),
		errors.Is(err, models.ErrInvalidBooking):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, service.ErrSuggestionFailed):
		writeError(w, http.StatusBadGateway, "could not generate a suggestion")
	default:
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

func writeFile(w http.ResponseWriter, contentType, fileName string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
