// Package web serves the Telegram webhook, a health check and shared
// itineraries.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"ai-day-planner/internal/export"
	"ai-day-planner/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const webhookBodyLimit = 1 << 20

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorDetail{Code: code, Message: message}})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}

// Server holds the handlers behind the router.
type Server struct {
	webhook  http.Handler
	share    *export.ShareCodec
	dataPath string
	logger   *slog.Logger
}

// NewServer wires the handlers. webhook and share may be nil, which
// disables the matching routes.
func NewServer(logger *slog.Logger, webhook http.Handler, share *export.ShareCodec, dataPath string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{webhook: webhook, share: share, dataPath: dataPath, logger: logger}
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.health)
	if s.webhook != nil {
		r.With(maxBodySize(webhookBodyLimit)).Post("/webhook", s.webhook.ServeHTTP)
	}
	r.Get("/share/{token}", s.sharedPage)
	r.Get("/share/{token}/calendar.ics", s.sharedCalendar)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "not found")
	})
	return r
}

type healthResponse struct {
	Status     string `json:"status"`
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	DataSize   string `json:"data_size"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	h := metrics.GetSysHealth(s.dataPath)
	writeJSON(w, http.StatusOK, healthResponse{
		Status:     "ok",
		Uptime:     h.Uptime.String(),
		Goroutines: h.Goroutines,
		DataSize:   h.DataDiskSize,
	})
}

func (s *Server) sharedTrip(w http.ResponseWriter, r *http.Request) (export.SharedTrip, bool) {
	if s.share == nil {
		writeError(w, http.StatusNotFound, "not_found", export.ErrSharingDisabled.Error())
		return export.SharedTrip{}, false
	}
	trip, err := s.share.Decode(chi.URLParam(r, "token"))
	if err != nil {
		if !errors.Is(err, export.ErrInvalidShareToken) {
			s.logger.WarnContext(r.Context(), "Failed to decode share token", "error", err)
		}
		writeError(w, http.StatusNotFound, "not_found", "this link is invalid or has expired")
		return export.SharedTrip{}, false
	}
	return trip, true
}

func (s *Server) sharedPage(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.sharedTrip(w, r)
	if !ok {
		return
	}
	page, err := export.HTML(trip.Prefs, trip.Itinerary)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to render shared itinerary", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not render itinerary")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(page)
}

func (s *Server) sharedCalendar(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.sharedTrip(w, r)
	if !ok {
		return
	}
	cal, err := export.ICS(trip.Prefs, trip.Itinerary)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "no_date", err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": export.CalendarFilename(trip.Prefs.City),
	}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cal))
}
