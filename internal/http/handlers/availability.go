package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/tour-availability/internal/availability"
	"github.com/wolfman30/tour-availability/pkg/logging"
)

// AvailabilityLister is the slice of availability.Service the handler needs.
type AvailabilityLister interface {
	Availability(ctx context.Context, start, end string) ([]availability.CalendarEvent, error)
}

// AvailabilityHandler serves calendar events as JSON.
type AvailabilityHandler struct {
	service AvailabilityLister
	logger  *logging.Logger
}

// NewAvailabilityHandler constructs the handler; a nil logger uses the default.
func NewAvailabilityHandler(service AvailabilityLister, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{service: service, logger: logger}
}

// ListByPath serves GET /availability/{start}/{end}.
func (h *AvailabilityHandler) ListByPath(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "start"), chi.URLParam(r, "end"))
}

// ListByQuery serves GET /availability?start=...&end=..., the JSON feed form
// FullCalendar requests.
func (h *AvailabilityHandler) ListByQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.list(w, r, q.Get("start"), q.Get("end"))
}

func (h *AvailabilityHandler) list(w http.ResponseWriter, r *http.Request, start, end string) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		writeError(w, http.StatusBadRequest, "start and end are required")
		return
	}
	if h == nil || h.service == nil {
		writeError(w, http.StatusServiceUnavailable, "availability service not configured")
		return
	}

	events, err := h.service.Availability(r.Context(), start, end)
	switch {
	case err == nil:
		if events == nil {
			events = []availability.CalendarEvent{}
		}
		writeJSON(w, http.StatusOK, events)
	case errors.Is(err, availability.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, availability.ErrNotConfigured):
		h.logger.Warn("availability requested but service not configured")
		writeError(w, http.StatusServiceUnavailable, "availability service not configured")
	default:
		h.logger.Error("availability request failed", "start", start, "end", end, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load availability")
	}
}

// Health reports liveness. It does not call upstream.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
