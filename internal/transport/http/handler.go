package http

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"clubplanner/backend/internal/recurrence"
	"clubplanner/backend/internal/service/events"
)

type calendarExporter interface {
	ExportICS(ctx context.Context, w io.Writer, userID string, windowStart, windowEnd time.Time) error
}

type handler struct {
	svc     calendarExporter
	metrics http.Handler
	log     *slog.Logger
}

// NewHandler serves health, metrics and per-user iCalendar feeds. A nil
// metrics handler answers 404 on /metrics.
func NewHandler(svc calendarExporter, metrics http.Handler, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = http.NotFoundHandler()
	}
	h := &handler{
		svc:     svc,
		metrics: metrics,
		log:     log.With(slog.String("component", "http")),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("GET /metrics", h.metrics)
	mux.HandleFunc("GET /users/{user_id}/calendar.ics", h.calendar)
	return mux
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (h *handler) calendar(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.PathValue("user_id"))
	q := r.URL.Query()

	from, err := parseBound(q.Get("from"), false)
	if err != nil {
		http.Error(w, "invalid from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseBound(q.Get("to"), true)
	if err != nil {
		http.Error(w, "invalid to: "+err.Error(), http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := h.svc.ExportICS(r.Context(), &buf, userID, from, to); err != nil {
		var vErr *events.ValidationError
		if errors.As(err, &vErr) {
			http.Error(w, vErr.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("calendar export failed", slog.Any("err", err), slog.String("user_id", userID))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar.ics"`)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("calendar write failed", slog.Any("err", err), slog.String("user_id", userID))
	}
}

// parseBound accepts RFC 3339 or a UTC calendar day. A day given as the upper
// bound includes the whole day.
func parseBound(s string, upper bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	day, err := recurrence.ParseDate(s, time.UTC)
	if err != nil {
		return time.Time{}, err
	}
	if upper {
		day = day.AddDate(0, 0, 1)
	}
	return day, nil
}
