package ops

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medicore/notify/internal/notification"
	"github.com/medicore/notify/internal/queue"
	"github.com/medicore/notify/internal/repository"
	"github.com/medicore/notify/pkg/logger"
)

// StatsSource exposes queue statistics for dashboards.
type StatsSource interface {
	Stats(ctx context.Context) (queue.Stats, error)
}

// Enqueuer is the producer-facing queue surface: enqueue on create, drop the
// queue item on cancel.
type Enqueuer interface {
	EnqueueAt(ctx context.Context, id uuid.UUID, priority notification.Priority, dueAt time.Time) error
	Remove(ctx context.Context, id uuid.UUID, priority notification.Priority) error
}

// RecordStore is the row surface the HTTP handlers need.
type RecordStore interface {
	Create(ctx context.Context, n *notification.Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error)
	Cancel(ctx context.Context, id uuid.UUID) error
}

// Handler serves the operational endpoints.
type Handler struct {
	stats    StatsSource
	enqueuer Enqueuer
	store    RecordStore
	checks   map[string]func(context.Context) error
	log      *slog.Logger
}

// NewHandler creates the handler. checks maps a dependency name to its
// health probe.
func NewHandler(stats StatsSource, enqueuer Enqueuer, store RecordStore, checks map[string]func(context.Context) error, log *slog.Logger) *Handler {
	return &Handler{
		stats:    stats,
		enqueuer: enqueuer,
		store:    store,
		checks:   checks,
		log:      log,
	}
}

// Health probes every registered dependency.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	result := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			result[name] = err.Error()
			continue
		}
		result[name] = "ok"
	}
	writeJSON(w, status, result)
}

// QueueStats returns per-priority depth, in-flight count, and failed-queue
// size.
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		h.log.Error("failed to collect queue stats", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to collect queue stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// createRequest is the producer payload for a new notification.
type createRequest struct {
	RecipientID   uuid.UUID                  `json:"recipient_id"`
	RecipientKind notification.RecipientKind `json:"recipient_kind"`
	Channel       notification.Channel       `json:"channel"`
	Priority      notification.Priority      `json:"priority"`
	Title         string                     `json:"title"`
	Body          string                     `json:"body"`
	Metadata      map[string]string          `json:"metadata,omitempty"`
	ScheduledAt   *time.Time                 `json:"scheduled_at,omitempty"`
	MaxRetries    *int                       `json:"max_retries,omitempty"`
}

// CreateNotification inserts the PENDING row and enqueues its id, the same
// two-step flow every producer follows.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Channel.Valid() {
		writeError(w, http.StatusBadRequest, "unknown channel")
		return
	}
	if !req.Priority.Valid() {
		writeError(w, http.StatusBadRequest, "unknown priority")
		return
	}
	if req.RecipientID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}

	now := time.Now()
	scheduledAt := now
	if req.ScheduledAt != nil && req.ScheduledAt.After(now) {
		scheduledAt = *req.ScheduledAt
	}
	maxRetries := 3
	if req.MaxRetries != nil && *req.MaxRetries >= 0 {
		maxRetries = *req.MaxRetries
	}

	n := &notification.Notification{
		ID:            uuid.New(),
		RecipientID:   req.RecipientID,
		RecipientKind: req.RecipientKind,
		Channel:       req.Channel,
		Priority:      req.Priority,
		Status:        notification.StatusPending,
		Title:         req.Title,
		Body:          req.Body,
		Metadata:      req.Metadata,
		ScheduledAt:   scheduledAt,
		MaxRetries:    maxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.Create(r.Context(), n); err != nil {
		h.log.Error("failed to create notification", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create notification")
		return
	}

	if err := h.enqueuer.EnqueueAt(r.Context(), n.ID, n.Priority, scheduledAt); err != nil {
		// The row exists but has no queue item; the janitor sweep picks it
		// up. Report the degraded path instead of failing the create.
		h.log.Error("failed to enqueue notification",
			logger.NotificationID(n.ID), logger.Error(err))
	}

	writeJSON(w, http.StatusCreated, n)
}

// GetNotification returns one row, including delivery milestones.
func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	n, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.log.Error("failed to load notification", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load notification")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// CancelNotification cancels a PENDING notification out-of-band and drops
// its queue item. The removal is best effort: if it loses a race with a
// worker, the worker sees CANCELLED on load and no-ops.
func (h *Handler) CancelNotification(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	n, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, queue.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.log.Error("failed to load notification", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to cancel notification")
		return
	}

	if err := h.store.Cancel(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, queue.ErrRecordNotFound):
			writeError(w, http.StatusNotFound, "notification not found")
		case errors.Is(err, repository.ErrInvalidTransition):
			writeError(w, http.StatusConflict, "notification already progressed past pending")
		default:
			h.log.Error("failed to cancel notification", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to cancel notification")
		}
		return
	}

	if err := h.enqueuer.Remove(r.Context(), id, n.Priority); err != nil {
		// The row already says CANCELLED; a worker that dequeues the stale
		// item drops it without a state change.
		h.log.Error("failed to remove cancelled notification from queue",
			logger.NotificationID(id), logger.Error(err))
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
