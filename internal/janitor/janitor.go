package janitor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/medicore/notify/internal/notification"
	"github.com/medicore/notify/internal/repository"
	"github.com/medicore/notify/pkg/logger"
)

var (
	// ErrStoreNil is returned when a nil record store is provided.
	ErrStoreNil = errors.New("record store cannot be nil")

	// ErrEnqueuerNil is returned when a nil enqueuer is provided.
	ErrEnqueuerNil = errors.New("enqueuer cannot be nil")

	// ErrInvalidSchedule is returned for an unparsable cron expression.
	ErrInvalidSchedule = errors.New("invalid janitor schedule")
)

// StuckLister finds PENDING rows overdue for dispatch.
type StuckLister interface {
	ListStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]repository.StuckNotification, error)
}

// Enqueuer re-adds a notification id to its priority queue. Sorted-set
// semantics make this idempotent: a row that still has a live queue item
// just gets its score refreshed, preserving the single-item invariant.
type Enqueuer interface {
	EnqueueAt(ctx context.Context, id uuid.UUID, priority notification.Priority, dueAt time.Time) error
}

// Config is the environment surface for the janitor.
type Config struct {
	Schedule   string        `env:"JANITOR_SCHEDULE" envDefault:"@every 5m"` // Schedule is a cron expression for the sweep.
	StuckAfter time.Duration `env:"JANITOR_STUCK_AFTER" envDefault:"10m"`    // StuckAfter is how overdue a PENDING row must be to count as stuck.
	BatchLimit int           `env:"JANITOR_BATCH_LIMIT" envDefault:"500"`    // BatchLimit caps rows repaired per sweep.
}

// Janitor periodically re-enqueues PENDING notifications that lost their
// queue item, e.g. after a queue-store flush or a crash between the row
// insert and the enqueue call.
type Janitor struct {
	store      StuckLister
	enqueuer   Enqueuer
	cron       *cron.Cron
	schedule   string
	stuckAfter time.Duration
	batchLimit int
	log        *slog.Logger
}

// New creates a janitor.
func New(store StuckLister, enqueuer Enqueuer, cfg Config, log *slog.Logger) (*Janitor, error) {
	if store == nil {
		return nil, ErrStoreNil
	}
	if enqueuer == nil {
		return nil, ErrEnqueuerNil
	}
	if log == nil {
		log = slog.Default()
	}

	return &Janitor{
		store:      store,
		enqueuer:   enqueuer,
		cron:       cron.New(),
		schedule:   cfg.Schedule,
		stuckAfter: cfg.StuckAfter,
		batchLimit: cfg.BatchLimit,
		log:        log,
	}, nil
}

// Start registers the sweep and launches the cron scheduler.
func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.schedule, func() { j.Sweep(ctx) })
	if err != nil {
		return errors.Join(ErrInvalidSchedule, err)
	}
	j.cron.Start()
	j.log.Info("janitor started", slog.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	stopCtx := j.cron.Stop()
	<-stopCtx.Done()
	j.log.Info("janitor stopped")
}

// Sweep runs one repair pass. Exported so operators can trigger it
// out-of-schedule.
func (j *Janitor) Sweep(ctx context.Context) {
	stuck, err := j.store.ListStuckPending(ctx, j.stuckAfter, j.batchLimit)
	if err != nil {
		j.log.Error("janitor sweep failed to list stuck notifications", logger.Error(err))
		return
	}
	if len(stuck) == 0 {
		return
	}

	repaired := 0
	now := time.Now()
	for _, s := range stuck {
		if err := j.enqueuer.EnqueueAt(ctx, s.ID, s.Priority, now); err != nil {
			j.log.Error("janitor failed to re-enqueue notification",
				logger.NotificationID(s.ID), logger.Error(err))
			continue
		}
		repaired++
	}

	j.log.Info("janitor sweep completed",
		slog.Int("stuck", len(stuck)),
		slog.Int("repaired", repaired))
}
