package janitor_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medicore/notify/internal/janitor"
	"github.com/medicore/notify/internal/notification"
	"github.com/medicore/notify/internal/repository"
)

type stubLister struct {
	stuck []repository.StuckNotification
	err   error

	mu        sync.Mutex
	olderThan time.Duration
	limit     int
}

func (s *stubLister) ListStuckPending(_ context.Context, olderThan time.Duration, limit int) ([]repository.StuckNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.olderThan = olderThan
	s.limit = limit
	return s.stuck, s.err
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	calls []uuid.UUID
	fail  map[uuid.UUID]error
}

func (e *recordingEnqueuer) EnqueueAt(_ context.Context, id uuid.UUID, _ notification.Priority, _ time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err, ok := e.fail[id]; ok {
		return err
	}
	e.calls = append(e.calls, id)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew(t *testing.T) {
	t.Parallel()

	cfg := janitor.Config{Schedule: "@every 5m", StuckAfter: 10 * time.Minute, BatchLimit: 500}

	_, err := janitor.New(nil, &recordingEnqueuer{}, cfg, testLogger())
	assert.ErrorIs(t, err, janitor.ErrStoreNil)

	_, err = janitor.New(&stubLister{}, nil, cfg, testLogger())
	assert.ErrorIs(t, err, janitor.ErrEnqueuerNil)

	j, err := janitor.New(&stubLister{}, &recordingEnqueuer{}, cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, j)
}

func TestJanitor_Sweep(t *testing.T) {
	t.Parallel()

	cfg := janitor.Config{Schedule: "@every 5m", StuckAfter: 10 * time.Minute, BatchLimit: 500}

	t.Run("re-enqueues stuck rows", func(t *testing.T) {
		t.Parallel()

		a, b := uuid.New(), uuid.New()
		lister := &stubLister{stuck: []repository.StuckNotification{
			{ID: a, Priority: notification.PriorityUrgent},
			{ID: b, Priority: notification.PriorityNormal},
		}}
		enq := &recordingEnqueuer{}

		j, err := janitor.New(lister, enq, cfg, testLogger())
		require.NoError(t, err)

		j.Sweep(context.Background())

		assert.Equal(t, []uuid.UUID{a, b}, enq.calls)
		assert.Equal(t, 10*time.Minute, lister.olderThan)
		assert.Equal(t, 500, lister.limit)
	})

	t.Run("continues past enqueue failures", func(t *testing.T) {
		t.Parallel()

		bad, good := uuid.New(), uuid.New()
		lister := &stubLister{stuck: []repository.StuckNotification{
			{ID: bad, Priority: notification.PriorityHigh},
			{ID: good, Priority: notification.PriorityLow},
		}}
		enq := &recordingEnqueuer{fail: map[uuid.UUID]error{bad: assert.AnError}}

		j, err := janitor.New(lister, enq, cfg, testLogger())
		require.NoError(t, err)

		j.Sweep(context.Background())

		assert.Equal(t, []uuid.UUID{good}, enq.calls)
	})

	t.Run("list failure skips the pass", func(t *testing.T) {
		t.Parallel()

		lister := &stubLister{err: assert.AnError}
		enq := &recordingEnqueuer{}

		j, err := janitor.New(lister, enq, cfg, testLogger())
		require.NoError(t, err)

		j.Sweep(context.Background())
		assert.Empty(t, enq.calls)
	})
}

func TestJanitor_Start(t *testing.T) {
	t.Parallel()

	t.Run("invalid schedule", func(t *testing.T) {
		t.Parallel()

		j, err := janitor.New(&stubLister{}, &recordingEnqueuer{}, janitor.Config{Schedule: "not a cron"}, testLogger())
		require.NoError(t, err)

		assert.ErrorIs(t, j.Start(context.Background()), janitor.ErrInvalidSchedule)
	})

	t.Run("scheduled sweeps run", func(t *testing.T) {
		t.Parallel()

		id := uuid.New()
		lister := &stubLister{stuck: []repository.StuckNotification{{ID: id, Priority: notification.PriorityNormal}}}
		enq := &recordingEnqueuer{}

		j, err := janitor.New(lister, enq, janitor.Config{
			Schedule:   "@every 100ms",
			StuckAfter: time.Minute,
			BatchLimit: 10,
		}, testLogger())
		require.NoError(t, err)

		require.NoError(t, j.Start(context.Background()))
		defer j.Stop()

		require.Eventually(t, func() bool {
			enq.mu.Lock()
			defer enq.mu.Unlock()
			return len(enq.calls) > 0
		}, 3*time.Second, 20*time.Millisecond)
	})
}
