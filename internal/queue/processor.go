package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/medicore/notify/internal/channel"
	"github.com/medicore/notify/internal/contact"
	"github.com/medicore/notify/internal/notification"
	"github.com/medicore/notify/pkg/logger"
)

// RecordStore is the record-store surface the workers drive state
// transitions through. Every method persists the row change and the
// delivery log entry in one transaction.
type RecordStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*notification.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, externalMessageID string, entry notification.DeliveryLogEntry) error
	MarkDelivered(ctx context.Context, id uuid.UUID, externalMessageID string, entry notification.DeliveryLogEntry) error
	MarkPendingRetry(ctx context.Context, id uuid.UUID, reason string, nextAttemptAt time.Time, entry notification.DeliveryLogEntry) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, countAttempt bool, entry notification.DeliveryLogEntry) error
}

// ErrRecordNotFound must be returned by RecordStore.GetByID when the row
// does not exist, so the worker can drop stale queue items.
var ErrRecordNotFound = errors.New("notification not found")

// ProviderRegistry resolves the delivery provider for a channel.
type ProviderRegistry interface {
	Resolve(ch notification.Channel) (channel.Provider, error)
}

// Processor owns the worker pool: it dequeues due notification ids across
// priority tiers, drives each through send -> result -> retry-or-terminal,
// and exposes enqueue and queue statistics. Construct one per process and
// pass it to producers; lifecycle is explicit via Start and Stop.
type Processor struct {
	queue    Queue
	store    RecordStore
	registry ProviderRegistry
	resolver contact.Resolver
	backoff  BackoffTable

	workerCount   int
	batchSize     int
	pollInterval  time.Duration
	itemTimeout   time.Duration
	shutdownGrace time.Duration
	log           *slog.Logger

	// Run-scoped state: each Start gets its own context and WaitGroup so a
	// restart never races workers abandoned by a timed-out Stop.
	mu         sync.Mutex
	cancel     context.CancelFunc
	wg         *sync.WaitGroup
	processing atomic.Int64
}

// NewProcessor creates a processor. All four collaborators are required.
func NewProcessor(q Queue, store RecordStore, registry ProviderRegistry, resolver contact.Resolver, opts ...ProcessorOption) (*Processor, error) {
	if q == nil {
		return nil, ErrQueueNil
	}
	if store == nil {
		return nil, ErrRecordStoreNil
	}
	if registry == nil {
		return nil, ErrRegistryNil
	}
	if resolver == nil {
		return nil, ErrResolverNil
	}

	options := &processorOptions{
		workerCount:   4,
		batchSize:     50,
		pollInterval:  5 * time.Second,
		itemTimeout:   5 * time.Minute,
		shutdownGrace: 30 * time.Second,
		backoff:       NewBackoffTable(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Processor{
		queue:         q,
		store:         store,
		registry:      registry,
		resolver:      resolver,
		backoff:       options.backoff,
		workerCount:   options.workerCount,
		batchSize:     options.batchSize,
		pollInterval:  options.pollInterval,
		itemTimeout:   options.itemTimeout,
		shutdownGrace: options.shutdownGrace,
		log:           options.logger,
	}, nil
}

// Enqueue makes a PENDING notification eligible for dispatch now. This is
// the producer-facing entry point; the caller must have created the row
// first.
func (p *Processor) Enqueue(ctx context.Context, id uuid.UUID, priority notification.Priority) error {
	return p.EnqueueAt(ctx, id, priority, time.Now())
}

// EnqueueAt schedules a notification for dispatch at dueAt.
func (p *Processor) EnqueueAt(ctx context.Context, id uuid.UUID, priority notification.Priority, dueAt time.Time) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	return p.queue.Enqueue(ctx, id, priority, dueAt)
}

// Remove drops a notification's queue item after an out-of-band cancel, so
// the stale pointer does not burn a dequeue slot. The row's CANCELLED status
// remains the source of truth; a worker that races the removal no-ops.
func (p *Processor) Remove(ctx context.Context, id uuid.UUID, priority notification.Priority) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, priority)
	}
	return p.queue.Remove(ctx, id, priority)
}

// Start launches the worker pool.
func (p *Processor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	wg := &sync.WaitGroup{}
	p.cancel = cancel
	p.wg = wg

	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go p.worker(runCtx, wg, i)
	}

	p.log.Info("queue processor started",
		slog.Int("worker_count", p.workerCount),
		slog.Int("batch_size", p.batchSize),
		slog.Duration("poll_interval", p.pollInterval))

	return nil
}

// Stop signals workers to stop pulling batches and waits for in-flight
// items up to the shutdown grace window. Workers that do not quiesce in
// time are abandoned and ErrShutdownTimeout is returned.
func (p *Processor) Stop() error {
	p.mu.Lock()
	cancel := p.cancel
	wg := p.wg
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()

	p.log.Info("queue processor stopping, waiting for in-flight items")

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.log.Info("queue processor stopped")
		return nil
	case <-time.After(p.shutdownGrace):
		p.log.Error("queue processor shutdown grace expired, abandoning workers",
			slog.Int64("in_flight", p.processing.Load()))
		return ErrShutdownTimeout
	}
}

// Run starts the processor and returns a function suitable for errgroup.
func (p *Processor) Run(ctx context.Context) func() error {
	return func() error {
		if err := p.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return p.Stop()
	}
}

// Stats reports queue depth per priority tier, the number of items being
// processed right now, and the failed-queue size.
func (p *Processor) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{PerPriorityDepth: make(map[notification.Priority]int64, len(notification.Tiers()))}

	for _, tier := range notification.Tiers() {
		depth, err := p.queue.Depth(ctx, tier)
		if err != nil {
			return Stats{}, err
		}
		stats.PerPriorityDepth[tier] = depth
	}

	failed, err := p.queue.FailureCount(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.FailedCount = failed
	stats.ProcessingCount = p.processing.Load()
	return stats, nil
}

// Stats is a point-in-time snapshot for dashboards and alerting.
type Stats struct {
	PerPriorityDepth map[notification.Priority]int64 `json:"per_priority_depth"`
	ProcessingCount  int64                           `json:"processing_count"`
	FailedCount      int64                           `json:"failed_count"`
}

// worker is one independent loop: scan tiers, process the batch, sleep on
// an empty cycle.
func (p *Processor) worker(ctx context.Context, wg *sync.WaitGroup, id int) {
	defer wg.Done()

	log := p.log.With(logger.WorkerID(id))
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker stopped")
			return
		default:
		}

		if p.runCycle(ctx, log) == 0 {
			select {
			case <-ctx.Done():
				log.Debug("worker stopped")
				return
			case <-time.After(p.pollInterval):
			}
		}
	}
}

// runCycle scans tiers in strict urgent -> high -> normal -> low order with
// one shared batch budget, so no lower tier is touched while higher-tier
// work is due and capacity remains.
func (p *Processor) runCycle(ctx context.Context, log *slog.Logger) int {
	capacity := p.batchSize
	processed := 0
	now := time.Now()

	for _, tier := range notification.Tiers() {
		if capacity <= 0 {
			break
		}

		ids, err := p.queue.DequeueDue(ctx, tier, capacity, now)
		if err != nil {
			if ctx.Err() != nil {
				return processed
			}
			// Store unreachable: log and let the next cycle retry. Nothing
			// was removed from the queue, so no work is lost.
			log.Error("failed to dequeue batch", logger.Priority(tier), logger.Error(err))
			return processed
		}

		for _, id := range ids {
			p.processItem(log, id, tier)
			processed++
		}
		capacity -= len(ids)
	}
	return processed
}

// processItem drives one dequeued notification through a single delivery
// attempt. The item context is detached from the worker context so graceful
// shutdown lets the attempt finish, bounded by the per-item budget.
func (p *Processor) processItem(log *slog.Logger, id uuid.UUID, tier notification.Priority) {
	start := time.Now()
	p.processing.Add(1)
	inflightGauge.Inc()
	defer func() {
		p.processing.Add(-1)
		inflightGauge.Dec()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.itemTimeout)
	defer cancel()

	log = log.With(logger.NotificationID(id), logger.Priority(tier))

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic while processing notification: %v", r)
			log.Error("worker recovered from panic", logger.Error(err))
			p.recordProcessingFailure(ctx, log, id, err)
		}
	}()

	n, err := p.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			// Stale pointer; the row is the source of truth and it is gone.
			log.Warn("dropping queue item for missing notification")
			return
		}
		log.Error("failed to load notification", logger.Error(err))
		if err := p.queue.RecordFailure(ctx, id, ProcessingFailure{FailedAt: time.Now(), Error: err.Error()}); err != nil {
			log.Error("failed to record processing failure", logger.Error(err))
		}
		return
	}

	// Guards against stale or duplicate queue items referencing work that
	// already completed or was cancelled out-of-band: no log entry, no
	// state change.
	if n.Status != notification.StatusPending {
		log.Debug("skipping notification not in pending status",
			slog.String("status", string(n.Status)))
		return
	}

	log = log.With(logger.Channel(n.Channel), slog.Int("retry_count", n.RetryCount))

	provider, err := p.registry.Resolve(n.Channel)
	if err != nil {
		p.recordProcessingFailure(ctx, log, id, err)
		return
	}

	rcpt, err := p.resolver.Resolve(ctx, n.RecipientID, n.RecipientKind, n.Channel)
	if err != nil {
		if errors.Is(err, contact.ErrContactNotFound) {
			// Data problem, not infrastructure: fail terminally without a
			// failed-queue record. retry_count stays put, so the row is
			// distinguishable from an exhausted budget.
			p.failTerminally(ctx, log, n, err.Error(), false, "")
			return
		}
		p.recordProcessingFailure(ctx, log, id, err)
		return
	}

	result, err := provider.Send(ctx, rcpt, n.Title, n.Body, n.Metadata)
	if err != nil {
		// Providers express ordinary failures in the result; an error here
		// is the transport layer giving up entirely (or the per-item budget
		// expiring mid-send). Either way it is a failed attempt.
		result = channel.DeliveryResult{
			Status:       channel.DeliveryFailed,
			ErrorMessage: err.Error(),
		}
	}
	if ctx.Err() != nil && !result.Success {
		result.ErrorMessage = ErrItemTimeout.Error()
	}

	duration := time.Since(start)

	if result.Success {
		p.recordSuccess(ctx, log, n, result, duration)
		return
	}
	p.recordFailure(ctx, log, n, tier, result, duration)
}

func (p *Processor) recordSuccess(ctx context.Context, log *slog.Logger, n *notification.Notification, result channel.DeliveryResult, duration time.Duration) {
	entry := notification.DeliveryLogEntry{
		ID:               uuid.New(),
		NotificationID:   n.ID,
		AttemptedAt:      time.Now(),
		Outcome:          "accepted by provider",
		ProviderResponse: result.RawResponse,
	}

	var err error
	if result.Status == channel.DeliveryDelivered {
		entry.Status = notification.StatusDelivered
		entry.Outcome = "delivery confirmed by provider"
		err = p.store.MarkDelivered(ctx, n.ID, result.ProviderMessageID, entry)
	} else {
		entry.Status = notification.StatusSent
		err = p.store.MarkSent(ctx, n.ID, result.ProviderMessageID, entry)
	}
	if err != nil {
		log.Error("failed to persist delivery outcome", logger.Error(err))
		p.recordProcessingFailure(ctx, log, n.ID, err)
		return
	}

	processedTotal.WithLabelValues(string(n.Channel), string(entry.Status)).Inc()
	log.Info("notification dispatched",
		slog.String("status", string(entry.Status)),
		slog.String("external_message_id", result.ProviderMessageID),
		slog.Duration("duration", duration))
}

// recordFailure applies the retry state machine: increment the retry count,
// re-enqueue with backoff while budget remains, otherwise fail terminally.
func (p *Processor) recordFailure(ctx context.Context, log *slog.Logger, n *notification.Notification, tier notification.Priority, result channel.DeliveryResult, duration time.Duration) {
	attempts := n.RetryCount + 1

	log.Warn("delivery attempt failed",
		slog.String("reason", result.ErrorMessage),
		slog.Int("attempt", attempts),
		slog.Int("max_retries", n.MaxRetries),
		slog.Duration("duration", duration))

	if attempts >= n.MaxRetries {
		p.failTerminally(ctx, log, n, result.ErrorMessage, true, result.RawResponse)
		return
	}

	delay := p.backoff.Delay(tier, attempts)
	nextAttempt := time.Now().Add(delay)
	entry := notification.DeliveryLogEntry{
		ID:               uuid.New(),
		NotificationID:   n.ID,
		AttemptedAt:      time.Now(),
		Status:           notification.StatusPending,
		Outcome:          fmt.Sprintf("attempt %d failed, retrying in %s: %s", attempts, delay, result.ErrorMessage),
		ProviderResponse: result.RawResponse,
	}

	if err := p.store.MarkPendingRetry(ctx, n.ID, result.ErrorMessage, nextAttempt, entry); err != nil {
		log.Error("failed to persist retry transition", logger.Error(err))
		p.recordProcessingFailure(ctx, log, n.ID, err)
		return
	}

	if err := p.queue.Enqueue(ctx, n.ID, tier, nextAttempt); err != nil {
		// The row says PENDING but no queue item exists; the janitor sweep
		// repairs exactly this state.
		log.Error("failed to re-enqueue for retry", logger.Error(err))
		if rferr := p.queue.RecordFailure(ctx, n.ID, ProcessingFailure{FailedAt: time.Now(), Error: err.Error()}); rferr != nil {
			log.Error("failed to record processing failure", logger.Error(rferr))
		}
		return
	}

	retriedTotal.WithLabelValues(string(n.Channel)).Inc()
	log.Info("notification scheduled for retry",
		slog.Int("attempt", attempts),
		slog.Duration("backoff", delay),
		slog.Time("next_attempt_at", nextAttempt))
}

// failTerminally marks the notification FAILED. Exhausting the retry budget
// is an expected terminal outcome, not an application error.
func (p *Processor) failTerminally(ctx context.Context, log *slog.Logger, n *notification.Notification, reason string, countAttempt bool, rawResponse string) {
	entry := notification.DeliveryLogEntry{
		ID:               uuid.New(),
		NotificationID:   n.ID,
		AttemptedAt:      time.Now(),
		Status:           notification.StatusFailed,
		Outcome:          "failed terminally: " + reason,
		ProviderResponse: rawResponse,
	}

	if err := p.store.MarkFailed(ctx, n.ID, reason, countAttempt, entry); err != nil {
		log.Error("failed to persist terminal failure", logger.Error(err))
		p.recordProcessingFailure(ctx, log, n.ID, err)
		return
	}

	processedTotal.WithLabelValues(string(n.Channel), string(notification.StatusFailed)).Inc()
	log.Error("notification failed terminally", slog.String("reason", reason))
}

// recordProcessingFailure handles errors outside the normal send path:
// mark the row FAILED with the error text and additionally record it in the
// failed-queue diagnostic map. Both writes are best effort; the worker must
// survive either failing.
func (p *Processor) recordProcessingFailure(ctx context.Context, log *slog.Logger, id uuid.UUID, cause error) {
	entry := notification.DeliveryLogEntry{
		ID:             uuid.New(),
		NotificationID: id,
		AttemptedAt:    time.Now(),
		Status:         notification.StatusFailed,
		Outcome:        "processing error: " + cause.Error(),
	}

	if err := p.store.MarkFailed(ctx, id, cause.Error(), false, entry); err != nil {
		log.Error("failed to mark notification failed after processing error", logger.Error(err))
	}
	if err := p.queue.RecordFailure(ctx, id, ProcessingFailure{FailedAt: time.Now(), Error: cause.Error()}); err != nil {
		log.Error("failed to record processing failure", logger.Error(err))
	}
}
