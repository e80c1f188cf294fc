package queue

import (
	"log/slog"
	"time"
)

// ProcessorOption is a functional option for configuring a Processor.
type ProcessorOption func(*processorOptions)

type processorOptions struct {
	workerCount   int
	batchSize     int
	pollInterval  time.Duration
	itemTimeout   time.Duration
	shutdownGrace time.Duration
	backoff       BackoffTable
	logger        *slog.Logger
}

// WithWorkerCount sets the number of concurrent worker loops.
func WithWorkerCount(n int) ProcessorOption {
	return func(o *processorOptions) {
		if n > 0 {
			o.workerCount = n
		}
	}
}

// WithBatchSize sets the per-cycle batch budget shared across tiers.
func WithBatchSize(n int) ProcessorOption {
	return func(o *processorOptions) {
		if n > 0 {
			o.batchSize = n
		}
	}
}

// WithPollInterval sets the idle sleep after an empty cycle.
func WithPollInterval(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithItemTimeout sets the per-item wall-clock processing budget.
func WithItemTimeout(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.itemTimeout = d
		}
	}
}

// WithShutdownGrace sets how long Stop waits for in-flight items.
func WithShutdownGrace(d time.Duration) ProcessorOption {
	return func(o *processorOptions) {
		if d > 0 {
			o.shutdownGrace = d
		}
	}
}

// WithBackoffTable sets the per-tier retry backoff table.
func WithBackoffTable(t BackoffTable) ProcessorOption {
	return func(o *processorOptions) {
		o.backoff = t
	}
}

// WithLogger sets the processor logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(o *processorOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Config is the environment surface for the processor.
type Config struct {
	WorkerCount      int           `env:"QUEUE_WORKER_COUNT" envDefault:"4"`     // WorkerCount is the number of concurrent worker loops.
	BatchSize        int           `env:"QUEUE_BATCH_SIZE" envDefault:"50"`      // BatchSize is the per-cycle batch budget shared across tiers.
	PollInterval     time.Duration `env:"QUEUE_POLL_INTERVAL" envDefault:"5s"`   // PollInterval is the idle sleep after an empty cycle.
	ItemTimeout      time.Duration `env:"QUEUE_ITEM_TIMEOUT" envDefault:"5m"`    // ItemTimeout is the per-item processing budget.
	ShutdownGrace    time.Duration `env:"QUEUE_SHUTDOWN_GRACE" envDefault:"30s"` // ShutdownGrace is how long Stop waits for in-flight items.
	BackoffTablePath string        `env:"QUEUE_BACKOFF_TABLE"`                   // BackoffTablePath optionally points at a YAML backoff override file.
}

// Options converts the environment config into processor options.
func (c Config) Options(backoff BackoffTable, log *slog.Logger) []ProcessorOption {
	return []ProcessorOption{
		WithWorkerCount(c.WorkerCount),
		WithBatchSize(c.BatchSize),
		WithPollInterval(c.PollInterval),
		WithItemTimeout(c.ItemTimeout),
		WithShutdownGrace(c.ShutdownGrace),
		WithBackoffTable(backoff),
		WithLogger(log),
	}
}
