package queue

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/medicore/notify/internal/notification"
)

// BackoffPolicy is a monotone step function over the retry count. Attempt n
// (1-based) waits Steps[n-1]; attempts past the last step wait the final
// step, which acts as the ceiling.
type BackoffPolicy struct {
	Steps []time.Duration
}

// UnmarshalYAML decodes steps written as duration strings ("60s", "5m").
func (b *BackoffPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Steps []string `yaml:"steps"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	steps := make([]time.Duration, 0, len(raw.Steps))
	for _, s := range raw.Steps {
		d, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid backoff step %q: %w", s, err)
		}
		steps = append(steps, d)
	}
	b.Steps = steps
	return nil
}

// DefaultBackoff returns the standard 60s / 300s / 900s table with a 900s
// ceiling for further attempts.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{Steps: []time.Duration{
		60 * time.Second,
		300 * time.Second,
		900 * time.Second,
	}}
}

// Validate checks that the policy has at least one step and never decreases.
func (b BackoffPolicy) Validate() error {
	if len(b.Steps) == 0 {
		return ErrBackoffTableEmpty
	}
	for i := 1; i < len(b.Steps); i++ {
		if b.Steps[i] < b.Steps[i-1] {
			return fmt.Errorf("%w: step %d (%s) < step %d (%s)",
				ErrBackoffNotMonotone, i, b.Steps[i], i-1, b.Steps[i-1])
		}
	}
	return nil
}

// Delay returns the wait before the given retry attempt (1-based). Zero and
// negative counts map to the first step.
func (b BackoffPolicy) Delay(retryCount int) time.Duration {
	if len(b.Steps) == 0 {
		return 0
	}
	idx := retryCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(b.Steps) {
		idx = len(b.Steps) - 1
	}
	return b.Steps[idx]
}

// BackoffTable maps priority tiers to their retry policies. Tiers without an
// explicit policy fall back to the default.
type BackoffTable struct {
	Default BackoffPolicy
	PerTier map[notification.Priority]BackoffPolicy
}

// NewBackoffTable builds a table with the standard default policy.
func NewBackoffTable() BackoffTable {
	return BackoffTable{
		Default: DefaultBackoff(),
		PerTier: make(map[notification.Priority]BackoffPolicy),
	}
}

// Delay returns the backoff for the given tier and retry attempt.
func (t BackoffTable) Delay(priority notification.Priority, retryCount int) time.Duration {
	if policy, ok := t.PerTier[priority]; ok {
		return policy.Delay(retryCount)
	}
	return t.Default.Delay(retryCount)
}

// backoffFile is the YAML shape of a backoff override file:
//
//	default:
//	  steps: [60s, 300s, 900s]
//	tiers:
//	  urgent:
//	    steps: [30s, 60s, 120s]
type backoffFile struct {
	Default *BackoffPolicy                          `yaml:"default"`
	Tiers   map[notification.Priority]BackoffPolicy `yaml:"tiers"`
}

// LoadBackoffTable reads a per-tier backoff override file. An empty path
// returns the default table.
func LoadBackoffTable(path string) (BackoffTable, error) {
	table := NewBackoffTable()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("failed to read backoff table %s: %w", path, err)
	}

	var file backoffFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return table, fmt.Errorf("failed to parse backoff table %s: %w", path, err)
	}

	if file.Default != nil {
		if err := file.Default.Validate(); err != nil {
			return table, fmt.Errorf("invalid default backoff policy: %w", err)
		}
		table.Default = *file.Default
	}
	for tier, policy := range file.Tiers {
		if !tier.Valid() {
			return table, fmt.Errorf("%w: %q", ErrInvalidPriority, tier)
		}
		if err := policy.Validate(); err != nil {
			return table, fmt.Errorf("invalid backoff policy for %s tier: %w", tier, err)
		}
		table.PerTier[tier] = policy
	}
	return table, nil
}
