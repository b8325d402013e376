package orchestrator

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("orchestrator: invalid config")

// Defaults applied by Config.withDefaults.
const (
	DefaultMaxWorkers    = 16
	DefaultBatchSize     = 50
	DefaultNodeTimeout   = 30 * time.Second
	DefaultStallRounds   = 2
	DefaultMaxIterations = 10000
)

// Config holds the scheduler's tuning knobs. Zero values take the defaults.
type Config struct {
	// MaxWorkers bounds concurrent synthesis calls within a round.
	MaxWorkers int

	// BatchSize bounds how many nodes one gateway query hands out. Memory
	// use of a run is proportional to it.
	BatchSize int

	// Overwrite regenerates documentation for nodes documented by an
	// earlier run.
	Overwrite bool

	// NodeTimeout bounds one synthesis call. A node that exceeds it gets a
	// fallback artifact built from its available context.
	NodeTimeout time.Duration

	// StallRounds is the number of consecutive zero-progress ready-parent
	// rounds, with work still pending, before the stall breaker runs.
	StallRounds int

	// MaxIterations caps the number of ready-parent and stall-breaker
	// rounds in one run. Hitting it ends the run with a warning.
	MaxIterations int
}

// withDefaults returns a copy of c with zero fields filled in.
func (c Config) withDefaults() Config {
	if c.MaxWorkers == 0 {
		c.MaxWorkers = DefaultMaxWorkers
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.NodeTimeout == 0 {
		c.NodeTimeout = DefaultNodeTimeout
	}
	if c.StallRounds == 0 {
		c.StallRounds = DefaultStallRounds
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	return c
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	switch {
	case c.MaxWorkers < 0:
		return fmt.Errorf("%w: MaxWorkers must be positive, got %d", ErrInvalidConfig, c.MaxWorkers)
	case c.BatchSize < 0:
		return fmt.Errorf("%w: BatchSize must be positive, got %d", ErrInvalidConfig, c.BatchSize)
	case c.NodeTimeout < 0:
		return fmt.Errorf("%w: NodeTimeout must be positive, got %s", ErrInvalidConfig, c.NodeTimeout)
	case c.StallRounds < 0:
		return fmt.Errorf("%w: StallRounds must be positive, got %d", ErrInvalidConfig, c.StallRounds)
	case c.MaxIterations < 0:
		return fmt.Errorf("%w: MaxIterations must be positive, got %d", ErrInvalidConfig, c.MaxIterations)
	}
	return nil
}

// RunRequest starts one processing run. Zero-valued fields fall back to
// the scheduler's Config.
type RunRequest struct {
	RootID     string
	MaxWorkers int
	BatchSize  int

	// Overwrite replaces Config.Overwrite when set, in either direction.
	Overwrite *bool
}

// resolve merges the request with the scheduler config.
func (r RunRequest) resolve(c Config) (Config, error) {
	if r.RootID == "" {
		return c, fmt.Errorf("%w: RootID is required", ErrInvalidConfig)
	}
	if r.MaxWorkers != 0 {
		c.MaxWorkers = r.MaxWorkers
	}
	if r.BatchSize != 0 {
		c.BatchSize = r.BatchSize
	}
	if r.Overwrite != nil {
		c.Overwrite = *r.Overwrite
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c.withDefaults(), nil
}
