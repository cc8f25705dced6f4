package scheduler

import "github.com/Qchains/CPM-cli/internal/obslog"

// config holds configuration gathered from Option values.
type config struct {
	workers      int
	maxQueueDepth int64
	logger       obslog.Logger
}

// Option configures a Scheduler at construction time.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithWorkers sets the number of worker goroutines Start spins up. The
// default is 1. Workers are the scheduler's only form of concurrency bound;
// two tasks never run on the same worker concurrently, but tasks across
// workers may run in parallel.
func WithWorkers(n int) Option {
	return optionFunc(func(c *config) {
		if n > 0 {
			c.workers = n
		}
	})
}

// WithMaxQueueDepth bounds the number of tasks that may be queued at once.
// When the bound is reached, Submit returns ErrQueueFull immediately rather
// than blocking. A non-positive value (the default) means unbounded.
func WithMaxQueueDepth(n int64) Option {
	return optionFunc(func(c *config) {
		c.maxQueueDepth = n
	})
}

// WithLogger installs a structured logger for this Scheduler. Without this
// option the package-level obslog.Global logger is used.
func WithLogger(logger obslog.Logger) Option {
	return optionFunc(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

func resolveOptions(opts []Option) *config {
	c := &config{
		workers: 1,
		logger:  obslog.Global(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(c)
	}
	return c
}
