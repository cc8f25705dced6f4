package pmll

import "github.com/Qchains/CPM-cli/promise"

// config holds per-queue configuration gathered from Option values.
type config struct {
	durable promise.DurableBacking
}

// Option configures a Queue at construction time.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithDurable makes the queue's identity and operation counters durable:
// they are persisted through backing via the same contract component B
// uses for durable promises. In-flight operations are not re-executed on
// recovery; only the queue's identity and completed/failed counters
// survive a restart.
func WithDurable(backing promise.DurableBacking) Option {
	return optionFunc(func(c *config) {
		c.durable = backing
	})
}

func resolveOptions(opts []Option) *config {
	c := &config{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(c)
	}
	return c
}
