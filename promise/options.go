package promise

import "github.com/Qchains/CPM-cli/internal/obslog"

// config holds per-promise configuration gathered from Option values.
type config struct {
	payloadID PayloadIDFunc
	logger    obslog.Logger
}

// Option configures a Promise at construction time.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithPayloadID overrides the function used to derive a durable promise's
// payload identifier for its DurableBacking. Ignored for non-durable
// promises.
func WithPayloadID(fn PayloadIDFunc) Option {
	return optionFunc(func(c *config) {
		if fn != nil {
			c.payloadID = fn
		}
	})
}

// WithLogger installs a structured logger for this promise's lifecycle
// events (durability persist failures). Without this option the
// package-level obslog.Global logger is used.
func WithLogger(logger obslog.Logger) Option {
	return optionFunc(func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	})
}

func resolveOptions(opts []Option) *config {
	c := &config{
		payloadID: defaultPayloadID,
		logger:    obslog.Global(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt.apply(c)
	}
	return c
}
