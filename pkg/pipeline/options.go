package pipeline

import (
	"log/slog"
	"time"

	"github.com/aretw0/notasolver/pkg/domain"
)

// Option configures the Pipeline.
type Option func(*Pipeline)

// WithLogger configures a logger for the Pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithHooks registers lifecycle hooks. Calling it several times combines
// the hook sets in order.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(p *Pipeline) {
		p.hooks = domain.Combine(p.hooks, hooks)
	}
}

// WithMaxInFlight bounds how many OCR and solve calls run at once across all
// requests. Zero or less means unlimited.
func WithMaxInFlight(n int) Option {
	return func(p *Pipeline) {
		p.maxInFlight = n
	}
}

// WithIDGenerator replaces the request identity generator.
func WithIDGenerator(fn func() string) Option {
	return func(p *Pipeline) {
		p.newID = fn
	}
}

// WithClock replaces the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}
