// Package listener turns "the cart changed somewhere else" notifications into
// refreshes. Every source feeds a Coalescer, which collapses bursts into a
// single trailing call.
package listener

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/five82/minicart/internal/obs"
)

const (
	// DefaultWindow is the quiet period a burst must reach before it fires.
	DefaultWindow = 400 * time.Millisecond
	// MinWindow is the smallest accepted window.
	MinWindow = 100 * time.Millisecond

	maxWaitFactor = 4
)

// Option configures a Coalescer.
type Option func(*Coalescer)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coalescer) { c.logger = logger }
}

// WithMetrics counts signals per source.
func WithMetrics(m *obs.Metrics) Option {
	return func(c *Coalescer) { c.metrics = m }
}

// WithMaxWait bounds how long a continuous burst can postpone the call.
func WithMaxWait(d time.Duration) Option {
	return func(c *Coalescer) { c.maxWait = d }
}

// Coalescer debounces signals on the trailing edge. fn runs once the stream
// has been quiet for window, or once maxWait has passed since the first
// signal of a burst, whichever comes first. fn never runs concurrently with
// itself.
type Coalescer struct {
	window  time.Duration
	maxWait time.Duration
	fn      func(context.Context)
	signals chan struct{}
	logger  zerolog.Logger
	metrics *obs.Metrics
}

// NewCoalescer returns a Coalescer calling fn. Windows below MinWindow are
// raised to it.
func NewCoalescer(window time.Duration, fn func(context.Context), opts ...Option) *Coalescer {
	if window <= 0 {
		window = DefaultWindow
	}
	if window < MinWindow {
		window = MinWindow
	}
	c := &Coalescer{
		window:  window,
		maxWait: maxWaitFactor * window,
		fn:      fn,
		signals: make(chan struct{}, 1),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.maxWait < c.window {
		c.maxWait = c.window
	}
	return c
}

// Window returns the effective quiet period.
func (c *Coalescer) Window() time.Duration {
	return c.window
}

// Signal records a change notification from source. It never blocks; a
// signal already queued covers this one.
func (c *Coalescer) Signal(source string) {
	c.metrics.Signal(source)
	select {
	case c.signals <- struct{}{}:
	default:
	}
}

// Run processes signals until ctx is done.
func (c *Coalescer) Run(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	var (
		pending bool
		first   time.Time
		bursts  int
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.signals:
			now := time.Now()
			if !pending {
				pending = true
				first = now
				bursts = 0
			}
			bursts++
			delay := c.window
			if remaining := c.maxWait - now.Sub(first); remaining < delay {
				delay = max(remaining, 0)
			}
			timer.Reset(delay)
		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			c.logger.Debug().Int("signals", bursts).Dur("waited", time.Since(first)).Msg("cart_change_coalesced")
			c.fn(ctx)
		}
	}
}
