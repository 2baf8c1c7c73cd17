package listener

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startCoalescer(t *testing.T, window time.Duration, opts ...Option) (*Coalescer, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	c := NewCoalescer(window, func(context.Context) { calls.Add(1) }, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return c, &calls
}

func TestCoalescerCollapsesBurst(t *testing.T) {
	c, calls := startCoalescer(t, MinWindow)

	for range 20 {
		c.Signal("test")
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(2 * MinWindow)
	require.Equal(t, int32(1), calls.Load())
}

func TestCoalescerWaitsForQuiet(t *testing.T) {
	c, calls := startCoalescer(t, 200*time.Millisecond)

	c.Signal("test")
	time.Sleep(50 * time.Millisecond)
	require.Zero(t, calls.Load(), "fired before the window elapsed")

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestCoalescerMaxWaitBoundsLongBurst(t *testing.T) {
	c, calls := startCoalescer(t, MinWindow, WithMaxWait(2*MinWindow))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		c.Signal("test")
		time.Sleep(20 * time.Millisecond)
	}

	require.GreaterOrEqual(t, calls.Load(), int32(2), "a continuous burst should still fire periodically")
}

func TestCoalescerSeparateBurstsFireSeparately(t *testing.T) {
	c, calls := startCoalescer(t, MinWindow)

	c.Signal("a")
	require.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	c.Signal("b")
	require.Eventually(t, func() bool { return calls.Load() == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestNewCoalescerWindowBounds(t *testing.T) {
	noop := func(context.Context) {}
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, DefaultWindow},
		{-time.Second, DefaultWindow},
		{10 * time.Millisecond, MinWindow},
		{750 * time.Millisecond, 750 * time.Millisecond},
	}
	for _, tt := range tests {
		if got := NewCoalescer(tt.in, noop).Window(); got != tt.want {
			t.Errorf("NewCoalescer(%v).Window() = %v, want %v", tt.in, got, tt.want)
		}
	}
}
