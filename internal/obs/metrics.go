package obs

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the Prometheus collectors the synchronizer reports to. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Refreshes       *prometheus.CounterVec
	DroppedIntents  *prometheus.CounterVec
	Signals         *prometheus.CounterVec
	CacheWrites     *prometheus.CounterVec
}

// NewMetrics registers and returns the collectors. A nil registerer uses the
// default registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_api_requests_total",
			Help:      "Store API requests by operation and outcome.",
		}, []string{"op", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_api_request_duration_ms",
			Help:      "Store API latency distribution in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"op"}),
		Refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_refresh_total",
			Help:      "Cart refreshes by result (published, stale, failed).",
		}, []string{"result"}),
		DroppedIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_intents_dropped_total",
			Help:      "User intents ignored because the same line was already mutating.",
		}, []string{"intent"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_change_signals_total",
			Help:      "External cart change signals received by source.",
		}, []string{"source"}),
		CacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_writes_total",
			Help:      "Local cache writes by key and result.",
		}, []string{"key", "result"}),
	}
	m.Requests = mustRegister(reg, m.Requests)
	m.RequestDuration = mustRegister(reg, m.RequestDuration)
	m.Refreshes = mustRegister(reg, m.Refreshes)
	m.DroppedIntents = mustRegister(reg, m.DroppedIntents)
	m.Signals = mustRegister(reg, m.Signals)
	m.CacheWrites = mustRegister(reg, m.CacheWrites)
	return m
}

// ObserveRequest records one Store API round trip. status is zero when the
// request never produced a response.
func (m *Metrics) ObserveRequest(op string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "transport_error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(op, label).Inc()
	m.RequestDuration.WithLabelValues(op).Observe(DurationMillis(d))
}

// RefreshOutcome counts a finished refresh.
func (m *Metrics) RefreshOutcome(result string) {
	if m == nil {
		return
	}
	m.Refreshes.WithLabelValues(result).Inc()
}

// IntentDropped counts an intent ignored by the per-key guard.
func (m *Metrics) IntentDropped(intent string) {
	if m == nil {
		return
	}
	m.DroppedIntents.WithLabelValues(intent).Inc()
}

// Signal counts an external change notification.
func (m *Metrics) Signal(source string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(source).Inc()
}

// CacheWrite counts a local cache write.
func (m *Metrics) CacheWrite(key string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.CacheWrites.WithLabelValues(key, result).Inc()
}

// DurationMillis converts a duration to milliseconds for metric observation.
func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func mustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
	return c
}
