package observability

import (
	"sync"
	"sync/atomic"

	"github.com/avatarctic/commerce-gateway/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// PrometheusSink records gateway events as Prometheus series. Emit hands events to a
// background worker over a bounded buffer and drops them when the buffer is full.
type PrometheusSink struct {
	events   chan ports.Event
	done     chan struct{}
	mu       sync.RWMutex
	closed   bool
	dropped  atomic.Uint64
	logger   *logrus.Logger
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	degraded *prometheus.CounterVec
	drops    prometheus.Counter
}

var _ ports.EventSink = (*PrometheusSink)(nil)

// NewPrometheusSink registers the gateway series on reg and starts the worker.
func NewPrometheusSink(reg prometheus.Registerer, buffer int, logger *logrus.Logger) (*PrometheusSink, error) {
	if buffer <= 0 {
		buffer = 1024
	}
	if logger == nil {
		logger = logrus.New()
	}
	s := &PrometheusSink{
		events: make(chan ports.Event, buffer),
		done:   make(chan struct{}),
		logger: logger,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Gateway operations by resource, cache outcome and failure kind",
			},
			[]string{"operation", "resource", "outcome", "shared", "failure"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Gateway operation latencies in seconds by cache outcome",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "outcome"},
		),
		degraded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_cache_degraded_total",
				Help: "Operations served while the cache store was unreachable or an invalidation failed",
			},
			[]string{"resource"},
		),
		drops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_events_dropped_total",
			Help: "Events dropped because the sink buffer was full",
		}),
	}
	for _, c := range []prometheus.Collector{s.requests, s.latency, s.degraded, s.drops} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	go s.run()
	return s, nil
}

// Emit never blocks.
func (s *PrometheusSink) Emit(ev ports.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return
	}
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		s.drops.Inc()
	}
}

// Dropped reports how many events were discarded.
func (s *PrometheusSink) Dropped() uint64 { return s.dropped.Load() }

// Close drains buffered events and stops the worker.
func (s *PrometheusSink) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()
	<-s.done
}

func (s *PrometheusSink) run() {
	defer close(s.done)
	for ev := range s.events {
		s.record(ev)
	}
}

func (s *PrometheusSink) record(ev ports.Event) {
	shared := "false"
	if ev.Shared {
		shared = "true"
	}
	s.requests.WithLabelValues(ev.Operation, string(ev.Resource), string(ev.Outcome), shared, ev.Failure).Inc()
	s.latency.WithLabelValues(ev.Operation, string(ev.Outcome)).Observe(ev.Latency.Seconds())
	if ev.Degraded {
		s.degraded.WithLabelValues(string(ev.Resource)).Inc()
	}
	s.logger.WithFields(logrus.Fields{
		"operation":  ev.Operation,
		"resource":   ev.Resource,
		"outcome":    ev.Outcome,
		"shared":     ev.Shared,
		"failure":    ev.Failure,
		"degraded":   ev.Degraded,
		"latency_ms": ev.Latency.Milliseconds(),
	}).Debug("gateway request")
}
