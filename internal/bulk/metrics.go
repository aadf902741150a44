package bulk

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports bulk engine telemetry to Prometheus. A nil *Metrics is a
// no-op.
type Metrics struct {
	operations *prometheus.CounterVec
	items      *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	undos      *prometheus.CounterVec
}

// NewMetrics registers the bulk collectors on reg. Collectors that are
// already registered are reused.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	if namespace == "" {
		namespace = "taskflow"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "operations_total",
			Help:      "Bulk operations by kind and final status.",
		}, []string{"kind", "status"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "items_total",
			Help:      "Bulk items processed by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "operation_duration_seconds",
			Help:      "Wall time of bulk operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		undos: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bulk",
			Name:      "undo_total",
			Help:      "Undo attempts by outcome.",
		}, []string{"outcome"}),
	}

	var err error
	if m.operations, err = register(reg, m.operations); err != nil {
		return nil, err
	}
	if m.items, err = register(reg, m.items); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.undos, err = register(reg, m.undos); err != nil {
		return nil, err
	}
	return m, nil
}

// MustNewMetrics is NewMetrics that panics on registration failure.
func MustNewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m, err := NewMetrics(namespace, reg)
	if err != nil {
		panic(err)
	}
	return m
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register bulk metric: %w", err)
	}
	return c, nil
}

// ObserveOperation records a finished operation.
func (m *Metrics) ObserveOperation(op Operation, elapsed time.Duration) {
	if m == nil {
		return
	}
	kind := string(op.Kind)
	m.operations.WithLabelValues(kind, string(op.Status)).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if ok := op.SuccessfulItems(); ok > 0 {
		m.items.WithLabelValues(kind, "ok").Add(float64(ok))
	}
	if op.FailedItems > 0 {
		m.items.WithLabelValues(kind, "failed").Add(float64(op.FailedItems))
	}
}

// ObserveUndo records an undo attempt.
func (m *Metrics) ObserveUndo(err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.undos.WithLabelValues(outcome).Inc()
}
