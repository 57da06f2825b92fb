package orchestrator

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the orchestrator's Prometheus collectors.
type Metrics struct {
	nodeApplies *prometheus.CounterVec
	nodeLatency *prometheus.HistogramVec
	runs        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered. Collectors that are already registered are
// reused so several orchestrators can share one registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		nodeApplies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitinfra",
				Subsystem: "addons",
				Name:      "node_applies_total",
				Help:      "Total number of processed plan nodes by kind and result",
			},
			[]string{"kind", "result"},
		),
		nodeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "kitinfra",
				Subsystem: "addons",
				Name:      "node_apply_duration_seconds",
				Help:      "Duration of plan node applies in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14), // 50ms to ~7min
			},
			[]string{"kind"},
		),
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "kitinfra",
				Subsystem: "addons",
				Name:      "runs_total",
				Help:      "Total number of plan runs by result",
			},
			[]string{"result"},
		),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	if m.nodeApplies, err = register(reg, m.nodeApplies); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = register(reg, m.nodeLatency); err != nil {
		return nil, err
	}
	if m.runs, err = register(reg, m.runs); err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// recordNode records one processed node. Skipped nodes are counted but not
// timed.
func (m *Metrics) recordNode(kind, result string, seconds float64, timed bool) {
	m.nodeApplies.WithLabelValues(kind, result).Inc()
	if timed {
		m.nodeLatency.WithLabelValues(kind).Observe(seconds)
	}
}

func (m *Metrics) recordRun(result string) {
	m.runs.WithLabelValues(result).Inc()
}
