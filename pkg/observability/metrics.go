package observability

import (
	"context"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notasolver"

// Metrics records pipeline activity on a Prometheus registry.
type Metrics struct {
	transitions   *prometheus.CounterVec
	failures      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Request state transitions, by target state.",
			},
			[]string{"to"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "failures_total",
				Help:      "Failed requests, by error kind.",
			},
			[]string{"kind"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of OCR and solve calls.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"stage", "outcome"},
		),
		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Requests submitted but not yet done, failed or removed.",
			},
		),
	}

	for _, c := range []prometheus.Collector{m.transitions, m.failures, m.stageDuration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns the lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.transitions.WithLabelValues(string(e.To)).Inc()
			switch {
			case e.From == "":
				m.inFlight.Inc()
			case e.To.Terminal():
				m.inFlight.Dec()
			}
			if e.To == domain.StateFailed && e.Request != nil && e.Request.Error != nil {
				m.failures.WithLabelValues(string(e.Request.Error.Kind)).Inc()
			}
		},
		OnStageComplete: func(ctx context.Context, e *domain.StageEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.stageDuration.WithLabelValues(string(e.Stage), outcome).Observe(e.Duration.Seconds())
		},
		OnRemoved: func(ctx context.Context, e *domain.RemovedEvent) {
			m.inFlight.Dec()
		},
	}
}
