package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	req := &domain.EquationRequest{ID: "a"}
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: "", To: domain.StatePending, Request: req})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StatePending, To: domain.StateOcrInFlight, Request: req})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	failed := &domain.EquationRequest{ID: "a", Error: &domain.RequestError{Kind: domain.KindOcrTransport}}
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StateOcrInFlight, To: domain.StateFailed, Request: failed})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("pending")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.transitions.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ocr_transport")))

	hooks.OnStageComplete(ctx, &domain.StageEvent{Stage: domain.StageOcr, Duration: 300 * time.Millisecond, Err: errors.New("x")})
	hooks.OnStageComplete(ctx, &domain.StageEvent{Stage: domain.StageSolve, Duration: time.Second})
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_RemovedMidFlight(t *testing.T) {
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	hooks := m.Hooks()
	ctx := context.Background()

	req := &domain.EquationRequest{ID: "a"}
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: "", To: domain.StatePending, Request: req})
	hooks.OnTransition(ctx, &domain.TransitionEvent{From: domain.StatePending, To: domain.StateOcrInFlight, Request: req})
	require.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	hooks.OnRemoved(ctx, &domain.RemovedEvent{RequestID: "a"})
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
}

func TestMetrics_DoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMetrics(reg)
	require.NoError(t, err)
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}
