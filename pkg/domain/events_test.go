package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	var calls []string

	a := LifecycleHooks{
		OnTransition: func(ctx context.Context, e *TransitionEvent) { calls = append(calls, "a:"+string(e.To)) },
	}
	b := LifecycleHooks{
		OnTransition:    func(ctx context.Context, e *TransitionEvent) { calls = append(calls, "b:"+string(e.To)) },
		OnStageComplete: func(ctx context.Context, e *StageEvent) { calls = append(calls, "b:"+string(e.Stage)) },
		OnRemoved:       func(ctx context.Context, e *RemovedEvent) { calls = append(calls, "b:removed:"+string(e.RequestID)) },
	}

	hooks := Combine(a, LifecycleHooks{}, b)
	hooks.OnTransition(context.Background(), &TransitionEvent{To: StateDone})
	hooks.OnStageComplete(context.Background(), &StageEvent{Stage: StageOcr})
	hooks.OnRemoved(context.Background(), &RemovedEvent{RequestID: "r1"})

	assert.Equal(t, []string{"a:done", "b:done", "b:ocr", "b:removed:r1"}, calls)

	empty := Combine()
	assert.Nil(t, empty.OnTransition)
	assert.Nil(t, empty.OnStageComplete)
	assert.Nil(t, empty.OnRemoved)
}
