package domain

import (
	"context"
	"time"
)

// Stage names a network-bound pipeline step.
type Stage string

const (
	StageOcr   Stage = "ocr"
	StageSolve Stage = "solve"
)

// TransitionEvent is emitted after a state change has been written to the store.
type TransitionEvent struct {
	Timestamp time.Time `json:"timestamp"`
	From      State     `json:"from"`
	To        State     `json:"to"`

	// Request is a copy of the stored request after the transition.
	Request *EquationRequest `json:"request"`
}

// StageEvent is emitted when an OCR or solve call returns.
type StageEvent struct {
	RequestID RequestID     `json:"request_id"`
	Stage     Stage         `json:"stage"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// RemovedEvent is emitted when a task stops because its request is no
// longer in the store.
type RemovedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID RequestID `json:"request_id"`
}

// LifecycleHooks defines callbacks for pipeline observability.
type LifecycleHooks struct {
	OnTransition    func(context.Context, *TransitionEvent)
	OnStageComplete func(context.Context, *StageEvent)
	OnRemoved       func(context.Context, *RemovedEvent)
}

// Combine returns hooks that call every non-nil hook of each set, in order.
func Combine(sets ...LifecycleHooks) LifecycleHooks {
	var transition []func(context.Context, *TransitionEvent)
	var stage []func(context.Context, *StageEvent)
	var removed []func(context.Context, *RemovedEvent)
	for _, s := range sets {
		if s.OnTransition != nil {
			transition = append(transition, s.OnTransition)
		}
		if s.OnStageComplete != nil {
			stage = append(stage, s.OnStageComplete)
		}
		if s.OnRemoved != nil {
			removed = append(removed, s.OnRemoved)
		}
	}

	var out LifecycleHooks
	if len(transition) > 0 {
		out.OnTransition = func(ctx context.Context, e *TransitionEvent) {
			for _, fn := range transition {
				fn(ctx, e)
			}
		}
	}
	if len(stage) > 0 {
		out.OnStageComplete = func(ctx context.Context, e *StageEvent) {
			for _, fn := range stage {
				fn(ctx, e)
			}
		}
	}
	if len(removed) > 0 {
		out.OnRemoved = func(ctx context.Context, e *RemovedEvent) {
			for _, fn := range removed {
				fn(ctx, e)
			}
		}
	}
	return out
}
