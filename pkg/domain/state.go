package domain

import (
	"fmt"
	"time"
)

// RequestID identifies an EquationRequest for its whole lifetime,
// independently of its position in any list.
type RequestID string

// State is the pipeline stage an EquationRequest is in.
type State string

const (
	StatePending       State = "pending"         // Created and stored, no network call yet
	StateOcrInFlight   State = "ocr_in_flight"   // Waiting for the OCR service
	StateSolveInFlight State = "solve_in_flight" // OCR text known, waiting for the solver
	StateDone          State = "done"            // Pods available
	StateFailed        State = "failed"          // Error recorded
)

// Terminal reports whether no further transition is allowed from s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Loading reports whether a renderer should show a loading indicator for s.
func (s State) Loading() bool {
	return s == StatePending || s == StateOcrInFlight
}

var transitions = map[State][]State{
	StatePending:       {StateOcrInFlight},
	StateOcrInFlight:   {StateSolveInFlight, StateFailed},
	StateSolveInFlight: {StateDone, StateFailed},
}

// CanTransition reports whether from may move directly to to.
func CanTransition(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Pod is one displayable result section.
// Two pods with the same title and source are interchangeable.
type Pod struct {
	Title string `json:"title"`
	Src   string `json:"src"`
}

// EquationRequest is one user submission and its progress through the pipeline.
type EquationRequest struct {
	ID    RequestID `json:"id"`
	State State     `json:"state"`

	// Region is the selection the strokes were extracted from.
	Region  Region    `json:"region"`
	Strokes StrokeSet `json:"strokes"`

	// Latex is the symbolic text returned by OCR. Empty until OCR succeeds.
	Latex string `json:"latex,omitempty"`

	// Pods holds the normalized solver output. Only set in StateDone.
	Pods []Pod `json:"pods,omitempty"`

	// Error is set in StateFailed.
	Error *RequestError `json:"error,omitempty"`

	// History lists every state the request has been in, oldest first.
	History []State `json:"history"`

	SubmittedAt time.Time `json:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewEquationRequest creates a request in StatePending.
func NewEquationRequest(id RequestID, region Region, strokes StrokeSet, now time.Time) *EquationRequest {
	if strokes == nil {
		strokes = StrokeSet{}
	}
	return &EquationRequest{
		ID:          id,
		State:       StatePending,
		Region:      region,
		Strokes:     strokes,
		History:     []State{StatePending},
		SubmittedAt: now,
		UpdatedAt:   now,
	}
}

// Transition moves the request to next, recording it in History.
// It returns ErrInvalidTransition when the move is not allowed, which
// includes every move out of a terminal state.
func (r *EquationRequest) Transition(next State, now time.Time) error {
	if !CanTransition(r.State, next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, next)
	}
	r.State = next
	r.History = append(r.History, next)
	r.UpdatedAt = now
	return nil
}

// Fail moves the request to StateFailed and records err.
func (r *EquationRequest) Fail(err *RequestError, now time.Time) error {
	if err := r.Transition(StateFailed, now); err != nil {
		return err
	}
	r.Error = err
	return nil
}

// Clone returns a deep copy that shares no memory with r.
func (r *EquationRequest) Clone() *EquationRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Strokes = r.Strokes.Clone()
	if r.Pods != nil {
		c.Pods = append([]Pod(nil), r.Pods...)
	}
	if r.History != nil {
		c.History = append([]State(nil), r.History...)
	}
	if r.Error != nil {
		e := *r.Error
		c.Error = &e
	}
	return &c
}
