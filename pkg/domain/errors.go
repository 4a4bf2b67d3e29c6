package domain

import (
	"errors"
	"fmt"
)

// ErrRequestNotFound is returned when a request ID cannot be found in the store.
var ErrRequestNotFound = errors.New("request not found")

// ErrDuplicateRequest is returned when inserting a request whose ID is already stored.
var ErrDuplicateRequest = errors.New("duplicate request id")

// ErrInvalidTransition is returned when a request is asked to move to a state
// its current state cannot reach.
var ErrInvalidTransition = errors.New("invalid state transition")

// ErrRequestFinished is returned when canceling a request that already
// reached a terminal state.
var ErrRequestFinished = errors.New("request already finished")

// ErrorKind classifies why a request ended in StateFailed.
type ErrorKind string

const (
	KindOcrTransport       ErrorKind = "ocr_transport"
	KindOcrDecoding        ErrorKind = "ocr_decoding"
	KindSolveTransport     ErrorKind = "solve_transport"
	KindSolveDecoding      ErrorKind = "solve_decoding"
	KindSolveInputEncoding ErrorKind = "solve_input_encoding"
	KindMalformedResponse  ErrorKind = "malformed_response"
	KindUnsupported        ErrorKind = "unsupported_equation"
	KindCanceled           ErrorKind = "canceled"
)

// One sentinel per ErrorKind, so callers can use errors.Is.
var (
	ErrOcrTransport        = errors.New("ocr transport failure")
	ErrOcrDecoding         = errors.New("ocr response decoding failure")
	ErrSolveTransport      = errors.New("solver transport failure")
	ErrSolveDecoding       = errors.New("solver response decoding failure")
	ErrSolveInputEncoding  = errors.New("solver input encoding failure")
	ErrMalformedResponse   = errors.New("malformed solver response")
	ErrUnsupportedEquation = errors.New("unsupported equation")
	ErrCanceled            = errors.New("request canceled")
)

var kindSentinels = map[ErrorKind]error{
	KindOcrTransport:       ErrOcrTransport,
	KindOcrDecoding:        ErrOcrDecoding,
	KindSolveTransport:     ErrSolveTransport,
	KindSolveDecoding:      ErrSolveDecoding,
	KindSolveInputEncoding: ErrSolveInputEncoding,
	KindMalformedResponse:  ErrMalformedResponse,
	KindUnsupported:        ErrUnsupportedEquation,
	KindCanceled:           ErrCanceled,
}

// Sentinel returns the sentinel error for the kind, or nil for an unknown kind.
func (k ErrorKind) Sentinel() error {
	return kindSentinels[k]
}

// StageError is a failure raised by one pipeline stage.
// It unwraps to both the kind's sentinel and the underlying cause.
type StageError struct {
	Kind ErrorKind
	Err  error
}

// NewStageError wraps err with kind.
func NewStageError(kind ErrorKind, err error) *StageError {
	return &StageError{Kind: kind, Err: err}
}

// Stagef builds a StageError from a format string.
func Stagef(kind ErrorKind, format string, args ...any) *StageError {
	return &StageError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *StageError) Error() string {
	sentinel := e.Kind.Sentinel()
	switch {
	case sentinel == nil && e.Err == nil:
		return string(e.Kind)
	case sentinel == nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err == nil:
		return sentinel.Error()
	default:
		return fmt.Sprintf("%v: %v", sentinel, e.Err)
	}
}

func (e *StageError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := e.Kind.Sentinel(); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// RequestError is the serialisable failure recorded on an EquationRequest.
type RequestError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *RequestError) Error() string {
	return e.Message
}

// Is lets errors.Is match a recorded failure against the kind sentinels.
func (e *RequestError) Is(target error) bool {
	return target != nil && e.Kind.Sentinel() == target
}

// RequestErrorFrom converts err into a RequestError. Errors that are not
// StageErrors are classified with fallback.
func RequestErrorFrom(err error, fallback ErrorKind) *RequestError {
	if err == nil {
		return nil
	}
	kind := fallback
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		kind = stageErr.Kind
	}
	return &RequestError{Kind: kind, Message: err.Error()}
}
