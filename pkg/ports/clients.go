package ports

import (
	"context"

	"github.com/aretw0/notasolver/pkg/domain"
)

// OcrClient recognizes handwritten strokes.
type OcrClient interface {
	// Recognize returns the symbolic text for strokes. Failures are
	// *domain.StageError values of kind ocr_transport or ocr_decoding.
	Recognize(ctx context.Context, strokes domain.StrokeSet) (string, error)
}

// SolverClient solves symbolic text.
type SolverClient interface {
	// Solve returns the solver's raw result document. Failures are
	// *domain.StageError values of kind solve_transport, solve_decoding or
	// solve_input_encoding.
	Solve(ctx context.Context, latex string) (map[string]any, error)
}

// OcrFunc adapts a function to OcrClient.
type OcrFunc func(ctx context.Context, strokes domain.StrokeSet) (string, error)

func (f OcrFunc) Recognize(ctx context.Context, strokes domain.StrokeSet) (string, error) {
	return f(ctx, strokes)
}

// SolverFunc adapts a function to SolverClient.
type SolverFunc func(ctx context.Context, latex string) (map[string]any, error)

func (f SolverFunc) Solve(ctx context.Context, latex string) (map[string]any, error) {
	return f(ctx, latex)
}
