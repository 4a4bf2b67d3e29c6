package ports

import (
	"context"

	"github.com/aretw0/notasolver/pkg/domain"
)

// Mutator edits a stored request in place. Returning an error aborts the
// update and leaves the stored request unchanged.
type Mutator func(req *domain.EquationRequest) error

// EquationStore holds every submitted EquationRequest, keyed by identity.
// Implementations must be safe for concurrent use; each call touches at most
// one keyed slot, except Snapshot and Clear.
type EquationStore interface {
	// Insert stores a new request.
	// Returns domain.ErrDuplicateRequest if the ID is already present.
	Insert(ctx context.Context, req *domain.EquationRequest) error

	// Update atomically replaces the request with the given ID by the result
	// of mutate applied to a copy of it, and reports whether a stored request
	// was replaced. A missing ID is a no-op: mutate is not called and
	// (false, nil) is returned. mutate may run more than once when the
	// implementation retries after a conflict.
	Update(ctx context.Context, id domain.RequestID, mutate Mutator) (bool, error)

	// Snapshot returns deep copies of every request, newest submission first.
	Snapshot(ctx context.Context) ([]*domain.EquationRequest, error)

	// Get returns a deep copy of one request.
	// Returns domain.ErrRequestNotFound if the ID is not present.
	Get(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error)

	// Delete removes one request. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id domain.RequestID) error

	// Clear removes every request.
	Clear(ctx context.Context) error
}
