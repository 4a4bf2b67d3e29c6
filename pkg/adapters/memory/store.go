package memory

import (
	"context"
	"sync"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/ports"
)

// Store implements ports.EquationStore in memory.
// Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	data  map[domain.RequestID]*domain.EquationRequest
	order []domain.RequestID // submission order, oldest first
}

var _ ports.EquationStore = (*Store)(nil)

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[domain.RequestID]*domain.EquationRequest),
	}
}

// Insert stores a copy of req.
func (s *Store) Insert(ctx context.Context, req *domain.EquationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[req.ID]; ok {
		return domain.ErrDuplicateRequest
	}
	s.data[req.ID] = req.Clone()
	s.order = append(s.order, req.ID)
	return nil
}

// Update applies mutate to a copy of the stored request and swaps it in.
// The whole read-modify-write happens under the write lock.
func (s *Store) Update(ctx context.Context, id domain.RequestID, mutate ports.Mutator) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.data[id]
	if !ok {
		return false, nil
	}
	next := current.Clone()
	if err := mutate(next); err != nil {
		return false, err
	}
	s.data[id] = next
	return true, nil
}

// Snapshot returns copies of every request, newest first.
func (s *Store) Snapshot(ctx context.Context) ([]*domain.EquationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.EquationRequest, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.data[s.order[i]].Clone())
	}
	return out, nil
}

// Get returns a copy of one request.
func (s *Store) Get(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.data[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	return req.Clone(), nil
}

// Delete removes one request.
func (s *Store) Delete(ctx context.Context, id domain.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[id]; !ok {
		return nil
	}
	delete(s.data, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear removes every request.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[domain.RequestID]*domain.EquationRequest)
	s.order = nil
	return nil
}
