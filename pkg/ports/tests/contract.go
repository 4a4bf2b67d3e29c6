package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EquationStoreContractTest is a reusable test suite that verifies if an
// adapter complies with ports.EquationStore. newStore must return an empty
// store on every call.
func EquationStoreContractTest(t *testing.T, newStore func(t *testing.T) ports.EquationStore) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	newRequest := func(id string, offset int) *domain.EquationRequest {
		strokes := domain.StrokeSet{{{X: 1, Y: 2}, {X: 3, Y: 4}}}
		return domain.NewEquationRequest(domain.RequestID(id), domain.Region{Width: 10, Height: 10}, strokes, base.Add(time.Duration(offset)*time.Second))
	}

	t.Run("Insert_And_Get", func(t *testing.T) {
		store := newStore(t)
		req := newRequest("a", 0)
		require.NoError(t, store.Insert(ctx, req))

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, req.ID, got.ID)
		assert.Equal(t, domain.StatePending, got.State)
		assert.Equal(t, req.Strokes, got.Strokes)
		assert.True(t, req.SubmittedAt.Equal(got.SubmittedAt))
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		store := newStore(t)
		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)
	})

	t.Run("Insert_Duplicate", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newRequest("a", 0)))
		err := store.Insert(ctx, newRequest("a", 1))
		assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	})

	t.Run("Snapshot_NewestFirst", func(t *testing.T) {
		store := newStore(t)
		for i, id := range []string{"first", "second", "third"} {
			require.NoError(t, store.Insert(ctx, newRequest(id, i)))
		}

		snap, err := store.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap, 3)
		assert.Equal(t, domain.RequestID("third"), snap[0].ID)
		assert.Equal(t, domain.RequestID("second"), snap[1].ID)
		assert.Equal(t, domain.RequestID("first"), snap[2].ID)
	})

	t.Run("Snapshot_Empty", func(t *testing.T) {
		store := newStore(t)
		snap, err := store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap)
	})

	t.Run("Update_KeepsOrder", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newRequest("old", 0)))
		require.NoError(t, store.Insert(ctx, newRequest("new", 1)))

		replaced, err := store.Update(ctx, "old", func(r *domain.EquationRequest) error {
			return r.Transition(domain.StateOcrInFlight, base.Add(time.Minute))
		})
		require.NoError(t, err)
		assert.True(t, replaced)

		snap, err := store.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap, 2)
		assert.Equal(t, domain.RequestID("new"), snap[0].ID)
		assert.Equal(t, domain.RequestID("old"), snap[1].ID)
		assert.Equal(t, domain.StateOcrInFlight, snap[1].State)
		assert.Equal(t, domain.StatePending, snap[0].State)
	})

	t.Run("Update_Missing_IsNoop", func(t *testing.T) {
		store := newStore(t)
		called := false
		replaced, err := store.Update(ctx, "gone", func(r *domain.EquationRequest) error {
			called = true
			return nil
		})
		assert.NoError(t, err)
		assert.False(t, replaced)
		assert.False(t, called)
	})

	t.Run("Update_MutatorError_Aborts", func(t *testing.T) {
		store := newStore(t)
		require.NoError(t, store.Insert(ctx, newRequest("a", 0)))

		boom := errors.New("boom")
		replaced, err := store.Update(ctx, "a", func(r *domain.EquationRequest) error {
			r.Latex = "x^2"
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, replaced)

		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, got.Latex)
	})

	t.Run("Returns_Copies", func(t *testing.T) {
		store := newStore(t)
		req := newRequest("a", 0)
		require.NoError(t, store.Insert(ctx, req))

		req.Latex = "mutated after insert"
		got, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, got.Latex)

		got.Strokes[0][0].X = 99
		snap, err := store.Snapshot(ctx)
		require.NoError(t, err)
		snap[0].History = append(snap[0].History, domain.StateDone)

		again, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 1.0, again.Strokes[0][0].X)
		assert.Equal(t, []domain.State{domain.StatePending}, again.History)
	})

	t.Run("Delete_And_Clear", func(t *testing.T) {
		store := newStore(t)
		for i, id := range []string{"a", "b", "c"} {
			require.NoError(t, store.Insert(ctx, newRequest(id, i)))
		}

		require.NoError(t, store.Delete(ctx, "b"))
		require.NoError(t, store.Delete(ctx, "b"), "deleting twice is not an error")
		_, err := store.Get(ctx, "b")
		assert.ErrorIs(t, err, domain.ErrRequestNotFound)

		snap, err := store.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap, 2)
		assert.Equal(t, domain.RequestID("c"), snap[0].ID)
		assert.Equal(t, domain.RequestID("a"), snap[1].ID)

		require.NoError(t, store.Clear(ctx))
		snap, err = store.Snapshot(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap)

		replaced, err := store.Update(ctx, "a", func(r *domain.EquationRequest) error {
			t.Error("mutator must not run after clear")
			return nil
		})
		require.NoError(t, err)
		assert.False(t, replaced)

		require.NoError(t, store.Insert(ctx, newRequest("a", 10)), "cleared id can be reused")
	})

	t.Run("Concurrent_Updates_Touch_Own_Slot", func(t *testing.T) {
		store := newStore(t)
		const n = 8
		for i := 0; i < n; i++ {
			require.NoError(t, store.Insert(ctx, newRequest(fmt.Sprintf("r%d", i), i)))
		}

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := domain.RequestID(fmt.Sprintf("r%d", i))
				for _, next := range []domain.State{domain.StateOcrInFlight, domain.StateSolveInFlight} {
					_, err := store.Update(ctx, id, func(r *domain.EquationRequest) error {
						r.Latex = string(id)
						return r.Transition(next, base)
					})
					assert.NoError(t, err)
				}
			}(i)
		}
		wg.Wait()

		snap, err := store.Snapshot(ctx)
		require.NoError(t, err)
		require.Len(t, snap, n)
		for _, r := range snap {
			assert.Equal(t, domain.StateSolveInFlight, r.State, "request %s", r.ID)
			assert.Equal(t, string(r.ID), r.Latex)
			assert.Len(t, r.History, 3)
		}
	})
}
