package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/notasolver/pkg/adapters/redis"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/ports"
	contract "github.com/aretw0/notasolver/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...redis.Option) (*redis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	store := redis.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_Contract(t *testing.T) {
	contract.EquationStoreContractTest(t, func(t *testing.T) ports.EquationStore {
		store, _ := newStore(t)
		return store
	})
}

func TestRedisStore_KeyLayout(t *testing.T) {
	store, mr := newStore(t, redis.WithPrefix("test:"))
	ctx := context.Background()

	req := domain.NewEquationRequest("abc", domain.Region{Width: 1, Height: 1}, nil, time.Unix(0, 0).UTC())
	require.NoError(t, store.Insert(ctx, req))

	assert.True(t, mr.Exists("test:abc"))
	members, err := mr.ZMembers("test:index")
	require.NoError(t, err)
	assert.Equal(t, []string{"abc"}, members)

	raw, err := mr.Get("test:abc")
	require.NoError(t, err)
	assert.Contains(t, raw, `"state":"pending"`)

	require.NoError(t, store.Delete(ctx, "abc"))
	assert.False(t, mr.Exists("test:abc"))
}

func TestRedisStore_SharedAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	a := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	b := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	defer a.Close()
	defer b.Close()

	now := time.Now()
	require.NoError(t, a.Insert(ctx, domain.NewEquationRequest("one", domain.Region{}, nil, now)))
	require.NoError(t, b.Insert(ctx, domain.NewEquationRequest("two", domain.Region{}, nil, now)))

	_, err := b.Update(ctx, "one", func(r *domain.EquationRequest) error {
		return r.Transition(domain.StateOcrInFlight, now)
	})
	require.NoError(t, err)

	snap, err := a.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 2)
	assert.Equal(t, domain.RequestID("two"), snap[0].ID)
	assert.Equal(t, domain.StateOcrInFlight, snap[1].State)
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := newStore(t)
	assert.NoError(t, store.Ping(context.Background()))

	mr.Close()
	assert.Error(t, store.Ping(context.Background()))
}
