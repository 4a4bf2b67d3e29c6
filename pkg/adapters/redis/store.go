package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const (
	defaultPrefix     = "notasolver:equation:"
	defaultMaxRetries = 16
)

// ErrConflict is returned when an optimistic update keeps losing to
// concurrent writers of the same key.
var ErrConflict = errors.New("redis update conflict")

// Store implements ports.EquationStore using Redis.
//
// Each request is one JSON value. Submission order lives in a sorted set
// scored by a monotonically increasing sequence, so several processes sharing
// one Redis see the same newest-first order.
type Store struct {
	client     *backend.Client
	prefix     string
	maxRetries int
}

var _ ports.EquationStore = (*Store)(nil)

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithMaxRetries bounds how many times Update retries after a WATCH conflict.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client:     client,
		prefix:     defaultPrefix,
		maxRetries: defaultMaxRetries,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

func (s *Store) key(id domain.RequestID) string {
	return s.prefix + string(id)
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

func (s *Store) seqKey() string {
	return s.prefix + "seq"
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Insert stores req and appends it to the submission index.
func (s *Store) Insert(ctx context.Context, req *domain.EquationRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	key := s.key(req.ID)

	err = s.client.Watch(ctx, func(tx *backend.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.ErrDuplicateRequest
		}

		seq, err := tx.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: float64(seq), Member: string(req.ID)})
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrDuplicateRequest):
		return err
	case errors.Is(err, backend.TxFailedErr):
		// Someone else wrote the key between WATCH and EXEC.
		return domain.ErrDuplicateRequest
	default:
		return fmt.Errorf("failed to insert into redis: %w", err)
	}
}

var errMissing = errors.New("missing")

// Update runs an optimistic WATCH/MULTI transaction on the request's key,
// retrying when another writer touched it first.
func (s *Store) Update(ctx context.Context, id domain.RequestID, mutate ports.Mutator) (bool, error) {
	key := s.key(id)

	txf := func(tx *backend.Tx) error {
		val, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, backend.Nil) {
				return errMissing
			}
			return err
		}

		var req domain.EquationRequest
		if err := json.Unmarshal(val, &req); err != nil {
			return fmt.Errorf("failed to unmarshal request: %w", err)
		}
		if err := mutate(&req); err != nil {
			return err
		}
		data, err := json.Marshal(&req)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, errMissing):
			return false, nil
		case errors.Is(err, backend.TxFailedErr):
			continue
		default:
			return false, err
		}
	}
	return false, fmt.Errorf("%w: %s", ErrConflict, id)
}

// Snapshot returns every request, newest first.
func (s *Store) Snapshot(ctx context.Context) ([]*domain.EquationRequest, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	out := make([]*domain.EquationRequest, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(domain.RequestID(id))
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	for _, v := range vals {
		raw, ok := v.(string)
		if !ok {
			// Deleted between ZREVRANGE and MGET.
			continue
		}
		var req domain.EquationRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request: %w", err)
		}
		out = append(out, &req)
	}
	return out, nil
}

// Get retrieves one request.
func (s *Store) Get(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var req domain.EquationRequest
	if err := json.Unmarshal(val, &req); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &req, nil
}

// Delete removes one request and its index entry.
func (s *Store) Delete(ctx context.Context, id domain.RequestID) error {
	_, err := s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		pipe.Del(ctx, s.key(id))
		pipe.ZRem(ctx, s.indexKey(), string(id))
		return nil
	})
	return err
}

// Clear removes every indexed request and the index itself.
// The submission sequence is kept so ordering stays monotonic.
func (s *Store) Clear(ctx context.Context) error {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list requests: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, s.key(domain.RequestID(id)))
		}
		pipe.Del(ctx, s.indexKey())
		return nil
	})
	return err
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
