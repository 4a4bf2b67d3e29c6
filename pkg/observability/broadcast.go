package observability

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/domain"
)

// All subscribes to updates of every request.
const All domain.RequestID = ""

const subscriberBuffer = 16

// Removal is broadcast when a request is deleted from the store.
type Removal struct {
	ID      domain.RequestID `json:"id"`
	Removed bool             `json:"removed"`
}

// Broadcaster fans request updates out to subscribers. Each message is the
// JSON encoding of the request after the transition.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[domain.RequestID]map[chan string]struct{}
	logger      *slog.Logger
}

// NewBroadcaster creates a Broadcaster. A nil logger discards logs.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Broadcaster{
		subscribers: make(map[domain.RequestID]map[chan string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers for updates of one request, or of every request with
// All. The returned function unsubscribes and closes the channel.
func (b *Broadcaster) Subscribe(id domain.RequestID) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	if _, ok := b.subscribers[id]; !ok {
		b.subscribers[id] = make(map[chan string]struct{})
	}
	b.subscribers[id][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subs, ok := b.subscribers[id]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(b.subscribers, id)
				}
			}
		})
	}
}

// Broadcast sends msg to subscribers of id and of All. Slow subscribers
// lose the message instead of blocking the pipeline.
func (b *Broadcaster) Broadcast(id domain.RequestID, msg string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	b.send(b.subscribers[id], id, msg)
	if id != All {
		b.send(b.subscribers[All], id, msg)
	}
}

func (b *Broadcaster) send(subs map[chan string]struct{}, id domain.RequestID, msg string) {
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			b.logger.Warn("subscriber buffer full, dropping update", "request_id", id)
		}
	}
}

// BroadcastRemoval tells subscribers of id and of All that the request is gone.
func (b *Broadcaster) BroadcastRemoval(id domain.RequestID) {
	data, err := json.Marshal(Removal{ID: id, Removed: true})
	if err != nil {
		b.logger.Error("failed to encode removal", "request_id", id, "err", err)
		return
	}
	b.Broadcast(id, string(data))
}

// Subscribers returns the number of open subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, subs := range b.subscribers {
		n += len(subs)
	}
	return n
}

// Hooks returns lifecycle hooks that broadcast every transition.
func (b *Broadcaster) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			if e.Request == nil {
				return
			}
			data, err := json.Marshal(e.Request)
			if err != nil {
				b.logger.Error("failed to encode update", "request_id", e.Request.ID, "err", err)
				return
			}
			b.Broadcast(e.Request.ID, string(data))
		},
	}
}
