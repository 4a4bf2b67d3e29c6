package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/extract"
	"github.com/aretw0/notasolver/pkg/normalize"
	"github.com/aretw0/notasolver/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pipeline closed")

// Pipeline drives EquationRequests from submission to a terminal state.
//
// Every request runs as its own goroutine. There is no lock shared between
// requests: the only shared state is the store, and each write touches one
// keyed slot.
type Pipeline struct {
	store  ports.EquationStore
	ocr    ports.OcrClient
	solver ports.SolverClient

	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	newID       func() string
	now         func() time.Time
	maxInFlight int
	sem         *semaphore.Weighted

	base context.Context
	stop context.CancelFunc

	mu     sync.Mutex
	tasks  map[domain.RequestID]context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

// New creates a Pipeline writing to store and calling ocr then solver.
func New(store ports.EquationStore, ocr ports.OcrClient, solver ports.SolverClient, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:  store,
		ocr:    ocr,
		solver: solver,
		logger: logging.NewNop(),
		newID:  uuid.NewString,
		now:    time.Now,
		tasks:  make(map[domain.RequestID]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxInFlight > 0 {
		p.sem = semaphore.NewWeighted(int64(p.maxInFlight))
	}
	p.base, p.stop = context.WithCancel(context.Background())
	return p
}

// Submit extracts the strokes inside region, stores a new pending request
// and starts processing it in the background. It returns as soon as the
// request is stored. An empty extraction is still submitted.
func (p *Pipeline) Submit(ctx context.Context, strokes []domain.Stroke, region domain.Region) (domain.RequestID, error) {
	region = region.Canonical()
	set := extract.Extract(strokes, region)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", ErrClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	id := domain.RequestID(p.newID())
	req := domain.NewEquationRequest(id, region, set, p.now())
	if err := p.store.Insert(ctx, req); err != nil {
		p.wg.Done()
		return "", fmt.Errorf("failed to store request: %w", err)
	}

	p.logger.Debug("request submitted", "request_id", id, "paths", len(set), "points", set.PointCount())
	p.emitTransition(ctx, "", req)

	// The base context may already be canceled by Close; the task then ends
	// as canceled.
	taskCtx, cancel := context.WithCancel(p.base)
	p.mu.Lock()
	p.tasks[id] = cancel
	p.mu.Unlock()
	go p.run(taskCtx, id, set)

	return id, nil
}

// Cancel marks a non-terminal request as failed with kind canceled and
// interrupts its in-flight network call. Once Cancel returns nil the
// request's task can no longer change it.
//
// A pending request is moved through ocr_in_flight in the same store write,
// so every history still fails from an in-flight state and the task stops
// before its first network call.
//
// Returns domain.ErrRequestNotFound for an unknown ID and
// domain.ErrRequestFinished if the request already reached a terminal state.
func (p *Pipeline) Cancel(ctx context.Context, id domain.RequestID) error {
	var started *domain.EquationRequest
	from, after, applied, err := p.update(ctx, id, func(r *domain.EquationRequest) error {
		started = nil
		if r.State.Terminal() {
			return domain.ErrRequestFinished
		}
		now := p.now()
		if r.State == domain.StatePending {
			if err := r.Transition(domain.StateOcrInFlight, now); err != nil {
				return err
			}
			started = r.Clone()
		}
		return r.Fail(&domain.RequestError{Kind: domain.KindCanceled, Message: "canceled"}, now)
	})
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrRequestNotFound
	}

	p.logger.Info("request canceled", "request_id", id, "from", from)
	if started != nil {
		p.emitTransition(ctx, from, started)
		from = started.State
	}
	p.emitTransition(ctx, from, after)

	p.mu.Lock()
	if cancel, ok := p.tasks[id]; ok {
		cancel()
	}
	p.mu.Unlock()
	return nil
}

// InFlight returns the number of requests still being processed.
func (p *Pipeline) InFlight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// Wait blocks until every submitted request reached a terminal state or
// stopped because it was removed from the store.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close stops accepting submissions, interrupts every running request and
// waits for them, bounded by ctx. Interrupted requests end as canceled.
func (p *Pipeline) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) run(ctx context.Context, id domain.RequestID, strokes domain.StrokeSet) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		if cancel, ok := p.tasks[id]; ok {
			cancel()
			delete(p.tasks, id)
		}
		p.mu.Unlock()
	}()

	if !p.advance(ctx, id, domain.StateOcrInFlight, nil) {
		return
	}

	var latex string
	err := p.stage(ctx, id, domain.StageOcr, func(ctx context.Context) error {
		var err error
		latex, err = p.ocr.Recognize(ctx, strokes)
		if err == nil && latex == "" {
			err = domain.Stagef(domain.KindOcrDecoding, "empty recognition result")
		}
		return err
	})
	if err != nil {
		p.fail(ctx, id, err, domain.KindOcrTransport)
		return
	}

	if !p.advance(ctx, id, domain.StateSolveInFlight, func(r *domain.EquationRequest) {
		r.Latex = latex
	}) {
		return
	}

	var doc map[string]any
	err = p.stage(ctx, id, domain.StageSolve, func(ctx context.Context) error {
		var err error
		doc, err = p.solver.Solve(ctx, latex)
		return err
	})
	if err != nil {
		p.fail(ctx, id, err, domain.KindSolveTransport)
		return
	}
	if input, ok := doc["inputstring"].(string); ok {
		p.logger.Debug("solver input echoed", "request_id", id, "input", input)
	}

	pods, err := normalize.Normalize(doc)
	if err != nil {
		kind := domain.KindMalformedResponse
		if errors.Is(err, domain.ErrUnsupportedEquation) {
			kind = domain.KindUnsupported
		}
		p.fail(ctx, id, domain.NewStageError(kind, err), kind)
		return
	}

	p.advance(ctx, id, domain.StateDone, func(r *domain.EquationRequest) {
		r.Pods = pods
	})
}

// stage runs one network call, bounded by the optional semaphore, and
// reports its duration.
func (p *Pipeline) stage(ctx context.Context, id domain.RequestID, stage domain.Stage, call func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.sem != nil {
		if err := p.sem.Acquire(ctx, 1); err != nil {
			return err
		}
		defer p.sem.Release(1)
	}

	start := time.Now()
	err := call(ctx)
	elapsed := time.Since(start)

	if p.hooks.OnStageComplete != nil {
		p.hooks.OnStageComplete(ctx, &domain.StageEvent{
			RequestID: id,
			Stage:     stage,
			Duration:  elapsed,
			Err:       err,
		})
	}
	p.logger.Debug("stage complete", "request_id", id, "stage", stage, "duration", elapsed, "ok", err == nil)
	return err
}

// advance moves the request to next and applies mutate in the same store
// write. It reports whether processing should continue.
func (p *Pipeline) advance(ctx context.Context, id domain.RequestID, next domain.State, mutate func(*domain.EquationRequest)) bool {
	from, after, applied, err := p.update(ctx, id, func(r *domain.EquationRequest) error {
		if err := r.Transition(next, p.now()); err != nil {
			return err
		}
		if mutate != nil {
			mutate(r)
		}
		return nil
	})
	return p.settle(ctx, id, from, after, applied, err)
}

// fail records err on the request. Errors from canceled contexts are
// recorded as canceled regardless of the stage that saw them.
func (p *Pipeline) fail(ctx context.Context, id domain.RequestID, err error, fallback domain.ErrorKind) {
	reqErr := domain.RequestErrorFrom(err, fallback)
	if ctx.Err() != nil {
		reqErr = &domain.RequestError{Kind: domain.KindCanceled, Message: err.Error()}
	}

	from, after, applied, uerr := p.update(ctx, id, func(r *domain.EquationRequest) error {
		return r.Fail(reqErr, p.now())
	})
	if p.settle(ctx, id, from, after, applied, uerr) {
		p.logger.Warn("request failed", "request_id", id, "kind", reqErr.Kind, "err", err)
	}
}

func (p *Pipeline) settle(ctx context.Context, id domain.RequestID, from domain.State, after *domain.EquationRequest, applied bool, err error) bool {
	switch {
	case errors.Is(err, domain.ErrInvalidTransition):
		// Already terminal, most likely canceled while the call was running.
		p.logger.Debug("request already finished", "request_id", id, "err", err)
		return false
	case err != nil:
		p.logger.Error("failed to update request", "request_id", id, "err", err)
		return false
	case !applied:
		p.logger.Debug("request removed from store, stopping", "request_id", id)
		if p.hooks.OnRemoved != nil {
			p.hooks.OnRemoved(ctx, &domain.RemovedEvent{
				Timestamp: p.now(),
				RequestID: id,
			})
		}
		return false
	}

	p.logger.Debug("request transition", "request_id", id, "from", from, "to", after.State)
	p.emitTransition(ctx, from, after)
	return true
}

// update writes through the store and returns the state before the write,
// a copy of the request after it, and whether a stored request was
// replaced. Store writes are detached from ctx cancellation so a canceled
// request can still record its failure.
func (p *Pipeline) update(ctx context.Context, id domain.RequestID, mutate ports.Mutator) (domain.State, *domain.EquationRequest, bool, error) {
	var from domain.State
	var after *domain.EquationRequest

	applied, err := p.store.Update(context.WithoutCancel(ctx), id, func(r *domain.EquationRequest) error {
		from = r.State
		if err := mutate(r); err != nil {
			return err
		}
		after = r.Clone()
		return nil
	})
	if err != nil || !applied {
		return from, nil, false, err
	}
	return from, after, true, nil
}

func (p *Pipeline) emitTransition(ctx context.Context, from domain.State, req *domain.EquationRequest) {
	if p.hooks.OnTransition == nil {
		return
	}
	p.hooks.OnTransition(ctx, &domain.TransitionEvent{
		Timestamp: req.UpdatedAt,
		From:      from,
		To:        req.State,
		Request:   req.Clone(),
	})
}
