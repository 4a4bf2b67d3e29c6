package notasolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/adapters/mathpix"
	"github.com/aretw0/notasolver/pkg/adapters/memory"
	"github.com/aretw0/notasolver/pkg/adapters/wolfram"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/observability"
	"github.com/aretw0/notasolver/pkg/pipeline"
	"github.com/aretw0/notasolver/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// awaitPoll bounds how long Await can miss a change it was not notified of.
const awaitPoll = time.Second

// Solver is the high-level entry point of the library.
// It owns the request store and the pipeline, and exposes the operations
// the input surface and rendering collaborators need.
type Solver struct {
	store     ports.EquationStore
	ocr       ports.OcrClient
	solver    ports.SolverClient
	pipeline  *pipeline.Pipeline
	broadcast *observability.Broadcaster
	metrics   *observability.Metrics

	hooks        domain.LifecycleHooks
	logger       *slog.Logger
	registerer   prometheus.Registerer
	pipelineOpts []pipeline.Option
}

// Option defines a functional option for configuring the Solver.
type Option func(*Solver)

// WithStore replaces the default in-memory store.
func WithStore(store ports.EquationStore) Option {
	return func(s *Solver) {
		s.store = store
	}
}

// WithOCR sets the OCR client.
func WithOCR(ocr ports.OcrClient) Option {
	return func(s *Solver) {
		s.ocr = ocr
	}
}

// WithSolver sets the solver client.
func WithSolver(solver ports.SolverClient) Option {
	return func(s *Solver) {
		s.solver = solver
	}
}

// WithMathpix uses the Mathpix strokes API for OCR.
func WithMathpix(appID, appKey string, opts ...mathpix.Option) Option {
	return func(s *Solver) {
		s.ocr = mathpix.New(appID, appKey, append([]mathpix.Option{mathpix.WithLogger(s.logger)}, opts...)...)
	}
}

// WithWolfram uses the Wolfram|Alpha Full Results API as solver.
func WithWolfram(appID string, opts ...wolfram.Option) Option {
	return func(s *Solver) {
		s.solver = wolfram.New(appID, append([]wolfram.Option{wolfram.WithLogger(s.logger)}, opts...)...)
	}
}

// WithLogger sets a custom structured logger. Pass it before WithMathpix or
// WithWolfram for the clients to share it.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Solver) {
		s.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Solver) {
		s.hooks = domain.Combine(s.hooks, hooks)
	}
}

// WithMetrics registers Prometheus collectors on reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Solver) {
		s.registerer = reg
	}
}

// WithMaxInFlight bounds concurrent OCR and solve calls. 0 is unlimited.
func WithMaxInFlight(n int) Option {
	return func(s *Solver) {
		s.pipelineOpts = append(s.pipelineOpts, pipeline.WithMaxInFlight(n))
	}
}

// WithIDGenerator replaces the request identity generator.
func WithIDGenerator(fn func() string) Option {
	return func(s *Solver) {
		s.pipelineOpts = append(s.pipelineOpts, pipeline.WithIDGenerator(fn))
	}
}

// New initializes a Solver. An OCR and a solver client are required.
func New(opts ...Option) (*Solver, error) {
	s := &Solver{
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.ocr == nil {
		return nil, errors.New("an OCR client is required")
	}
	if s.solver == nil {
		return nil, errors.New("a solver client is required")
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}

	s.broadcast = observability.NewBroadcaster(s.logger)
	hooks := domain.Combine(s.hooks, s.broadcast.Hooks())

	if s.registerer != nil {
		m, err := observability.NewMetrics(s.registerer)
		if err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
		s.metrics = m
		hooks = domain.Combine(hooks, m.Hooks())
	}

	popts := append([]pipeline.Option{
		pipeline.WithLogger(s.logger),
		pipeline.WithHooks(hooks),
	}, s.pipelineOpts...)
	s.pipeline = pipeline.New(s.store, s.ocr, s.solver, popts...)

	return s, nil
}

// Submit extracts the strokes inside region and starts solving them.
// It returns the new request's identity as soon as the request is stored.
func (s *Solver) Submit(ctx context.Context, strokes []domain.Stroke, region domain.Region) (domain.RequestID, error) {
	return s.pipeline.Submit(ctx, strokes, region)
}

// Snapshot returns every request, newest first.
func (s *Solver) Snapshot(ctx context.Context) ([]*domain.EquationRequest, error) {
	return s.store.Snapshot(ctx)
}

// Get returns one request.
func (s *Solver) Get(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error) {
	return s.store.Get(ctx, id)
}

// Cancel stops a request that has not finished yet.
func (s *Solver) Cancel(ctx context.Context, id domain.RequestID) error {
	return s.pipeline.Cancel(ctx, id)
}

// Clear removes every request and notifies their subscribers. Requests
// still running stop at their next step without calling any further service.
func (s *Solver) Clear(ctx context.Context) error {
	reqs, err := s.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	for _, req := range reqs {
		s.broadcast.BroadcastRemoval(req.ID)
	}
	return nil
}

// Subscribe streams JSON-encoded request updates for one request, or for
// all of them with observability.All.
func (s *Solver) Subscribe(id domain.RequestID) (<-chan string, func()) {
	return s.broadcast.Subscribe(id)
}

// Await blocks until the request reaches a terminal state or ctx ends.
// It returns domain.ErrRequestNotFound once the request is removed, which is
// also noticed for removals made by another process sharing the store.
func (s *Solver) Await(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error) {
	updates, unsubscribe := s.broadcast.Subscribe(id)
	defer unsubscribe()

	ticker := time.NewTicker(awaitPoll)
	defer ticker.Stop()

	for {
		req, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if req.State.Terminal() {
			return req, nil
		}

		select {
		case <-ctx.Done():
			return req, ctx.Err()
		case <-ticker.C:
		case msg := <-updates:
			var update domain.EquationRequest
			if err := json.Unmarshal([]byte(msg), &update); err == nil && update.State.Terminal() {
				return &update, nil
			}
		}
	}
}

// InFlight returns the number of requests still being processed.
func (s *Solver) InFlight() int {
	return s.pipeline.InFlight()
}

// Store returns the underlying request store.
func (s *Solver) Store() ports.EquationStore {
	return s.store
}

// Wait blocks until every submitted request finished.
func (s *Solver) Wait() {
	s.pipeline.Wait()
}

// Close interrupts running requests, waits for them within ctx and closes
// the store if it holds resources.
func (s *Solver) Close(ctx context.Context) error {
	err := s.pipeline.Close(ctx)
	if c, ok := s.store.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return err
}
