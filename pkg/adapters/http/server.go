package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/notasolver"
	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes bounds a submission body.
const maxBodyBytes = 1 << 20

// Service defines what the HTTP adapter needs from the solver core.
type Service interface {
	Submit(ctx context.Context, strokes []domain.Stroke, region domain.Region) (domain.RequestID, error)
	Snapshot(ctx context.Context) ([]*domain.EquationRequest, error)
	Get(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error)
	Cancel(ctx context.Context, id domain.RequestID) error
	Clear(ctx context.Context) error
	Subscribe(id domain.RequestID) (<-chan string, func())
}

// SubmitRequest is the body of POST /equations.
type SubmitRequest struct {
	Strokes []domain.Stroke `json:"strokes"`
	Region  *domain.Region  `json:"region"`
}

// SubmitResponse is returned by POST /equations.
type SubmitResponse struct {
	ID domain.RequestID `json:"id"`
}

// Server serves the equation API.
type Server struct {
	service  Service
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithGatherer exposes gatherer on GET /metrics.
func WithGatherer(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the service.
func NewHandler(service Service, opts ...Option) http.Handler {
	s := &Server{
		service: service,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Route("/equations", func(r chi.Router) {
		r.Post("/", s.Submit)
		r.Get("/", s.List)
		r.Delete("/", s.Clear)
		r.Get("/{id}", s.GetEquation)
		r.Delete("/{id}", s.Cancel)
	})
	r.Get("/events", s.SubscribeEvents)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Submit handles POST /equations.
func (s *Server) Submit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var body SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Submit: invalid request body", "error", err)
		return
	}
	if body.Region == nil {
		http.Error(w, "Missing region", http.StatusBadRequest)
		return
	}

	id, err := s.service.Submit(r.Context(), body.Strokes, *body.Region)
	if err != nil {
		http.Error(w, fmt.Sprintf("Submit error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Submit failed", "error", err)
		return
	}

	writeJSON(w, http.StatusAccepted, SubmitResponse{ID: id}, s.logger)
}

// List handles GET /equations. Requests are returned newest first.
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	reqs, err := s.service.Snapshot(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Snapshot error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Snapshot failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, reqs, s.logger)
}

// GetEquation handles GET /equations/{id}.
func (s *Server) GetEquation(w http.ResponseWriter, r *http.Request) {
	id := domain.RequestID(chi.URLParam(r, "id"))
	req, err := s.service.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req, s.logger)
}

// Cancel handles DELETE /equations/{id}.
func (s *Server) Cancel(w http.ResponseWriter, r *http.Request) {
	id := domain.RequestID(chi.URLParam(r, "id"))
	if err := s.service.Cancel(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles DELETE /equations.
func (s *Server) Clear(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Clear(r.Context()); err != nil {
		http.Error(w, fmt.Sprintf("Clear error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Clear failed", "error", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "notasolver-http",
		"version": strings.TrimSpace(notasolver.Version),
	}, s.logger)
}

// SubscribeEvents handles GET /events (SSE). Without an id query parameter
// it streams updates of every request.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	id := observability.All
	if q := r.URL.Query().Get("id"); q != "" {
		id = domain.RequestID(q)
	}

	ch, unsubscribe := s.service.Subscribe(id)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("SSE: client subscribed", "request_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "request_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRequestNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrRequestFinished):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		s.logger.Error("request failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}
