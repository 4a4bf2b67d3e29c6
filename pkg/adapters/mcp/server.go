package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/notasolver"
	"github.com/aretw0/notasolver/internal/logging"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// EquationsURI is the resource listing every request.
const EquationsURI = "notasolver://equations"

// Service defines what the MCP server needs from the solver core.
type Service interface {
	Submit(ctx context.Context, strokes []domain.Stroke, region domain.Region) (domain.RequestID, error)
	Snapshot(ctx context.Context) ([]*domain.EquationRequest, error)
	Get(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error)
	Cancel(ctx context.Context, id domain.RequestID) error
	Await(ctx context.Context, id domain.RequestID) (*domain.EquationRequest, error)
}

// Server exposes the solver as an MCP Server.
type Server struct {
	service   Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. A nil logger discards logs.
func NewServer(service Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		service:   service,
		logger:    logger,
		mcpServer: server.NewMCPServer("notasolver-mcp", strings.TrimSpace(notasolver.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and shuts it down
// when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutdown signal received, stopping MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("submit_equation",
		mcp.WithDescription("Submit handwritten strokes for recognition and solving."),
		mcp.WithString("strokes", mcp.Required(), mcp.Description(`JSON array of strokes, each an array of {"x":..,"y":..} points`)),
		mcp.WithString("region", mcp.Required(), mcp.Description(`JSON object {"x":..,"y":..,"width":..,"height":..} selecting the strokes`)),
		mcp.WithBoolean("wait", mcp.Description("Block until the request is done or failed")),
	), s.handleSubmit)

	s.mcpServer.AddTool(mcp.NewTool("list_equations",
		mcp.WithDescription("List every request, newest first."),
	), s.handleList)

	s.mcpServer.AddTool(mcp.NewTool("get_equation",
		mcp.WithDescription("Get one request with its state, recognized text and result pods."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Request ID")),
	), s.handleGet)

	s.mcpServer.AddTool(mcp.NewTool("cancel_equation",
		mcp.WithDescription("Cancel a request that has not finished."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Request ID")),
	), s.handleCancel)
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawStrokes, err := request.RequireString("strokes")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawRegion, err := request.RequireString("region")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var strokes []domain.Stroke
	if err := json.Unmarshal([]byte(rawStrokes), &strokes); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid strokes: %v", err)), nil
	}
	var region domain.Region
	if err := json.Unmarshal([]byte(rawRegion), &region); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid region: %v", err)), nil
	}

	id, err := s.service.Submit(ctx, strokes, region)
	if err != nil {
		return nil, fmt.Errorf("submit failed: %w", err)
	}
	s.logger.Debug("MCP: request submitted", "request_id", id)

	if !request.GetBool("wait", false) {
		return jsonResult(map[string]domain.RequestID{"id": id})
	}

	req, err := s.service.Await(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("wait failed: %w", err)
	}
	return jsonResult(req)
}

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	reqs, err := s.service.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("list failed: %w", err)
	}
	return jsonResult(reqs)
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req, err := s.service.Get(ctx, domain.RequestID(id))
	if errors.Is(err, domain.ErrRequestNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("request %s not found", id)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get failed: %w", err)
	}
	return jsonResult(req)
}

func (s *Server) handleCancel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	err = s.service.Cancel(ctx, domain.RequestID(id))
	switch {
	case errors.Is(err, domain.ErrRequestNotFound), errors.Is(err, domain.ErrRequestFinished):
		return mcp.NewToolResultError(fmt.Sprintf("cannot cancel %s: %v", id, err)), nil
	case err != nil:
		return nil, fmt.Errorf("cancel failed: %w", err)
	}
	return mcp.NewToolResultText("canceled"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(EquationsURI, "Submitted equations",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		reqs, err := s.service.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list equations: %w", err)
		}
		jsonBytes, err := json.Marshal(reqs)
		if err != nil {
			return nil, err
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      EquationsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
