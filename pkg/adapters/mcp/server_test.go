package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/notasolver"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *notasolver.Solver) {
	t.Helper()
	solver, err := notasolver.New(
		notasolver.WithOCR(ports.OcrFunc(func(ctx context.Context, strokes domain.StrokeSet) (string, error) {
			return "x+1", nil
		})),
		notasolver.WithSolver(ports.SolverFunc(func(ctx context.Context, latex string) (map[string]any, error) {
			return map[string]any{
				"success": true,
				"error":   false,
				"pods": []any{
					map[string]any{"title": "Input", "id": "Input", "subpods": []any{
						map[string]any{"title": "", "img": map[string]any{"src": "http://x/in.png"}},
					}},
					map[string]any{"title": "Result", "id": "Result", "subpods": []any{
						map[string]any{"title": "", "img": map[string]any{"src": "http://x/out.png"}},
					}},
				},
			}, nil
		})),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = solver.Close(context.Background()) })
	return NewServer(solver, nil), solver
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func TestServer_SubmitAndWait(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleSubmit(ctx, callRequest(map[string]any{
		"strokes": `[[{"x":1,"y":1},{"x":2,"y":2}]]`,
		"region":  `{"x":0,"y":0,"width":10,"height":10}`,
		"wait":    true,
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var req domain.EquationRequest
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &req))
	assert.Equal(t, domain.StateDone, req.State)
	assert.Equal(t, "x+1", req.Latex)
	assert.Len(t, req.Pods, 2)
}

func TestServer_SubmitListGet(t *testing.T) {
	s, solver := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleSubmit(ctx, callRequest(map[string]any{
		"strokes": `[]`,
		"region":  `{"x":0,"y":0,"width":10,"height":10}`,
	}))
	require.NoError(t, err)
	var submitted map[string]string
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &submitted))
	id := submitted["id"]
	require.NotEmpty(t, id)
	solver.Wait()

	res, err = s.handleList(ctx, callRequest(nil))
	require.NoError(t, err)
	var list []domain.EquationRequest
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &list))
	require.Len(t, list, 1)
	assert.Equal(t, domain.RequestID(id), list[0].ID)

	res, err = s.handleGet(ctx, callRequest(map[string]any{"id": id}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = s.handleGet(ctx, callRequest(map[string]any{"id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestServer_SubmitInvalidArguments(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing strokes", map[string]any{"region": `{}`}},
		{"missing region", map[string]any{"strokes": `[]`}},
		{"bad strokes", map[string]any{"strokes": `{`, "region": `{}`}},
		{"bad region", map[string]any{"strokes": `[]`, "region": `[1]`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleSubmit(ctx, callRequest(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestServer_CancelFinished(t *testing.T) {
	s, solver := newTestServer(t)
	ctx := context.Background()

	id, err := solver.Submit(ctx, nil, domain.Region{Width: 1, Height: 1})
	require.NoError(t, err)
	solver.Wait()

	res, err := s.handleCancel(ctx, callRequest(map[string]any{"id": string(id)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleCancel(ctx, callRequest(map[string]any{"id": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
