package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doneRequest() *domain.EquationRequest {
	return &domain.EquationRequest{
		ID:    "r1",
		State: domain.StateDone,
		Latex: "x^{2}",
		Pods: []domain.Pod{
			{Title: "Input", Src: "http://x/in.png"},
			{Title: "Result: Possible intermediate steps", Src: "http://x/out.png"},
		},
	}
}

func TestMarkdown_Done(t *testing.T) {
	md := Markdown(doneRequest())
	assert.Contains(t, md, "# Equation `r1`")
	assert.Contains(t, md, "**State:** done")
	assert.Contains(t, md, "```latex\nx^{2}\n```")
	assert.Contains(t, md, "## Result: Possible intermediate steps")
	assert.Contains(t, md, "![Input](http://x/in.png)")
	assert.NotContains(t, md, "...")
}

func TestMarkdown_Loading(t *testing.T) {
	assert.Contains(t, Markdown(&domain.EquationRequest{ID: "a", State: domain.StatePending}), "Recognizing handwriting")
	assert.Contains(t, Markdown(&domain.EquationRequest{ID: "a", State: domain.StateOcrInFlight}), "Recognizing handwriting")
	assert.Contains(t, Markdown(&domain.EquationRequest{ID: "a", State: domain.StateSolveInFlight, Latex: "y"}), "_Solving..._")
}

func TestMarkdown_Failed(t *testing.T) {
	req := &domain.EquationRequest{
		ID:    "a",
		State: domain.StateFailed,
		Error: &domain.RequestError{Kind: domain.KindUnsupported, Message: "no Result pod"},
	}
	assert.Contains(t, Markdown(req), "**Error (unsupported_equation):** no Result pod")
}

func TestPlainText(t *testing.T) {
	out := PlainText(doneRequest(), termenv.Ascii)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "r1  done", lines[0])
	assert.Equal(t, "  latex: x^{2}", lines[1])
	assert.Equal(t, "  - Input: http://x/in.png", lines[2])
}

func TestStateLabel(t *testing.T) {
	assert.Equal(t, "failed", StateLabel(domain.StateFailed, termenv.Ascii))
	assert.Contains(t, StateLabel(domain.StateDone, termenv.TrueColor), "done")
	assert.NotEqual(t, "done", StateLabel(domain.StateDone, termenv.TrueColor))
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)
	out, err := render(Markdown(doneRequest()))
	require.NoError(t, err)
	assert.Contains(t, out, "Equation")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.NotEmpty(t, strings.TrimSpace(buf.String()))
}
