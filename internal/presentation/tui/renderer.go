package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() (func(string) (string, error), error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return nil, err
	}

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}, nil
}

var stateColors = map[domain.State]string{
	domain.StatePending:       "#a1a1aa",
	domain.StateOcrInFlight:   "#fbbf24",
	domain.StateSolveInFlight: "#38bdf8",
	domain.StateDone:          "#4ade80",
	domain.StateFailed:        "#f87171",
}

// StateLabel returns the state name coloured for profile.
func StateLabel(state domain.State, profile termenv.Profile) string {
	color, ok := stateColors[state]
	if !ok {
		return string(state)
	}
	return profile.String(string(state)).Foreground(profile.Color(color)).Bold().String()
}

// statusLine is what a viewer shows while a request is not finished.
func statusLine(req *domain.EquationRequest) string {
	switch {
	case req.State.Loading():
		return "Recognizing handwriting..."
	case req.State == domain.StateSolveInFlight:
		return "Solving..."
	default:
		return ""
	}
}

// Markdown describes req as a markdown document.
func Markdown(req *domain.EquationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Equation `%s`\n\n", req.ID)
	fmt.Fprintf(&b, "**State:** %s\n\n", req.State)

	if req.Latex != "" {
		fmt.Fprintf(&b, "```latex\n%s\n```\n\n", req.Latex)
	}
	if line := statusLine(req); line != "" {
		fmt.Fprintf(&b, "_%s_\n\n", line)
	}
	if req.Error != nil {
		fmt.Fprintf(&b, "**Error (%s):** %s\n\n", req.Error.Kind, req.Error.Message)
	}
	for _, pod := range req.Pods {
		fmt.Fprintf(&b, "## %s\n\n![%s](%s)\n\n", pod.Title, pod.Title, pod.Src)
	}
	return b.String()
}

// PlainText describes req for non-terminal output.
func PlainText(req *domain.EquationRequest, profile termenv.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", req.ID, StateLabel(req.State, profile))
	if req.Latex != "" {
		fmt.Fprintf(&b, "  latex: %s\n", req.Latex)
	}
	if line := statusLine(req); line != "" {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	if req.Error != nil {
		fmt.Fprintf(&b, "  error (%s): %s\n", req.Error.Kind, req.Error.Message)
	}
	for _, pod := range req.Pods {
		fmt.Fprintf(&b, "  - %s: %s\n", pod.Title, pod.Src)
	}
	return b.String()
}
