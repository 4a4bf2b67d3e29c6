package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/notasolver/internal/presentation/tui"
	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve the equation drawn in a strokes file",
	Long: `Reads a JSON array of strokes, each an array of {"x":..,"y":..} points,
submits the strokes inside --region and prints the result pods.
Without --region every stroke is used. Use "-" to read from stdin.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("strokes")
		regionFlag, _ := cmd.Flags().GetString("region")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		strokes, err := readStrokes(cmd.InOrStdin(), path)
		if err != nil {
			return err
		}
		region := boundsOf(strokes)
		if regionFlag != "" {
			if region, err = parseRegion(regionFlag); err != nil {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		defer cancel()

		solver, err := newSolver(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer solver.Close(context.Background())

		id, err := solver.Submit(ctx, strokes, region)
		if err != nil {
			return err
		}
		req, err := solver.Await(ctx, id)
		if err != nil {
			return fmt.Errorf("request %s did not finish: %w", id, err)
		}
		if err := render(cmd.OutOrStdout(), req); err != nil {
			return err
		}
		if req.State == domain.StateFailed {
			return fmt.Errorf("request failed: %s", req.Error.Kind)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().StringP("strokes", "s", "-", "JSON strokes file")
	solveCmd.Flags().StringP("region", "r", "", "Selection as x,y,width,height")
	solveCmd.Flags().Duration("timeout", 2*time.Minute, "Give up after this long")
}

// render prints markdown through glamour on a terminal and plain text otherwise.
func render(w io.Writer, req *domain.EquationRequest) error {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		renderMarkdown, err := tui.NewRenderer()
		if err != nil {
			return err
		}
		out, err := renderMarkdown(tui.Markdown(req))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	}
	_, err := io.WriteString(w, tui.PlainText(req, termenv.EnvColorProfile()))
	return err
}

func readStrokes(stdin io.Reader, path string) ([]domain.Stroke, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open strokes: %w", err)
		}
		defer f.Close()
		r = f
	}

	var strokes []domain.Stroke
	if err := json.NewDecoder(r).Decode(&strokes); err != nil {
		return nil, fmt.Errorf("failed to decode strokes: %w", err)
	}
	return strokes, nil
}

func parseRegion(s string) (domain.Region, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.Region{}, fmt.Errorf("invalid region %q: want x,y,width,height", s)
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Region{}, fmt.Errorf("invalid region %q: %w", s, err)
		}
		v[i] = f
	}
	return domain.Region{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// boundsOf returns the rectangle covering every stroke.
func boundsOf(strokes []domain.Stroke) domain.Region {
	var out domain.Region
	first := true
	for _, s := range strokes {
		if len(s) == 0 {
			continue
		}
		b := s.Bounds()
		if first {
			out, first = b, false
			continue
		}
		minX, minY := min(out.X, b.X), min(out.Y, b.Y)
		maxX, maxY := max(out.MaxX(), b.MaxX()), max(out.MaxY(), b.MaxY())
		out = domain.Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
	}
	return out
}
