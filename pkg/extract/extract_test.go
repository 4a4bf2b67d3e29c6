package extract_test

import (
	"math/rand"
	"testing"

	"github.com/aretw0/notasolver/pkg/domain"
	"github.com/aretw0/notasolver/pkg/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pt(x, y float64) domain.Point { return domain.Point{X: x, Y: y} }

func TestExtract(t *testing.T) {
	region := domain.Region{X: 0, Y: 0, Width: 10, Height: 10}

	tests := []struct {
		name    string
		strokes []domain.Stroke
		want    domain.StrokeSet
	}{
		{
			name:    "no strokes",
			strokes: nil,
			want:    domain.StrokeSet{},
		},
		{
			name:    "stroke fully inside is kept whole",
			strokes: []domain.Stroke{{pt(1, 1), pt(2, 2), pt(3, 3)}},
			want:    domain.StrokeSet{{pt(1, 1), pt(2, 2), pt(3, 3)}},
		},
		{
			name:    "stroke fully outside is dropped",
			strokes: []domain.Stroke{{pt(20, 20), pt(30, 30)}},
			want:    domain.StrokeSet{},
		},
		{
			name:    "boundary points count as inside",
			strokes: []domain.Stroke{{pt(0, 0), pt(10, 10)}},
			want:    domain.StrokeSet{{pt(0, 0), pt(10, 10)}},
		},
		{
			name:    "exit and re-entry splits the stroke",
			strokes: []domain.Stroke{{pt(1, 1), pt(2, 2), pt(15, 2), pt(3, 3), pt(4, 4)}},
			want:    domain.StrokeSet{{pt(1, 1), pt(2, 2)}, {pt(3, 3), pt(4, 4)}},
		},
		{
			name:    "single in-region sample is discarded",
			strokes: []domain.Stroke{{pt(-5, 5), pt(5, 5), pt(15, 5), pt(6, 6), pt(7, 7)}},
			want:    domain.StrokeSet{{pt(6, 6), pt(7, 7)}},
		},
		{
			name:    "single trailing sample is discarded",
			strokes: []domain.Stroke{{pt(1, 1), pt(2, 2), pt(20, 2), pt(3, 3)}},
			want:    domain.StrokeSet{{pt(1, 1), pt(2, 2)}},
		},
		{
			name:    "bounding box intersects but no point inside",
			strokes: []domain.Stroke{{pt(-5, 5), pt(15, 5)}},
			want:    domain.StrokeSet{},
		},
		{
			name: "order of strokes is preserved",
			strokes: []domain.Stroke{
				{pt(5, 5), pt(6, 6)},
				{pt(50, 50), pt(60, 60)},
				{pt(1, 1), pt(2, 2)},
			},
			want: domain.StrokeSet{{pt(5, 5), pt(6, 6)}, {pt(1, 1), pt(2, 2)}},
		},
		{
			name:    "one point stroke is never a path",
			strokes: []domain.Stroke{{pt(5, 5)}},
			want:    domain.StrokeSet{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.Extract(tt.strokes, region)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_NegativeRegion(t *testing.T) {
	// Dragging the resize handle up-left of the origin.
	region := domain.Region{X: 10, Y: 10, Width: -10, Height: -10}
	got := extract.Extract([]domain.Stroke{{pt(1, 1), pt(9, 9)}}, region)
	assert.Equal(t, domain.StrokeSet{{pt(1, 1), pt(9, 9)}}, got)
}

func TestExtract_EmptyRegion(t *testing.T) {
	got := extract.Extract([]domain.Stroke{{pt(1, 1), pt(2, 2)}}, domain.Region{X: 50, Y: 50})
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestExtract_ZeroAreaRegion(t *testing.T) {
	tests := []struct {
		name    string
		strokes []domain.Stroke
		region  domain.Region
	}{
		{
			name:    "point region on the stroke",
			strokes: []domain.Stroke{{pt(5, 0), pt(5, 0), pt(9, 9)}},
			region:  domain.Region{X: 5, Y: 0},
		},
		{
			name:    "vertical line along the stroke",
			strokes: []domain.Stroke{{pt(5, 1), pt(5, 5), pt(5, 9)}},
			region:  domain.Region{X: 5, Y: 0, Height: 10},
		},
		{
			name:    "horizontal line along the stroke",
			strokes: []domain.Stroke{{pt(1, 3), pt(4, 3)}},
			region:  domain.Region{X: 0, Y: 3, Width: 10},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extract.Extract(tt.strokes, tt.region)
			assert.Empty(t, got)
			assert.NotNil(t, got)
		})
	}
}

func TestExtract_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		region := domain.Region{
			X:      rng.Float64() * 50,
			Y:      rng.Float64() * 50,
			Width:  rng.Float64() * 60,
			Height: rng.Float64() * 60,
		}
		strokes := make([]domain.Stroke, rng.Intn(6))
		for s := range strokes {
			n := rng.Intn(40)
			stroke := make(domain.Stroke, n)
			for j := range stroke {
				stroke[j] = pt(rng.Float64()*120-10, rng.Float64()*120-10)
			}
			strokes[s] = stroke
		}

		got := extract.Extract(strokes, region)
		for _, path := range got {
			require.GreaterOrEqual(t, len(path), 2)
			for _, p := range path {
				require.True(t, region.Contains(p), "point %v outside %v", p, region)
			}
		}

		again := extract.Extract(strokes, region)
		require.Equal(t, got, again, "extract must be idempotent")
	}
}

func TestExtract_StrokeThatNeverLeaves(t *testing.T) {
	region := domain.Region{X: -100, Y: -100, Width: 200, Height: 200}
	stroke := domain.Stroke{pt(0, 0), pt(10, -5), pt(20, 30), pt(-40, 90)}

	got := extract.Extract([]domain.Stroke{stroke}, region)
	require.Len(t, got, 1)
	assert.Equal(t, []domain.Point(stroke), got[0])
}

func TestExtract_DoesNotAliasInput(t *testing.T) {
	stroke := domain.Stroke{pt(1, 1), pt(2, 2)}
	got := extract.Extract([]domain.Stroke{stroke}, domain.Region{Width: 10, Height: 10})
	got[0][0].X = 42
	assert.Equal(t, 1.0, stroke[0].X)
}
