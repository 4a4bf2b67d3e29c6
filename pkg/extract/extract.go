// Package extract selects the parts of freehand strokes that fall inside a
// rectangular selection.
package extract

import "github.com/aretw0/notasolver/pkg/domain"

// minPathLen is the shortest sub-path kept. A single in-region sample is noise.
const minPathLen = 2

// Extract returns the sub-paths of strokes that lie inside region.
//
// Strokes whose bounding box misses the region are skipped without looking at
// their points. Every other stroke is split wherever it leaves the region;
// each contiguous in-region run of at least two points becomes one sub-path.
// Order follows the input strokes and, within a stroke, the capture order.
// A region without area selects nothing. The result is never nil.
func Extract(strokes []domain.Stroke, region domain.Region) domain.StrokeSet {
	region = region.Canonical()
	paths := domain.StrokeSet{}
	if region.Empty() {
		return paths
	}

	for _, stroke := range strokes {
		if len(stroke) < minPathLen || !stroke.Bounds().Intersects(region) {
			continue
		}

		var current []domain.Point
		for _, p := range stroke {
			if region.Contains(p) {
				current = append(current, p)
				continue
			}
			paths = closePath(paths, current)
			current = nil
		}
		paths = closePath(paths, current)
	}

	return paths
}

func closePath(paths domain.StrokeSet, path []domain.Point) domain.StrokeSet {
	if len(path) < minPathLen {
		return paths
	}
	return append(paths, path)
}
