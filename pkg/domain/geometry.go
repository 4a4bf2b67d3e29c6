package domain

import "math"

// Point is a 2D coordinate captured from the input surface.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one continuous input gesture, in capture order.
type Stroke []Point

// Bounds returns the smallest rectangle containing every point of the stroke.
// An empty stroke has empty bounds.
func (s Stroke) Bounds() Region {
	if len(s) == 0 {
		return Region{}
	}
	minX, minY := s[0].X, s[0].Y
	maxX, maxY := minX, minY
	for _, p := range s[1:] {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}
	return Region{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// Region is an axis-aligned rectangle given by its origin and size.
type Region struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Canonical returns the same rectangle with a non-negative width and height.
// Resizing a selection past its origin produces negative sizes.
func (r Region) Canonical() Region {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// MaxX returns the right edge.
func (r Region) MaxX() float64 { return r.X + r.Width }

// MaxY returns the bottom edge.
func (r Region) MaxY() float64 { return r.Y + r.Height }

// Empty reports whether the rectangle has no area.
func (r Region) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Contains reports whether p lies inside the closed rectangle, edges included.
// r must be canonical.
func (r Region) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.MaxX() && p.Y >= r.Y && p.Y <= r.MaxY()
}

// Intersects reports whether the two closed rectangles share at least one point.
// Both must be canonical.
func (r Region) Intersects(o Region) bool {
	return r.X <= o.MaxX() && o.X <= r.MaxX() && r.Y <= o.MaxY() && o.Y <= r.MaxY()
}

// StrokeSet is the ordered list of sub-paths extracted from a Region.
// Every sub-path holds at least two points.
type StrokeSet [][]Point

// Clone returns a deep copy.
func (s StrokeSet) Clone() StrokeSet {
	if s == nil {
		return nil
	}
	out := make(StrokeSet, len(s))
	for i, path := range s {
		out[i] = append([]Point(nil), path...)
	}
	return out
}

// PointCount returns the total number of points over all sub-paths.
func (s StrokeSet) PointCount() int {
	n := 0
	for _, path := range s {
		n += len(path)
	}
	return n
}
