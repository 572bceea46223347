// Package geom holds the rectangle arithmetic shared by the zone detector,
// the window tracker and the autotile algorithms.
package geom

import (
	"fmt"
	"math"
	"strings"
)

// Point is a position in global screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is an absolute rectangle in screen pixels.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Right returns the x coordinate one past the last column.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the y coordinate one past the last row.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Empty reports whether r has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Center returns the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Contains reports whether p lies inside r. Edges are inclusive so that a
// point on a shared border belongs to both neighbours.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.Right() && p.Y >= r.Y && p.Y <= r.Bottom()
}

// Intersects reports whether r and o overlap with positive area.
func (r Rect) Intersects(o Rect) bool {
	return !r.Intersection(o).Empty()
}

// Intersection returns the overlapping rectangle, empty when disjoint.
func (r Rect) Intersection(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.Right(), o.Right())
	y2 := min(r.Bottom(), o.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// Union returns the bounding rectangle of r and o. An empty operand is ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x1 := min(r.X, o.X)
	y1 := min(r.Y, o.Y)
	x2 := max(r.Right(), o.Right())
	y2 := max(r.Bottom(), o.Bottom())
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// ContainsRect reports whether o lies entirely within r.
func (r Rect) ContainsRect(o Rect) bool {
	return o.X >= r.X && o.Y >= r.Y && o.Right() <= r.Right() && o.Bottom() <= r.Bottom()
}

// DistanceTo returns the Euclidean distance from p to the nearest point of
// r, zero when p is inside.
func (r Rect) DistanceTo(p Point) float64 {
	dx := 0
	switch {
	case p.X < r.X:
		dx = r.X - p.X
	case p.X > r.Right():
		dx = p.X - r.Right()
	}
	dy := 0
	switch {
	case p.Y < r.Y:
		dy = r.Y - p.Y
	case p.Y > r.Bottom():
		dy = p.Y - r.Bottom()
	}
	return math.Hypot(float64(dx), float64(dy))
}

// Inset shrinks r by n pixels on every side. The result never has negative
// dimensions.
func (r Rect) Inset(n int) Rect {
	out := Rect{X: r.X + n, Y: r.Y + n, Width: r.Width - 2*n, Height: r.Height - 2*n}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width, r.Height, r.X, r.Y)
}

// RelRect is a rectangle expressed as fractions of a screen's usable area.
type RelRect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MinRelSize is the smallest width or height a relative rectangle may have.
const MinRelSize = 0.01

// Valid reports whether r lies within the unit square with positive size.
func (r RelRect) Valid() bool {
	return r.X >= 0 && r.Y >= 0 && r.Width > 0 && r.Height > 0 &&
		r.X+r.Width <= 1+1e-9 && r.Y+r.Height <= 1+1e-9
}

// Clamp forces r into the unit square. It reports whether anything changed.
func (r RelRect) Clamp() (RelRect, bool) {
	out := r
	out.X = clampF(out.X, 0, 1-MinRelSize)
	out.Y = clampF(out.Y, 0, 1-MinRelSize)
	if out.X+out.Width > 1+1e-9 || out.Width < MinRelSize || math.IsNaN(out.Width) {
		out.Width = clampF(out.Width, MinRelSize, 1-out.X)
	}
	if out.Y+out.Height > 1+1e-9 || out.Height < MinRelSize || math.IsNaN(out.Height) {
		out.Height = clampF(out.Height, MinRelSize, 1-out.Y)
	}
	return out, out != r
}

// ToAbsolute maps r onto bounds. Edges are rounded independently so that
// zones sharing a relative edge share the same pixel edge.
func (r RelRect) ToAbsolute(bounds Rect) Rect {
	x1 := bounds.X + int(math.Round(r.X*float64(bounds.Width)))
	y1 := bounds.Y + int(math.Round(r.Y*float64(bounds.Height)))
	x2 := bounds.X + int(math.Round((r.X+r.Width)*float64(bounds.Width)))
	y2 := bounds.Y + int(math.Round((r.Y+r.Height)*float64(bounds.Height)))
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

func clampF(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Direction is a keyboard navigation direction.
type Direction int

const (
	Left Direction = iota
	Right
	Up
	Down
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	case Up:
		return "up"
	case Down:
		return "down"
	}
	return fmt.Sprintf("direction(%d)", int(d))
}

// ParseDirection accepts left/right/up/down in any case.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	}
	return Left, fmt.Errorf("unknown direction %q", s)
}
