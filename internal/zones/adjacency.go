package zones

import (
	"math"

	"github.com/google/uuid"

	"github.com/plasmazones/plasmazones/internal/geom"
)

// Adjacent reports whether a and b share an edge: the edges lie within
// EdgeTolerance pixels of each other and their overlap is longer than the
// tolerance and at least MinOverlapRatio of the shorter side along that
// edge. Corner touches and slivers are rejected.
func Adjacent(a, b geom.Rect) bool {
	_, ok := sharedEdge(a, b)
	return ok
}

// sharedEdge returns the direction from a to b when they are adjacent.
func sharedEdge(a, b geom.Rect) (geom.Direction, bool) {
	vOverlap := overlap(a.Y, a.Bottom(), b.Y, b.Bottom())
	vShort := min(a.Height, b.Height)
	if enough(vOverlap, vShort) {
		if near(a.Right(), b.X) {
			return geom.Right, true
		}
		if near(b.Right(), a.X) {
			return geom.Left, true
		}
	}
	hOverlap := overlap(a.X, a.Right(), b.X, b.Right())
	hShort := min(a.Width, b.Width)
	if enough(hOverlap, hShort) {
		if near(a.Bottom(), b.Y) {
			return geom.Down, true
		}
		if near(b.Bottom(), a.Y) {
			return geom.Up, true
		}
	}
	return 0, false
}

func overlap(a1, a2, b1, b2 int) int {
	return min(a2, b2) - max(a1, b1)
}

func near(a, b int) bool {
	d := a - b
	return d >= -EdgeTolerance && d <= EdgeTolerance
}

func enough(ov, shorter int) bool {
	return ov > EdgeTolerance && float64(ov) >= MinOverlapRatio*float64(shorter)
}

// Neighbor returns the zone adjacent to from in direction dir. Among
// several candidates the one sharing the longest edge wins, then the one
// whose center is closest.
func (d *Detector) Neighbor(from uuid.UUID, dir geom.Direction) (Placed, bool) {
	src, ok := d.Zone(from)
	if !ok {
		return Placed{}, false
	}
	best, bestOverlap, bestDist := -1, 0, math.Inf(1)
	c := src.Rect.Center()
	for i, z := range d.zones {
		if z.ID == src.ID {
			continue
		}
		got, ok := sharedEdge(src.Rect, z.Rect)
		if !ok || got != dir {
			continue
		}
		var ov int
		if dir == geom.Left || dir == geom.Right {
			ov = overlap(src.Rect.Y, src.Rect.Bottom(), z.Rect.Y, z.Rect.Bottom())
		} else {
			ov = overlap(src.Rect.X, src.Rect.Right(), z.Rect.X, z.Rect.Right())
		}
		zc := z.Rect.Center()
		dist := math.Hypot(float64(zc.X-c.X), float64(zc.Y-c.Y))
		if best < 0 || ov > bestOverlap || (ov == bestOverlap && dist < bestDist) {
			best, bestOverlap, bestDist = i, ov, dist
		}
	}
	if best < 0 {
		return Placed{}, false
	}
	return d.zones[best], true
}

// Nearest returns the zone whose center is closest to p.
func (d *Detector) Nearest(p geom.Point) (Placed, bool) {
	best, bestDist := -1, math.Inf(1)
	for i, z := range d.zones {
		c := z.Rect.Center()
		if dist := math.Hypot(float64(c.X-p.X), float64(c.Y-p.Y)); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return Placed{}, false
	}
	return d.zones[best], true
}
