// Package zones maps cursor positions to zones of the active layout.
package zones

import (
	"math"
	"slices"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/layout"
)

const (
	// EdgeTolerance is how far apart two edges may be and still count as
	// shared.
	EdgeTolerance = 5
	// MinOverlapRatio is the fraction of the shorter side a shared edge
	// must cover for two zones to be adjacent.
	MinOverlapRatio = 0.10
	// MaxUnionIterations bounds multi-zone growth.
	MaxUnionIterations = 100
)

// Placed is a zone laid out on a screen.
type Placed struct {
	ID     uuid.UUID
	Number int
	Name   string
	// Rect is the zone's area used for hit testing and adjacency.
	Rect geom.Rect
	// Snap is Rect with zone padding removed; windows are sized to it.
	Snap geom.Rect
}

// Options are the detector's tunables, taken from the zones settings.
type Options struct {
	Padding           int
	OuterGap          int
	AdjacentThreshold int
	EdgeThreshold     int
	MultiZoneEnabled  bool
}

// Result is the outcome of a detection.
type Result struct {
	// Zones holds the selected zone, or every zone of a multi-zone span in
	// zone-number order. It is empty when the layout has no zones.
	Zones []Placed
	// Geometry is the rectangle to snap to.
	Geometry geom.Rect
	// Distance from the cursor to the nearest selected zone; 0 when inside.
	Distance float64
	// Near is false when the cursor is outside every zone and farther than
	// the edge threshold from the nearest one.
	Near bool
}

// Found reports whether any zone was selected.
func (r Result) Found() bool { return len(r.Zones) > 0 }

// IDs returns the selected zone ids.
func (r Result) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(r.Zones))
	for i, z := range r.Zones {
		ids[i] = z.ID
	}
	return ids
}

// Detector holds one layout placed on one screen.
type Detector struct {
	opts   Options
	log    zerolog.Logger
	layout *layout.Layout
	bounds geom.Rect
	zones  []Placed
}

// NewDetector returns a detector with no layout.
func NewDetector(opts Options, log zerolog.Logger) *Detector {
	return &Detector{opts: opts, log: log.With().Str("component", "zones").Logger()}
}

// SetOptions replaces the tunables and recomputes zone rectangles.
func (d *Detector) SetOptions(opts Options) {
	d.opts = opts
	d.place()
}

// SetLayout places l on a screen whose usable area is bounds.
func (d *Detector) SetLayout(l *layout.Layout, bounds geom.Rect) {
	d.layout, d.bounds = l, bounds
	d.place()
}

// Layout returns the placed layout, or nil.
func (d *Detector) Layout() *layout.Layout { return d.layout }

// Zones returns the placed zones in zone-number order.
func (d *Detector) Zones() []Placed { return slices.Clone(d.zones) }

// Zone returns the placed zone with the given id.
func (d *Detector) Zone(id uuid.UUID) (Placed, bool) {
	for _, z := range d.zones {
		if z.ID == id {
			return z, true
		}
	}
	return Placed{}, false
}

// ZoneByNumber returns the placed zone numbered n.
func (d *Detector) ZoneByNumber(n int) (Placed, bool) {
	for _, z := range d.zones {
		if z.Number == n {
			return z, true
		}
	}
	return Placed{}, false
}

func (d *Detector) place() {
	d.zones = nil
	if d.layout == nil {
		return
	}
	d.zones = Place(d.layout, d.bounds, d.layout.Padding(d.opts.Padding), d.opts.OuterGap)
}

// Place computes absolute rectangles for every zone of l on bounds.
func Place(l *layout.Layout, bounds geom.Rect, padding, outerGap int) []Placed {
	area := bounds.Inset(outerGap)
	out := make([]Placed, 0, len(l.Zones))
	for _, z := range l.Zones {
		r := z.Geometry.ToAbsolute(area)
		out = append(out, Placed{
			ID:     z.ID,
			Number: z.Number,
			Name:   z.Name,
			Rect:   r,
			Snap:   padInner(r, area, padding),
		})
	}
	slices.SortStableFunc(out, func(a, b Placed) int { return a.Number - b.Number })
	return out
}

// padInner shrinks the edges of r that are not on the area border so that
// neighbouring zones end up padding pixels apart.
func padInner(r, area geom.Rect, padding int) geom.Rect {
	if padding <= 0 {
		return r
	}
	lead, trail := padding/2, padding-padding/2
	x1, y1, x2, y2 := r.X, r.Y, r.Right(), r.Bottom()
	if x1 > area.X {
		x1 += lead
	}
	if y1 > area.Y {
		y1 += lead
	}
	if x2 < area.Right() {
		x2 -= trail
	}
	if y2 < area.Bottom() {
		y2 -= trail
	}
	if x2-x1 < 1 || y2-y1 < 1 {
		return r
	}
	return geom.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// DetectZone returns the zone under p. When p is inside several
// overlapping zones the smallest wins. When p is outside every zone the
// nearest zone is returned with its distance.
func (d *Detector) DetectZone(p geom.Point) Result {
	best, bestArea := -1, 0
	for i, z := range d.zones {
		if !z.Rect.Contains(p) {
			continue
		}
		if area := z.Rect.Width * z.Rect.Height; best < 0 || area < bestArea {
			best, bestArea = i, area
		}
	}
	if best >= 0 {
		z := d.zones[best]
		return Result{Zones: []Placed{z}, Geometry: z.Snap, Near: true}
	}

	best, bestDist := -1, math.Inf(1)
	for i, z := range d.zones {
		if dist := z.Rect.DistanceTo(p); dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return Result{}
	}
	z := d.zones[best]
	return Result{
		Zones:    []Placed{z},
		Geometry: z.Snap,
		Distance: bestDist,
		Near:     bestDist <= float64(d.opts.EdgeThreshold),
	}
}

// DetectMultiZone selects every zone within the adjacent threshold of p
// and grows the selection until no further zone intersects the union.
// Fewer than two nearby zones, or multi-zone disabled, falls back to
// DetectZone.
func (d *Detector) DetectMultiZone(p geom.Point) Result {
	if !d.opts.MultiZoneEnabled {
		return d.DetectZone(p)
	}
	selected := make([]bool, len(d.zones))
	var union geom.Rect
	count := 0
	for i, z := range d.zones {
		if z.Rect.Contains(p) || z.Rect.DistanceTo(p) <= float64(d.opts.AdjacentThreshold) {
			selected[i] = true
			union = union.Union(z.Rect)
			count++
		}
	}
	if count < 2 {
		return d.DetectZone(p)
	}

	if capped := grow(d.zones, selected, union); capped {
		d.log.Warn().Int("iterations", MaxUnionIterations).Msg("multi-zone expansion did not settle, using partial selection")
	}

	res := Result{Near: true}
	for i, z := range d.zones {
		if selected[i] {
			res.Zones = append(res.Zones, z)
			res.Geometry = res.Geometry.Union(z.Snap)
		}
	}
	return res
}

// grow adds every zone intersecting the union until a pass adds nothing. It
// reports whether the iteration cap was reached first.
func grow(zones []Placed, selected []bool, union geom.Rect) bool {
	for iter := 0; iter < MaxUnionIterations; iter++ {
		added := false
		for i, z := range zones {
			if selected[i] || !z.Rect.Intersects(union) {
				continue
			}
			selected[i] = true
			union = union.Union(z.Rect)
			added = true
		}
		if !added {
			return false
		}
	}
	return true
}

// Span returns the combined snap geometry of the given zones.
func (d *Detector) Span(ids []uuid.UUID) (geom.Rect, bool) {
	var out geom.Rect
	found := false
	for _, id := range ids {
		if z, ok := d.Zone(id); ok {
			out = out.Union(z.Snap)
			found = true
		}
	}
	return out, found
}
