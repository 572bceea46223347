package zones

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/layout"
)

var screen = geom.Rect{X: 0, Y: 0, Width: 1000, Height: 800}

func gridDetector(t *testing.T, opts Options) (*Detector, *layout.Layout) {
	t.Helper()
	l := layout.Grid("quad", layout.Params{Columns: 2, Rows: 2})
	d := NewDetector(opts, zerolog.Nop())
	d.SetLayout(l, screen)
	return d, l
}

func TestPlace_AppliesGapsAndPadding(t *testing.T) {
	l := layout.Columns("halves", layout.Params{Count: 2})
	zones := Place(l, screen, 10, 20)
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}
	left, right := zones[0], zones[1]
	if left.Rect != (geom.Rect{X: 20, Y: 20, Width: 480, Height: 760}) {
		t.Fatalf("left rect = %v", left.Rect)
	}
	// Outer edges keep the outer gap only; the shared edge loses padding.
	if left.Snap != (geom.Rect{X: 20, Y: 20, Width: 475, Height: 760}) {
		t.Fatalf("left snap = %v", left.Snap)
	}
	if right.Snap.X-left.Snap.Right() != 10 {
		t.Fatalf("gap between snaps = %d, want 10", right.Snap.X-left.Snap.Right())
	}
}

func TestPlace_LayoutPaddingOverridesGlobal(t *testing.T) {
	l := layout.Columns("halves", layout.Params{Count: 2})
	l.ZonePadding = 0
	d := NewDetector(Options{Padding: 30}, zerolog.Nop())
	d.SetLayout(l, screen)
	z := d.Zones()[0]
	if z.Snap != z.Rect {
		t.Fatalf("zero layout padding should leave snap = rect, got %v vs %v", z.Snap, z.Rect)
	}
}

func TestDetectZone_Inside(t *testing.T) {
	d, l := gridDetector(t, Options{EdgeThreshold: 40})
	res := d.DetectZone(geom.Point{X: 750, Y: 100})
	if !res.Found() || res.Distance != 0 || !res.Near {
		t.Fatalf("result = %+v", res)
	}
	if res.Zones[0].ID != l.Zones[1].ID {
		t.Fatalf("detected zone %d, want 2", res.Zones[0].Number)
	}
	if res.Geometry != (geom.Rect{X: 500, Y: 0, Width: 500, Height: 400}) {
		t.Fatalf("geometry = %v", res.Geometry)
	}
}

func TestDetectZone_OutsideReportsNearest(t *testing.T) {
	d := NewDetector(Options{EdgeThreshold: 40, OuterGap: 100}, zerolog.Nop())
	d.SetLayout(layout.Columns("c", layout.Params{Count: 2}), screen)

	res := d.DetectZone(geom.Point{X: 130, Y: 50})
	if !res.Found() || res.Zones[0].Number != 1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Distance != 50 || res.Near {
		t.Fatalf("distance = %v near = %v, want 50 and false", res.Distance, res.Near)
	}

	res = d.DetectZone(geom.Point{X: 130, Y: 80})
	if res.Distance != 20 || !res.Near {
		t.Fatalf("distance = %v near = %v, want 20 and true", res.Distance, res.Near)
	}
}

func TestDetectZone_EmptyLayout(t *testing.T) {
	d := NewDetector(Options{}, zerolog.Nop())
	d.SetLayout(layout.New("empty"), screen)
	if res := d.DetectZone(geom.Point{X: 1, Y: 1}); res.Found() {
		t.Fatalf("empty layout detected %+v", res)
	}
	d.SetLayout(nil, screen)
	if res := d.DetectMultiZone(geom.Point{X: 1, Y: 1}); res.Found() {
		t.Fatalf("nil layout detected %+v", res)
	}
}

func TestDetectMultiZone_GridCenterSelectsAll(t *testing.T) {
	d, _ := gridDetector(t, Options{MultiZoneEnabled: true, AdjacentThreshold: 20})
	res := d.DetectMultiZone(geom.Point{X: 500, Y: 400})
	if len(res.Zones) != 4 {
		t.Fatalf("selected %d zones, want 4", len(res.Zones))
	}
	if res.Geometry != screen {
		t.Fatalf("geometry = %v, want full screen %v", res.Geometry, screen)
	}
}

func TestDetectMultiZone_EdgeSelectsPair(t *testing.T) {
	d, l := gridDetector(t, Options{MultiZoneEnabled: true, AdjacentThreshold: 20})
	res := d.DetectMultiZone(geom.Point{X: 490, Y: 100})
	if len(res.Zones) != 2 {
		t.Fatalf("selected %d zones, want 2", len(res.Zones))
	}
	if res.Zones[0].ID != l.Zones[0].ID || res.Zones[1].ID != l.Zones[1].ID {
		t.Fatalf("selected %v", res.IDs())
	}
	if res.Geometry != (geom.Rect{X: 0, Y: 0, Width: 1000, Height: 400}) {
		t.Fatalf("geometry = %v", res.Geometry)
	}
}

func TestDetectMultiZone_FallsBackToSingle(t *testing.T) {
	d, _ := gridDetector(t, Options{MultiZoneEnabled: true, AdjacentThreshold: 20})
	res := d.DetectMultiZone(geom.Point{X: 200, Y: 200})
	if len(res.Zones) != 1 {
		t.Fatalf("selected %d zones, want 1", len(res.Zones))
	}

	d.SetOptions(Options{MultiZoneEnabled: false, AdjacentThreshold: 20})
	res = d.DetectMultiZone(geom.Point{X: 500, Y: 400})
	if len(res.Zones) != 1 {
		t.Fatalf("disabled multi-zone selected %d zones", len(res.Zones))
	}
}

func TestDetectMultiZone_GrowsToFixedPoint(t *testing.T) {
	// A wide zone under two narrow ones: picking the two top zones must
	// pull in the bottom zone spanning both, and the union must be closed.
	l := layout.New("t")
	l.AddZone(geom.RelRect{X: 0, Y: 0, Width: 0.5, Height: 0.5})
	l.AddZone(geom.RelRect{X: 0.5, Y: 0, Width: 0.5, Height: 0.5})
	l.AddZone(geom.RelRect{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.75})
	l.AddZone(geom.RelRect{X: 0, Y: 0.5, Width: 0.25, Height: 0.5})
	d := NewDetector(Options{MultiZoneEnabled: true, AdjacentThreshold: 10}, zerolog.Nop())
	d.SetLayout(l, screen)

	res := d.DetectMultiZone(geom.Point{X: 500, Y: 50})
	if len(res.Zones) != 4 {
		t.Fatalf("selected %d zones, want 4", len(res.Zones))
	}
	for _, z := range d.Zones() {
		inSel := false
		for _, s := range res.Zones {
			inSel = inSel || s.ID == z.ID
		}
		if !inSel && z.Rect.Intersects(res.Geometry) {
			t.Fatalf("zone %d intersects the union but was not selected", z.Number)
		}
	}
}

func TestAdjacent(t *testing.T) {
	tests := []struct {
		name string
		a, b geom.Rect
		want bool
	}{
		{"side by side", geom.Rect{X: 0, Y: 0, Width: 100, Height: 500}, geom.Rect{X: 100, Y: 0, Width: 100, Height: 500}, true},
		{"within tolerance", geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, geom.Rect{X: 104, Y: 0, Width: 100, Height: 100}, true},
		{"gap too wide", geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, geom.Rect{X: 106, Y: 0, Width: 100, Height: 100}, false},
		{"stacked", geom.Rect{X: 0, Y: 0, Width: 300, Height: 100}, geom.Rect{X: 100, Y: 100, Width: 300, Height: 100}, true},
		{"corner touch", geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}, geom.Rect{X: 100, Y: 100, Width: 100, Height: 100}, false},
		{"one pixel sliver", geom.Rect{X: 0, Y: 0, Width: 100, Height: 500}, geom.Rect{X: 100, Y: 499, Width: 100, Height: 1}, false},
		{"small overlap", geom.Rect{X: 0, Y: 0, Width: 100, Height: 1000}, geom.Rect{X: 100, Y: 950, Width: 100, Height: 1000}, false},
		{"ten percent", geom.Rect{X: 0, Y: 0, Width: 100, Height: 1000}, geom.Rect{X: 100, Y: 900, Width: 100, Height: 1000}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Adjacent(tt.a, tt.b); got != tt.want {
				t.Fatalf("Adjacent(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := Adjacent(tt.b, tt.a); got != tt.want {
				t.Fatalf("Adjacent is not symmetric for %v, %v", tt.a, tt.b)
			}
		})
	}
}

func TestNeighbor(t *testing.T) {
	d, l := gridDetector(t, Options{})
	topLeft, topRight, bottomLeft := l.Zones[0].ID, l.Zones[1].ID, l.Zones[2].ID

	tests := []struct {
		from uuid.UUID
		dir  geom.Direction
		want uuid.UUID
		ok   bool
	}{
		{topLeft, geom.Right, topRight, true},
		{topLeft, geom.Down, bottomLeft, true},
		{topRight, geom.Left, topLeft, true},
		{topLeft, geom.Left, uuid.Nil, false},
		{topLeft, geom.Up, uuid.Nil, false},
	}
	for _, tt := range tests {
		got, ok := d.Neighbor(tt.from, tt.dir)
		if ok != tt.ok || (ok && got.ID != tt.want) {
			t.Errorf("Neighbor(%s, %s) = %v, %v", tt.from, tt.dir, got.Number, ok)
		}
	}
}

func TestNeighbor_PrefersLongestSharedEdge(t *testing.T) {
	l := layout.New("t")
	l.AddZone(geom.RelRect{X: 0, Y: 0, Width: 0.5, Height: 1})
	short := l.AddZone(geom.RelRect{X: 0.5, Y: 0, Width: 0.5, Height: 0.25})
	long := l.AddZone(geom.RelRect{X: 0.5, Y: 0.25, Width: 0.5, Height: 0.75})
	d := NewDetector(Options{}, zerolog.Nop())
	d.SetLayout(l, screen)

	got, ok := d.Neighbor(l.Zones[0].ID, geom.Right)
	if !ok || got.ID != long.ID {
		t.Fatalf("Neighbor = %d (short is %d), want %d", got.Number, short.Number, long.Number)
	}
}
