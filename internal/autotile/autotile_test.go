package autotile

import (
	"fmt"
	"slices"
	"testing"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/geom"
)

var area = geom.Rect{X: 0, Y: 0, Width: 1200, Height: 800}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("w%d", i)
	}
	return out
}

func TestRegistry_BuiltinsAndFallback(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	want := []string{"master-stack", "bsp", "columns", "rows", "fibonacci", "monocle", "three-column"}
	var got []string
	for _, a := range reg.List() {
		got = append(got, a.ID())
	}
	if !slices.Equal(got, want) {
		t.Fatalf("algorithms = %v, want %v", got, want)
	}
	if a := reg.Get("spiral-of-doom"); a.ID() != DefaultID {
		t.Fatalf("Get(unknown) = %s, want %s", a.ID(), DefaultID)
	}
	if _, ok := reg.Lookup("spiral-of-doom"); ok {
		t.Fatal("Lookup(unknown) succeeded")
	}
}

func TestArrange_TilesStayInsideAreaWithoutOverlap(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	p := Params{MasterRatio: 0.6, MasterCount: 1, InnerGap: 8, OuterGap: 8}
	for _, a := range reg.List() {
		if a.ID() == "monocle" {
			continue
		}
		for n := 1; n <= 7; n++ {
			rects := a.Arrange(names(n), area, p)
			if len(rects) != n {
				t.Fatalf("%s(%d) returned %d rects", a.ID(), n, len(rects))
			}
			for i, r := range rects {
				if r.Empty() || !area.ContainsRect(r) {
					t.Fatalf("%s(%d) rect %d = %v outside %v", a.ID(), n, i, r, area)
				}
				for j := i + 1; j < len(rects); j++ {
					if r.Intersects(rects[j]) {
						t.Fatalf("%s(%d) rects %d and %d overlap: %v %v", a.ID(), n, i, j, r, rects[j])
					}
				}
			}
		}
	}
}

func TestMasterStack(t *testing.T) {
	a, _ := NewRegistry(zerolog.Nop()).Lookup("master-stack")
	rects := a.Arrange(names(3), area, Params{MasterRatio: 0.5, MasterCount: 1})
	if rects[0] != (geom.Rect{X: 0, Y: 0, Width: 600, Height: 800}) {
		t.Fatalf("master = %v", rects[0])
	}
	if rects[1] != (geom.Rect{X: 600, Y: 0, Width: 600, Height: 400}) || rects[2] != (geom.Rect{X: 600, Y: 400, Width: 600, Height: 400}) {
		t.Fatalf("stack = %v %v", rects[1], rects[2])
	}
}

func TestSmartGapsSingleWindow(t *testing.T) {
	a, _ := NewRegistry(zerolog.Nop()).Lookup("columns")
	p := Params{InnerGap: 10, OuterGap: 20, SmartGaps: true}
	if got := a.Arrange(names(1), area, p); got[0] != area {
		t.Fatalf("single window = %v, want full area", got[0])
	}
	got := a.Arrange(names(2), area, p)
	if got[0].X != 20 || got[1].X-got[0].Right() != 10 {
		t.Fatalf("two windows = %v", got)
	}
}

func TestBaseOperations(t *testing.T) {
	var b base
	ws := []string{"a", "b", "c"}
	if got := b.FocusNext("c", ws); got != "a" {
		t.Fatalf("FocusNext wraps to %q", got)
	}
	if got := b.FocusPrev("a", ws); got != "c" {
		t.Fatalf("FocusPrev wraps to %q", got)
	}
	if got := b.FocusNext("zzz", ws); got != "a" {
		t.Fatalf("FocusNext(unknown) = %q", got)
	}
	if got := b.Rotate(ws, true); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("Rotate cw = %v", got)
	}
	if got := b.Rotate(ws, false); !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Fatalf("Rotate ccw = %v", got)
	}
	if !slices.Equal(ws, []string{"a", "b", "c"}) {
		t.Fatal("Rotate modified its input")
	}
}

type recorder struct {
	moves   map[string]geom.Rect
	focused []string
}

func (r *recorder) MoveResize(id string, rect geom.Rect) error {
	if r.moves == nil {
		r.moves = map[string]geom.Rect{}
	}
	r.moves[id] = rect
	return nil
}

func (r *recorder) Activate(id string) error {
	r.focused = append(r.focused, id)
	return nil
}

func newEngine(t *testing.T, opts Options) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	return NewEngine(NewRegistry(zerolog.Nop()), rec, opts, zerolog.Nop()), rec
}

func TestEngine_ActivateAndAdd(t *testing.T) {
	e, rec := newEngine(t, Options{Params: Params{MasterRatio: 0.5, MasterCount: 1}, InsertPosition: InsertEnd})
	if got := e.Activate("S", "nope", area, []string{"a"}); got != DefaultID {
		t.Fatalf("Activate(unknown) = %q", got)
	}
	if rec.moves["a"] != area {
		t.Fatalf("single window placed at %v", rec.moves["a"])
	}
	if err := e.AddWindow("S", "b"); err != nil {
		t.Fatal(err)
	}
	if rec.moves["a"].Width != 600 || rec.moves["b"].X != 600 {
		t.Fatalf("moves = %v", rec.moves)
	}
	if err := e.AddWindow("T", "c"); err == nil {
		t.Fatal("AddWindow on inactive screen succeeded")
	}
	e.RemoveWindow("a")
	if !slices.Equal(e.Windows("S"), []string{"b"}) || rec.moves["b"] != area {
		t.Fatalf("after remove: %v %v", e.Windows("S"), rec.moves["b"])
	}
}

func TestEngine_InsertPositions(t *testing.T) {
	e, _ := newEngine(t, Options{InsertPosition: InsertAsMaster})
	e.Activate("S", "columns", area, []string{"a", "b"})
	e.AddWindow("S", "c")
	if got := e.Windows("S"); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("as_master order = %v", got)
	}

	e, _ = newEngine(t, Options{InsertPosition: InsertAfterFocused})
	e.Activate("S", "columns", area, []string{"a", "b"})
	e.SetFocused("a")
	e.AddWindow("S", "c")
	if got := e.Windows("S"); !slices.Equal(got, []string{"a", "c", "b"}) {
		t.Fatalf("after_focused order = %v", got)
	}
}

func TestEngine_FocusRotateFloat(t *testing.T) {
	e, rec := newEngine(t, Options{Params: Params{MasterRatio: 0.5, MasterCount: 1}})
	e.Activate("S", "master-stack", area, []string{"a", "b", "c"})
	e.SetFocused("b")

	if err := e.FocusNext("S"); err != nil {
		t.Fatal(err)
	}
	if rec.focused[len(rec.focused)-1] != "c" {
		t.Fatalf("focused %v", rec.focused)
	}

	e.Rotate("S", true)
	if got := e.Windows("S"); !slices.Equal(got, []string{"c", "a", "b"}) {
		t.Fatalf("rotated order = %v", got)
	}

	floating, err := e.ToggleFloat("a")
	if err != nil || !floating {
		t.Fatalf("ToggleFloat = %v, %v", floating, err)
	}
	if _, tiled := e.Layout("S")["a"]; tiled {
		t.Fatal("floating window still tiled")
	}
	e.Rotate("S", false)
	if got := e.Windows("S"); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("rotation with a floating window = %v", got)
	}

	e.SetFocused("c")
	e.SwapWithMaster("S")
	if got := e.Windows("S"); got[0] != "c" {
		t.Fatalf("swap with master = %v", got)
	}

	if err := e.FocusNext("none"); err == nil {
		t.Fatal("FocusNext on inactive screen succeeded")
	}
}

func TestEngine_AdjustMaster(t *testing.T) {
	e, _ := newEngine(t, Options{Params: Params{MasterRatio: 0.85, MasterCount: 5}})
	e.AdjustMasterRatio(0.1)
	e.AdjustMasterCount(1)
	if o := e.Options(); o.MasterRatio != 0.9 || o.MasterCount != 5 {
		t.Fatalf("options = %+v", o)
	}
}
