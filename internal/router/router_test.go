package router

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/assign"
	"github.com/plasmazones/plasmazones/internal/autotile"
	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/tracker"
	"github.com/plasmazones/plasmazones/internal/unified"
)

var (
	ctx  = unified.Context{Screen: "S", Desktop: 1}
	area = geom.Rect{Width: 1200, Height: 800}
)

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

type env struct{}

func (env) CurrentDesktop() int     { return 1 }
func (env) CurrentActivity() string { return "" }
func (env) ScreenArea(s string) (geom.Rect, bool) {
	return area, s == "S"
}
func (env) ScreenAt(geom.Point) string { return "S" }

type fixture struct {
	bus    *events.Bus
	events *events.Recorder
	store  *config.Store
	reg    *layout.Registry
	tbl    *assign.Table
	ctl    *unified.Controller
	eng    *autotile.Engine
	trk    *tracker.Tracker
	cmd    *recorder
	grid   *layout.Layout
	cols   *layout.Layout
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{bus: events.NewBus(), events: &events.Recorder{}, cmd: &recorder{}}
	f.bus.Subscribe(f.events.Handle)
	f.store = config.NewStore(filepath.Join(t.TempDir(), "plasmazonesrc.yaml"), f.bus, zerolog.Nop())
	f.reg = layout.NewRegistry(layout.NewFactory(zerolog.Nop()), t.TempDir(), nil, f.bus, zerolog.Nop())
	f.grid, _ = f.reg.Create("Grid", "grid", layout.Params{})
	f.cols, _ = f.reg.Create("Columns", "columns", layout.Params{})
	f.tbl = assign.NewTable()
	res := assign.NewResolver(f.tbl, f.reg, f.store.DefaultLayoutID, zerolog.Nop())
	algs := autotile.NewRegistry(zerolog.Nop())
	f.ctl = unified.NewController(f.reg, algs, res, f.store, f.bus, zerolog.Nop())
	f.eng = autotile.NewEngine(algs, f.cmd, autotile.Options{Params: autotile.Params{MasterRatio: 0.5, MasterCount: 1}}, zerolog.Nop())
	f.trk = tracker.New(res, f.cmd, env{}, tracker.OptionsFrom(config.DefaultSettings()), f.bus, zerolog.Nop())
	return f
}

func (f *fixture) router() *Router {
	return New(Deps{
		Store:   f.store,
		Tracker: f.trk,
		Engine:  f.eng,
		Layouts: f.ctl,
		Table:   f.tbl,
		Bus:     f.bus,
		Context: func() unified.Context { return ctx },
	}, zerolog.Nop())
}

func TestModeFollowsApplication(t *testing.T) {
	f := newFixture(t)
	r := f.router()

	if _, err := f.ctl.ApplyByID(ctx, "autotile:bsp"); err != nil {
		t.Fatal(err)
	}
	if r.Mode() != config.TilingModeAutotile || r.LastAlgorithm() != "bsp" {
		t.Fatalf("mode = %s, algorithm = %s", r.Mode(), r.LastAlgorithm())
	}
	mt := f.store.Get().ModeTracking
	if mt.LastTilingMode != config.TilingModeAutotile || mt.LastAutotileAlgorithm != "bsp" {
		t.Fatalf("persisted = %+v", mt)
	}

	if _, err := f.ctl.ApplyByID(ctx, f.grid.ID.String()); err != nil {
		t.Fatal(err)
	}
	if r.Mode() != config.TilingModeManual || r.LastLayout() != f.grid.ID.String() {
		t.Fatalf("mode = %s, layout = %s", r.Mode(), r.LastLayout())
	}
	if n := f.events.Count(events.TilingModeChanged); n != 2 {
		t.Fatalf("mode change events = %d, want 2", n)
	}
}

func TestToggleMode(t *testing.T) {
	f := newFixture(t)
	r := f.router()

	if err := r.ToggleMode(); err != nil {
		t.Fatal(err)
	}
	if ref, _ := f.tbl.Get(assign.DesktopKey("S", 1)); ref != "autotile:master-stack" {
		t.Fatalf("table entry = %q", ref)
	}
	if err := r.ToggleMode(); err != nil {
		t.Fatal(err)
	}
	if ref, _ := f.tbl.Get(assign.DesktopKey("S", 1)); ref != f.grid.ID.String() {
		t.Fatalf("manual fallback entry = %q, want the first layout", ref)
	}
}

func TestRestore(t *testing.T) {
	f := newFixture(t)
	f.store.SetTilingMode(config.TilingModeAutotile, "", "columns")
	r := f.router()
	r.Restore(ctx)
	if r.Mode() != config.TilingModeAutotile {
		t.Fatalf("mode = %s", r.Mode())
	}
	if ref, _ := f.tbl.Get(assign.DesktopKey("S", 1)); ref != "autotile:columns" {
		t.Fatalf("restored entry = %q", ref)
	}

	f = newFixture(t)
	f.store.SetTilingMode(config.TilingModeManual, f.cols.ID.String(), "")
	r = f.router()
	r.Restore(ctx)
	if r.Mode() != config.TilingModeManual || f.ctl.ActiveID() != f.cols.ID.String() {
		t.Fatalf("mode = %s, active = %s", r.Mode(), f.ctl.ActiveID())
	}
	if f.tbl.Len() != 0 {
		t.Fatal("manual restore wrote assignments")
	}
}

func TestDispatch(t *testing.T) {
	f := newFixture(t)
	r := f.router()

	if err := r.Dispatch("make_coffee"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("unknown action = %v", err)
	}
	if err := r.Dispatch("snap_to_zone_10"); !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("snap_to_zone_10 = %v", err)
	}
	if err := r.Dispatch("focus_master"); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("focus_master in manual mode = %v", err)
	}
	if err := r.Dispatch("move_window_left"); !errors.Is(err, tracker.ErrNoFocusedWindow) {
		t.Fatalf("move without focus = %v", err)
	}

	if err := r.Dispatch("quick_layout_2"); err == nil {
		t.Fatal("empty quick slot applied")
	}
	if _, err := f.tbl.SetQuickSlot(2, f.cols.ID.String()); err != nil {
		t.Fatal(err)
	}
	if err := r.Dispatch("quick_layout_2"); err != nil {
		t.Fatal(err)
	}
	if ref, _ := f.tbl.Get(assign.DesktopKey("S", 1)); ref != f.cols.ID.String() {
		t.Fatalf("quick layout entry = %q", ref)
	}

	if err := r.Dispatch("next_layout"); err != nil {
		t.Fatal(err)
	}
	if ref, _ := f.tbl.Get(assign.DesktopKey("S", 1)); ref != "autotile:master-stack" {
		t.Fatalf("next layout entry = %q", ref)
	}
	if r.Mode() != config.TilingModeAutotile {
		t.Fatal("cycling onto an algorithm did not switch mode")
	}
}

func TestAutotileRules(t *testing.T) {
	f := newFixture(t)
	r := f.router()
	if _, err := f.ctl.ApplyByID(ctx, "autotile:master-stack"); err != nil {
		t.Fatal(err)
	}
	f.eng.Activate("S", "master-stack", area, []string{"a", "b", "c"})
	f.eng.SetFocused("a")

	if err := r.Dispatch("cycle_window_forward"); err != nil {
		t.Fatal(err)
	}
	if got := f.cmd.focused[len(f.cmd.focused)-1]; got != "b" {
		t.Fatalf("focused = %s, want b", got)
	}
	if err := r.Dispatch("rotate_windows_clockwise"); err != nil {
		t.Fatal(err)
	}
	if got := f.eng.Windows("S"); got[0] != "c" {
		t.Fatalf("order after rotate = %v", got)
	}

	f.trk.SetActive("a")
	if err := r.Dispatch("toggle_window_float"); err != nil {
		t.Fatal(err)
	}
	if _, tiled := f.eng.Layout("S")["a"]; tiled {
		t.Fatal("floating window still tiled")
	}

	if err := r.Dispatch("increase_master_count"); err != nil {
		t.Fatal(err)
	}
	if f.eng.Options().Params.MasterCount != 2 {
		t.Fatalf("master count = %d", f.eng.Options().Params.MasterCount)
	}
	if err := r.Dispatch("push_to_empty_zone"); !errors.Is(err, ErrWrongMode) {
		t.Fatalf("push in autotile mode = %v", err)
	}
}

func TestManualRules(t *testing.T) {
	f := newFixture(t)
	r := f.router()
	if err := r.Cycle(true); !errors.Is(err, tracker.ErrNoFocusedWindow) {
		t.Fatalf("Cycle = %v", err)
	}
	if err := r.Rotate(true); !errors.Is(err, tracker.ErrNoFocusedWindow) {
		t.Fatalf("Rotate = %v", err)
	}
	if err := r.ToggleFloat(); !errors.Is(err, tracker.ErrNoFocusedWindow) {
		t.Fatalf("ToggleFloat = %v", err)
	}
}
