package tracker

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/assign"
	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/keyseq"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/platform"
	"github.com/plasmazones/plasmazones/internal/zones"
)

const screenX = "EDID-X"

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

type fakeEnv struct {
	desktop int
	screens map[string]geom.Rect
}

func (e *fakeEnv) CurrentDesktop() int     { return e.desktop }
func (e *fakeEnv) CurrentActivity() string { return "" }

func (e *fakeEnv) ScreenArea(s string) (geom.Rect, bool) {
	r, ok := e.screens[s]
	return r, ok
}

func (e *fakeEnv) ScreenAt(p geom.Point) string {
	for id, r := range e.screens {
		if r.Contains(p) {
			return id
		}
	}
	return ""
}

type fixture struct {
	reg    *layout.Registry
	tbl    *assign.Table
	res    *assign.Resolver
	env    *fakeEnv
	cmd    *recorder
	bus    *events.Bus
	events *events.Recorder
	opts   Options
	grid   *layout.Layout
	cols   *layout.Layout
	tr     *Tracker
}

func testOptions() Options {
	return Options{
		Zones: zones.Options{AdjacentThreshold: 20, EdgeThreshold: 50, MultiZoneEnabled: true},
		Activation: config.Activation{
			DragModifier:         config.ModifierAlt,
			MultiZoneModifier:    config.ModifierCtrl,
			SkipSnapModifier:     config.ModifierShift,
			MiddleClickMultiZone: true,
		},
		Behavior: config.Behavior{
			RestoreOriginalSizeOnUnsnap:  true,
			RestoreWindowsToZonesOnLogin: true,
			StickyWindowHandling:         config.StickyTreatAsNormal,
			SnapAssistEnabled:            true,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		env:    &fakeEnv{desktop: 1, screens: map[string]geom.Rect{screenX: {Width: 1200, Height: 800}}},
		bus:    events.NewBus(),
		events: &events.Recorder{},
		opts:   testOptions(),
	}
	f.bus.Subscribe(f.events.Handle)
	f.reg = layout.NewRegistry(layout.NewFactory(zerolog.Nop()), t.TempDir(), nil, nil, zerolog.Nop())
	var err error
	if f.grid, err = f.reg.Create("Grid", "grid", layout.Params{}); err != nil {
		t.Fatal(err)
	}
	if f.cols, err = f.reg.Create("Cols", "columns", layout.Params{}); err != nil {
		t.Fatal(err)
	}
	f.tbl = assign.NewTable()
	f.res = assign.NewResolver(f.tbl, f.reg, func() string { return "" }, zerolog.Nop())
	f.restart()
	return f
}

// restart replaces the tracker as a new daemon process would.
func (f *fixture) restart() *Tracker {
	f.cmd = &recorder{}
	f.tr = New(f.res, f.cmd, f.env, f.opts, f.bus, zerolog.Nop())
	return f.tr
}

func (f *fixture) zone(n int) uuid.UUID { return f.grid.Zones[n-1].ID }

func konsole(handle string, desktop int) platform.Window {
	return platform.Window{
		ID:       "org.kde.konsole:konsole:" + handle,
		AppID:    "org.kde.konsole",
		Class:    "konsole",
		Screen:   screenX,
		Desktop:  desktop,
		Geometry: geom.Rect{X: 100, Y: 100, Width: 300, Height: 200},
	}
}

func dolphin(handle string) platform.Window {
	w := konsole(handle, 1)
	w.ID, w.AppID, w.Class = "org.kde.dolphin:dolphin:"+handle, "org.kde.dolphin", "dolphin"
	return w
}

func open(t *testing.T, f *fixture, w platform.Window) string {
	t.Helper()
	f.tr.WindowOpened(w)
	if _, ok := f.tr.Record(w.ID); !ok {
		t.Fatalf("window %s not tracked", w.ID)
	}
	return w.ID
}

func mustSnap(t *testing.T, f *fixture, id string, zs ...uuid.UUID) {
	t.Helper()
	if err := f.tr.Snap(id, zs...); err != nil {
		t.Fatalf("Snap(%s): %v", id, err)
	}
}

func zoneOf(t *testing.T, f *fixture, id string) uuid.UUID {
	t.Helper()
	r, ok := f.tr.Record(id)
	if !ok {
		t.Fatalf("window %s not tracked", id)
	}
	return r.Zone()
}

func TestStableID(t *testing.T) {
	tests := []struct{ in, want string }{
		{"org.kde.konsole:konsole:12345", "org.kde.konsole:konsole"},
		{"firefox:firefox:0x1a", "firefox:firefox:0x1a"},
		{"plain", "plain"},
		{"app:class:", "app:class:"},
		{"app:class:12a", "app:class:12a"},
		{"dolphin:dolphin:7", "dolphin:dolphin"},
	}
	for _, tt := range tests {
		if got := StableID(tt.in); got != tt.want {
			t.Fatalf("StableID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// closeAndReload snaps a konsole window to zone 2 on desktop 1, closes it,
// saves the session and starts a fresh tracker from the saved file.
func closeAndReload(t *testing.T, f *fixture) {
	t.Helper()
	id := open(t, f, konsole("100", 1))
	mustSnap(t, f, id, f.zone(2))
	f.tr.WindowClosed(id)

	path := filepath.Join(t.TempDir(), "session.json")
	if err := f.tr.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := f.restart().Load(path); err != nil {
		t.Fatal(err)
	}
}

func TestWindowClosed_SavesPending(t *testing.T) {
	f := newFixture(t)
	id := open(t, f, konsole("100", 1))
	mustSnap(t, f, id, f.zone(2))
	if f.cmd.moves[id] != (geom.Rect{X: 600, Width: 600, Height: 400}) {
		t.Fatalf("snap geometry = %v", f.cmd.moves[id])
	}
	f.tr.WindowClosed(id)

	p, ok := f.tr.Pending()["org.kde.konsole:konsole"]
	if !ok {
		t.Fatalf("pending = %v", f.tr.Pending())
	}
	want := Pending{ZoneID: f.zone(2).String(), Screen: screenX, Desktop: 1, LayoutID: f.grid.ID.String()}
	if p.ZoneID != want.ZoneID || p.Screen != want.Screen || p.Desktop != want.Desktop || p.LayoutID != want.LayoutID {
		t.Fatalf("pending = %+v, want %+v", p, want)
	}
	if !f.tr.Dirty() {
		t.Fatal("tracker not dirty after close")
	}
}

func TestRestore_SameContext(t *testing.T) {
	f := newFixture(t)
	closeAndReload(t, f)

	id := open(t, f, konsole("200", 1))
	if got := f.cmd.moves[id]; got != (geom.Rect{X: 600, Width: 600, Height: 400}) {
		t.Fatalf("restored geometry = %v", got)
	}
	if zoneOf(t, f, id) != f.zone(2) {
		t.Fatal("restored window not in zone 2")
	}
	if len(f.tr.Pending()) != 0 {
		t.Fatalf("pending not consumed: %v", f.tr.Pending())
	}
}

func TestRestore_LayoutChanged(t *testing.T) {
	f := newFixture(t)
	closeAndReload(t, f)
	if _, err := f.tbl.Set(assign.DesktopKey(screenX, 1), f.cols.ID.String()); err != nil {
		t.Fatal(err)
	}

	id := open(t, f, konsole("200", 1))
	if _, moved := f.cmd.moves[id]; moved {
		t.Fatal("window restored into a different layout")
	}
	if zoneOf(t, f, id) != uuid.Nil {
		t.Fatal("window assigned a zone")
	}
	if len(f.tr.Pending()) != 1 {
		t.Fatal("pending entry consumed by failed restore")
	}
}

func TestRestore_DesktopMismatch(t *testing.T) {
	f := newFixture(t)
	closeAndReload(t, f)
	f.env.desktop = 2

	id := open(t, f, konsole("200", 2))
	if _, moved := f.cmd.moves[id]; moved {
		t.Fatal("window restored on another desktop")
	}
	if len(f.tr.Pending()) != 1 {
		t.Fatal("pending entry consumed")
	}
}

func TestRestore_StickyIgnoresDesktop(t *testing.T) {
	f := newFixture(t)
	closeAndReload(t, f)
	f.env.desktop = 2

	w := konsole("200", 0)
	w.Sticky = true
	id := open(t, f, w)
	if zoneOf(t, f, id) != f.zone(2) {
		t.Fatal("sticky window not restored")
	}
}

func TestRestore_DisabledLeavesWindow(t *testing.T) {
	f := newFixture(t)
	f.opts.Behavior.RestoreWindowsToZonesOnLogin = false
	closeAndReload(t, f)

	id := open(t, f, konsole("200", 1))
	if _, moved := f.cmd.moves[id]; moved {
		t.Fatal("window restored with restore disabled")
	}
}

func TestSnapshot_CollidingStableIDs(t *testing.T) {
	f := newFixture(t)
	for i, h := range []string{"1", "2", "3"} {
		id := open(t, f, konsole(h, 1))
		mustSnap(t, f, id, f.zone(i+1))
	}

	s := f.tr.Snapshot()
	if len(s.Pending) != 1 {
		t.Fatalf("pending = %v, want one entry", s.Pending)
	}
	if got := s.Pending["org.kde.konsole:konsole"].ZoneID; got != f.zone(3).String() {
		t.Fatalf("pending zone = %s, want the last snapped zone", got)
	}

	path := filepath.Join(t.TempDir(), "session.json")
	if err := f.tr.Save(path); err != nil {
		t.Fatal(err)
	}
	if err := f.restart().Load(path); err != nil {
		t.Fatal(err)
	}
	first := open(t, f, konsole("4", 1))
	second := open(t, f, konsole("5", 1))
	if zoneOf(t, f, first) != f.zone(3) {
		t.Fatal("first window not restored")
	}
	if zoneOf(t, f, second) != uuid.Nil {
		t.Fatal("second window restored from a consumed entry")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	f := newFixture(t)
	if err := f.tr.Load(filepath.Join(t.TempDir(), "none.json")); err != nil {
		t.Fatalf("Load(missing) = %v", err)
	}
	if len(f.tr.Pending()) != 0 {
		t.Fatal("pending not empty")
	}
}

func TestWindowReady_Defers(t *testing.T) {
	f := newFixture(t)
	closeAndReload(t, f)

	w := konsole("300", 1)
	w.Class = ""
	f.tr.WindowOpened(w)
	if _, ok := f.tr.Record(w.ID); ok {
		t.Fatal("window tracked before it was ready")
	}

	w.Class = "konsole"
	f.tr.WindowReady(w)
	if zoneOf(t, f, w.ID) != f.zone(2) {
		t.Fatal("ready window not restored")
	}
}

func TestExclusions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options, *platform.Window)
	}{
		{"application", func(o *Options, w *platform.Window) { o.Exclusions.Applications = []string{"ORG.KDE.KONSOLE"} }},
		{"class", func(o *Options, w *platform.Window) { o.Exclusions.WindowClasses = []string{"konsole"} }},
		{"transient", func(o *Options, w *platform.Window) {
			o.Exclusions.ExcludeTransientWindows = true
			w.Transient = true
		}},
		{"too small", func(o *Options, w *platform.Window) { o.Exclusions.MinimumWindowWidth = 400 }},
		{"sticky", func(o *Options, w *platform.Window) {
			o.Behavior.StickyWindowHandling = config.StickyIgnoreAll
			w.Sticky = true
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := konsole("1", 1)
			tt.mutate(&f.opts, &w)
			f.tr.SetOptions(f.opts)
			f.tr.WindowOpened(w)
			if _, ok := f.tr.Record(w.ID); ok {
				t.Fatal("excluded window tracked")
			}
		})
	}
}

func TestStickyTreatAsOnCurrent(t *testing.T) {
	f := newFixture(t)
	f.opts.Behavior.StickyWindowHandling = config.StickyTreatAsOnCurrent
	f.tr.SetOptions(f.opts)
	f.env.desktop = 3

	w := konsole("1", 0)
	w.Sticky = true
	id := open(t, f, w)
	r, _ := f.tr.Record(id)
	if r.Sticky || r.Desktop != 3 {
		t.Fatalf("record sticky=%v desktop=%d, want non-sticky on 3", r.Sticky, r.Desktop)
	}
}

func TestUnsnap_RestoresOriginalGeometry(t *testing.T) {
	f := newFixture(t)
	id := open(t, f, konsole("1", 1))
	mustSnap(t, f, id, f.zone(1))
	mustSnap(t, f, id, f.zone(4))
	if err := f.tr.WindowUnsnapped(id); err != nil {
		t.Fatal(err)
	}
	if got := f.cmd.moves[id]; got != (geom.Rect{X: 100, Y: 100, Width: 300, Height: 200}) {
		t.Fatalf("unsnapped geometry = %v", got)
	}
	if _, ok := f.tr.LastUsedZone(); ok {
		t.Fatal("last used zone kept after unsnap")
	}
}

func TestMoveNewWindowsToLastZone(t *testing.T) {
	f := newFixture(t)
	f.opts.Behavior.MoveNewWindowsToLastZone = true
	f.tr.SetOptions(f.opts)

	a := open(t, f, konsole("1", 1))
	mustSnap(t, f, a, f.zone(4))

	b := open(t, f, dolphin("2"))
	if zoneOf(t, f, b) != f.zone(4) {
		t.Fatal("new window not moved to last used zone")
	}
}

func TestEmptyZoneAvailable(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))
	b := open(t, f, konsole("2", 1))
	mustSnap(t, f, a, f.zone(1))
	mustSnap(t, f, b, f.zone(1))

	f.tr.WindowClosed(a)
	if n := f.events.Count(events.EmptyZoneAvailable); n != 0 {
		t.Fatalf("empty zone events = %d while zone still occupied", n)
	}
	f.tr.WindowClosed(b)
	if n := f.events.Count(events.EmptyZoneAvailable); n != 1 {
		t.Fatalf("empty zone events = %d, want 1", n)
	}

	c := open(t, f, dolphin("3"))
	if got := f.tr.SnapAssistCandidates(screenX); len(got) != 1 || got[0] != c {
		t.Fatalf("candidates = %v", got)
	}
	if err := f.tr.SelectSnapAssist(c, f.zone(1)); err != nil {
		t.Fatal(err)
	}
	if got := f.tr.WindowsInZone(f.zone(1)); len(got) != 1 || got[0] != c {
		t.Fatalf("zone 1 = %v", got)
	}
}

func TestNavigation(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))
	b := open(t, f, konsole("2", 1))
	c := open(t, f, konsole("3", 1))
	mustSnap(t, f, a, f.zone(1))
	mustSnap(t, f, b, f.zone(2))
	mustSnap(t, f, c, f.zone(3))

	if err := f.tr.MoveInDirection(geom.Left); err != ErrNoFocusedWindow {
		t.Fatalf("MoveInDirection without focus = %v", err)
	}
	f.tr.SetActive(a)

	if err := f.tr.FocusInDirection(geom.Down); err != nil {
		t.Fatal(err)
	}
	if f.tr.Active() != c {
		t.Fatalf("focus down activated %s", f.tr.Active())
	}

	f.tr.SetActive(a)
	if err := f.tr.SwapInDirection(geom.Right); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != f.zone(2) || zoneOf(t, f, b) != f.zone(1) {
		t.Fatal("swap right did not exchange zones")
	}

	if err := f.tr.MoveInDirection(geom.Right); err != ErrNoAdjacentZone {
		t.Fatalf("move past the edge = %v", err)
	}
	if err := f.tr.MoveInDirection(geom.Down); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != f.zone(4) {
		t.Fatal("move down did not reach zone 4")
	}

	if err := f.tr.PushToEmptyZone(); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != f.zone(2) {
		t.Fatal("push did not pick the lowest empty zone")
	}

	if err := f.tr.SnapToZoneNumber(4); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != f.zone(4) {
		t.Fatal("snap to zone 4 failed")
	}
	if err := f.tr.SnapToZoneNumber(9); err == nil {
		t.Fatal("snap to missing zone succeeded")
	}
}

func TestRotate(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))
	b := open(t, f, konsole("2", 1))
	mustSnap(t, f, a, f.zone(1))
	mustSnap(t, f, b, f.zone(4))
	f.tr.SetActive(a)

	if err := f.tr.Rotate(true); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != f.zone(2) || zoneOf(t, f, b) != f.zone(1) {
		t.Fatal("clockwise rotation did not advance with wraparound")
	}
	if err := f.tr.Rotate(false); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != f.zone(1) || zoneOf(t, f, b) != f.zone(4) {
		t.Fatal("counter-clockwise rotation did not undo")
	}
}

func TestCycleAndToggleFloat(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))
	b := open(t, f, konsole("2", 1))
	mustSnap(t, f, a, f.zone(1))
	mustSnap(t, f, b, f.zone(1))
	f.tr.SetActive(a)

	if err := f.tr.Cycle(true); err != nil {
		t.Fatal(err)
	}
	if f.tr.Active() != b {
		t.Fatalf("cycle activated %s", f.tr.Active())
	}

	if err := f.tr.ToggleFloat(); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, b) != uuid.Nil {
		t.Fatal("toggle float did not unsnap")
	}
	if err := f.tr.ToggleFloat(); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, b) != f.zone(1) {
		t.Fatal("toggle float did not return to the previous zone")
	}
}

func TestDrag(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))

	in := DragInput{Cursor: geom.Point{X: 900, Y: 200}, Modifiers: keyseq.Alt}
	if err := f.tr.DragStart(a, in); err != nil {
		t.Fatal(err)
	}
	if res := f.tr.DragMove(in); !res.Found() || res.Zones[0].ID != f.zone(2) {
		t.Fatalf("hover = %+v", res)
	}
	if err := f.tr.DragEnd(in); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != f.zone(2) {
		t.Fatal("drag end did not snap")
	}

	// Without the drag modifier the window is dragged out of its zone.
	plain := DragInput{Cursor: geom.Point{X: 300, Y: 600}}
	_ = f.tr.DragStart(a, plain)
	if err := f.tr.DragEnd(plain); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != uuid.Nil {
		t.Fatal("window kept its zone after a plain drag")
	}

	span := DragInput{Cursor: geom.Point{X: 600, Y: 400}, Modifiers: keyseq.Ctrl}
	_ = f.tr.DragStart(a, span)
	if err := f.tr.DragEnd(span); err != nil {
		t.Fatal(err)
	}
	r, _ := f.tr.Record(a)
	if len(r.Zones) != 4 || f.cmd.moves[a] != (geom.Rect{Width: 1200, Height: 800}) {
		t.Fatalf("span = %d zones at %v", len(r.Zones), f.cmd.moves[a])
	}
}

func TestDrag_SkipAndCancel(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))

	skip := DragInput{Cursor: geom.Point{X: 900, Y: 200}, Modifiers: keyseq.Alt | keyseq.Shift}
	_ = f.tr.DragStart(a, skip)
	if res := f.tr.DragMove(skip); res.Found() {
		t.Fatal("skip-snap modifier still selected a zone")
	}
	f.tr.DragCancel()
	if _, _, ok := f.tr.Hover(); ok {
		t.Fatal("hover kept after cancel")
	}
	if err := f.tr.DragEnd(skip); err != nil {
		t.Fatal(err)
	}
	if zoneOf(t, f, a) != uuid.Nil {
		t.Fatal("cancelled drag snapped")
	}
}

func TestScreenChanged_Resnaps(t *testing.T) {
	f := newFixture(t)
	f.opts.Behavior.KeepWindowsInZonesOnResolutionChange = true
	f.tr.SetOptions(f.opts)
	a := open(t, f, konsole("1", 1))
	mustSnap(t, f, a, f.zone(2))

	f.env.screens[screenX] = geom.Rect{Width: 2400, Height: 1600}
	f.tr.ScreenChanged(screenX)
	if got := f.cmd.moves[a]; got != (geom.Rect{X: 1200, Width: 1200, Height: 800}) {
		t.Fatalf("resnapped geometry = %v", got)
	}
}

func TestLayoutChanged_MapsByNumber(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))
	b := open(t, f, konsole("2", 1))
	mustSnap(t, f, a, f.zone(3))
	mustSnap(t, f, b, f.zone(2))

	numbers := map[uuid.UUID]int{}
	for _, z := range f.grid.Zones {
		numbers[z.ID] = z.Number
	}
	if _, err := f.tbl.Set(assign.DesktopKey(screenX, 1), f.cols.ID.String()); err != nil {
		t.Fatal(err)
	}
	f.tr.LayoutChanged(screenX, numbers)

	if zoneOf(t, f, a) != uuid.Nil {
		t.Fatal("window kept a zone the new layout lacks")
	}
	if zoneOf(t, f, b) != f.cols.Zones[1].ID {
		t.Fatal("window not moved to zone 2 of the new layout")
	}
	if got := f.cmd.moves[b]; got != (geom.Rect{X: 600, Width: 600, Height: 800}) {
		t.Fatalf("moved geometry = %v", got)
	}
}

func TestForget(t *testing.T) {
	f := newFixture(t)
	a := open(t, f, konsole("1", 1))
	b := open(t, f, konsole("2", 1))
	mustSnap(t, f, b, f.zone(1))

	if n := f.tr.Forget(map[string]bool{a: true}); n != 1 {
		t.Fatalf("Forget = %d, want 1", n)
	}
	if _, ok := f.tr.Record(b); ok {
		t.Fatal("vanished window still tracked")
	}
	if len(f.tr.Pending()) != 1 {
		t.Fatal("vanished snapped window left no pending entry")
	}
}
