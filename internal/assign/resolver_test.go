package assign

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/layout"
)

type fixture struct {
	reg      *layout.Registry
	tbl      *Table
	res      *Resolver
	def      string
	grid     *layout.Layout
	cols     *layout.Layout
	rows     *layout.Layout
	staleHit int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{}
	f.reg = layout.NewRegistry(layout.NewFactory(zerolog.Nop()), t.TempDir(), nil, nil, zerolog.Nop())
	var err error
	if f.grid, err = f.reg.Create("Grid", "grid", layout.Params{}); err != nil {
		t.Fatal(err)
	}
	f.cols, _ = f.reg.Create("Cols", "columns", layout.Params{})
	f.rows, _ = f.reg.Create("Rows", "rows", layout.Params{})
	f.tbl = NewTable()
	f.res = NewResolver(f.tbl, f.reg, func() string { return f.def }, zerolog.Nop())
	f.res.OnStale(func() { f.staleHit++ })
	return f
}

func TestResolve_Order(t *testing.T) {
	f := newFixture(t)

	// Implicit default: first created when default orders tie.
	if got := f.res.Lookup("S", 1, ""); got.Layout.ID != f.grid.ID || got.Source != SourceImplicit {
		t.Fatalf("implicit = %s via %s", got.Layout.Name, got.Source)
	}

	f.def = f.rows.ID.String()
	if got := f.res.Lookup("S", 1, ""); got.Layout.ID != f.rows.ID || got.Source != SourceDefault {
		t.Fatalf("default = %s via %s", got.Layout.Name, got.Source)
	}

	mustSet(t, f.tbl, DesktopKey("S", 0), f.cols.ID.String())
	if got := f.res.Lookup("S", 1, ""); got.Layout.ID != f.cols.ID || got.Source != SourceAllDesktops {
		t.Fatalf("all desktops = %s via %s", got.Layout.Name, got.Source)
	}

	mustSet(t, f.tbl, DesktopKey("S", 1), f.grid.ID.String())
	if got := f.res.Lookup("S", 1, ""); got.Layout.ID != f.grid.ID || got.Source != SourceDesktop {
		t.Fatalf("desktop = %s via %s", got.Layout.Name, got.Source)
	}
	if got := f.res.Resolve("S", 2, ""); got.ID != f.cols.ID {
		t.Fatalf("other desktop = %s, want Cols", got.Name)
	}

	mustSet(t, f.tbl, ActivityKey("S", "act"), f.rows.ID.String())
	if got := f.res.Lookup("S", 1, "act"); got.Layout.ID != f.rows.ID || got.Source != SourceActivity {
		t.Fatalf("activity = %s via %s", got.Layout.Name, got.Source)
	}
	if got := f.res.Resolve("S", 1, "other"); got.ID != f.grid.ID {
		t.Fatalf("unknown activity = %s, want Grid", got.Name)
	}

	// Other screens are unaffected.
	if got := f.res.Resolve("T", 1, "act"); got.ID != f.rows.ID {
		t.Fatalf("other screen = %s, want configured default Rows", got.Name)
	}
}

func TestResolve_DesktopZeroSkipsDesktopStep(t *testing.T) {
	f := newFixture(t)
	mustSet(t, f.tbl, DesktopKey("S", 0), f.cols.ID.String())
	if got := f.res.Lookup("S", 0, ""); got.Source != SourceAllDesktops {
		t.Fatalf("source = %s, want all-desktops", got.Source)
	}
}

func TestResolve_StaleAssignmentFallsThroughAndLogsOnce(t *testing.T) {
	f := newFixture(t)
	mustSet(t, f.tbl, DesktopKey("S", 1), f.rows.ID.String())
	mustSet(t, f.tbl, DesktopKey("S", 0), f.cols.ID.String())
	if err := f.reg.Delete(f.rows.ID); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if got := f.res.Resolve("S", 1, ""); got.ID != f.cols.ID {
			t.Fatalf("Resolve = %s, want Cols", got.Name)
		}
	}
	if f.staleHit != 1 {
		t.Fatalf("stale callback ran %d times, want 1", f.staleHit)
	}
	if !f.tbl.Has(DesktopKey("S", 1)) {
		t.Fatal("resolver must not clean up the table itself")
	}

	f.def = "6ba7b810-9dad-11d1-80b4-00c04fd430c8"
	f.tbl.ClearScreen("S")
	if got := f.res.Lookup("S", 1, ""); got.Source != SourceImplicit {
		t.Fatalf("missing default should fall to implicit, got %s", got.Source)
	}
	if f.staleHit != 2 {
		t.Fatalf("stale callback ran %d times, want 2", f.staleHit)
	}
}

func TestResolve_AutotileAssignment(t *testing.T) {
	f := newFixture(t)
	f.def = f.cols.ID.String()
	mustSet(t, f.tbl, DesktopKey("S", 1), "autotile:bsp")

	got := f.res.Lookup("S", 1, "")
	if got.Algorithm != "bsp" {
		t.Fatalf("Algorithm = %q, want bsp", got.Algorithm)
	}
	if got.Layout == nil || got.Layout.ID != f.cols.ID {
		t.Fatalf("zone layout = %v, want Cols", got.Layout)
	}
}

func TestResolve_EmptyRegistry(t *testing.T) {
	reg := layout.NewRegistry(layout.NewFactory(zerolog.Nop()), "", nil, nil, zerolog.Nop())
	res := NewResolver(NewTable(), reg, nil, zerolog.Nop())
	if got := res.Resolve("S", 1, ""); got != nil {
		t.Fatalf("Resolve on empty registry = %v, want nil", got)
	}
}

func TestResolve_Deterministic(t *testing.T) {
	f := newFixture(t)
	mustSet(t, f.tbl, DesktopKey("S", 2), f.rows.ID.String())
	first := f.res.Resolve("S", 2, "x")
	for i := 0; i < 20; i++ {
		if got := f.res.Resolve("S", 2, "x"); got.ID != first.ID {
			t.Fatalf("iteration %d resolved %s, want %s", i, got.Name, first.Name)
		}
	}
}
