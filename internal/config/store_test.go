package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/events"
)

func newTestStore(t *testing.T, content string) (*Store, *events.Recorder) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	bus := events.NewBus()
	rec := &events.Recorder{}
	bus.Subscribe(rec.Handle)
	return NewStore(path, bus, zerolog.Nop()), rec
}

func TestDefaultSettings_AreValid(t *testing.T) {
	if errs := Validate(DefaultSettings()); len(errs) != 0 {
		t.Fatalf("expected shipped defaults to validate, got %v", errs)
	}
}

func TestParse_EmptyUsesDefaults(t *testing.T) {
	for _, in := range []string{"", "# nothing\n", "~\n"} {
		res, err := Parse([]byte(in))
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if !reflect.DeepEqual(res.Settings, DefaultSettings()) {
			t.Fatalf("Parse(%q) did not return defaults", in)
		}
	}
}

func TestParse_InvalidValuesFallBack(t *testing.T) {
	data := strings.Join([]string{
		"zones:",
		"  padding: lots",
		"  adjacent_threshold: 9000",
		"  outer_gap: -3",
		"appearance:",
		"  highlight_color: \"not-a-color\"",
		"  active_opacity: 1.5",
		"general:",
		"  default_layout_id: \"nope\"",
		"behavior:",
		"  sticky_window_handling: sometimes",
		"global_shortcuts:",
		"  open_editor: \"Hyper+E\"",
		"",
	}, "\n")

	res, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	def := DefaultSettings()
	s := res.Settings

	if s.Zones.Padding != def.Zones.Padding {
		t.Errorf("padding = %d, want default %d", s.Zones.Padding, def.Zones.Padding)
	}
	if s.Zones.AdjacentThreshold != 500 {
		t.Errorf("adjacent_threshold = %d, want clamped 500", s.Zones.AdjacentThreshold)
	}
	if s.Zones.OuterGap != 0 {
		t.Errorf("outer_gap = %d, want clamped 0", s.Zones.OuterGap)
	}
	if s.Appearance.HighlightColor != def.Appearance.HighlightColor {
		t.Errorf("highlight_color = %q, want default", s.Appearance.HighlightColor)
	}
	if s.Appearance.ActiveOpacity != 1 {
		t.Errorf("active_opacity = %v, want 1", s.Appearance.ActiveOpacity)
	}
	if s.General.DefaultLayoutID != "" {
		t.Errorf("default_layout_id = %q, want empty", s.General.DefaultLayoutID)
	}
	if s.Behavior.StickyWindowHandling != StickyTreatAsNormal {
		t.Errorf("sticky handling = %q", s.Behavior.StickyWindowHandling)
	}
	if s.GlobalShortcuts.OpenEditor != def.GlobalShortcuts.OpenEditor {
		t.Errorf("open_editor = %q", s.GlobalShortcuts.OpenEditor)
	}
	if len(res.Warnings) < 8 {
		t.Fatalf("expected a warning per invalid value, got %d: %v", len(res.Warnings), res.Warnings)
	}

	var sawLine bool
	for _, w := range res.Warnings {
		if w.Path == "zones.adjacent_threshold" && w.Line == 3 {
			sawLine = true
		}
	}
	if !sawLine {
		t.Errorf("expected adjacent_threshold warning to carry line 3, got %v", res.Warnings)
	}
}

func TestParse_CanonicalizesBracedUUID(t *testing.T) {
	res, err := Parse([]byte("general:\n  default_layout_id: \"{6BA7B810-9DAD-11D1-80B4-00C04FD430C8}\"\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := res.Settings.General.DefaultLayoutID; got != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Fatalf("default_layout_id = %q", got)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("canonicalization should not warn, got %v", res.Warnings)
	}
}

func TestParse_SyntaxErrorFails(t *testing.T) {
	if _, err := Parse([]byte("zones: [unterminated\n")); err == nil {
		t.Fatal("expected syntax error")
	}
	if _, err := Parse([]byte("- just\n- a list\n")); err == nil {
		t.Fatal("expected error for non-mapping document")
	}
}

func TestStore_LoadCorruptedUsesDefaults(t *testing.T) {
	store, _ := newTestStore(t, "zones: {padding: [\n")
	store.Update(func(s *Settings) { s.Zones.Padding = 30 })
	store.Load()
	if got := store.Get().Zones.Padding; got != DefaultSettings().Zones.Padding {
		t.Fatalf("padding = %d, want default after corrupted load", got)
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t, "")
	store.Update(func(s *Settings) {
		s.Zones.Padding = 13
		s.Appearance.InactiveOpacity = 0.123456789
		s.Exclusions.WindowClasses = []string{"krunner", "plasmashell"}
		s.Behavior.StickyWindowHandling = StickyIgnoreAll
		s.General.DefaultLayoutID = "autotile:bsp"
		s.ModeTracking.LastTilingMode = TilingModeAutotile
	})
	want := store.Get()
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	other := NewStore(store.Path(), events.NewBus(), zerolog.Nop())
	other.Load()
	if got := other.Get(); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestStore_SavePreservesUnknownKeys(t *testing.T) {
	content := strings.Join([]string{
		"# user comment",
		"zones:",
		"  padding: 4",
		"  future_knob: 7",
		"experimental:",
		"  enabled: yes",
		"",
	}, "\n")
	store, _ := newTestStore(t, content)
	store.Load()
	store.Update(func(s *Settings) { s.Zones.Padding = 6 })
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(store.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	out := string(data)
	for _, want := range []string{"future_knob: 7", "experimental:", "padding: 6", "# user comment"} {
		if !strings.Contains(out, want) {
			t.Errorf("saved file missing %q:\n%s", want, out)
		}
	}
}

func TestStore_UpdateEmitsOnceAndOnlyOnChange(t *testing.T) {
	store, rec := newTestStore(t, "")

	if !store.Update(func(s *Settings) { s.Zones.Padding = 12; s.Zones.OuterGap = 3 }) {
		t.Fatal("expected change")
	}
	if n := rec.Count(events.SettingsChanged); n != 1 {
		t.Fatalf("settings_changed emitted %d times, want 1", n)
	}

	if store.Update(func(s *Settings) { s.Zones.Padding = 12 }) {
		t.Fatal("expected no change when value is identical")
	}
	if n := rec.Count(events.SettingsChanged); n != 1 {
		t.Fatalf("settings_changed emitted %d times, want 1", n)
	}
}

func TestStore_UpdateClamps(t *testing.T) {
	store, _ := newTestStore(t, "")
	store.Update(func(s *Settings) {
		s.Zones.AdjacentThreshold = 1
		s.Autotiling.MasterRatio = 2
	})
	got := store.Get()
	if got.Zones.AdjacentThreshold != 5 {
		t.Errorf("adjacent_threshold = %d, want 5", got.Zones.AdjacentThreshold)
	}
	if got.Autotiling.MasterRatio != 0.9 {
		t.Errorf("master_ratio = %v, want 0.9", got.Autotiling.MasterRatio)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	store, _ := newTestStore(t, "")
	store.Update(func(s *Settings) { s.Exclusions.Applications = []string{"a"} })
	got := store.Get()
	got.Exclusions.Applications[0] = "mutated"
	if store.Get().Exclusions.Applications[0] != "a" {
		t.Fatal("Get leaked internal slice")
	}
}

func TestStore_SaveUnwritablePathFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := NewStore(filepath.Join(blocker, "config.yaml"), events.NewBus(), zerolog.Nop())
	store.Update(func(s *Settings) { s.Zones.Padding = 21 })

	if err := store.Save(); err == nil {
		t.Fatal("expected save error")
	}
	if store.Get().Zones.Padding != 21 {
		t.Fatal("failed save must not change in-memory settings")
	}
}

func TestStore_WatchReloadsExternalEdits(t *testing.T) {
	store, rec := newTestStore(t, "zones:\n  padding: 4\n")
	store.Load()
	rec.Reset()

	posted := make(chan func(), 4)
	stop, err := store.Watch(func(fn func()) { posted <- fn })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stop()

	// Our own save must not trigger a reload.
	if err := store.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	select {
	case <-posted:
		t.Fatal("own write triggered a reload")
	case <-time.After(3 * reloadDelay):
	}

	if err := os.WriteFile(store.Path(), []byte("zones:\n  padding: 9\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	select {
	case fn := <-posted:
		fn()
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	if got := store.Get().Zones.Padding; got != 9 {
		t.Fatalf("padding = %d after reload, want 9", got)
	}
	if rec.Count(events.SettingsChanged) != 1 {
		t.Fatalf("expected one settings_changed after reload, got %d", rec.Count(events.SettingsChanged))
	}
}

func TestModifierHeld(t *testing.T) {
	if !ModifierAlways.Held(0) {
		t.Error("always must be held with no keys")
	}
	if ModifierNone.Held(0xff) {
		t.Error("none must never be held")
	}
	if !ModifierCtrlAlt.Held(ModifierCtrl.Mask() | ModifierAlt.Mask() | ModifierShift.Mask()) {
		t.Error("ctrl+alt should be satisfied by a superset")
	}
	if ModifierCtrlAlt.Held(ModifierCtrl.Mask()) {
		t.Error("ctrl+alt should not be satisfied by ctrl alone")
	}
}

func TestSettings_Shortcuts(t *testing.T) {
	s := DefaultSettings()
	got := s.Shortcuts()
	for action, want := range map[string]string{
		"open_editor":      "Meta+Shift+E",
		"quick_layout_1":   "Meta+Alt+1",
		"move_window_left": "Alt+Shift+Left",
		"toggle_autotile":  "Meta+Shift+T",
	} {
		if got[action] != want {
			t.Fatalf("Shortcuts()[%q] = %q, want %q", action, got[action], want)
		}
	}

	s.GlobalShortcuts.OpenEditor = ""
	if _, ok := s.Shortcuts()["open_editor"]; ok {
		t.Fatal("unbound action still listed")
	}
}
