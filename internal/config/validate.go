package config

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/plasmazones/plasmazones/internal/keyseq"
)

// AutotilePrefix marks layout references that name an autotile algorithm.
const AutotilePrefix = "autotile:"

// ValidationError reports one setting that was clamped or replaced.
type ValidationError struct {
	Path string
	Line int
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Line > 0 && e.Path != "" {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

var colorPattern = regexp.MustCompile(`^#([0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// ValidColor reports whether c is #RRGGBB or #AARRGGBB.
func ValidColor(c string) bool {
	return colorPattern.MatchString(c)
}

// CanonicalLayoutRef normalizes a layout reference: empty, an autotile
// sentinel, or a UUID in any accepted spelling (bare, braced, urn).
func CanonicalLayoutRef(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", true
	}
	if alg, ok := strings.CutPrefix(ref, AutotilePrefix); ok {
		return ref, alg != ""
	}
	id, err := uuid.Parse(ref)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

type validator struct {
	errs []*ValidationError
}

func (v *validator) report(path string, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Path: path, Err: fmt.Errorf(format, args...)})
}

func (v *validator) intRange(path string, p *int, lo, hi int) {
	switch {
	case *p < lo:
		v.report(path, "%d below minimum, clamped to %d", *p, lo)
		*p = lo
	case *p > hi:
		v.report(path, "%d above maximum, clamped to %d", *p, hi)
		*p = hi
	}
}

func (v *validator) floatRange(path string, p *float64, lo, hi float64) {
	switch {
	case math.IsNaN(*p):
		v.report(path, "not a number, clamped to %g", lo)
		*p = lo
	case *p < lo:
		v.report(path, "%g below minimum, clamped to %g", *p, lo)
		*p = lo
	case *p > hi:
		v.report(path, "%g above maximum, clamped to %g", *p, hi)
		*p = hi
	}
}

func (v *validator) color(path string, p *string, def string) {
	if !ValidColor(*p) {
		v.report(path, "malformed color %q, using %s", *p, def)
		*p = def
	}
}

func (v *validator) layoutRef(path string, p *string, def string) {
	canon, ok := CanonicalLayoutRef(*p)
	if !ok {
		v.report(path, "invalid layout id %q, using default", *p)
		*p = def
		return
	}
	*p = canon
}

func (v *validator) shortcut(path string, p *string, def string) {
	seq, err := keyseq.Parse(*p)
	if err != nil {
		v.report(path, "%v, using %q", err, def)
		*p = def
		return
	}
	*p = seq.String()
}

func (v *validator) names(p *[]string) {
	out := make([]string, 0, len(*p))
	for _, name := range *p {
		name = strings.TrimSpace(name)
		if name == "" || slices.Contains(out, name) {
			continue
		}
		out = append(out, name)
	}
	*p = out
}

func enum[T ~string](v *validator, path string, p *T, def T, allowed ...T) {
	if slices.Contains(allowed, *p) {
		return
	}
	v.report(path, "unknown value %q, using %q", string(*p), string(def))
	*p = def
}

var (
	modifiers = []Modifier{
		ModifierNone, ModifierAlways, ModifierShift, ModifierCtrl, ModifierAlt,
		ModifierMeta, ModifierCtrlAlt, ModifierCtrlSft, ModifierAltShift,
	}
	anchors = []string{
		"top_left", "top", "top_right",
		"left", "center", "right",
		"bottom_left", "bottom", "bottom_right",
	}
)

// normalize clamps every field of s into its valid range, substituting the
// matching value from def where clamping is impossible. It returns one
// error per adjusted field.
func normalize(s *Settings, def Settings) []*ValidationError {
	v := &validator{}

	enum(v, "general.log_level", &s.General.LogLevel, def.General.LogLevel, "trace", "debug", "info", "warn", "error")
	v.layoutRef("general.default_layout_id", &s.General.DefaultLayoutID, def.General.DefaultLayoutID)
	v.intRange("general.checkpoint_seconds", &s.General.CheckpointSeconds, 5, 3600)

	enum(v, "activation.drag_modifier", &s.Activation.DragModifier, def.Activation.DragModifier, modifiers...)
	enum(v, "activation.multi_zone_modifier", &s.Activation.MultiZoneModifier, def.Activation.MultiZoneModifier, modifiers...)
	enum(v, "activation.skip_snap_modifier", &s.Activation.SkipSnapModifier, def.Activation.SkipSnapModifier, modifiers...)

	v.names(&s.Display.DisabledMonitors)

	a, da := &s.Appearance, def.Appearance
	v.color("appearance.highlight_color", &a.HighlightColor, da.HighlightColor)
	v.color("appearance.inactive_color", &a.InactiveColor, da.InactiveColor)
	v.color("appearance.border_color", &a.BorderColor, da.BorderColor)
	v.color("appearance.label_font_color", &a.LabelFontColor, da.LabelFontColor)
	v.floatRange("appearance.active_opacity", &a.ActiveOpacity, 0, 1)
	v.floatRange("appearance.inactive_opacity", &a.InactiveOpacity, 0, 1)
	v.intRange("appearance.border_width", &a.BorderWidth, 0, 10)
	v.intRange("appearance.border_radius", &a.BorderRadius, 0, 50)

	v.intRange("zones.padding", &s.Zones.Padding, 0, 50)
	v.intRange("zones.outer_gap", &s.Zones.OuterGap, 0, 50)
	v.intRange("zones.adjacent_threshold", &s.Zones.AdjacentThreshold, 5, 500)
	v.intRange("zones.edge_threshold", &s.Zones.EdgeThreshold, 0, 500)

	enum(v, "behavior.sticky_window_handling", &s.Behavior.StickyWindowHandling, def.Behavior.StickyWindowHandling,
		StickyTreatAsNormal, StickyTreatAsOnCurrent, StickyIgnoreAll)

	v.names(&s.Exclusions.Applications)
	v.names(&s.Exclusions.WindowClasses)
	v.intRange("exclusions.minimum_window_width", &s.Exclusions.MinimumWindowWidth, 0, 10000)
	v.intRange("exclusions.minimum_window_height", &s.Exclusions.MinimumWindowHeight, 0, 10000)

	z, dz := &s.ZoneSelector, def.ZoneSelector
	v.intRange("zone_selector.trigger_distance", &z.TriggerDistance, 10, 200)
	enum(v, "zone_selector.position", &z.Position, dz.Position, anchors...)
	enum(v, "zone_selector.layout_mode", &z.LayoutMode, dz.LayoutMode, "grid", "horizontal", "vertical")
	v.intRange("zone_selector.preview_width", &z.PreviewWidth, 80, 400)
	v.intRange("zone_selector.preview_height", &z.PreviewHeight, 60, 300)
	v.intRange("zone_selector.grid_columns", &z.GridColumns, 1, 10)
	enum(v, "zone_selector.layout_sort", &z.LayoutSort, dz.LayoutSort, "registry", "name")

	v.intRange("shaders.frame_rate", &s.Shaders.FrameRate, 30, 144)

	g, dg := &s.GlobalShortcuts, def.GlobalShortcuts
	v.shortcut("global_shortcuts.open_editor", &g.OpenEditor, dg.OpenEditor)
	v.shortcut("global_shortcuts.previous_layout", &g.PreviousLayout, dg.PreviousLayout)
	v.shortcut("global_shortcuts.next_layout", &g.NextLayout, dg.NextLayout)
	quick := []*string{
		&g.QuickLayout1, &g.QuickLayout2, &g.QuickLayout3,
		&g.QuickLayout4, &g.QuickLayout5, &g.QuickLayout6,
		&g.QuickLayout7, &g.QuickLayout8, &g.QuickLayout9,
	}
	for i, p := range quick {
		v.shortcut(fmt.Sprintf("global_shortcuts.quick_layout_%d", i+1), p, dg.QuickLayout(i+1))
	}

	n, dn := &s.NavigationShortcuts, def.NavigationShortcuts
	for _, sc := range []struct {
		key string
		p   *string
		def string
	}{
		{"move_window_left", &n.MoveWindowLeft, dn.MoveWindowLeft},
		{"move_window_right", &n.MoveWindowRight, dn.MoveWindowRight},
		{"move_window_up", &n.MoveWindowUp, dn.MoveWindowUp},
		{"move_window_down", &n.MoveWindowDown, dn.MoveWindowDown},
		{"focus_zone_left", &n.FocusZoneLeft, dn.FocusZoneLeft},
		{"focus_zone_right", &n.FocusZoneRight, dn.FocusZoneRight},
		{"focus_zone_up", &n.FocusZoneUp, dn.FocusZoneUp},
		{"focus_zone_down", &n.FocusZoneDown, dn.FocusZoneDown},
		{"swap_window_left", &n.SwapWindowLeft, dn.SwapWindowLeft},
		{"swap_window_right", &n.SwapWindowRight, dn.SwapWindowRight},
		{"swap_window_up", &n.SwapWindowUp, dn.SwapWindowUp},
		{"swap_window_down", &n.SwapWindowDown, dn.SwapWindowDown},
		{"snap_to_zone_1", &n.SnapToZone1, dn.SnapToZone1},
		{"snap_to_zone_2", &n.SnapToZone2, dn.SnapToZone2},
		{"snap_to_zone_3", &n.SnapToZone3, dn.SnapToZone3},
		{"snap_to_zone_4", &n.SnapToZone4, dn.SnapToZone4},
		{"snap_to_zone_5", &n.SnapToZone5, dn.SnapToZone5},
		{"snap_to_zone_6", &n.SnapToZone6, dn.SnapToZone6},
		{"snap_to_zone_7", &n.SnapToZone7, dn.SnapToZone7},
		{"snap_to_zone_8", &n.SnapToZone8, dn.SnapToZone8},
		{"snap_to_zone_9", &n.SnapToZone9, dn.SnapToZone9},
		{"push_to_empty_zone", &n.PushToEmptyZone, dn.PushToEmptyZone},
		{"restore_window_size", &n.RestoreWindowSize, dn.RestoreWindowSize},
		{"toggle_window_float", &n.ToggleWindowFloat, dn.ToggleWindowFloat},
		{"rotate_windows_clockwise", &n.RotateWindowsClockwise, dn.RotateWindowsClockwise},
		{"rotate_windows_counterclockwise", &n.RotateWindowsCounterclock, dn.RotateWindowsCounterclock},
		{"cycle_window_forward", &n.CycleWindowForward, dn.CycleWindowForward},
		{"cycle_window_backward", &n.CycleWindowBackward, dn.CycleWindowBackward},
	} {
		v.shortcut("navigation_shortcuts."+sc.key, sc.p, sc.def)
	}

	t, dt := &s.Autotiling, def.Autotiling
	if strings.TrimSpace(t.DefaultAlgorithm) == "" {
		v.report("autotiling.default_algorithm", "empty, using %q", dt.DefaultAlgorithm)
		t.DefaultAlgorithm = dt.DefaultAlgorithm
	}
	v.floatRange("autotiling.master_ratio", &t.MasterRatio, 0.1, 0.9)
	v.intRange("autotiling.master_count", &t.MasterCount, 1, 5)
	v.intRange("autotiling.inner_gap", &t.InnerGap, 0, 50)
	v.intRange("autotiling.outer_gap", &t.OuterGap, 0, 50)
	enum(v, "autotiling.insert_position", &t.InsertPosition, dt.InsertPosition, "end", "after_focused", "as_master")

	as, das := &s.AutotileShortcuts, def.AutotileShortcuts
	v.shortcut("autotile_shortcuts.toggle_autotile", &as.ToggleAutotile, das.ToggleAutotile)
	v.shortcut("autotile_shortcuts.focus_master", &as.FocusMaster, das.FocusMaster)
	v.shortcut("autotile_shortcuts.swap_with_master", &as.SwapWithMaster, das.SwapWithMaster)
	v.shortcut("autotile_shortcuts.increase_master_ratio", &as.IncreaseMasterRatio, das.IncreaseMasterRatio)
	v.shortcut("autotile_shortcuts.decrease_master_ratio", &as.DecreaseMasterRatio, das.DecreaseMasterRatio)
	v.shortcut("autotile_shortcuts.increase_master_count", &as.IncreaseMasterCount, das.IncreaseMasterCount)
	v.shortcut("autotile_shortcuts.decrease_master_count", &as.DecreaseMasterCount, das.DecreaseMasterCount)
	v.shortcut("autotile_shortcuts.retile", &as.Retile, das.Retile)

	m, dm := &s.ModeTracking, def.ModeTracking
	enum(v, "mode_tracking.last_tiling_mode", &m.LastTilingMode, dm.LastTilingMode, TilingModeManual, TilingModeAutotile)
	v.layoutRef("mode_tracking.last_manual_layout_id", &m.LastManualLayoutID, dm.LastManualLayoutID)
	if strings.HasPrefix(m.LastManualLayoutID, AutotilePrefix) {
		v.report("mode_tracking.last_manual_layout_id", "autotile reference is not a manual layout, cleared")
		m.LastManualLayoutID = ""
	}
	if strings.TrimSpace(m.LastAutotileAlgorithm) == "" {
		m.LastAutotileAlgorithm = dm.LastAutotileAlgorithm
	}

	return v.errs
}

// Validate returns the adjustments normalize would make to s without
// modifying it.
func Validate(s Settings) []*ValidationError {
	c := s.Clone()
	return normalize(&c, DefaultSettings())
}
