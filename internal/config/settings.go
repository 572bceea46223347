package config

import "github.com/plasmazones/plasmazones/internal/keyseq"

// Modifier selects which held keys activate a drag behavior.
type Modifier string

const (
	ModifierNone     Modifier = "none"
	ModifierAlways   Modifier = "always"
	ModifierShift    Modifier = "shift"
	ModifierCtrl     Modifier = "ctrl"
	ModifierAlt      Modifier = "alt"
	ModifierMeta     Modifier = "meta"
	ModifierCtrlAlt  Modifier = "ctrl+alt"
	ModifierCtrlSft  Modifier = "ctrl+shift"
	ModifierAltShift Modifier = "alt+shift"
)

// Mask returns the keyseq modifier bits this setting requires.
func (m Modifier) Mask() keyseq.Modifier {
	switch m {
	case ModifierShift:
		return keyseq.Shift
	case ModifierCtrl:
		return keyseq.Ctrl
	case ModifierAlt:
		return keyseq.Alt
	case ModifierMeta:
		return keyseq.Meta
	case ModifierCtrlAlt:
		return keyseq.Ctrl | keyseq.Alt
	case ModifierCtrlSft:
		return keyseq.Ctrl | keyseq.Shift
	case ModifierAltShift:
		return keyseq.Alt | keyseq.Shift
	}
	return 0
}

// Held reports whether the modifier is satisfied by the held mask.
func (m Modifier) Held(held keyseq.Modifier) bool {
	switch m {
	case ModifierNone:
		return false
	case ModifierAlways:
		return true
	}
	want := m.Mask()
	return want != 0 && held&want == want
}

// StickyHandling controls how windows shown on every desktop are treated.
type StickyHandling string

const (
	StickyTreatAsNormal    StickyHandling = "treat_as_normal"
	StickyTreatAsOnCurrent StickyHandling = "treat_as_on_current"
	StickyIgnoreAll        StickyHandling = "ignore_all"
)

// TilingMode is the persisted router mode.
type TilingMode string

const (
	TilingModeManual   TilingMode = "manual"
	TilingModeAutotile TilingMode = "autotile"
)

// Settings is the complete typed configuration. Every section maps to a
// top-level key of config.yaml.
type Settings struct {
	General             General             `yaml:"general"`
	Activation          Activation          `yaml:"activation"`
	Display             Display             `yaml:"display"`
	Appearance          Appearance          `yaml:"appearance"`
	Zones               Zones               `yaml:"zones"`
	Behavior            Behavior            `yaml:"behavior"`
	Exclusions          Exclusions          `yaml:"exclusions"`
	ZoneSelector        ZoneSelector        `yaml:"zone_selector"`
	Shaders             Shaders             `yaml:"shaders"`
	GlobalShortcuts     GlobalShortcuts     `yaml:"global_shortcuts"`
	NavigationShortcuts NavigationShortcuts `yaml:"navigation_shortcuts"`
	Autotiling          Autotiling          `yaml:"autotiling"`
	AutotileShortcuts   AutotileShortcuts   `yaml:"autotile_shortcuts"`
	ModeTracking        ModeTracking        `yaml:"mode_tracking"`
	Updates             Updates             `yaml:"updates"`
}

type General struct {
	LogLevel string `yaml:"log_level"`
	// DefaultLayoutID is a layout UUID, an "autotile:<id>" sentinel, or empty.
	DefaultLayoutID string `yaml:"default_layout_id"`
	// CheckpointSeconds is the session checkpoint period.
	CheckpointSeconds int `yaml:"checkpoint_seconds"`
}

type Activation struct {
	DragModifier         Modifier `yaml:"drag_modifier"`
	MultiZoneModifier    Modifier `yaml:"multi_zone_modifier"`
	SkipSnapModifier     Modifier `yaml:"skip_snap_modifier"`
	MiddleClickMultiZone bool     `yaml:"middle_click_multi_zone"`
}

type Display struct {
	ShowOnAllMonitors   bool     `yaml:"show_on_all_monitors"`
	DisabledMonitors    []string `yaml:"disabled_monitors"`
	ShowZoneNumbers     bool     `yaml:"show_zone_numbers"`
	FlashZonesOnSwitch  bool     `yaml:"flash_zones_on_switch"`
	ShowOSDOnLayoutSwap bool     `yaml:"show_osd_on_layout_switch"`
}

type Appearance struct {
	UseSystemColors bool    `yaml:"use_system_colors"`
	HighlightColor  string  `yaml:"highlight_color"`
	InactiveColor   string  `yaml:"inactive_color"`
	BorderColor     string  `yaml:"border_color"`
	LabelFontColor  string  `yaml:"label_font_color"`
	ActiveOpacity   float64 `yaml:"active_opacity"`
	InactiveOpacity float64 `yaml:"inactive_opacity"`
	BorderWidth     int     `yaml:"border_width"`
	BorderRadius    int     `yaml:"border_radius"`
	EnableBlur      bool    `yaml:"enable_blur"`
}

type Zones struct {
	Padding           int  `yaml:"padding"`
	OuterGap          int  `yaml:"outer_gap"`
	AdjacentThreshold int  `yaml:"adjacent_threshold"`
	EdgeThreshold     int  `yaml:"edge_threshold"`
	MultiZoneEnabled  bool `yaml:"multi_zone_enabled"`
}

type Behavior struct {
	KeepWindowsInZonesOnResolutionChange bool           `yaml:"keep_windows_in_zones_on_resolution_change"`
	MoveNewWindowsToLastZone             bool           `yaml:"move_new_windows_to_last_zone"`
	RestoreOriginalSizeOnUnsnap          bool           `yaml:"restore_original_size_on_unsnap"`
	RestoreWindowsToZonesOnLogin         bool           `yaml:"restore_windows_to_zones_on_login"`
	StickyWindowHandling                 StickyHandling `yaml:"sticky_window_handling"`
	SnapAssistEnabled                    bool           `yaml:"snap_assist_enabled"`
}

type Exclusions struct {
	Applications            []string `yaml:"applications"`
	WindowClasses           []string `yaml:"window_classes"`
	ExcludeTransientWindows bool     `yaml:"exclude_transient_windows"`
	MinimumWindowWidth      int      `yaml:"minimum_window_width"`
	MinimumWindowHeight     int      `yaml:"minimum_window_height"`
}

type ZoneSelector struct {
	Enabled         bool   `yaml:"enabled"`
	TriggerDistance int    `yaml:"trigger_distance"`
	Position        string `yaml:"position"`
	LayoutMode      string `yaml:"layout_mode"`
	PreviewWidth    int    `yaml:"preview_width"`
	PreviewHeight   int    `yaml:"preview_height"`
	GridColumns     int    `yaml:"grid_columns"`
	LayoutSort      string `yaml:"layout_sort"`
}

type Shaders struct {
	Enabled   bool `yaml:"enabled"`
	FrameRate int  `yaml:"frame_rate"`
}

type GlobalShortcuts struct {
	OpenEditor     string `yaml:"open_editor"`
	PreviousLayout string `yaml:"previous_layout"`
	NextLayout     string `yaml:"next_layout"`
	QuickLayout1   string `yaml:"quick_layout_1"`
	QuickLayout2   string `yaml:"quick_layout_2"`
	QuickLayout3   string `yaml:"quick_layout_3"`
	QuickLayout4   string `yaml:"quick_layout_4"`
	QuickLayout5   string `yaml:"quick_layout_5"`
	QuickLayout6   string `yaml:"quick_layout_6"`
	QuickLayout7   string `yaml:"quick_layout_7"`
	QuickLayout8   string `yaml:"quick_layout_8"`
	QuickLayout9   string `yaml:"quick_layout_9"`
}

// QuickLayout returns the shortcut for quick slot n (1-based).
func (g GlobalShortcuts) QuickLayout(n int) string {
	return g.quickSlots()[n-1]
}

func (g GlobalShortcuts) quickSlots() [9]string {
	return [9]string{
		g.QuickLayout1, g.QuickLayout2, g.QuickLayout3,
		g.QuickLayout4, g.QuickLayout5, g.QuickLayout6,
		g.QuickLayout7, g.QuickLayout8, g.QuickLayout9,
	}
}

type NavigationShortcuts struct {
	MoveWindowLeft            string `yaml:"move_window_left"`
	MoveWindowRight           string `yaml:"move_window_right"`
	MoveWindowUp              string `yaml:"move_window_up"`
	MoveWindowDown            string `yaml:"move_window_down"`
	FocusZoneLeft             string `yaml:"focus_zone_left"`
	FocusZoneRight            string `yaml:"focus_zone_right"`
	FocusZoneUp               string `yaml:"focus_zone_up"`
	FocusZoneDown             string `yaml:"focus_zone_down"`
	SwapWindowLeft            string `yaml:"swap_window_left"`
	SwapWindowRight           string `yaml:"swap_window_right"`
	SwapWindowUp              string `yaml:"swap_window_up"`
	SwapWindowDown            string `yaml:"swap_window_down"`
	SnapToZone1               string `yaml:"snap_to_zone_1"`
	SnapToZone2               string `yaml:"snap_to_zone_2"`
	SnapToZone3               string `yaml:"snap_to_zone_3"`
	SnapToZone4               string `yaml:"snap_to_zone_4"`
	SnapToZone5               string `yaml:"snap_to_zone_5"`
	SnapToZone6               string `yaml:"snap_to_zone_6"`
	SnapToZone7               string `yaml:"snap_to_zone_7"`
	SnapToZone8               string `yaml:"snap_to_zone_8"`
	SnapToZone9               string `yaml:"snap_to_zone_9"`
	PushToEmptyZone           string `yaml:"push_to_empty_zone"`
	RestoreWindowSize         string `yaml:"restore_window_size"`
	ToggleWindowFloat         string `yaml:"toggle_window_float"`
	RotateWindowsClockwise    string `yaml:"rotate_windows_clockwise"`
	RotateWindowsCounterclock string `yaml:"rotate_windows_counterclockwise"`
	CycleWindowForward        string `yaml:"cycle_window_forward"`
	CycleWindowBackward       string `yaml:"cycle_window_backward"`
}

// SnapToZone returns the shortcut for snap-to-zone n (1-based).
func (n NavigationShortcuts) SnapToZone(i int) string {
	return [9]string{
		n.SnapToZone1, n.SnapToZone2, n.SnapToZone3,
		n.SnapToZone4, n.SnapToZone5, n.SnapToZone6,
		n.SnapToZone7, n.SnapToZone8, n.SnapToZone9,
	}[i-1]
}

type Autotiling struct {
	DefaultAlgorithm string  `yaml:"default_algorithm"`
	MasterRatio      float64 `yaml:"master_ratio"`
	MasterCount      int     `yaml:"master_count"`
	InnerGap         int     `yaml:"inner_gap"`
	OuterGap         int     `yaml:"outer_gap"`
	FocusNewWindows  bool    `yaml:"focus_new_windows"`
	SmartGaps        bool    `yaml:"smart_gaps"`
	InsertPosition   string  `yaml:"insert_position"`
}

type AutotileShortcuts struct {
	ToggleAutotile      string `yaml:"toggle_autotile"`
	FocusMaster         string `yaml:"focus_master"`
	SwapWithMaster      string `yaml:"swap_with_master"`
	IncreaseMasterRatio string `yaml:"increase_master_ratio"`
	DecreaseMasterRatio string `yaml:"decrease_master_ratio"`
	IncreaseMasterCount string `yaml:"increase_master_count"`
	DecreaseMasterCount string `yaml:"decrease_master_count"`
	Retile              string `yaml:"retile"`
}

type ModeTracking struct {
	LastTilingMode        TilingMode `yaml:"last_tiling_mode"`
	LastManualLayoutID    string     `yaml:"last_manual_layout_id"`
	LastAutotileAlgorithm string     `yaml:"last_autotile_algorithm"`
}

type Updates struct {
	CheckForUpdates  bool   `yaml:"check_for_updates"`
	DismissedVersion string `yaml:"dismissed_version"`
}
