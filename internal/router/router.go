// Package router turns shortcut actions into tracker, autotile and layout
// operations depending on the tiling mode.
package router

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/assign"
	"github.com/plasmazones/plasmazones/internal/autotile"
	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/tracker"
	"github.com/plasmazones/plasmazones/internal/unified"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNoLayouts     = errors.New("no manual layout available")
	// ErrWrongMode is returned for actions that only exist in the other mode.
	ErrWrongMode = errors.New("action not available in this tiling mode")
)

const ratioStep = 0.05

// Deps are the components a router drives.
type Deps struct {
	Store   *config.Store
	Tracker *tracker.Tracker
	Engine  *autotile.Engine
	Layouts *unified.Controller
	Table   *assign.Table
	Bus     *events.Bus
	// Context returns the screen and desktop shortcuts act on.
	Context func() unified.Context
}

// Router holds the tiling mode and the most recently used targets.
type Router struct {
	d   Deps
	log zerolog.Logger

	mode          config.TilingMode
	lastLayout    string
	lastAlgorithm string
}

// New creates a router in manual mode and hooks it to layout applications
// so that the mode follows what was applied last.
func New(d Deps, log zerolog.Logger) *Router {
	r := &Router{
		d:    d,
		log:  log.With().Str("component", "router").Logger(),
		mode: config.TilingModeManual,
	}
	d.Layouts.OnApply(r.applied)
	return r
}

// Mode returns the current tiling mode.
func (r *Router) Mode() config.TilingMode { return r.mode }

// LastLayout returns the most recently applied manual layout id.
func (r *Router) LastLayout() string { return r.lastLayout }

// LastAlgorithm returns the most recently applied algorithm id.
func (r *Router) LastAlgorithm() string { return r.lastAlgorithm }

func (r *Router) applied(a unified.Applied) {
	mode := config.TilingModeManual
	if a.Algorithm != "" {
		mode = config.TilingModeAutotile
		r.lastAlgorithm = a.Algorithm
	} else if a.Layout != nil {
		r.lastLayout = a.Layout.ID.String()
	}
	r.setMode(mode)
}

func (r *Router) setMode(mode config.TilingMode) {
	changed := mode != r.mode
	r.mode = mode
	if r.d.Store.SetTilingMode(mode, r.lastLayout, r.lastAlgorithm) {
		if err := r.d.Store.Save(); err != nil {
			r.log.Warn().Err(err).Msg("failed to persist tiling mode")
		}
	}
	if changed {
		r.log.Info().Str("mode", string(mode)).Msg("tiling mode changed")
		r.d.Bus.Emit(events.Event{Kind: events.TilingModeChanged, Mode: string(mode)})
	}
}

// Restore reads the persisted mode and targets. In autotile mode the last
// algorithm is applied to every given context; in manual mode the last
// layout only becomes the active entry.
func (r *Router) Restore(ctxs ...unified.Context) {
	mt := r.d.Store.Get().ModeTracking
	r.lastLayout = mt.LastManualLayoutID
	r.lastAlgorithm = mt.LastAutotileAlgorithm

	if mt.LastTilingMode != config.TilingModeAutotile {
		r.mode = config.TilingModeManual
		if r.lastLayout != "" {
			r.d.Layouts.SetActiveID(r.lastLayout)
		}
		return
	}
	r.mode = config.TilingModeAutotile
	for _, ctx := range ctxs {
		if _, err := r.d.Layouts.ApplyByID(ctx, config.AutotilePrefix+r.algorithm()); err != nil {
			r.log.Warn().Err(err).Str("screen", ctx.Screen).Msg("failed to restore autotile")
		}
	}
	r.log.Info().Str("mode", string(r.mode)).Str("algorithm", r.lastAlgorithm).Msg("tiling mode restored")
}

func (r *Router) algorithm() string {
	if r.lastAlgorithm != "" {
		return r.lastAlgorithm
	}
	return r.d.Store.Get().Autotiling.DefaultAlgorithm
}

// SetMode switches the focused context to mode with its last target.
func (r *Router) SetMode(mode config.TilingMode) error {
	ctx := r.d.Context()
	if mode == config.TilingModeAutotile {
		_, err := r.d.Layouts.ApplyByID(ctx, config.AutotilePrefix+r.algorithm())
		return err
	}
	id := r.lastLayout
	if id == "" || !r.known(id) {
		id = ""
		for _, e := range r.d.Layouts.List() {
			if !e.IsAutotile {
				id = e.ID
				break
			}
		}
	}
	if id == "" {
		return ErrNoLayouts
	}
	_, err := r.d.Layouts.ApplyByID(ctx, id)
	return err
}

func (r *Router) known(id string) bool {
	for _, e := range r.d.Layouts.List() {
		if !e.IsAutotile && e.ID == id {
			return true
		}
	}
	return false
}

// ToggleMode flips between manual and autotile.
func (r *Router) ToggleMode() error {
	if r.mode == config.TilingModeAutotile {
		return r.SetMode(config.TilingModeManual)
	}
	return r.SetMode(config.TilingModeAutotile)
}

// Cycle moves focus among co-tenants of the focused zone, or among tiled
// windows in autotile mode.
func (r *Router) Cycle(forward bool) error {
	if r.mode == config.TilingModeAutotile {
		screen := r.d.Context().Screen
		if forward {
			return r.d.Engine.FocusNext(screen)
		}
		return r.d.Engine.FocusPrev(screen)
	}
	return r.d.Tracker.Cycle(forward)
}

// Rotate rotates windows through zones, or the tiling order.
func (r *Router) Rotate(clockwise bool) error {
	if r.mode == config.TilingModeAutotile {
		return r.d.Engine.Rotate(r.d.Context().Screen, clockwise)
	}
	return r.d.Tracker.Rotate(clockwise)
}

// ToggleFloat unsnaps or resnaps the focused window, or excludes it from
// tiling.
func (r *Router) ToggleFloat() error {
	if r.mode == config.TilingModeAutotile {
		w := r.d.Tracker.Active()
		if w == "" {
			return tracker.ErrNoFocusedWindow
		}
		_, err := r.d.Engine.ToggleFloat(w)
		return err
	}
	return r.d.Tracker.ToggleFloat()
}

// Dispatch runs the action named by its shortcut setting key, for example
// "move_window_left", "quick_layout_3" or "toggle_autotile".
func (r *Router) Dispatch(action string) error {
	err := r.dispatch(action)
	if err != nil {
		r.log.Debug().Err(err).Str("action", action).Msg("action failed")
	}
	return err
}

func (r *Router) dispatch(action string) error {
	if dir, ok := suffixDirection(action, "move_window_"); ok {
		return r.manual(func() error { return r.d.Tracker.MoveInDirection(dir) })
	}
	if dir, ok := suffixDirection(action, "focus_zone_"); ok {
		return r.manual(func() error { return r.d.Tracker.FocusInDirection(dir) })
	}
	if dir, ok := suffixDirection(action, "swap_window_"); ok {
		return r.manual(func() error { return r.d.Tracker.SwapInDirection(dir) })
	}
	if n, ok := suffixNumber(action, "snap_to_zone_"); ok {
		return r.manual(func() error { return r.d.Tracker.SnapToZoneNumber(n) })
	}
	if n, ok := suffixNumber(action, "quick_layout_"); ok {
		return r.quickLayout(n)
	}

	screen := func() string { return r.d.Context().Screen }
	switch action {
	case "open_editor":
		r.log.Info().Msg("layout editor requested")
		return nil
	case "previous_layout", "next_layout":
		_, err := r.d.Layouts.Cycle(r.d.Context(), action == "next_layout")
		return err
	case "push_to_empty_zone":
		return r.manual(r.d.Tracker.PushToEmptyZone)
	case "restore_window_size":
		return r.manual(r.d.Tracker.RestoreSize)
	case "toggle_window_float":
		return r.ToggleFloat()
	case "rotate_windows_clockwise", "rotate_windows_counterclockwise":
		return r.Rotate(action == "rotate_windows_clockwise")
	case "cycle_window_forward", "cycle_window_backward":
		return r.Cycle(action == "cycle_window_forward")
	case "toggle_autotile":
		return r.ToggleMode()
	case "focus_master":
		return r.autotile(func() error { return r.d.Engine.FocusMaster(screen()) })
	case "swap_with_master":
		return r.autotile(func() error { return r.d.Engine.SwapWithMaster(screen()) })
	case "increase_master_ratio", "decrease_master_ratio":
		delta := ratioStep
		if strings.HasPrefix(action, "decrease") {
			delta = -delta
		}
		return r.autotile(func() error { r.d.Engine.AdjustMasterRatio(delta); return nil })
	case "increase_master_count", "decrease_master_count":
		delta := 1
		if strings.HasPrefix(action, "decrease") {
			delta = -1
		}
		return r.autotile(func() error { r.d.Engine.AdjustMasterCount(delta); return nil })
	case "retile":
		return r.autotile(func() error { return r.d.Engine.Retile(screen()) })
	}
	return fmt.Errorf("%w: %s", ErrUnknownAction, action)
}

func (r *Router) manual(fn func() error) error {
	if r.mode != config.TilingModeManual {
		return ErrWrongMode
	}
	return fn()
}

func (r *Router) autotile(fn func() error) error {
	if r.mode != config.TilingModeAutotile {
		return ErrWrongMode
	}
	return fn()
}

func (r *Router) quickLayout(n int) error {
	ref := r.d.Table.QuickSlot(n)
	if ref == "" {
		return fmt.Errorf("quick layout slot %d is empty", n)
	}
	_, err := r.d.Layouts.ApplyByID(r.d.Context(), ref)
	return err
}

func suffixDirection(action, prefix string) (geom.Direction, bool) {
	rest, ok := strings.CutPrefix(action, prefix)
	if !ok {
		return geom.Left, false
	}
	dir, err := geom.ParseDirection(rest)
	return dir, err == nil
}

func suffixNumber(action, prefix string) (int, bool) {
	rest, ok := strings.CutPrefix(action, prefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil && n >= 1 && n <= 9
}
