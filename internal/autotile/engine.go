package autotile

import (
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/platform"
)

var ErrNotActive = errors.New("autotiling is not active on this screen")

// Insert positions for new windows.
const (
	InsertEnd          = "end"
	InsertAfterFocused = "after_focused"
	InsertAsMaster     = "as_master"
)

// Options configure the engine.
type Options struct {
	Params
	InsertPosition  string
	FocusNewWindows bool
}

// OptionsFrom extracts engine options from the autotiling settings.
func OptionsFrom(s config.Settings) Options {
	a := s.Autotiling
	return Options{
		Params: Params{
			MasterRatio: a.MasterRatio,
			MasterCount: a.MasterCount,
			InnerGap:    a.InnerGap,
			OuterGap:    a.OuterGap,
			SmartGaps:   a.SmartGaps,
		},
		InsertPosition:  a.InsertPosition,
		FocusNewWindows: a.FocusNewWindows,
	}
}

type screenState struct {
	algorithm string
	area      geom.Rect
	order     []string
	floating  map[string]bool
	focused   string
}

func (s *screenState) tiled() []string {
	return slices.DeleteFunc(slices.Clone(s.order), func(w string) bool { return s.floating[w] })
}

// Engine keeps per-screen autotile state and issues geometry commands. It
// is owned by the daemon loop.
type Engine struct {
	reg  *Registry
	cmd  platform.Commander
	log  zerolog.Logger
	opts Options

	screens map[string]*screenState
}

// NewEngine creates an engine with no active screens.
func NewEngine(reg *Registry, cmd platform.Commander, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		reg:     reg,
		cmd:     cmd,
		log:     log.With().Str("component", "autotile").Logger(),
		opts:    opts,
		screens: make(map[string]*screenState),
	}
}

// Registry returns the algorithm registry.
func (e *Engine) Registry() *Registry { return e.reg }

// SetOptions replaces the options and retiles every active screen.
func (e *Engine) SetOptions(opts Options) {
	e.opts = opts
	for screen := range e.screens {
		e.retile(screen)
	}
}

// Options returns the current options.
func (e *Engine) Options() Options { return e.opts }

// Activate enables autotiling on screen with the given algorithm. Windows
// already known on that screen are kept. It returns the canonical
// algorithm id.
func (e *Engine) Activate(screen, algorithm string, area geom.Rect, windows []string) string {
	id := e.reg.Canonical(algorithm)
	st, ok := e.screens[screen]
	if !ok {
		st = &screenState{floating: make(map[string]bool)}
		e.screens[screen] = st
	}
	st.algorithm, st.area = id, area
	for _, w := range windows {
		if !slices.Contains(st.order, w) {
			st.order = append(st.order, w)
		}
	}
	e.log.Info().Str("screen", screen).Str("algorithm", id).Int("windows", len(st.order)).Msg("autotiling active")
	e.retile(screen)
	return id
}

// Deactivate stops autotiling on screen.
func (e *Engine) Deactivate(screen string) {
	if _, ok := e.screens[screen]; ok {
		delete(e.screens, screen)
		e.log.Info().Str("screen", screen).Msg("autotiling stopped")
	}
}

// DeactivateAll stops autotiling everywhere.
func (e *Engine) DeactivateAll() {
	clear(e.screens)
}

// Algorithm returns the active algorithm on screen.
func (e *Engine) Algorithm(screen string) (string, bool) {
	st, ok := e.screens[screen]
	if !ok {
		return "", false
	}
	return st.algorithm, true
}

// ActiveScreens lists screens with autotiling on.
func (e *Engine) ActiveScreens() []string {
	out := make([]string, 0, len(e.screens))
	for s := range e.screens {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

// SetArea updates the usable area of screen and retiles it.
func (e *Engine) SetArea(screen string, area geom.Rect) {
	if st, ok := e.screens[screen]; ok && st.area != area {
		st.area = area
		e.retile(screen)
	}
}

// Windows returns the window order on screen.
func (e *Engine) Windows(screen string) []string {
	if st, ok := e.screens[screen]; ok {
		return slices.Clone(st.order)
	}
	return nil
}

// Manages reports whether autotiling is active on the window's screen and
// the window is known to it.
func (e *Engine) Manages(window string) bool {
	_, st := e.find(window)
	return st != nil
}

func (e *Engine) find(window string) (string, *screenState) {
	for screen, st := range e.screens {
		if slices.Contains(st.order, window) {
			return screen, st
		}
	}
	return "", nil
}

// AddWindow inserts a window on an active screen and retiles it.
func (e *Engine) AddWindow(screen, window string) error {
	st, ok := e.screens[screen]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, screen)
	}
	if slices.Contains(st.order, window) {
		return nil
	}
	switch e.opts.InsertPosition {
	case InsertAsMaster:
		st.order = slices.Insert(st.order, 0, window)
	case InsertAfterFocused:
		i := slices.Index(st.order, st.focused)
		st.order = slices.Insert(st.order, i+1, window)
	default:
		st.order = append(st.order, window)
	}
	e.retile(screen)
	if e.opts.FocusNewWindows {
		e.focus(st, window)
	}
	return nil
}

// RemoveWindow forgets a window and retiles its screen.
func (e *Engine) RemoveWindow(window string) {
	screen, st := e.find(window)
	if st == nil {
		return
	}
	st.order = slices.DeleteFunc(st.order, func(w string) bool { return w == window })
	delete(st.floating, window)
	if st.focused == window {
		st.focused = ""
	}
	e.retile(screen)
}

// SetFocused records the focused window.
func (e *Engine) SetFocused(window string) {
	if _, st := e.find(window); st != nil {
		st.focused = window
	}
}

// FocusNext moves focus to the next tiled window on screen.
func (e *Engine) FocusNext(screen string) error {
	return e.withAlgorithm(screen, func(a Algorithm, st *screenState) {
		e.focus(st, a.FocusNext(st.focused, st.tiled()))
	})
}

// FocusPrev moves focus to the previous tiled window on screen.
func (e *Engine) FocusPrev(screen string) error {
	return e.withAlgorithm(screen, func(a Algorithm, st *screenState) {
		e.focus(st, a.FocusPrev(st.focused, st.tiled()))
	})
}

// FocusMaster focuses the first tiled window.
func (e *Engine) FocusMaster(screen string) error {
	return e.withAlgorithm(screen, func(_ Algorithm, st *screenState) {
		if t := st.tiled(); len(t) > 0 {
			e.focus(st, t[0])
		}
	})
}

// Rotate rotates the stack order of screen.
func (e *Engine) Rotate(screen string, clockwise bool) error {
	return e.withAlgorithm(screen, func(a Algorithm, st *screenState) {
		tiled := a.Rotate(st.tiled(), clockwise)
		// Floating windows keep their slots in order; tiled slots take the
		// rotated sequence.
		j := 0
		for i, w := range st.order {
			if !st.floating[w] {
				st.order[i] = tiled[j]
				j++
			}
		}
		e.retile(screen)
	})
}

// SwapWithMaster exchanges the focused window with the first tiled one.
func (e *Engine) SwapWithMaster(screen string) error {
	return e.withAlgorithm(screen, func(_ Algorithm, st *screenState) {
		tiled := st.tiled()
		if len(tiled) < 2 || st.focused == "" || st.focused == tiled[0] || st.floating[st.focused] {
			return
		}
		a, b := slices.Index(st.order, tiled[0]), slices.Index(st.order, st.focused)
		st.order[a], st.order[b] = st.order[b], st.order[a]
		e.retile(screen)
	})
}

// ToggleFloat flips a window between tiled and floating.
func (e *Engine) ToggleFloat(window string) (bool, error) {
	screen, st := e.find(window)
	if st == nil {
		return false, fmt.Errorf("%w: window %s", ErrNotActive, window)
	}
	a := e.reg.Get(st.algorithm)
	floating := a.ToggleFloat(window, st.floating[window])
	if floating {
		st.floating[window] = true
	} else {
		delete(st.floating, window)
	}
	e.retile(screen)
	return floating, nil
}

// AdjustMasterRatio changes the master ratio by delta, clamped to 0.1..0.9.
func (e *Engine) AdjustMasterRatio(delta float64) {
	o := e.opts
	o.MasterRatio = min(max(o.MasterRatio+delta, 0.1), 0.9)
	e.SetOptions(o)
}

// AdjustMasterCount changes the master count by delta, clamped to 1..5.
func (e *Engine) AdjustMasterCount(delta int) {
	o := e.opts
	o.MasterCount = min(max(o.MasterCount+delta, 1), 5)
	e.SetOptions(o)
}

// Retile rearranges screen.
func (e *Engine) Retile(screen string) error {
	if _, ok := e.screens[screen]; !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, screen)
	}
	e.retile(screen)
	return nil
}

func (e *Engine) withAlgorithm(screen string, fn func(Algorithm, *screenState)) error {
	st, ok := e.screens[screen]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotActive, screen)
	}
	fn(e.reg.Get(st.algorithm), st)
	return nil
}

func (e *Engine) focus(st *screenState, window string) {
	if window == "" {
		return
	}
	st.focused = window
	if err := e.cmd.Activate(window); err != nil {
		e.log.Warn().Err(err).Str("window", window).Msg("failed to focus window")
	}
}

// Layout returns the rectangles the active algorithm assigns to the tiled
// windows of screen, keyed by window.
func (e *Engine) Layout(screen string) map[string]geom.Rect {
	st, ok := e.screens[screen]
	if !ok {
		return nil
	}
	tiled := st.tiled()
	rects := e.reg.Get(st.algorithm).Arrange(tiled, st.area, e.opts.Params)
	out := make(map[string]geom.Rect, len(tiled))
	for i, w := range tiled {
		if i < len(rects) {
			out[w] = rects[i]
		}
	}
	return out
}

func (e *Engine) retile(screen string) {
	st, ok := e.screens[screen]
	if !ok {
		return
	}
	layout := e.Layout(screen)
	for _, w := range st.tiled() {
		r, ok := layout[w]
		if !ok {
			continue
		}
		if err := e.cmd.MoveResize(w, r); err != nil {
			e.log.Warn().Err(err).Str("window", w).Msg("failed to place window")
		}
	}
	e.log.Debug().Str("screen", screen).Int("tiled", len(layout)).Msg("retiled")
}
