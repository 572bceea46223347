package tracker

import (
	"fmt"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/keyseq"
	"github.com/plasmazones/plasmazones/internal/zones"
)

// DragInput is the pointer state reported during a drag.
type DragInput struct {
	Cursor    geom.Point      `json:"cursor"`
	Modifiers keyseq.Modifier `json:"modifiers"`
	Middle    bool            `json:"middleButton"`
}

type dragState struct {
	window     string
	wasSnapped bool
	input      DragInput
	screen     string
	hover      zones.Result
}

// DragStart begins a drag of window id.
func (t *Tracker) DragStart(id string, in DragInput) error {
	rec, ok := t.windows[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTracked, id)
	}
	t.drag = &dragState{window: id, wasSnapped: rec.Snapped(), input: in}
	t.active = id
	t.updateHover(in)
	return nil
}

// DragMove updates the hover selection and returns it. Without the drag
// modifier, or with skip-snap held, nothing is selected.
func (t *Tracker) DragMove(in DragInput) zones.Result {
	if t.drag == nil {
		return zones.Result{}
	}
	t.updateHover(in)
	return t.drag.hover
}

// Hover returns the current drag selection.
func (t *Tracker) Hover() (zones.Result, string, bool) {
	if t.drag == nil {
		return zones.Result{}, "", false
	}
	return t.drag.hover, t.drag.screen, true
}

func (t *Tracker) updateHover(in DragInput) {
	st := t.drag
	st.input = in
	st.hover = zones.Result{}
	act := t.opts.Activation
	if act.SkipSnapModifier.Held(in.Modifiers) {
		return
	}
	multi := act.MultiZoneModifier.Held(in.Modifiers) || (act.MiddleClickMultiZone && in.Middle)
	if !multi && !act.DragModifier.Held(in.Modifiers) {
		return
	}
	rec := t.windows[st.window]
	screen := t.env.ScreenAt(in.Cursor)
	if screen == "" {
		return
	}
	d, err := t.Detector(screen, t.desktopOf(rec))
	if err != nil {
		return
	}
	st.screen = screen
	if multi {
		st.hover = d.DetectMultiZone(in.Cursor)
	} else {
		st.hover = d.DetectZone(in.Cursor)
	}
}

// DragEnd finishes the drag. The window snaps when the final selection is
// near a zone; a window dragged out of its zone is unsnapped.
func (t *Tracker) DragEnd(in DragInput) error {
	if t.drag == nil {
		return nil
	}
	t.updateHover(in)
	st := t.drag
	t.drag = nil

	rec, ok := t.windows[st.window]
	if !ok {
		return nil
	}
	if st.hover.Found() && st.hover.Near {
		d, err := t.Detector(st.screen, t.desktopOf(rec))
		if err != nil {
			return err
		}
		rec.Screen = st.screen
		return t.snapWith(rec, d, st.hover.IDs())
	}
	if st.wasSnapped {
		return t.WindowUnsnapped(st.window)
	}
	return nil
}

// DragCancel discards the drag and its hover selection.
func (t *Tracker) DragCancel() {
	t.drag = nil
}
