package daemon

import (
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/screens"
	"github.com/plasmazones/plasmazones/internal/unified"
)

// environment is the window-system context seen by the tracker. It is
// owned by the loop.
type environment struct {
	screens      *screens.Set
	desktop      int
	desktopCount int
	activity     string
	activities   []string
}

func (e *environment) CurrentDesktop() int     { return e.desktop }
func (e *environment) CurrentActivity() string { return e.activity }

func (e *environment) ScreenArea(screen string) (geom.Rect, bool) {
	d, ok := e.screens.Lookup(screen)
	if !ok {
		return geom.Rect{}, false
	}
	return d.AvailableGeometry, true
}

func (e *environment) ScreenAt(p geom.Point) string {
	if d, ok := e.screens.At(p); ok {
		return d.StableID
	}
	return ""
}

// context returns the current desktop and activity on screen.
func (e *environment) context(screen string) unified.Context {
	return unified.Context{Screen: screen, Desktop: e.desktop, Activity: e.activity}
}
