package platform

import (
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/screens"
)

// ScreenFor returns the stable id of the screen holding the center of r,
// falling back to the screen with the largest overlap.
func ScreenFor(descs []screens.Descriptor, r geom.Rect) string {
	c := r.Center()
	for _, d := range descs {
		if d.Geometry.Contains(c) {
			return d.StableID
		}
	}
	best, area := "", 0
	for _, d := range descs {
		in := d.Geometry.Intersection(r)
		if a := in.Width * in.Height; a > area {
			best, area = d.StableID, a
		}
	}
	return best
}

// DesktopNumber converts a 0-based window system desktop index to the
// 1-based numbering used here. Negative indices mean every desktop.
func DesktopNumber(index int) (desktop int, sticky bool) {
	if index < 0 {
		return 0, true
	}
	return index + 1, false
}
