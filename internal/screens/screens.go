// Package screens tracks the connected displays by stable identifier.
package screens

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/geom"
)

// Descriptor describes one connected display.
type Descriptor struct {
	ConnectorName     string    `json:"name"`
	StableID          string    `json:"screenId"`
	Manufacturer      string    `json:"manufacturer,omitempty"`
	Model             string    `json:"model,omitempty"`
	Serial            string    `json:"serial,omitempty"`
	Geometry          geom.Rect `json:"geometry"`
	AvailableGeometry geom.Rect `json:"availableGeometry"`
	IsPrimary         bool      `json:"primary"`
}

// NewDescriptor builds a descriptor from the connector name and raw EDID.
func NewDescriptor(connector string, raw []byte, geometry, available geom.Rect, primary bool) Descriptor {
	d := Descriptor{
		ConnectorName:     connector,
		StableID:          StableID(connector, raw),
		Geometry:          geometry,
		AvailableGeometry: available,
		IsPrimary:         primary,
	}
	if available.Empty() {
		d.AvailableGeometry = geometry
	}
	if e, err := ParseEDID(raw); err == nil {
		d.Manufacturer = e.Manufacturer
		d.Model = e.ModelName()
		d.Serial = e.SerialNumber()
	}
	return d
}

// Change describes the difference between two screen sets.
type Change struct {
	Added   []Descriptor
	Removed []Descriptor
	// Resized lists screens whose available geometry changed.
	Resized []Descriptor
}

// Empty reports whether nothing changed.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Resized) == 0
}

// Set is the current set of screens. It is owned by the daemon loop.
type Set struct {
	bus     *events.Bus
	log     zerolog.Logger
	screens []Descriptor
}

// NewSet returns an empty screen set.
func NewSet(bus *events.Bus, log zerolog.Logger) *Set {
	return &Set{bus: bus, log: log.With().Str("component", "screens").Logger()}
}

// Update replaces the screen set and emits screen_added / screen_removed
// for the difference.
func (s *Set) Update(next []Descriptor) Change {
	var ch Change
	for _, n := range next {
		old, ok := s.byStableID(n.StableID)
		switch {
		case !ok:
			ch.Added = append(ch.Added, n)
		case old.AvailableGeometry != n.AvailableGeometry:
			ch.Resized = append(ch.Resized, n)
		}
	}
	for _, old := range s.screens {
		if !slices.ContainsFunc(next, func(d Descriptor) bool { return d.StableID == old.StableID }) {
			ch.Removed = append(ch.Removed, old)
		}
	}
	s.screens = slices.Clone(next)

	for _, d := range ch.Removed {
		s.log.Info().Str("screen", d.ConnectorName).Str("id", d.StableID).Msg("screen removed")
		s.bus.Emit(events.Event{Kind: events.ScreenRemoved, ScreenName: d.ConnectorName, ScreenID: d.StableID})
	}
	for _, d := range ch.Added {
		s.log.Info().Str("screen", d.ConnectorName).Str("id", d.StableID).Msg("screen added")
		s.bus.Emit(events.Event{Kind: events.ScreenAdded, ScreenName: d.ConnectorName, ScreenID: d.StableID})
	}
	return ch
}

// List returns the screens in the order the window system reported them.
func (s *Set) List() []Descriptor {
	return slices.Clone(s.screens)
}

func (s *Set) byStableID(id string) (Descriptor, bool) {
	for _, d := range s.screens {
		if d.StableID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Lookup finds a screen by stable id or connector name.
func (s *Set) Lookup(nameOrID string) (Descriptor, bool) {
	if d, ok := s.byStableID(nameOrID); ok {
		return d, true
	}
	for _, d := range s.screens {
		if d.ConnectorName == nameOrID {
			return d, true
		}
	}
	return Descriptor{}, false
}

// StableIDFor maps a connector name or stable id to the stable id. Unknown
// names are returned unchanged so that assignments for disconnected screens
// can still be addressed.
func (s *Set) StableIDFor(nameOrID string) string {
	if d, ok := s.Lookup(nameOrID); ok {
		return d.StableID
	}
	return nameOrID
}

// Primary returns the primary screen, or the first one.
func (s *Set) Primary() (Descriptor, bool) {
	for _, d := range s.screens {
		if d.IsPrimary {
			return d, true
		}
	}
	if len(s.screens) > 0 {
		return s.screens[0], true
	}
	return Descriptor{}, false
}

// At returns the screen containing p, falling back to the nearest one.
func (s *Set) At(p geom.Point) (Descriptor, bool) {
	best, bestDist := -1, 0.0
	for i, d := range s.screens {
		if d.Geometry.Contains(p) {
			return d, true
		}
		if dist := d.Geometry.DistanceTo(p); best < 0 || dist < bestDist {
			best, bestDist = i, dist
		}
	}
	if best < 0 {
		return Descriptor{}, false
	}
	return s.screens[best], true
}
