package tracker

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/zones"
)

// ErrNoAdjacentZone is returned when no zone lies in the requested direction.
var ErrNoAdjacentZone = errors.New("no zone in that direction")

// focused returns the record of the active window together with a detector
// for its context.
func (t *Tracker) focused() (*Record, *zones.Detector, error) {
	if t.active == "" {
		return nil, nil, ErrNoFocusedWindow
	}
	rec, ok := t.windows[t.active]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotTracked, t.active)
	}
	d, err := t.Detector(rec.Screen, t.desktopOf(rec))
	if err != nil {
		return nil, nil, err
	}
	return rec, d, nil
}

// current returns the zone rec occupies in d, or the zone nearest its
// center when it is floating.
func current(rec *Record, d *zones.Detector) (zones.Placed, bool) {
	if rec.Snapped() {
		return d.Zone(rec.Zone())
	}
	return d.Nearest(rec.Geometry.Center())
}

// inContext reports whether r lives on screen at desktop.
func (t *Tracker) inContext(r *Record, screen string, desktop int) bool {
	return r.Screen == screen && (r.Desktop == 0 || r.Desktop == desktop)
}

// occupantsOn returns the windows in zone z on screen at desktop, in snap
// order.
func (t *Tracker) occupantsOn(z uuid.UUID, screen string, desktop int) []*Record {
	return lo.Filter(t.occupants(z), func(r *Record, _ int) bool { return t.inContext(r, screen, desktop) })
}

// MoveInDirection moves the focused window to the adjacent zone in dir. A
// floating window is first snapped to the zone under its center.
func (t *Tracker) MoveInDirection(dir geom.Direction) error {
	rec, d, err := t.focused()
	if err != nil {
		return err
	}
	if !rec.Snapped() {
		z, ok := d.Nearest(rec.Geometry.Center())
		if !ok {
			return ErrZoneNotFound
		}
		return t.snapWith(rec, d, []uuid.UUID{z.ID})
	}
	next, ok := d.Neighbor(rec.Zone(), dir)
	if !ok {
		return ErrNoAdjacentZone
	}
	return t.snapWith(rec, d, []uuid.UUID{next.ID})
}

// FocusInDirection activates the most recently snapped window in the zone
// adjacent to the focused window's zone.
func (t *Tracker) FocusInDirection(dir geom.Direction) error {
	rec, d, err := t.focused()
	if err != nil {
		return err
	}
	from, ok := current(rec, d)
	if !ok {
		return ErrZoneNotFound
	}
	next, ok := d.Neighbor(from.ID, dir)
	if !ok {
		return ErrNoAdjacentZone
	}
	occ := t.occupantsOn(next.ID, rec.Screen, t.desktopOf(rec))
	if len(occ) == 0 {
		return fmt.Errorf("zone %d is empty", next.Number)
	}
	return t.activate(occ[len(occ)-1].RuntimeID)
}

// SwapInDirection exchanges the focused window with the occupant of the
// adjacent zone. An empty neighbor zone just receives the window.
func (t *Tracker) SwapInDirection(dir geom.Direction) error {
	rec, d, err := t.focused()
	if err != nil {
		return err
	}
	if !rec.Snapped() {
		return ErrNotSnapped
	}
	from := rec.Zones
	next, ok := d.Neighbor(rec.Zone(), dir)
	if !ok {
		return ErrNoAdjacentZone
	}
	occ := t.occupantsOn(next.ID, rec.Screen, t.desktopOf(rec))
	if err := t.snapWith(rec, d, []uuid.UUID{next.ID}); err != nil {
		return err
	}
	if len(occ) == 0 {
		return nil
	}
	return t.snapWith(occ[len(occ)-1], d, from)
}

// PushToEmptyZone moves the focused window to the lowest-numbered zone
// with no window in it.
func (t *Tracker) PushToEmptyZone() error {
	rec, d, err := t.focused()
	if err != nil {
		return err
	}
	desktop := t.desktopOf(rec)
	for _, z := range d.Zones() {
		if len(t.occupantsOn(z.ID, rec.Screen, desktop)) == 0 {
			return t.snapWith(rec, d, []uuid.UUID{z.ID})
		}
	}
	return errors.New("no empty zone")
}

// SnapToZoneNumber snaps the focused window to zone n of its layout.
func (t *Tracker) SnapToZoneNumber(n int) error {
	rec, d, err := t.focused()
	if err != nil {
		return err
	}
	z, ok := d.ZoneByNumber(n)
	if !ok {
		return fmt.Errorf("%w: number %d", ErrZoneNotFound, n)
	}
	return t.snapWith(rec, d, []uuid.UUID{z.ID})
}

// Rotate moves every snapped window in the focused window's context to the
// next zone by number, wrapping around. Counter-clockwise moves to the
// previous zone.
func (t *Tracker) Rotate(clockwise bool) error {
	rec, d, err := t.focused()
	if err != nil {
		return err
	}
	placed := d.Zones()
	if len(placed) < 2 {
		return nil
	}
	index := make(map[uuid.UUID]int, len(placed))
	for i, z := range placed {
		index[z.ID] = i
	}
	step := 1
	if !clockwise {
		step = len(placed) - 1
	}

	desktop := t.desktopOf(rec)
	type move struct {
		rec  *Record
		zone uuid.UUID
	}
	var moves []move
	for _, r := range t.sortedSnapped(func(r *Record) bool { return t.inContext(r, rec.Screen, desktop) }) {
		i, ok := index[r.Zone()]
		if !ok {
			continue
		}
		moves = append(moves, move{rec: r, zone: placed[(i+step)%len(placed)].ID})
	}
	var errs []error
	for _, m := range moves {
		if err := t.snapWith(m.rec, d, []uuid.UUID{m.zone}); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Cycle activates the next window sharing the focused window's zone.
func (t *Tracker) Cycle(forward bool) error {
	rec, _, err := t.focused()
	if err != nil {
		return err
	}
	if !rec.Snapped() {
		return ErrNotSnapped
	}
	occ := t.occupantsOn(rec.Zone(), rec.Screen, t.desktopOf(rec))
	if len(occ) < 2 {
		return nil
	}
	i := slices.Index(occ, rec)
	if forward {
		i = (i + 1) % len(occ)
	} else {
		i = (i - 1 + len(occ)) % len(occ)
	}
	return t.activate(occ[i].RuntimeID)
}

// ToggleFloat unsnaps a snapped focused window, or returns a floating one
// to the zones it last occupied.
func (t *Tracker) ToggleFloat() error {
	rec, d, err := t.focused()
	if err != nil {
		return err
	}
	if rec.Snapped() {
		return t.WindowUnsnapped(rec.RuntimeID)
	}
	if len(rec.previous) == 0 {
		return ErrNotSnapped
	}
	return t.snapWith(rec, d, rec.previous)
}

// RestoreSize unsnaps the focused window and restores its pre-snap
// geometry regardless of the restore-on-unsnap setting.
func (t *Tracker) RestoreSize() error {
	if t.active == "" {
		return ErrNoFocusedWindow
	}
	rec, ok := t.windows[t.active]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTracked, t.active)
	}
	orig := rec.Original
	if err := t.WindowUnsnapped(rec.RuntimeID); err != nil {
		return err
	}
	if orig == nil || rec.Geometry == *orig {
		return nil
	}
	rec.Original = nil
	if err := t.cmd.MoveResize(rec.RuntimeID, *orig); err != nil {
		return fmt.Errorf("failed to restore %s: %w", rec.RuntimeID, err)
	}
	rec.Geometry = *orig
	return nil
}

func (t *Tracker) activate(id string) error {
	if err := t.cmd.Activate(id); err != nil {
		return fmt.Errorf("failed to activate %s: %w", id, err)
	}
	t.active = id
	return nil
}
