// Package tracker owns the window-to-zone map, its persistence across
// sessions, and the keyboard-driven window operations.
package tracker

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/plasmazones/plasmazones/internal/assign"
	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/platform"
	"github.com/plasmazones/plasmazones/internal/zones"
)

var (
	ErrNoFocusedWindow = errors.New("no focused window")
	ErrNotTracked      = errors.New("window is not tracked")
	ErrNotSnapped      = errors.New("window is not in a zone")
	ErrZoneNotFound    = errors.New("zone not found in the current layout")
	ErrUnknownScreen   = errors.New("unknown screen")
	ErrNoLayout        = errors.New("no layout available")
)

// StableID strips a trailing ":<handle>" from a runtime id when the handle
// is all decimal digits.
func StableID(runtimeID string) string {
	i := strings.LastIndexByte(runtimeID, ':')
	if i < 0 || i == len(runtimeID)-1 {
		return runtimeID
	}
	for _, r := range runtimeID[i+1:] {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return runtimeID
		}
	}
	return runtimeID[:i]
}

// Environment answers questions about the current desktop state.
type Environment interface {
	// CurrentDesktop is 1-based.
	CurrentDesktop() int
	CurrentActivity() string
	// ScreenArea returns the available geometry of a screen by stable id.
	ScreenArea(screen string) (geom.Rect, bool)
	// ScreenAt returns the stable id of the screen under p, or "".
	ScreenAt(p geom.Point) string
}

// Options are the settings the tracker reads.
type Options struct {
	Zones      zones.Options
	Activation config.Activation
	Behavior   config.Behavior
	Exclusions config.Exclusions
}

// OptionsFrom extracts tracker options from settings.
func OptionsFrom(s config.Settings) Options {
	return Options{
		Zones: zones.Options{
			Padding:           s.Zones.Padding,
			OuterGap:          s.Zones.OuterGap,
			AdjacentThreshold: s.Zones.AdjacentThreshold,
			EdgeThreshold:     s.Zones.EdgeThreshold,
			MultiZoneEnabled:  s.Zones.MultiZoneEnabled,
		},
		Activation: s.Activation,
		Behavior:   s.Behavior,
		Exclusions: s.Exclusions,
	}
}

// Record is the runtime state of one tracked window.
type Record struct {
	RuntimeID string      `json:"runtimeId"`
	StableID  string      `json:"stableId"`
	AppID     string      `json:"appId"`
	Class     string      `json:"class"`
	Zones     []uuid.UUID `json:"zones,omitempty"`
	Screen    string      `json:"screen"`
	Desktop   int         `json:"desktop"`
	Sticky    bool        `json:"sticky,omitempty"`
	Geometry  geom.Rect   `json:"geometry"`
	// Original is the geometry before the window was first snapped.
	Original *geom.Rect `json:"originalGeometry,omitempty"`

	previous []uuid.UUID
	snapSeq  int
}

// Snapped reports whether the window is in a zone.
func (r *Record) Snapped() bool { return len(r.Zones) > 0 }

// Zone returns the primary zone, or uuid.Nil.
func (r *Record) Zone() uuid.UUID {
	if len(r.Zones) == 0 {
		return uuid.Nil
	}
	return r.Zones[0]
}

func (r *Record) clone() Record {
	c := *r
	c.Zones = slices.Clone(r.Zones)
	c.previous = slices.Clone(r.previous)
	if r.Original != nil {
		o := *r.Original
		c.Original = &o
	}
	return c
}

// LastZone remembers where the most recent snap went.
type LastZone struct {
	Zones   []uuid.UUID `json:"zones"`
	Screen  string      `json:"screen"`
	Desktop int         `json:"desktop"`
}

// Tracker maps windows to zones. It is owned by the daemon loop.
type Tracker struct {
	resolver *assign.Resolver
	cmd      platform.Commander
	env      Environment
	bus      *events.Bus
	log      zerolog.Logger
	opts     Options

	windows  map[string]*Record
	deferred map[string]platform.Window
	pending  map[string]Pending
	lastZone *LastZone
	active   string
	seq      int
	dirty    bool

	drag *dragState
}

// New creates a tracker with no windows and no pending assignments.
func New(resolver *assign.Resolver, cmd platform.Commander, env Environment, opts Options, bus *events.Bus, log zerolog.Logger) *Tracker {
	return &Tracker{
		resolver: resolver,
		cmd:      cmd,
		env:      env,
		bus:      bus,
		log:      log.With().Str("component", "tracker").Logger(),
		opts:     opts,
		windows:  make(map[string]*Record),
		deferred: make(map[string]platform.Window),
		pending:  make(map[string]Pending),
	}
}

// SetOptions replaces the options.
func (t *Tracker) SetOptions(opts Options) { t.opts = opts }

// Dirty reports whether session state changed since the last save.
func (t *Tracker) Dirty() bool { return t.dirty }

// Record returns a copy of the record for a window.
func (t *Tracker) Record(id string) (Record, bool) {
	r, ok := t.windows[id]
	if !ok {
		return Record{}, false
	}
	return r.clone(), true
}

// Windows returns copies of every record ordered by runtime id.
func (t *Tracker) Windows() []Record {
	out := lo.MapToSlice(t.windows, func(_ string, r *Record) Record { return r.clone() })
	slices.SortFunc(out, func(a, b Record) int { return strings.Compare(a.RuntimeID, b.RuntimeID) })
	return out
}

// LastUsedZone returns the most recent snap target.
func (t *Tracker) LastUsedZone() (LastZone, bool) {
	if t.lastZone == nil {
		return LastZone{}, false
	}
	return *t.lastZone, true
}

// SetActive records the focused window.
func (t *Tracker) SetActive(id string) { t.active = id }

// Active returns the focused window id.
func (t *Tracker) Active() string { return t.active }

// excluded reports why a window must not be tracked, or "".
func (t *Tracker) excluded(w platform.Window) string {
	ex := t.opts.Exclusions
	if w.Sticky && t.opts.Behavior.StickyWindowHandling == config.StickyIgnoreAll {
		return "sticky"
	}
	if w.Transient && ex.ExcludeTransientWindows {
		return "transient"
	}
	if lo.ContainsBy(ex.Applications, func(a string) bool { return strings.EqualFold(a, w.AppID) }) {
		return "application"
	}
	if lo.ContainsBy(ex.WindowClasses, func(c string) bool { return strings.EqualFold(c, w.Class) }) {
		return "class"
	}
	if !w.Geometry.Empty() && (w.Geometry.Width < ex.MinimumWindowWidth || w.Geometry.Height < ex.MinimumWindowHeight) {
		return "too small"
	}
	return ""
}

// WindowOpened starts tracking a window. Windows whose class is not yet
// known are held until WindowReady. A tracked window is restored to its
// saved zone when the saved context still matches, otherwise optionally
// moved to the last used zone.
func (t *Tracker) WindowOpened(w platform.Window) {
	if _, ok := t.windows[w.ID]; ok {
		return
	}
	if !w.Ready() {
		t.deferred[w.ID] = w
		t.log.Debug().Str("window", w.ID).Msg("window not ready, deferring")
		return
	}
	if why := t.excluded(w); why != "" {
		t.log.Debug().Str("window", w.ID).Str("reason", why).Msg("window excluded")
		return
	}

	rec := &Record{
		RuntimeID: w.ID,
		StableID:  StableID(w.ID),
		AppID:     w.AppID,
		Class:     w.Class,
		Screen:    w.Screen,
		Desktop:   w.Desktop,
		Sticky:    w.Sticky,
		Geometry:  w.Geometry,
	}
	if rec.Sticky && t.opts.Behavior.StickyWindowHandling == config.StickyTreatAsOnCurrent {
		rec.Sticky = false
		rec.Desktop = t.env.CurrentDesktop()
	}
	t.windows[w.ID] = rec

	if t.opts.Behavior.RestoreWindowsToZonesOnLogin && t.restore(rec) {
		return
	}
	if t.opts.Behavior.MoveNewWindowsToLastZone {
		t.moveToLastZone(rec)
	}
}

// WindowReady processes a window deferred by WindowOpened.
func (t *Tracker) WindowReady(w platform.Window) {
	if _, ok := t.deferred[w.ID]; !ok {
		return
	}
	delete(t.deferred, w.ID)
	t.WindowOpened(w)
}

// WindowClosed stops tracking a window. A snapped window leaves a pending
// assignment keyed by its stable id, carrying the layout in effect for its
// context at this moment.
func (t *Tracker) WindowClosed(id string) {
	delete(t.deferred, id)
	rec, ok := t.windows[id]
	if !ok {
		return
	}
	delete(t.windows, id)
	if t.active == id {
		t.active = ""
	}
	if t.drag != nil && t.drag.window == id {
		t.drag = nil
	}
	if !rec.Snapped() {
		return
	}

	t.pending[rec.StableID] = t.pendingFor(rec)
	t.dirty = true
	t.log.Debug().Str("window", id).Str("stable_id", rec.StableID).Msg("saved pending assignment")

	if t.opts.Behavior.SnapAssistEnabled {
		for _, z := range rec.Zones {
			if len(t.occupantsOn(z, rec.Screen, t.desktopOf(rec))) == 0 {
				t.bus.Emit(events.Event{Kind: events.EmptyZoneAvailable, ZoneID: z.String(), ScreenID: rec.Screen})
			}
		}
	}
}

func (t *Tracker) pendingFor(rec *Record) Pending {
	p := Pending{
		ZoneID:  rec.Zone().String(),
		Screen:  rec.Screen,
		Desktop: rec.Desktop,
	}
	if len(rec.Zones) > 1 {
		p.ZoneIDs = lo.Map(rec.Zones, func(z uuid.UUID, _ int) string { return z.String() })
	}
	if l := t.resolver.Resolve(rec.Screen, t.desktopOf(rec), t.env.CurrentActivity()); l != nil {
		p.LayoutID = l.ID.String()
	}
	return p
}

// WindowChanged updates the geometry, screen and desktop of a window.
func (t *Tracker) WindowChanged(w platform.Window) {
	rec, ok := t.windows[w.ID]
	if !ok {
		if _, deferred := t.deferred[w.ID]; deferred && w.Ready() {
			t.WindowReady(w)
		}
		return
	}
	rec.Geometry = w.Geometry
	if w.Screen != "" {
		rec.Screen = w.Screen
	}
	if !(rec.Sticky || w.Sticky) || t.opts.Behavior.StickyWindowHandling == config.StickyTreatAsNormal {
		rec.Desktop, rec.Sticky = w.Desktop, w.Sticky
	}
}

// desktopOf returns the desktop a record's zones are resolved in; sticky
// windows use the current desktop.
func (t *Tracker) desktopOf(rec *Record) int {
	if rec.Desktop > 0 {
		return rec.Desktop
	}
	return t.env.CurrentDesktop()
}

// Detector returns a zone detector for the layout active on screen at
// desktop.
func (t *Tracker) Detector(screen string, desktop int) (*zones.Detector, error) {
	area, ok := t.env.ScreenArea(screen)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScreen, screen)
	}
	l := t.resolver.Resolve(screen, desktop, t.env.CurrentActivity())
	if l == nil {
		return nil, ErrNoLayout
	}
	d := zones.NewDetector(t.opts.Zones, t.log)
	d.SetLayout(l, area)
	return d, nil
}

// Snap moves a window into the given zones of the layout active in its
// context and records the assignment.
func (t *Tracker) Snap(id string, zoneIDs ...uuid.UUID) error {
	rec, ok := t.windows[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTracked, id)
	}
	d, err := t.Detector(rec.Screen, t.desktopOf(rec))
	if err != nil {
		return err
	}
	return t.snapWith(rec, d, zoneIDs)
}

func (t *Tracker) snapWith(rec *Record, d *zones.Detector, zoneIDs []uuid.UUID) error {
	rect, ok := d.Span(zoneIDs)
	if !ok {
		return fmt.Errorf("%w: %v", ErrZoneNotFound, zoneIDs)
	}
	if err := t.cmd.MoveResize(rec.RuntimeID, rect); err != nil {
		return fmt.Errorf("failed to move %s: %w", rec.RuntimeID, err)
	}
	t.recordSnap(rec, zoneIDs, rect)
	return nil
}

// WindowSnapped records that a window was snapped into zones on screen at
// desktop without issuing any command.
func (t *Tracker) WindowSnapped(id string, zoneIDs []uuid.UUID, screen string, desktop int) error {
	rec, ok := t.windows[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTracked, id)
	}
	if screen != "" {
		rec.Screen = screen
	}
	if desktop > 0 && !rec.Sticky {
		rec.Desktop = desktop
	}
	t.recordSnap(rec, zoneIDs, rec.Geometry)
	return nil
}

func (t *Tracker) recordSnap(rec *Record, zoneIDs []uuid.UUID, rect geom.Rect) {
	if !rec.Snapped() && rec.Original == nil && !rec.Geometry.Empty() {
		orig := rec.Geometry
		rec.Original = &orig
	}
	rec.Zones = slices.Clone(zoneIDs)
	rec.Geometry = rect
	t.seq++
	rec.snapSeq = t.seq
	t.lastZone = &LastZone{Zones: slices.Clone(zoneIDs), Screen: rec.Screen, Desktop: rec.Desktop}
	t.dirty = true
	t.log.Debug().Str("window", rec.RuntimeID).Str("zone", rec.Zone().String()).Int("zones", len(zoneIDs)).Msg("window snapped")
}

// WindowUnsnapped drops a window's zone assignment. With restore on unsnap
// enabled the pre-snap geometry is restored.
func (t *Tracker) WindowUnsnapped(id string) error {
	rec, ok := t.windows[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotTracked, id)
	}
	if !rec.Snapped() {
		return nil
	}
	if t.lastZone != nil && slices.Equal(t.lastZone.Zones, rec.Zones) {
		t.lastZone = nil
	}
	rec.previous = rec.Zones
	rec.Zones = nil
	t.dirty = true

	if rec.Original != nil && t.opts.Behavior.RestoreOriginalSizeOnUnsnap {
		orig := *rec.Original
		rec.Original = nil
		if err := t.cmd.MoveResize(id, orig); err != nil {
			return fmt.Errorf("failed to restore %s: %w", id, err)
		}
		rec.Geometry = orig
	}
	return nil
}

// occupants returns the windows in zone z, in snap order.
func (t *Tracker) occupants(z uuid.UUID) []*Record {
	var out []*Record
	for _, r := range t.windows {
		if slices.Contains(r.Zones, z) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b *Record) int { return a.snapSeq - b.snapSeq })
	return out
}

// WindowsInZone returns the ids of windows in zone z, in snap order.
func (t *Tracker) WindowsInZone(z uuid.UUID) []string {
	return lo.Map(t.occupants(z), func(r *Record, _ int) string { return r.RuntimeID })
}

// SnapAssistCandidates lists unsnapped windows on screen that could fill
// an empty zone.
func (t *Tracker) SnapAssistCandidates(screen string) []string {
	var out []string
	for _, r := range t.windows {
		if !r.Snapped() && r.Screen == screen {
			out = append(out, r.RuntimeID)
		}
	}
	slices.Sort(out)
	return out
}

// SelectSnapAssist snaps the chosen window into the advertised zone.
func (t *Tracker) SelectSnapAssist(id string, zone uuid.UUID) error {
	return t.Snap(id, zone)
}

// moveToLastZone snaps a new window to the last used zone when that zone
// exists in the window's context.
func (t *Tracker) moveToLastZone(rec *Record) {
	if t.lastZone == nil || t.lastZone.Screen != rec.Screen {
		return
	}
	d, err := t.Detector(rec.Screen, t.desktopOf(rec))
	if err != nil {
		return
	}
	if err := t.snapWith(rec, d, t.lastZone.Zones); err != nil {
		t.log.Debug().Err(err).Str("window", rec.RuntimeID).Msg("last used zone not available")
	}
}

// ScreenChanged re-snaps every window on screen to its recomputed zone
// rectangle when keep-in-zone is enabled.
func (t *Tracker) ScreenChanged(screen string) {
	if !t.opts.Behavior.KeepWindowsInZonesOnResolutionChange {
		return
	}
	t.resnap(func(r *Record) bool { return r.Screen == screen })
}

// LayoutChanged moves windows on screen whose zones no longer exist to the
// zone with the same number in the new layout, and re-applies geometry to
// the others.
func (t *Tracker) LayoutChanged(screen string, numbers map[uuid.UUID]int) {
	for _, rec := range t.sortedSnapped(func(r *Record) bool { return r.Screen == screen }) {
		d, err := t.Detector(rec.Screen, t.desktopOf(rec))
		if err != nil {
			continue
		}
		next := make([]uuid.UUID, 0, len(rec.Zones))
		for _, z := range rec.Zones {
			if _, ok := d.Zone(z); ok {
				next = append(next, z)
				continue
			}
			if n, ok := numbers[z]; ok {
				if pz, ok := d.ZoneByNumber(n); ok {
					next = append(next, pz.ID)
				}
			}
		}
		if len(next) == 0 {
			rec.previous, rec.Zones = rec.Zones, nil
			t.dirty = true
			continue
		}
		if err := t.snapWith(rec, d, next); err != nil {
			t.log.Warn().Err(err).Str("window", rec.RuntimeID).Msg("failed to move window to new layout")
		}
	}
}

func (t *Tracker) resnap(keep func(*Record) bool) {
	for _, rec := range t.sortedSnapped(keep) {
		d, err := t.Detector(rec.Screen, t.desktopOf(rec))
		if err != nil {
			continue
		}
		if err := t.snapWith(rec, d, rec.Zones); err != nil {
			t.log.Debug().Err(err).Str("window", rec.RuntimeID).Msg("cannot re-snap window")
		}
	}
}

func (t *Tracker) sortedSnapped(keep func(*Record) bool) []*Record {
	var out []*Record
	for _, r := range t.windows {
		if r.Snapped() && keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b *Record) int { return a.snapSeq - b.snapSeq })
	return out
}

// Forget drops runtime records whose window is not in alive. It returns
// the number of records dropped.
func (t *Tracker) Forget(alive map[string]bool) int {
	n := 0
	for id := range t.windows {
		if !alive[id] {
			t.WindowClosed(id)
			n++
		}
	}
	for id := range t.deferred {
		if !alive[id] {
			delete(t.deferred, id)
		}
	}
	return n
}
