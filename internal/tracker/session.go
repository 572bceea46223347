package tracker

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"

	"github.com/plasmazones/plasmazones/internal/atomicfile"
)

// Pending is a saved zone assignment for a window that is not open.
type Pending struct {
	ZoneID string `json:"zone_id"`
	// ZoneIDs is set when the window spanned several zones.
	ZoneIDs  []string `json:"zone_ids,omitempty"`
	Screen   string   `json:"screen_stable_id"`
	Desktop  int      `json:"virtual_desktop"`
	LayoutID string   `json:"layout_id"`
}

// Session is the persisted form of the tracker state.
type Session struct {
	Pending  map[string]Pending `json:"pendingAssignments"`
	LastZone *LastZone          `json:"lastUsedZone,omitempty"`
}

// Pending returns a copy of the pending assignments keyed by stable id.
func (t *Tracker) Pending() map[string]Pending {
	return maps.Clone(t.pending)
}

// ClearPending drops every pending assignment.
func (t *Tracker) ClearPending() {
	if len(t.pending) == 0 {
		return
	}
	clear(t.pending)
	t.dirty = true
}

// Snapshot returns the session as it would be written now. Open snapped
// windows are folded into the pending map; windows sharing a stable id
// collapse to the most recently snapped one.
func (t *Tracker) Snapshot() Session {
	s := Session{Pending: maps.Clone(t.pending)}
	if s.Pending == nil {
		s.Pending = make(map[string]Pending)
	}
	for _, rec := range t.sortedSnapped(func(*Record) bool { return true }) {
		s.Pending[rec.StableID] = t.pendingFor(rec)
	}
	if t.lastZone != nil {
		lz := *t.lastZone
		s.LastZone = &lz
	}
	return s
}

// Save writes the session snapshot to path and clears the dirty flag.
func (t *Tracker) Save(path string) error {
	if err := atomicfile.WriteJSON(path, t.Snapshot()); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	t.dirty = false
	return nil
}

// Load replaces the pending assignments with those stored at path. A
// missing file leaves the tracker empty.
func (t *Tracker) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	t.pending = make(map[string]Pending, len(s.Pending))
	for k, p := range s.Pending {
		if k == "" || p.ZoneID == "" {
			continue
		}
		t.pending[k] = p
	}
	t.lastZone = s.LastZone
	t.dirty = false
	t.log.Info().Int("pending", len(t.pending)).Msg("session loaded")
	return nil
}
