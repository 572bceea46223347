// Package events carries the notifications the tiling engine publishes to
// its collaborators (IPC subscribers, the unified list cache, the router).
package events

import "sync"

// Kind names a notification. The string values are the wire names used on
// the IPC subscription stream.
type Kind string

const (
	LayoutListChanged          Kind = "layout_list_changed"
	LayoutChanged              Kind = "layout_changed"
	ScreenAdded                Kind = "screen_added"
	ScreenRemoved              Kind = "screen_removed"
	ScreenLayoutChanged        Kind = "screen_layout_changed"
	QuickLayoutSlotsChanged    Kind = "quick_layout_slots_changed"
	SettingsChanged            Kind = "settings_changed"
	VirtualDesktopCountChanged Kind = "virtual_desktop_count_changed"
	ActivitiesChanged          Kind = "activities_changed"
	CurrentActivityChanged     Kind = "current_activity_changed"
	DaemonReady                Kind = "daemon_ready"

	LayoutAdded        Kind = "layout_added"
	LayoutRemoved      Kind = "layout_removed"
	LayoutModified     Kind = "layout_modified"
	EmptyZoneAvailable Kind = "empty_zone_available"
	TilingModeChanged  Kind = "tiling_mode_changed"
	ZoneSelectorUpdate Kind = "zone_selector_update"
)

// Event is a single notification. Only the fields relevant to Kind are set.
type Event struct {
	Kind       Kind   `json:"kind"`
	LayoutID   string `json:"layout_id,omitempty"`
	ScreenID   string `json:"screen_id,omitempty"`
	ScreenName string `json:"screen_name,omitempty"`
	ActivityID string `json:"activity_id,omitempty"`
	ZoneID     string `json:"zone_id,omitempty"`
	Mode       string `json:"mode,omitempty"`
	Count      int    `json:"count,omitempty"`
}

// Handler receives events. Handlers run on the emitting goroutine and must
// not block.
type Handler func(Event)

// Bus fans events out to subscribers in subscription order.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   []subscription
}

type subscription struct {
	id int
	fn Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it again.
func (b *Bus) Subscribe(fn Handler) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subs {
			if s.id == id {
				b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
				return
			}
		}
	}
}

// Emit delivers ev to every subscriber. A nil bus drops the event.
func (b *Bus) Emit(ev Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(ev)
	}
}

// Recorder collects events; useful for tests and for batching.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

// Handle appends ev.
func (r *Recorder) Handle(ev Event) {
	r.mu.Lock()
	r.Events = append(r.Events, ev)
	r.mu.Unlock()
}

// Count returns how many recorded events have the given kind.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.Events {
		if ev.Kind == kind {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.Events = nil
	r.mu.Unlock()
}
