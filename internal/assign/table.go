// Package assign holds the per-context layout assignment table and the
// resolver that picks the active layout for a screen.
package assign

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/plasmazones/plasmazones/internal/atomicfile"
	"github.com/plasmazones/plasmazones/internal/config"
)

// QuickSlots is the number of numbered quick-layout slots.
const QuickSlots = 9

// Key addresses one assignment. Desktop 0 means all desktops. A non-empty
// Activity makes the key activity-scoped and Desktop is ignored.
type Key struct {
	Screen   string
	Desktop  int
	Activity string
}

// DesktopKey returns the key for a screen and desktop (0 for all).
func DesktopKey(screen string, desktop int) Key {
	return Key{Screen: screen, Desktop: max(desktop, 0)}
}

// ActivityKey returns the key for a screen and activity.
func ActivityKey(screen, activity string) Key {
	return Key{Screen: screen, Activity: activity}
}

// String renders the canonical "<screen>|<desktop>" or
// "<screen>|<activity>" form.
func (k Key) String() string {
	if k.Activity != "" {
		return k.Screen + "|" + k.Activity
	}
	return k.Screen + "|" + strconv.Itoa(k.Desktop)
}

// ParseKey is the inverse of Key.String. The screen part is everything up
// to the last '|'.
func ParseKey(s string) (Key, error) {
	i := strings.LastIndexByte(s, '|')
	if i <= 0 || i == len(s)-1 {
		return Key{}, fmt.Errorf("invalid assignment key %q", s)
	}
	screen, ctx := s[:i], s[i+1:]
	return contextKey(screen, ctx), nil
}

func contextKey(screen, ctx string) Key {
	if ctx == "default" {
		return DesktopKey(screen, 0)
	}
	if n, err := strconv.Atoi(ctx); err == nil && n >= 0 {
		return DesktopKey(screen, n)
	}
	return ActivityKey(screen, ctx)
}

// context renders the per-screen JSON key: "default", a desktop number or
// an activity id.
func (k Key) context() string {
	switch {
	case k.Activity != "":
		return k.Activity
	case k.Desktop == 0:
		return "default"
	default:
		return strconv.Itoa(k.Desktop)
	}
}

// Table maps assignment keys to layout references (canonical UUID strings
// or autotile sentinels) and holds the quick-layout slots. It is owned by
// the daemon loop.
type Table struct {
	entries map[Key]string
	quick   [QuickSlots]string
	dirty   bool
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[Key]string)}
}

// Get returns the reference stored under k.
func (t *Table) Get(k Key) (string, bool) {
	ref, ok := t.entries[k]
	return ref, ok
}

// Has reports whether k has an explicit assignment.
func (t *Table) Has(k Key) bool {
	_, ok := t.entries[k]
	return ok
}

// Set stores ref under k. An empty ref removes the entry. It reports
// whether the table changed.
func (t *Table) Set(k Key, ref string) (bool, error) {
	if ref == "" {
		return t.Remove(k), nil
	}
	canon, ok := config.CanonicalLayoutRef(ref)
	if !ok {
		return false, fmt.Errorf("invalid layout reference %q", ref)
	}
	if k.Screen == "" {
		return false, errors.New("assignment needs a screen")
	}
	if t.entries[k] == canon {
		return false, nil
	}
	t.entries[k] = canon
	t.dirty = true
	return true, nil
}

// Remove deletes the entry under k.
func (t *Table) Remove(k Key) bool {
	if _, ok := t.entries[k]; !ok {
		return false
	}
	delete(t.entries, k)
	t.dirty = true
	return true
}

// ClearScreen removes every entry for screen.
func (t *Table) ClearScreen(screen string) int {
	n := 0
	for k := range t.entries {
		if k.Screen == screen {
			delete(t.entries, k)
			n++
		}
	}
	if n > 0 {
		t.dirty = true
	}
	return n
}

// Keys returns every key in canonical string order.
func (t *Table) Keys() []Key {
	keys := slices.Collect(maps.Keys(t.entries))
	slices.SortFunc(keys, func(a, b Key) int { return strings.Compare(a.String(), b.String()) })
	return keys
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// ScreenAssignments returns the all-desktops entry of every screen.
func (t *Table) ScreenAssignments() map[string]string {
	out := map[string]string{}
	for k, v := range t.entries {
		if k.Activity == "" && k.Desktop == 0 {
			out[k.Screen] = v
		}
	}
	return out
}

// DesktopAssignments returns the per-desktop entries keyed "<screen>|<n>".
func (t *Table) DesktopAssignments() map[string]string {
	return t.export(func(k Key) bool { return k.Activity == "" && k.Desktop > 0 })
}

// ActivityAssignments returns the per-activity entries keyed
// "<screen>|<activity>".
func (t *Table) ActivityAssignments() map[string]string {
	return t.export(func(k Key) bool { return k.Activity != "" })
}

func (t *Table) export(keep func(Key) bool) map[string]string {
	out := map[string]string{}
	for k, v := range t.entries {
		if keep(k) {
			out[k.String()] = v
		}
	}
	return out
}

// SetScreenAssignments replaces every all-desktops entry.
func (t *Table) SetScreenAssignments(m map[string]string) error {
	next := make(map[Key]string, len(m))
	for screen, ref := range m {
		next[DesktopKey(screen, 0)] = ref
	}
	return t.replace(func(k Key) bool { return k.Activity == "" && k.Desktop == 0 }, next)
}

// SetDesktopAssignments replaces every per-desktop entry.
func (t *Table) SetDesktopAssignments(m map[string]string) error {
	next, err := parseKeyed(m, func(k Key) bool { return k.Activity == "" && k.Desktop > 0 })
	if err != nil {
		return err
	}
	return t.replace(func(k Key) bool { return k.Activity == "" && k.Desktop > 0 }, next)
}

// SetActivityAssignments replaces every per-activity entry.
func (t *Table) SetActivityAssignments(m map[string]string) error {
	next, err := parseKeyed(m, func(k Key) bool { return k.Activity != "" })
	if err != nil {
		return err
	}
	return t.replace(func(k Key) bool { return k.Activity != "" }, next)
}

func parseKeyed(m map[string]string, want func(Key) bool) (map[Key]string, error) {
	out := make(map[Key]string, len(m))
	for s, ref := range m {
		k, err := ParseKey(s)
		if err != nil {
			return nil, err
		}
		if !want(k) {
			return nil, fmt.Errorf("assignment key %q has the wrong kind", s)
		}
		out[k] = ref
	}
	return out, nil
}

// replace swaps the entries selected by class for next, all or nothing.
func (t *Table) replace(class func(Key) bool, next map[Key]string) error {
	canon := make(map[Key]string, len(next))
	for k, ref := range next {
		if ref == "" {
			continue
		}
		c, ok := config.CanonicalLayoutRef(ref)
		if !ok || k.Screen == "" {
			return fmt.Errorf("invalid assignment %s -> %q", k, ref)
		}
		canon[k] = c
	}
	maps.DeleteFunc(t.entries, func(k Key, _ string) bool { return class(k) })
	maps.Copy(t.entries, canon)
	t.dirty = true
	return nil
}

// QuickSlot returns the layout reference in slot n (1..9).
func (t *Table) QuickSlot(n int) string {
	if n < 1 || n > QuickSlots {
		return ""
	}
	return t.quick[n-1]
}

// SetQuickSlot stores ref in slot n. An empty ref clears the slot.
func (t *Table) SetQuickSlot(n int, ref string) (bool, error) {
	if n < 1 || n > QuickSlots {
		return false, fmt.Errorf("quick slot %d out of range 1..%d", n, QuickSlots)
	}
	canon, ok := config.CanonicalLayoutRef(ref)
	if !ok {
		return false, fmt.Errorf("invalid layout reference %q", ref)
	}
	if t.quick[n-1] == canon {
		return false, nil
	}
	t.quick[n-1] = canon
	t.dirty = true
	return true, nil
}

// QuickSlotMap returns the non-empty slots.
func (t *Table) QuickSlotMap() map[int]string {
	out := map[int]string{}
	for i, ref := range t.quick {
		if ref != "" {
			out[i+1] = ref
		}
	}
	return out
}

// SetQuickSlotMap replaces every slot; slots absent from m are cleared.
func (t *Table) SetQuickSlotMap(m map[int]string) error {
	var next [QuickSlots]string
	for n, ref := range m {
		if n < 1 || n > QuickSlots {
			return fmt.Errorf("quick slot %d out of range 1..%d", n, QuickSlots)
		}
		canon, ok := config.CanonicalLayoutRef(ref)
		if !ok {
			return fmt.Errorf("invalid layout reference %q", ref)
		}
		next[n-1] = canon
	}
	if next != t.quick {
		t.quick = next
		t.dirty = true
	}
	return nil
}

// Prune drops entries and quick slots whose layout no longer exists.
// Autotile sentinels are kept. It returns the removed keys.
func (t *Table) Prune(exists func(ref string) bool) []Key {
	var removed []Key
	for k, ref := range t.entries {
		if strings.HasPrefix(ref, config.AutotilePrefix) || exists(ref) {
			continue
		}
		delete(t.entries, k)
		removed = append(removed, k)
	}
	for i, ref := range t.quick {
		if ref != "" && !strings.HasPrefix(ref, config.AutotilePrefix) && !exists(ref) {
			t.quick[i] = ""
			t.dirty = true
		}
	}
	if len(removed) > 0 {
		t.dirty = true
	}
	slices.SortFunc(removed, func(a, b Key) int { return strings.Compare(a.String(), b.String()) })
	return removed
}

// Dirty reports whether the table changed since the last Save or Load.
func (t *Table) Dirty() bool { return t.dirty }

// fileFormat is the on-disk shape:
//
//	{"assignments": {"<screen>": {"default": id, "<n>": id, "<activity>": id}},
//	 "quickLayouts": {"1": id, ...}}
type fileFormat struct {
	Assignments  map[string]map[string]string `json:"assignments"`
	QuickLayouts map[string]string            `json:"quickLayouts"`
}

// MarshalJSON encodes the table in its file format.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.toFile())
}

func (t *Table) toFile() fileFormat {
	f := fileFormat{
		Assignments:  map[string]map[string]string{},
		QuickLayouts: map[string]string{},
	}
	for k, ref := range t.entries {
		m := f.Assignments[k.Screen]
		if m == nil {
			m = map[string]string{}
			f.Assignments[k.Screen] = m
		}
		m[k.context()] = ref
	}
	for n, ref := range t.QuickSlotMap() {
		f.QuickLayouts[strconv.Itoa(n)] = ref
	}
	return f
}

// Decode parses the file format. Invalid entries are skipped and reported.
func Decode(data []byte) (*Table, []string, error) {
	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("invalid assignments json: %w", err)
	}
	t := NewTable()
	var skipped []string
	for screen, ctxs := range f.Assignments {
		for ctx, ref := range ctxs {
			if _, err := t.Set(contextKey(screen, ctx), ref); err != nil {
				skipped = append(skipped, fmt.Sprintf("%s|%s: %v", screen, ctx, err))
			}
		}
	}
	for s, ref := range f.QuickLayouts {
		n, err := strconv.Atoi(s)
		if err == nil {
			_, err = t.SetQuickSlot(n, ref)
		}
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("quick slot %s: %v", s, err))
		}
	}
	slices.Sort(skipped)
	t.dirty = false
	return t, skipped, nil
}

// Load reads the table from path. A missing file yields an empty table.
func Load(path string) (*Table, []string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTable(), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Decode(data)
}

// Save writes the table atomically and clears the dirty flag.
func (t *Table) Save(path string) error {
	if err := atomicfile.WriteJSON(path, t.toFile()); err != nil {
		return fmt.Errorf("save assignments: %w", err)
	}
	t.dirty = false
	return nil
}

// Screens returns the distinct screens that have entries.
func (t *Table) Screens() []string {
	screens := lo.Uniq(lo.Map(lo.Keys(t.entries), func(k Key, _ int) string { return k.Screen }))
	slices.Sort(screens)
	return screens
}
