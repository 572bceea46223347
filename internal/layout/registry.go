package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/plasmazones/plasmazones/internal/atomicfile"
	"github.com/plasmazones/plasmazones/internal/events"
)

var (
	ErrNotFound     = errors.New("layout not found")
	ErrSystemLayout = errors.New("system layouts cannot be deleted")
)

// Registry owns every known layout. It is not safe for concurrent use; the
// daemon loop is its only caller.
type Registry struct {
	factory    *Factory
	bus        *events.Bus
	log        zerolog.Logger
	userDir    string
	systemDirs []string

	layouts map[uuid.UUID]*Layout
	seq     int
}

// NewRegistry creates an empty registry. userDir receives new and edited
// layouts; systemDirs are read-only.
func NewRegistry(factory *Factory, userDir string, systemDirs []string, bus *events.Bus, log zerolog.Logger) *Registry {
	return &Registry{
		factory:    factory,
		bus:        bus,
		log:        log.With().Str("component", "layouts").Logger(),
		userDir:    userDir,
		systemDirs: systemDirs,
		layouts:    make(map[uuid.UUID]*Layout),
	}
}

// Load reads every layout file from the system directories and then the
// user directory. A user file with the same id as a system layout replaces
// it. Unreadable files are logged and skipped.
func (r *Registry) Load() {
	for i := len(r.systemDirs) - 1; i >= 0; i-- {
		r.loadDir(r.systemDirs[i])
	}
	if r.userDir != "" {
		r.loadDir(r.userDir)
	}
	r.log.Info().Int("count", len(r.layouts)).Msg("layouts loaded")
}

func (r *Registry) loadDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.log.Warn().Err(err).Str("dir", dir).Msg("cannot read layout directory")
		}
		return
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("cannot read layout")
			continue
		}
		l, fixes, err := Decode(data)
		if err != nil {
			r.log.Warn().Err(err).Str("path", path).Msg("skipping invalid layout")
			continue
		}
		for _, fix := range fixes {
			r.log.Warn().Str("path", path).Msg(fix)
		}
		if l.ID == uuid.Nil {
			l.ID = uuid.New()
		}
		l.SourcePath = path
		if old, ok := r.layouts[l.ID]; ok {
			l.seq = old.seq
		} else {
			r.seq++
			l.seq = r.seq
		}
		r.layouts[l.ID] = l
	}
}

// IsSystem reports whether l was loaded from a system directory.
func (r *Registry) IsSystem(l *Layout) bool {
	if l == nil || l.SourcePath == "" {
		return false
	}
	for _, dir := range r.systemDirs {
		if strings.HasPrefix(l.SourcePath, filepath.Clean(dir)+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// Len returns the number of layouts.
func (r *Registry) Len() int { return len(r.layouts) }

// Contains reports whether id names a known layout.
func (r *Registry) Contains(id uuid.UUID) bool {
	_, ok := r.layouts[id]
	return ok
}

// ContainsString is Contains for an id in any UUID spelling.
func (r *Registry) ContainsString(id string) bool {
	parsed, err := ParseID(id)
	return err == nil && r.Contains(parsed)
}

// Get returns a copy of the layout, or nil.
func (r *Registry) Get(id uuid.UUID) *Layout {
	return r.layouts[id].Clone()
}

// GetString is Get for an id in any UUID spelling.
func (r *Registry) GetString(id string) *Layout {
	parsed, err := ParseID(id)
	if err != nil {
		return nil
	}
	return r.Get(parsed)
}

// List returns copies of every layout ordered by default order, then
// creation order.
func (r *Registry) List() []*Layout {
	return r.ListWithFilter(nil)
}

// ListWithFilter is List restricted to layouts for which keep returns true.
func (r *Registry) ListWithFilter(keep func(*Layout) bool) []*Layout {
	out := make([]*Layout, 0, len(r.layouts))
	for _, l := range r.layouts {
		if keep == nil || keep(l) {
			out = append(out, l.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *Layout) int {
		if a.DefaultOrder != b.DefaultOrder {
			return a.DefaultOrder - b.DefaultOrder
		}
		return a.seq - b.seq
	})
	return out
}

// Visible is the filter for layouts shown to the user.
func Visible(l *Layout) bool { return !l.Hidden }

// Create builds a layout from a template, persists it and returns a copy.
func (r *Registry) Create(name, typeName string, p Params) (*Layout, error) {
	l := r.factory.Create(typeName, name, p)
	if err := r.add(l); err != nil {
		return nil, err
	}
	return l.Clone(), nil
}

// Add inserts l, assigning a fresh id if its id is nil or taken.
func (r *Registry) Add(l *Layout) (*Layout, error) {
	l = l.Clone()
	for _, fix := range l.Normalize() {
		r.log.Warn().Str("layout", l.Name).Msg(fix)
	}
	if err := r.add(l); err != nil {
		return nil, err
	}
	return l.Clone(), nil
}

func (r *Registry) add(l *Layout) error {
	if l.ID == uuid.Nil || r.Contains(l.ID) {
		l.ID = uuid.New()
	}
	if err := r.persist(l); err != nil {
		return err
	}
	r.seq++
	l.seq = r.seq
	r.layouts[l.ID] = l
	r.emit(events.LayoutAdded, l.ID)
	return nil
}

// Duplicate copies a layout under a new id with fresh zone ids.
func (r *Registry) Duplicate(id uuid.UUID) (*Layout, error) {
	src, ok := r.layouts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	dup := src.Clone()
	dup.ID = uuid.New()
	dup.Name = src.Name + " (Copy)"
	dup.SourcePath = ""
	for i := range dup.Zones {
		dup.Zones[i].ID = uuid.New()
	}
	if err := r.add(dup); err != nil {
		return nil, err
	}
	return dup.Clone(), nil
}

// Delete removes a user layout and its file.
func (r *Registry) Delete(id uuid.UUID) error {
	l, ok := r.layouts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if r.IsSystem(l) {
		return fmt.Errorf("%w: %s", ErrSystemLayout, l.Name)
	}
	if l.SourcePath != "" {
		if err := os.Remove(l.SourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove layout file: %w", err)
		}
	}
	delete(r.layouts, id)
	r.emit(events.LayoutRemoved, id)
	return nil
}

// ImportJSON adds a layout from its JSON form and returns its id. A
// missing or already used id is replaced.
func (r *Registry) ImportJSON(data []byte) (uuid.UUID, error) {
	l, fixes, err := Decode(data)
	if err != nil {
		return uuid.Nil, err
	}
	for _, fix := range fixes {
		r.log.Warn().Str("layout", l.Name).Msg(fix)
	}
	l.SourcePath = ""
	if err := r.add(l); err != nil {
		return uuid.Nil, err
	}
	return l.ID, nil
}

// ImportFile reads path and imports it.
func (r *Registry) ImportFile(path string) (uuid.UUID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return r.ImportJSON(data)
}

// ExportJSON returns the JSON form of a layout.
func (r *Registry) ExportJSON(id uuid.UUID) ([]byte, error) {
	l, ok := r.layouts[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return l.Encode()
}

// ExportFile writes a layout's JSON form to path.
func (r *Registry) ExportFile(id uuid.UUID, path string) error {
	data, err := r.ExportJSON(id)
	if err != nil {
		return err
	}
	return atomicfile.WriteFile(path, append(data, '\n'), 0o644)
}

// Update replaces an existing layout with its new JSON form. Editing a
// system layout stores the result as a user override.
func (r *Registry) Update(data []byte) error {
	l, fixes, err := Decode(data)
	if err != nil {
		return err
	}
	old, ok := r.layouts[l.ID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, l.ID)
	}
	for _, fix := range fixes {
		r.log.Warn().Str("layout", l.Name).Msg(fix)
	}
	l.SourcePath = old.SourcePath
	return r.replace(old, l)
}

// SetHidden toggles whether a layout appears in pickers and cycling.
func (r *Registry) SetHidden(id uuid.UUID, hidden bool) error {
	return r.modify(id, func(l *Layout) { l.Hidden = hidden })
}

// SetAutoAssign toggles whether new windows are auto-assigned in the layout.
func (r *Registry) SetAutoAssign(id uuid.UUID, on bool) error {
	return r.modify(id, func(l *Layout) { l.AutoAssign = on })
}

func (r *Registry) modify(id uuid.UUID, fn func(*Layout)) error {
	old, ok := r.layouts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	next := old.Clone()
	fn(next)
	return r.replace(old, next)
}

func (r *Registry) replace(old, next *Layout) error {
	next.seq = old.seq
	if r.IsSystem(old) {
		next.SourcePath = ""
	}
	if err := r.persist(next); err != nil {
		return err
	}
	r.layouts[next.ID] = next
	r.emit(events.LayoutModified, next.ID)
	return nil
}

// persist writes l into the user directory and records the path.
func (r *Registry) persist(l *Layout) error {
	if r.userDir == "" {
		return nil
	}
	if l.SourcePath == "" || r.IsSystem(l) {
		l.SourcePath = filepath.Join(r.userDir, l.ID.String()+".json")
	}
	data, err := l.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode layout %s: %w", l.Name, err)
	}
	if err := atomicfile.WriteFile(l.SourcePath, append(data, '\n'), 0o644); err != nil {
		r.log.Error().Err(err).Str("layout", l.Name).Msg("failed to save layout")
		return err
	}
	return nil
}

func (r *Registry) emit(kind events.Kind, id uuid.UUID) {
	r.bus.Emit(events.Event{Kind: kind, LayoutID: id.String()})
	r.bus.Emit(events.Event{Kind: events.LayoutListChanged})
}

// IDs returns every layout id in list order.
func (r *Registry) IDs() []uuid.UUID {
	return lo.Map(r.List(), func(l *Layout, _ int) uuid.UUID { return l.ID })
}

// Implicit returns the implicit default layout: smallest default order,
// ties broken by creation order. It returns nil when the registry is empty.
func (r *Registry) Implicit() *Layout {
	list := r.List()
	if len(list) == 0 {
		return nil
	}
	return list[0]
}
