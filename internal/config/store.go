package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/plasmazones/plasmazones/internal/atomicfile"
	"github.com/plasmazones/plasmazones/internal/events"
)

// Store owns the live settings. Reads are safe from any goroutine; writes
// are expected from the daemon loop.
type Store struct {
	path string
	bus  *events.Bus
	log  zerolog.Logger

	mu          sync.RWMutex
	settings    Settings
	doc         *yaml.Node
	lastWritten []byte
}

// NewStore creates a store holding the shipped defaults. Call Load to read
// path.
func NewStore(path string, bus *events.Bus, log zerolog.Logger) *Store {
	return &Store{
		path:     path,
		bus:      bus,
		log:      log.With().Str("component", "settings").Logger(),
		settings: DefaultSettings(),
	}
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Get returns a copy of the current settings.
func (s *Store) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

// DefaultLayoutID returns general.default_layout_id.
func (s *Store) DefaultLayoutID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.General.DefaultLayoutID
}

// Load reads the settings file. A missing file yields defaults silently; an
// unreadable or corrupted file yields defaults and one error line. Invalid
// individual values are replaced and logged as warnings.
func (s *Store) Load() {
	next := DefaultSettings()
	var doc *yaml.Node

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		s.log.Error().Err(err).Str("path", s.path).Msg("cannot read settings, using defaults")
	default:
		res, perr := Parse(data)
		if perr != nil {
			s.log.Error().Err(perr).Str("path", s.path).Msg("corrupted settings file, using defaults")
			break
		}
		for _, w := range res.Warnings {
			s.log.Warn().Str("path", s.path).Msg(w.Error())
		}
		next, doc = res.Settings, res.doc
	}

	s.mu.Lock()
	changed := !reflect.DeepEqual(s.settings, next)
	s.settings = next
	s.doc = doc
	s.mu.Unlock()

	if changed {
		s.bus.Emit(events.Event{Kind: events.SettingsChanged})
	}
}

// Save writes the settings atomically. On failure the in-memory state is
// untouched and the error is returned.
func (s *Store) Save() error {
	s.mu.RLock()
	data, err := render(s.settings, s.doc)
	s.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := atomicfile.WriteFile(s.path, data, 0o644); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to save settings")
		return fmt.Errorf("save settings: %w", err)
	}

	s.mu.Lock()
	s.lastWritten = data
	s.mu.Unlock()
	return nil
}

// Update applies fn to a copy of the settings, clamps the result and
// stores it. It emits one settings_changed notification and returns true
// only when a stored value actually changed.
func (s *Store) Update(fn func(*Settings)) bool {
	s.mu.Lock()
	next := s.settings.Clone()
	fn(&next)
	for _, w := range normalize(&next, DefaultSettings()) {
		s.log.Warn().Msg(w.Error())
	}
	changed := !reflect.DeepEqual(s.settings, next)
	if changed {
		s.settings = next
	}
	s.mu.Unlock()

	if changed {
		s.bus.Emit(events.Event{Kind: events.SettingsChanged})
	}
	return changed
}

// SetDefaultLayoutID sets general.default_layout_id.
func (s *Store) SetDefaultLayoutID(id string) bool {
	return s.Update(func(st *Settings) { st.General.DefaultLayoutID = id })
}

// SetTilingMode records the router mode together with its target.
func (s *Store) SetTilingMode(mode TilingMode, layoutID, algorithm string) bool {
	return s.Update(func(st *Settings) {
		st.ModeTracking.LastTilingMode = mode
		if layoutID != "" {
			st.ModeTracking.LastManualLayoutID = layoutID
		}
		if algorithm != "" {
			st.ModeTracking.LastAutotileAlgorithm = algorithm
		}
	})
}

// ownWrite reports whether data is exactly what this store last wrote.
func (s *Store) ownWrite(data []byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastWritten != nil && string(s.lastWritten) == string(data)
}
