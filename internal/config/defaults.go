package config

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var loadDefaults = sync.OnceValues(func() (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(defaultsYAML, &s); err != nil {
		return Settings{}, fmt.Errorf("embedded defaults: %w", err)
	}
	return s, nil
})

// DefaultSettings returns the shipped defaults. The embedded file is the
// single source of default values.
func DefaultSettings() Settings {
	s, err := loadDefaults()
	if err != nil {
		panic(err)
	}
	return s.Clone()
}

// DefaultsYAML returns the shipped default file verbatim.
func DefaultsYAML() []byte {
	return slices.Clone(defaultsYAML)
}

// Clone returns a deep copy of s.
func (s Settings) Clone() Settings {
	out := s
	out.Display.DisabledMonitors = slices.Clone(s.Display.DisabledMonitors)
	out.Exclusions.Applications = slices.Clone(s.Exclusions.Applications)
	out.Exclusions.WindowClasses = slices.Clone(s.Exclusions.WindowClasses)
	return out
}
