package config

import "reflect"

// Shortcuts maps every bound action, named by its settings key, to its key
// sequence. Unbound actions are omitted.
func (s Settings) Shortcuts() map[string]string {
	out := make(map[string]string)
	for _, section := range []any{s.GlobalShortcuts, s.NavigationShortcuts, s.AutotileShortcuts} {
		v := reflect.ValueOf(section)
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			key := t.Field(i).Tag.Get("yaml")
			if seq := v.Field(i).String(); key != "" && seq != "" {
				out[key] = seq
			}
		}
	}
	return out
}
