// Package keyseq parses platform-style shortcut strings such as
// "Meta+Ctrl+Alt+Left" and renders them for the X11 key grabber.
package keyseq

import (
	"fmt"
	"strings"
)

// Modifier is a bit in a shortcut's modifier mask.
type Modifier uint8

const (
	Meta Modifier = 1 << iota
	Ctrl
	Alt
	Shift
)

// Sequence is a parsed shortcut. The zero value means "unbound".
type Sequence struct {
	Mods Modifier
	Key  string
}

var modifierNames = map[string]Modifier{
	"meta":    Meta,
	"super":   Meta,
	"win":     Meta,
	"ctrl":    Ctrl,
	"control": Ctrl,
	"alt":     Alt,
	"shift":   Shift,
}

// namedKeys maps accepted key names (lowercase) to their canonical spelling
// and X11 keysym.
var namedKeys = map[string][2]string{
	"left":      {"Left", "Left"},
	"right":     {"Right", "Right"},
	"up":        {"Up", "Up"},
	"down":      {"Down", "Down"},
	"return":    {"Return", "Return"},
	"enter":     {"Return", "Return"},
	"escape":    {"Escape", "Escape"},
	"esc":       {"Escape", "Escape"},
	"space":     {"Space", "space"},
	"tab":       {"Tab", "Tab"},
	"backspace": {"Backspace", "BackSpace"},
	"delete":    {"Delete", "Delete"},
	"del":       {"Delete", "Delete"},
	"insert":    {"Insert", "Insert"},
	"home":      {"Home", "Home"},
	"end":       {"End", "End"},
	"pgup":      {"PgUp", "Prior"},
	"pageup":    {"PgUp", "Prior"},
	"pgdown":    {"PgDown", "Next"},
	"pagedown":  {"PgDown", "Next"},
	"print":     {"Print", "Print"},
}

var punctuation = map[string]string{
	"[":  "bracketleft",
	"]":  "bracketright",
	".":  "period",
	",":  "comma",
	";":  "semicolon",
	"'":  "apostrophe",
	"/":  "slash",
	"\\": "backslash",
	"-":  "minus",
	"=":  "equal",
	"`":  "grave",
}

// Parse reads a shortcut string. An empty string parses to the unbound
// sequence.
func Parse(s string) (Sequence, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Sequence{}, nil
	}

	parts := strings.Split(s, "+")
	var seq Sequence
	for i, raw := range parts {
		part := strings.TrimSpace(raw)
		last := i == len(parts)-1
		if !last {
			mod, ok := modifierNames[strings.ToLower(part)]
			if !ok {
				return Sequence{}, fmt.Errorf("unknown modifier %q in %q", part, s)
			}
			if seq.Mods&mod != 0 {
				return Sequence{}, fmt.Errorf("duplicate modifier %q in %q", part, s)
			}
			seq.Mods |= mod
			continue
		}
		key, err := canonicalKey(part)
		if err != nil {
			return Sequence{}, fmt.Errorf("%w in %q", err, s)
		}
		seq.Key = key
	}
	return seq, nil
}

// Valid reports whether s parses.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

func canonicalKey(k string) (string, error) {
	if k == "" {
		return "", fmt.Errorf("missing key")
	}
	if named, ok := namedKeys[strings.ToLower(k)]; ok {
		return named[0], nil
	}
	if _, ok := punctuation[k]; ok {
		return k, nil
	}
	if len(k) == 1 {
		c := k[0]
		switch {
		case c >= 'a' && c <= 'z':
			return strings.ToUpper(k), nil
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return k, nil
		}
	}
	if n, ok := functionKey(k); ok {
		return fmt.Sprintf("F%d", n), nil
	}
	return "", fmt.Errorf("unknown key %q", k)
}

func functionKey(k string) (int, bool) {
	if len(k) < 2 || (k[0] != 'F' && k[0] != 'f') {
		return 0, false
	}
	n := 0
	for _, c := range k[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, n >= 1 && n <= 35
}

// Unbound reports whether the sequence has no key.
func (s Sequence) Unbound() bool { return s.Key == "" }

// String renders the canonical form, modifiers in Meta, Ctrl, Alt, Shift order.
func (s Sequence) String() string {
	if s.Unbound() {
		return ""
	}
	var parts []string
	if s.Mods&Meta != 0 {
		parts = append(parts, "Meta")
	}
	if s.Mods&Ctrl != 0 {
		parts = append(parts, "Ctrl")
	}
	if s.Mods&Alt != 0 {
		parts = append(parts, "Alt")
	}
	if s.Mods&Shift != 0 {
		parts = append(parts, "Shift")
	}
	return strings.Join(append(parts, s.Key), "+")
}

// XSequence renders the sequence in xgbutil keybind syntax, e.g.
// "Mod4-Mod1-t".
func (s Sequence) XSequence() string {
	if s.Unbound() {
		return ""
	}
	var parts []string
	if s.Mods&Meta != 0 {
		parts = append(parts, "Mod4")
	}
	if s.Mods&Ctrl != 0 {
		parts = append(parts, "Control")
	}
	if s.Mods&Alt != 0 {
		parts = append(parts, "Mod1")
	}
	if s.Mods&Shift != 0 {
		parts = append(parts, "Shift")
	}
	return strings.Join(append(parts, xKeysym(s.Key)), "-")
}

func xKeysym(key string) string {
	if sym, ok := punctuation[key]; ok {
		return sym
	}
	if named, ok := namedKeys[strings.ToLower(key)]; ok {
		return named[1]
	}
	if len(key) == 1 && key[0] >= 'A' && key[0] <= 'Z' {
		return strings.ToLower(key)
	}
	return key
}
