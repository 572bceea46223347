// Package palette shows a launcher menu (rofi, fuzzel, wofi or dmenu) and
// returns the picked entry. The CLI uses it as a layout picker.
package palette

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrCancelled is returned when the user closes the menu without picking.
var ErrCancelled = errors.New("palette cancelled")

// Item is one selectable row.
type Item struct {
	Label string
	// ID is returned to the caller and never shown.
	ID     string
	Icon   string
	Meta   string // extra search keywords (rofi only)
	Active bool   // current entry, preselected and highlighted
}

// Backend shows a menu and returns the picked item.
type Backend interface {
	Show(prompt string, items []Item, message string) (Item, error)
	Name() string
}

// Names lists the supported launchers in detection order.
var Names = []string{"rofi", "fuzzel", "wofi", "dmenu"}

var lookPath = exec.LookPath

// Detect returns the first launcher found in PATH.
func Detect() (string, error) {
	for _, name := range Names {
		if _, err := lookPath(name); err == nil {
			return name, nil
		}
	}
	return "", fmt.Errorf("no launcher found in PATH (looked for: %s)", strings.Join(Names, ", "))
}

// NewBackend returns the named launcher. "" and "auto" detect one.
func NewBackend(name string) (Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "auto" {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		name = detected
	}
	l, ok := launchers[name]
	if !ok {
		return nil, fmt.Errorf("unknown launcher %q (expected: auto, %s)", name, strings.Join(Names, ", "))
	}
	if _, err := lookPath(l.command); err != nil {
		return nil, fmt.Errorf("launcher %q not found in PATH", name)
	}
	return l, nil
}
