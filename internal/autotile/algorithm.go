// Package autotile arranges windows with pluggable tiling algorithms.
package autotile

import (
	"slices"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/geom"
)

// DefaultID is used for unknown algorithm ids.
const DefaultID = "master-stack"

// Params tune an arrangement.
type Params struct {
	MasterRatio float64
	MasterCount int
	InnerGap    int
	OuterGap    int
	// SmartGaps drops all gaps when only one window is tiled.
	SmartGaps bool
}

// Algorithm is the capability set of a tiling algorithm.
type Algorithm interface {
	ID() string
	Name() string
	Description() string
	// Arrange returns one rectangle per window, in window order.
	Arrange(windows []string, area geom.Rect, p Params) []geom.Rect
	FocusNext(focused string, windows []string) string
	FocusPrev(focused string, windows []string) string
	// Rotate returns the new window order.
	Rotate(windows []string, clockwise bool) []string
	// ToggleFloat reports whether w should float after the toggle, given
	// whether it floats now.
	ToggleFloat(w string, floating bool) bool
}

// base implements the order-based operations shared by every algorithm.
type base struct {
	id, name, desc string
}

func (b base) ID() string          { return b.id }
func (b base) Name() string        { return b.name }
func (b base) Description() string { return b.desc }

func (base) FocusNext(focused string, windows []string) string {
	return step(focused, windows, 1)
}

func (base) FocusPrev(focused string, windows []string) string {
	return step(focused, windows, -1)
}

func step(focused string, windows []string, delta int) string {
	if len(windows) == 0 {
		return ""
	}
	i := slices.Index(windows, focused)
	if i < 0 {
		return windows[0]
	}
	n := len(windows)
	return windows[((i+delta)%n+n)%n]
}

func (base) Rotate(windows []string, clockwise bool) []string {
	out := slices.Clone(windows)
	if len(out) < 2 {
		return out
	}
	if clockwise {
		last := out[len(out)-1]
		copy(out[1:], out[:len(out)-1])
		out[0] = last
	} else {
		first := out[0]
		copy(out, out[1:])
		out[len(out)-1] = first
	}
	return out
}

func (base) ToggleFloat(_ string, floating bool) bool { return !floating }

// Registry maps algorithm ids to implementations.
type Registry struct {
	algs  map[string]Algorithm
	order []string
	log   zerolog.Logger
}

// NewRegistry returns a registry holding the built-in algorithms.
func NewRegistry(log zerolog.Logger) *Registry {
	r := &Registry{
		algs: make(map[string]Algorithm),
		log:  log.With().Str("component", "autotile").Logger(),
	}
	for _, a := range builtins() {
		r.Register(a)
	}
	return r
}

// Register adds or replaces an algorithm.
func (r *Registry) Register(a Algorithm) {
	if _, ok := r.algs[a.ID()]; !ok {
		r.order = append(r.order, a.ID())
	}
	r.algs[a.ID()] = a
}

// Lookup returns the algorithm registered under id.
func (r *Registry) Lookup(id string) (Algorithm, bool) {
	a, ok := r.algs[id]
	return a, ok
}

// Get returns the algorithm for id, substituting master-stack with a
// warning when id is unknown.
func (r *Registry) Get(id string) Algorithm {
	if a, ok := r.algs[id]; ok {
		return a
	}
	r.log.Warn().Str("algorithm", id).Str("fallback", DefaultID).Msg("unknown tiling algorithm")
	return r.algs[DefaultID]
}

// Canonical returns id if registered, else the default id.
func (r *Registry) Canonical(id string) string {
	return r.Get(id).ID()
}

// List returns the algorithms in registration order.
func (r *Registry) List() []Algorithm {
	out := make([]Algorithm, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.algs[id])
	}
	return out
}
