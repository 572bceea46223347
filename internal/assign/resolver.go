package assign

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/layout"
)

// Source names the step of the resolution order that produced a layout.
type Source int

const (
	SourceNone Source = iota
	SourceActivity
	SourceDesktop
	SourceAllDesktops
	SourceDefault
	SourceImplicit
)

func (s Source) String() string {
	switch s {
	case SourceActivity:
		return "activity"
	case SourceDesktop:
		return "desktop"
	case SourceAllDesktops:
		return "all-desktops"
	case SourceDefault:
		return "default"
	case SourceImplicit:
		return "implicit"
	}
	return "none"
}

// Resolution is the full outcome of a lookup.
type Resolution struct {
	Layout *layout.Layout
	Source Source
	// Algorithm is set when an explicit assignment for the context names an
	// autotile algorithm. Layout still carries the zone layout that applies
	// to the context.
	Algorithm string
}

// DefaultLayoutFunc returns the configured default layout id.
type DefaultLayoutFunc func() string

// Resolver selects the layout for a (screen, desktop, activity) context.
type Resolver struct {
	table      *Table
	registry   *layout.Registry
	defaultRef DefaultLayoutFunc
	log        zerolog.Logger

	stale   map[string]bool
	onStale func()
}

// NewResolver builds a resolver over the table and registry.
func NewResolver(table *Table, registry *layout.Registry, defaultRef DefaultLayoutFunc, log zerolog.Logger) *Resolver {
	if defaultRef == nil {
		defaultRef = func() string { return "" }
	}
	return &Resolver{
		table:      table,
		registry:   registry,
		defaultRef: defaultRef,
		log:        log.With().Str("component", "resolver").Logger(),
		stale:      make(map[string]bool),
	}
}

// OnStale registers a callback run the first time each stale reference is
// seen, so that a cleanup pass can be scheduled.
func (r *Resolver) OnStale(fn func()) { r.onStale = fn }

// Table returns the assignment table.
func (r *Resolver) Table() *Table { return r.table }

// Resolve returns the layout for the context. It is nil only when the
// registry is empty.
func (r *Resolver) Resolve(screen string, desktop int, activity string) *layout.Layout {
	return r.Lookup(screen, desktop, activity).Layout
}

type step struct {
	key Key
	src Source
}

// Lookup walks the resolution order: activity, desktop, all desktops,
// configured default, implicit default. References to missing layouts are
// skipped and logged once.
func (r *Resolver) Lookup(screen string, desktop int, activity string) Resolution {
	var res Resolution

	steps := make([]step, 0, 3)
	if activity != "" {
		steps = append(steps, step{ActivityKey(screen, activity), SourceActivity})
	}
	if desktop > 0 {
		steps = append(steps, step{DesktopKey(screen, desktop), SourceDesktop})
	}
	steps = append(steps, step{DesktopKey(screen, 0), SourceAllDesktops})

	for _, st := range steps {
		ref, ok := r.table.Get(st.key)
		if !ok {
			continue
		}
		if alg, isAuto := strings.CutPrefix(ref, config.AutotilePrefix); isAuto {
			if res.Algorithm == "" {
				res.Algorithm = alg
			}
			continue
		}
		if l := r.registry.GetString(ref); l != nil {
			res.Layout, res.Source = l, st.src
			return res
		}
		r.reportStale(st.key.String(), ref)
	}

	if ref := r.defaultRef(); ref != "" && !strings.HasPrefix(ref, config.AutotilePrefix) {
		if l := r.registry.GetString(ref); l != nil {
			res.Layout, res.Source = l, SourceDefault
			return res
		}
		r.reportStale("default_layout_id", ref)
	}

	if l := r.registry.Implicit(); l != nil {
		res.Layout, res.Source = l, SourceImplicit
	}
	return res
}

// Explicit returns the layout reference stored for exactly this context
// without falling back.
func (r *Resolver) Explicit(k Key) (string, bool) {
	return r.table.Get(k)
}

func (r *Resolver) reportStale(where, ref string) {
	tag := where + "=" + ref
	if r.stale[tag] {
		return
	}
	r.stale[tag] = true
	r.log.Warn().Str("key", where).Str("layout", ref).Msg("assignment references a missing layout, ignoring")
	if r.onStale != nil {
		r.onStale()
	}
}

// ForgetStale clears the log-once memory, typically after a cleanup pass.
func (r *Resolver) ForgetStale() {
	clear(r.stale)
}
