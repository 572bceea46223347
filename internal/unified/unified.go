// Package unified presents manual layouts and autotile algorithms as one
// ordered list that shortcuts and the zone selector cycle through.
package unified

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/plasmazones/plasmazones/internal/assign"
	"github.com/plasmazones/plasmazones/internal/autotile"
	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/layout"
)

var (
	ErrEmpty      = errors.New("no layouts available")
	ErrOutOfRange = errors.New("layout index out of range")
	ErrUnknown    = errors.New("unknown layout")
)

// Entry is one item of the unified list.
type Entry struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	IsAutotile  bool           `json:"isAutotile"`
	ZoneCount   int            `json:"zoneCount"`
	Zones       []geom.RelRect `json:"zones,omitempty"`
}

// Context is the screen, desktop and activity a layout is applied to.
type Context struct {
	Screen   string `json:"screen"`
	Desktop  int    `json:"desktop"`
	Activity string `json:"activity,omitempty"`
}

func (c Context) key() assign.Key {
	if c.Activity != "" {
		return assign.ActivityKey(c.Screen, c.Activity)
	}
	return assign.DesktopKey(c.Screen, c.Desktop)
}

// Applied describes a completed application.
type Applied struct {
	Context   Context
	Entry     Entry
	Layout    *layout.Layout
	Algorithm string
	// Changed is false when the context already used this entry.
	Changed bool
}

// Controller owns the cached list and applies entries. It is used from the
// daemon loop only.
type Controller struct {
	layouts  *layout.Registry
	algs     *autotile.Registry
	resolver *assign.Resolver
	store    *config.Store
	bus      *events.Bus
	log      zerolog.Logger

	cache   []Entry
	valid   bool
	active  string
	onApply []func(Applied)
}

// NewController creates a controller and subscribes it to the notifications
// that reorder the list.
func NewController(layouts *layout.Registry, algs *autotile.Registry, resolver *assign.Resolver, store *config.Store, bus *events.Bus, log zerolog.Logger) *Controller {
	c := &Controller{
		layouts:  layouts,
		algs:     algs,
		resolver: resolver,
		store:    store,
		bus:      bus,
		log:      log.With().Str("component", "unified").Logger(),
	}
	if bus != nil {
		bus.Subscribe(func(ev events.Event) {
			switch ev.Kind {
			case events.LayoutListChanged, events.LayoutAdded, events.LayoutRemoved,
				events.LayoutModified, events.SettingsChanged:
				c.Invalidate()
			}
		})
	}
	return c
}

// OnApply registers fn to run after every successful application.
func (c *Controller) OnApply(fn func(Applied)) { c.onApply = append(c.onApply, fn) }

// Invalidate drops the cached list.
func (c *Controller) Invalidate() { c.valid = false }

// ActiveID returns the global active entry id.
func (c *Controller) ActiveID() string { return c.active }

// SetActiveID sets the global active entry without touching assignments.
func (c *Controller) SetActiveID(id string) { c.active = id }

// List returns the entries: visible manual layouts, then algorithms in
// registration order.
func (c *Controller) List() []Entry {
	if !c.valid {
		c.cache = c.build()
		c.valid = true
	}
	return slices.Clone(c.cache)
}

func (c *Controller) build() []Entry {
	manual := c.layouts.ListWithFilter(layout.Visible)
	if c.store != nil && strings.EqualFold(c.store.Get().ZoneSelector.LayoutSort, "name") {
		slices.SortStableFunc(manual, func(a, b *layout.Layout) int {
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	}
	out := lo.Map(manual, func(l *layout.Layout, _ int) Entry { return layoutEntry(l) })
	for _, a := range c.algs.List() {
		out = append(out, Entry{
			ID:          config.AutotilePrefix + a.ID(),
			Name:        a.Name(),
			Description: a.Description(),
			IsAutotile:  true,
		})
	}
	return out
}

func layoutEntry(l *layout.Layout) Entry {
	return Entry{
		ID:          l.ID.String(),
		Name:        l.Name,
		Description: l.Description,
		ZoneCount:   len(l.Zones),
		Zones:       lo.Map(l.Zones, func(z layout.Zone, _ int) geom.RelRect { return z.Geometry }),
	}
}

// Current returns the id of the entry in effect for ctx.
func (c *Controller) Current(ctx Context) string {
	res := c.resolver.Lookup(ctx.Screen, ctx.Desktop, ctx.Activity)
	if res.Algorithm != "" {
		return config.AutotilePrefix + c.algs.Canonical(res.Algorithm)
	}
	if res.Layout != nil {
		return res.Layout.ID.String()
	}
	return ""
}

func (c *Controller) indexOf(list []Entry, id string) int {
	return slices.IndexFunc(list, func(e Entry) bool {
		if e.IsAutotile {
			return e.ID == id
		}
		return layout.SameID(e.ID, id)
	})
}

// ApplyByNumber applies the n-th entry, 1-based.
func (c *Controller) ApplyByNumber(ctx Context, n int) (Applied, error) {
	return c.ApplyByIndex(ctx, n-1)
}

// ApplyByIndex applies the entry at index i.
func (c *Controller) ApplyByIndex(ctx Context, i int) (Applied, error) {
	list := c.List()
	if len(list) == 0 {
		return Applied{}, ErrEmpty
	}
	if i < 0 || i >= len(list) {
		return Applied{}, fmt.Errorf("%w: %d of %d", ErrOutOfRange, i+1, len(list))
	}
	return c.ApplyByID(ctx, list[i].ID)
}

// Cycle applies the entry after (or before) the current one, wrapping.
func (c *Controller) Cycle(ctx Context, forward bool) (Applied, error) {
	list := c.List()
	if len(list) == 0 {
		return Applied{}, ErrEmpty
	}
	i := c.indexOf(list, c.Current(ctx))
	switch {
	case i < 0 && forward:
		i = 0
	case i < 0:
		i = len(list) - 1
	case forward:
		i = (i + 1) % len(list)
	default:
		i = (i - 1 + len(list)) % len(list)
	}
	return c.ApplyByID(ctx, list[i].ID)
}

// ApplyByID applies a layout UUID or an "autotile:<algorithm>" id to ctx.
// The assignment table entry for the context and the global active entry
// are updated together.
func (c *Controller) ApplyByID(ctx Context, id string) (Applied, error) {
	if ctx.Screen == "" {
		return Applied{}, errors.New("no screen given")
	}
	if alg, ok := strings.CutPrefix(strings.TrimSpace(id), config.AutotilePrefix); ok {
		return c.applyAutotile(ctx, alg)
	}
	l := c.layouts.GetString(id)
	if l == nil {
		return Applied{}, fmt.Errorf("%w: %s", ErrUnknown, id)
	}

	changed, err := c.resolver.Table().Set(ctx.key(), l.ID.String())
	if err != nil {
		return Applied{}, err
	}
	out := Applied{Context: ctx, Entry: layoutEntry(l), Layout: l, Changed: changed || c.active != l.ID.String()}
	c.active = l.ID.String()
	c.finish(out, l.ID.String())
	return out, nil
}

func (c *Controller) applyAutotile(ctx Context, alg string) (Applied, error) {
	a := c.algs.Get(alg)
	ref := config.AutotilePrefix + a.ID()
	changed, err := c.resolver.Table().Set(ctx.key(), ref)
	if err != nil {
		return Applied{}, err
	}
	out := Applied{
		Context:   ctx,
		Entry:     Entry{ID: ref, Name: a.Name(), Description: a.Description(), IsAutotile: true},
		Algorithm: a.ID(),
		Changed:   changed || c.active != ref,
	}
	c.active = ref
	c.finish(out, ref)
	return out, nil
}

func (c *Controller) finish(out Applied, ref string) {
	c.log.Info().Str("screen", out.Context.Screen).Int("desktop", out.Context.Desktop).
		Str("layout", ref).Bool("changed", out.Changed).Msg("layout applied")
	if out.Changed {
		c.bus.Emit(events.Event{Kind: events.ScreenLayoutChanged, ScreenID: out.Context.Screen, LayoutID: ref})
		c.bus.Emit(events.Event{Kind: events.LayoutChanged, LayoutID: ref})
	}
	for _, fn := range c.onApply {
		fn(out)
	}
}
