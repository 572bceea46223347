// Package layout defines zones and layouts and the registry that owns them.
package layout

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/plasmazones/plasmazones/internal/geom"
)

// Type tags how a layout was produced.
type Type int

const (
	TypeCustom Type = iota
	TypeGrid
	TypeColumns
	TypeRows
	TypePriorityGrid
	TypeFocus
)

var typeNames = []string{"custom", "grid", "columns", "rows", "priority-grid", "focus"}

func (t Type) String() string {
	if int(t) < 0 || int(t) >= len(typeNames) {
		return "custom"
	}
	return typeNames[t]
}

// ParseType maps a type string to a Type. Unknown strings report false.
func ParseType(s string) (Type, bool) {
	i := slices.Index(typeNames, strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return TypeCustom, false
	}
	return Type(i), true
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(b []byte) error {
	// Unknown types degrade to custom rather than failing the whole layout.
	*t, _ = ParseType(string(b))
	return nil
}

// ZoneAppearance overrides the global zone colors for one zone.
type ZoneAppearance struct {
	HighlightColor  string  `json:"highlightColor,omitempty"`
	InactiveColor   string  `json:"inactiveColor,omitempty"`
	BorderColor     string  `json:"borderColor,omitempty"`
	ActiveOpacity   float64 `json:"activeOpacity,omitempty"`
	InactiveOpacity float64 `json:"inactiveOpacity,omitempty"`
	BorderWidth     int     `json:"borderWidth,omitempty"`
	BorderRadius    int     `json:"borderRadius,omitempty"`
}

// Zone is one snap target of a layout.
type Zone struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name,omitempty"`
	Number          int             `json:"zoneNumber"`
	Geometry        geom.RelRect    `json:"relativeGeometry"`
	UseCustomColors bool            `json:"useCustomColors,omitempty"`
	Appearance      *ZoneAppearance `json:"appearance,omitempty"`
}

// Layout is a named, ordered set of zones.
type Layout struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Type            Type            `json:"type"`
	Description     string          `json:"description,omitempty"`
	Author          string          `json:"author,omitempty"`
	Zones           []Zone          `json:"zones"`
	ZonePadding     int             `json:"zonePadding"`
	ShowZoneNumbers bool            `json:"showZoneNumbers"`
	SourcePath      string          `json:"sourcePath,omitempty"`
	DefaultOrder    int             `json:"defaultOrder"`
	ShaderID        string          `json:"shaderId,omitempty"`
	ShaderParams    json.RawMessage `json:"shaderParams,omitempty"`
	Hidden          bool            `json:"hidden,omitempty"`
	AutoAssign      bool            `json:"autoAssign,omitempty"`

	seq int
}

// InheritPadding in ZonePadding means "use the global zones.padding".
const InheritPadding = -1

// New returns an empty custom layout with a fresh id.
func New(name string) *Layout {
	return &Layout{
		ID:              uuid.New(),
		Name:            name,
		Type:            TypeCustom,
		Zones:           []Zone{},
		ZonePadding:     InheritPadding,
		ShowZoneNumbers: true,
		DefaultOrder:    100,
	}
}

// AddZone appends a zone with the next free number and returns it.
func (l *Layout) AddZone(r geom.RelRect) Zone {
	z := Zone{ID: uuid.New(), Number: l.nextNumber(), Geometry: r}
	l.Zones = append(l.Zones, z)
	return z
}

func (l *Layout) nextNumber() int {
	n := 0
	for _, z := range l.Zones {
		n = max(n, z.Number)
	}
	return n + 1
}

// Zone returns the zone with the given id.
func (l *Layout) Zone(id uuid.UUID) (Zone, bool) {
	for _, z := range l.Zones {
		if z.ID == id {
			return z, true
		}
	}
	return Zone{}, false
}

// ZoneByNumber returns the zone whose number is n.
func (l *Layout) ZoneByNumber(n int) (Zone, bool) {
	for _, z := range l.Zones {
		if z.Number == n {
			return z, true
		}
	}
	return Zone{}, false
}

// Padding resolves the layout's zone padding against the global value.
func (l *Layout) Padding(global int) int {
	if l.ZonePadding < 0 {
		return global
	}
	return l.ZonePadding
}

// Clone returns a deep copy.
func (l *Layout) Clone() *Layout {
	if l == nil {
		return nil
	}
	out := *l
	out.Zones = make([]Zone, len(l.Zones))
	for i, z := range l.Zones {
		if z.Appearance != nil {
			a := *z.Appearance
			z.Appearance = &a
		}
		out.Zones[i] = z
	}
	out.ShaderParams = slices.Clone(l.ShaderParams)
	return &out
}

// Normalize enforces the zone invariants: geometry inside the unit square
// with positive size, unique ids, and unique non-zero zone numbers. It
// returns a description of every repair.
func (l *Layout) Normalize() []string {
	var fixes []string
	if l.Zones == nil {
		l.Zones = []Zone{}
	}
	seenIDs := make(map[uuid.UUID]bool, len(l.Zones))
	seenNums := make(map[int]bool, len(l.Zones))
	var renumber []int

	for i := range l.Zones {
		z := &l.Zones[i]
		if z.ID == uuid.Nil || seenIDs[z.ID] {
			z.ID = uuid.New()
			fixes = append(fixes, fmt.Sprintf("zone %d: assigned new id", i))
		}
		seenIDs[z.ID] = true

		if g, changed := z.Geometry.Clamp(); changed {
			fixes = append(fixes, fmt.Sprintf("zone %d: geometry clamped into unit square", i))
			z.Geometry = g
		}

		switch {
		case z.Number < 0:
			z.Number = 0
			renumber = append(renumber, i)
		case z.Number == 0:
			renumber = append(renumber, i)
		case seenNums[z.Number]:
			fixes = append(fixes, fmt.Sprintf("zone %d: duplicate number %d", i, z.Number))
			renumber = append(renumber, i)
		default:
			seenNums[z.Number] = true
		}
	}

	next := 1
	for _, i := range renumber {
		for seenNums[next] {
			next++
		}
		l.Zones[i].Number = next
		seenNums[next] = true
	}
	return fixes
}

// Decode parses a layout from JSON and normalizes it.
func Decode(data []byte) (*Layout, []string, error) {
	l := &Layout{ZonePadding: InheritPadding}
	if err := json.Unmarshal(data, l); err != nil {
		return nil, nil, fmt.Errorf("invalid layout json: %w", err)
	}
	if strings.TrimSpace(l.Name) == "" {
		l.Name = "Untitled"
	}
	return l, l.Normalize(), nil
}

// Encode serializes l as indented JSON.
func (l *Layout) Encode() ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// ParseID parses a layout id in any accepted UUID spelling.
func ParseID(s string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(s))
}

// SameID compares two layout id strings by parsed UUID value, so that
// braced and bare spellings are equal. Non-UUID strings compare verbatim.
func SameID(a, b string) bool {
	ia, errA := ParseID(a)
	ib, errB := ParseID(b)
	if errA == nil && errB == nil {
		return ia == ib
	}
	return strings.TrimSpace(a) == strings.TrimSpace(b)
}
