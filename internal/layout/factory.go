package layout

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/geom"
)

// Params sizes a template. Zero fields select the template's default.
type Params struct {
	Count   int
	Columns int
	Rows    int
}

// Constructor builds a layout from a template.
type Constructor func(name string, p Params) *Layout

// Factory dispatches template type strings to constructors.
type Factory struct {
	ctors map[string]Constructor
	order []string
	log   zerolog.Logger
}

// NewFactory returns a factory with the built-in templates registered.
func NewFactory(log zerolog.Logger) *Factory {
	f := &Factory{
		ctors: make(map[string]Constructor),
		log:   log.With().Str("component", "layout-factory").Logger(),
	}
	f.Register(TypeCustom.String(), func(name string, _ Params) *Layout { return New(name) })
	f.Register(TypeColumns.String(), Columns)
	f.Register(TypeRows.String(), Rows)
	f.Register(TypeGrid.String(), Grid)
	f.Register(TypePriorityGrid.String(), PriorityGrid)
	f.Register(TypeFocus.String(), Focus)
	return f
}

// Register adds or replaces the constructor for typeName.
func (f *Factory) Register(typeName string, c Constructor) {
	key := strings.ToLower(typeName)
	if _, ok := f.ctors[key]; !ok {
		f.order = append(f.order, key)
	}
	f.ctors[key] = c
}

// Types lists registered type strings in registration order.
func (f *Factory) Types() []string {
	return append([]string(nil), f.order...)
}

// Create builds a layout of the given type. Unknown types yield an empty
// custom layout and a warning.
func (f *Factory) Create(typeName, name string, p Params) *Layout {
	c, ok := f.ctors[strings.ToLower(strings.TrimSpace(typeName))]
	if !ok {
		f.log.Warn().Str("type", typeName).Msg("unknown layout type, creating empty custom layout")
		return New(name)
	}
	l := c(name, p)
	l.Normalize()
	return l
}

func orDefault(v, def, hi int) int {
	if v <= 0 {
		return def
	}
	return min(v, hi)
}

// Columns splits the screen into n equal vertical strips (default 2).
func Columns(name string, p Params) *Layout {
	n := orDefault(p.Count, 2, 12)
	l := New(nameOr(name, fmt.Sprintf("%d Columns", n)))
	l.Type = TypeColumns
	w := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		l.AddZone(geom.RelRect{X: float64(i) * w, Y: 0, Width: w, Height: 1})
	}
	return l
}

// Rows splits the screen into n equal horizontal strips (default 2).
func Rows(name string, p Params) *Layout {
	n := orDefault(p.Count, 2, 12)
	l := New(nameOr(name, fmt.Sprintf("%d Rows", n)))
	l.Type = TypeRows
	h := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		l.AddZone(geom.RelRect{X: 0, Y: float64(i) * h, Width: 1, Height: h})
	}
	return l
}

// Grid builds a cols x rows grid (default 2x2), numbered row-major.
func Grid(name string, p Params) *Layout {
	cols := orDefault(p.Columns, 2, 8)
	rows := orDefault(p.Rows, 2, 8)
	l := New(nameOr(name, fmt.Sprintf("%dx%d Grid", cols, rows)))
	l.Type = TypeGrid
	w, h := 1.0/float64(cols), 1.0/float64(rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			l.AddZone(geom.RelRect{X: float64(c) * w, Y: float64(r) * h, Width: w, Height: h})
		}
	}
	return l
}

// PriorityGrid gives the left two thirds to one primary zone and stacks
// Count (default 2) zones in the remaining column.
func PriorityGrid(name string, p Params) *Layout {
	n := orDefault(p.Count, 2, 6)
	l := New(nameOr(name, "Priority Grid"))
	l.Type = TypePriorityGrid
	const primary = 2.0 / 3
	l.AddZone(geom.RelRect{X: 0, Y: 0, Width: primary, Height: 1})
	h := 1.0 / float64(n)
	for i := 0; i < n; i++ {
		l.AddZone(geom.RelRect{X: primary, Y: float64(i) * h, Width: 1 - primary, Height: h})
	}
	return l
}

// Focus centers a wide primary zone between two narrow side zones.
func Focus(name string, _ Params) *Layout {
	l := New(nameOr(name, "Focus"))
	l.Type = TypeFocus
	l.AddZone(geom.RelRect{X: 0.2, Y: 0, Width: 0.6, Height: 1})
	l.AddZone(geom.RelRect{X: 0, Y: 0, Width: 0.2, Height: 1})
	l.AddZone(geom.RelRect{X: 0.8, Y: 0, Width: 0.2, Height: 1})
	return l
}

func nameOr(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
