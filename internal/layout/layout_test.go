package layout

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/geom"
)

func TestEncodeDecode_PreservesIdentityAndZones(t *testing.T) {
	l := Grid("Quad", Params{Columns: 2, Rows: 2})
	l.Description = "four zones"
	data, err := l.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, fixes, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(fixes) != 0 {
		t.Fatalf("unexpected repairs: %v", fixes)
	}
	if got.ID != l.ID || got.Name != "Quad" || got.Type != TypeGrid {
		t.Fatalf("got id=%s name=%q type=%s", got.ID, got.Name, got.Type)
	}
	if len(got.Zones) != 4 {
		t.Fatalf("expected 4 zones, got %d", len(got.Zones))
	}
	for i, z := range got.Zones {
		if z.ID != l.Zones[i].ID || z.Number != l.Zones[i].Number {
			t.Fatalf("zone %d changed: %+v vs %+v", i, z, l.Zones[i])
		}
	}
}

func TestDecode_UsesCamelCaseKeys(t *testing.T) {
	in := `{
  "id": "{6ba7b810-9dad-11d1-80b4-00c04fd430c8}",
  "name": "Halves",
  "type": "columns",
  "zonePadding": 4,
  "zones": [
    {"id": "6ba7b811-9dad-11d1-80b4-00c04fd430c8", "zoneNumber": 1, "relativeGeometry": {"x": 0, "y": 0, "width": 0.5, "height": 1}},
    {"id": "6ba7b812-9dad-11d1-80b4-00c04fd430c8", "zoneNumber": 2, "relativeGeometry": {"x": 0.5, "y": 0, "width": 0.5, "height": 1}}
  ]
}`
	l, fixes, err := Decode([]byte(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(fixes) != 0 {
		t.Fatalf("unexpected repairs: %v", fixes)
	}
	if l.ID.String() != "6ba7b810-9dad-11d1-80b4-00c04fd430c8" {
		t.Fatalf("braced id parsed as %s", l.ID)
	}
	if l.Padding(8) != 4 {
		t.Fatalf("Padding(8) = %d, want 4", l.Padding(8))
	}
	if z, ok := l.ZoneByNumber(2); !ok || z.Geometry.X != 0.5 {
		t.Fatalf("zone 2 = %+v, %v", z, ok)
	}
}

func TestDecode_MissingPaddingInheritsGlobal(t *testing.T) {
	l, _, err := Decode([]byte(`{"name":"x","zones":[]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if l.Padding(12) != 12 {
		t.Fatalf("Padding(12) = %d, want 12", l.Padding(12))
	}
}

func TestDecode_RejectsMalformedJSON(t *testing.T) {
	if _, _, err := Decode([]byte(`{"name":`)); err == nil {
		t.Fatal("expected error for truncated json")
	}
}

func TestNormalize_RepairsZones(t *testing.T) {
	dup := uuid.New()
	l := New("broken")
	l.Zones = []Zone{
		{ID: dup, Number: 1, Geometry: geom.RelRect{X: 0, Y: 0, Width: 0.5, Height: 1}},
		{ID: dup, Number: 1, Geometry: geom.RelRect{X: 0.7, Y: 0, Width: 0.6, Height: 1}},
		{Number: 0, Geometry: geom.RelRect{X: 0, Y: 0, Width: 0, Height: 0.5}},
	}
	fixes := l.Normalize()
	if len(fixes) == 0 {
		t.Fatal("expected repairs")
	}

	ids := map[uuid.UUID]bool{}
	nums := map[int]bool{}
	for _, z := range l.Zones {
		if z.ID == uuid.Nil || ids[z.ID] {
			t.Fatalf("zone id %s not unique", z.ID)
		}
		ids[z.ID] = true
		if z.Number <= 0 || nums[z.Number] {
			t.Fatalf("zone number %d not unique", z.Number)
		}
		nums[z.Number] = true
		if !z.Geometry.Valid() {
			t.Fatalf("zone geometry %+v not valid", z.Geometry)
		}
	}
	if l.Zones[0].ID != dup || l.Zones[0].Number != 1 {
		t.Fatalf("first zone should keep its id and number, got %+v", l.Zones[0])
	}
}

func TestSameID(t *testing.T) {
	id := uuid.New().String()
	tests := []struct {
		a, b string
		want bool
	}{
		{id, "{" + id + "}", true},
		{id, strings.ToUpper(id), true},
		{id, uuid.New().String(), false},
		{"autotile:bsp", "autotile:bsp", true},
		{"", id, false},
	}
	for _, tt := range tests {
		if got := SameID(tt.a, tt.b); got != tt.want {
			t.Errorf("SameID(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestClone_IsDeep(t *testing.T) {
	l := Columns("c", Params{Count: 2})
	l.Zones[0].Appearance = &ZoneAppearance{HighlightColor: "#ff0000"}
	c := l.Clone()
	c.Zones[0].Number = 9
	c.Zones[0].Appearance.HighlightColor = "#00ff00"
	if l.Zones[0].Number == 9 || l.Zones[0].Appearance.HighlightColor != "#ff0000" {
		t.Fatal("Clone shares zone storage")
	}
}

func TestFactory_Templates(t *testing.T) {
	f := NewFactory(zerolog.Nop())
	tests := []struct {
		typ   string
		p     Params
		zones int
	}{
		{"columns", Params{Count: 3}, 3},
		{"columns", Params{}, 2},
		{"rows", Params{Count: 4}, 4},
		{"grid", Params{Columns: 3, Rows: 2}, 6},
		{"grid", Params{}, 4},
		{"priority-grid", Params{}, 3},
		{"focus", Params{}, 3},
		{"custom", Params{}, 0},
	}
	for _, tt := range tests {
		l := f.Create(tt.typ, "t", tt.p)
		if len(l.Zones) != tt.zones {
			t.Errorf("Create(%q, %+v) zones = %d, want %d", tt.typ, tt.p, len(l.Zones), tt.zones)
			continue
		}
		var area float64
		for _, z := range l.Zones {
			if !z.Geometry.Valid() {
				t.Errorf("Create(%q) zone %d geometry %+v invalid", tt.typ, z.Number, z.Geometry)
			}
			area += z.Geometry.Width * z.Geometry.Height
		}
		if tt.zones > 0 && (area < 0.999 || area > 1.001) {
			t.Errorf("Create(%q) zones cover %.4f of the screen, want 1", tt.typ, area)
		}
	}
}

func TestFactory_UnknownTypeYieldsEmptyCustom(t *testing.T) {
	f := NewFactory(zerolog.Nop())
	l := f.Create("hexagonal", "odd", Params{Count: 5})
	if l == nil || l.Type != TypeCustom || len(l.Zones) != 0 {
		t.Fatalf("Create(unknown) = %+v", l)
	}
	if l.Name != "odd" {
		t.Fatalf("name = %q, want %q", l.Name, "odd")
	}
}

func TestFocus_CenterIsZoneOne(t *testing.T) {
	l := Focus("f", Params{})
	z, ok := l.ZoneByNumber(1)
	if !ok {
		t.Fatal("no zone 1")
	}
	if z.Geometry.X != 0.2 || z.Geometry.Width != 0.6 {
		t.Fatalf("zone 1 geometry = %+v, want centered 0.6 strip", z.Geometry)
	}
}
