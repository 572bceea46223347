package screens

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/geom"
)

// testEDID builds a minimal EDID base block for manufacturer "DEL".
func testEDID(model, serial string) []byte {
	b := make([]byte, 128)
	copy(b, edidHeader)
	// D=4, E=5, L=12
	pnp := uint16(4)<<10 | uint16(5)<<5 | uint16(12)
	b[8], b[9] = byte(pnp>>8), byte(pnp)
	b[10], b[11] = 0x34, 0x12
	b[12] = 7
	putDescriptor(b[54:72], 0xfc, model)
	putDescriptor(b[72:90], 0xff, serial)
	return b
}

func putDescriptor(d []byte, tag byte, text string) {
	d[3] = tag
	body := d[5:]
	for i := range body {
		body[i] = ' '
	}
	n := copy(body, text)
	if n < len(body) {
		body[n] = '\n'
	}
}

func TestParseEDID(t *testing.T) {
	e, err := ParseEDID(testEDID("U2720Q", "ABC123"))
	if err != nil {
		t.Fatalf("ParseEDID: %v", err)
	}
	if e.Manufacturer != "DEL" {
		t.Fatalf("Manufacturer = %q, want %q", e.Manufacturer, "DEL")
	}
	if e.ProductCode != 0x1234 || e.Serial != 7 {
		t.Fatalf("product=%#x serial=%d", e.ProductCode, e.Serial)
	}
	if e.Model != "U2720Q" || e.SerialNumber() != "ABC123" {
		t.Fatalf("model=%q serial=%q", e.Model, e.SerialNumber())
	}
}

func TestParseEDID_Rejects(t *testing.T) {
	short := []byte{0, 1, 2}
	bad := testEDID("x", "y")
	bad[0] = 1
	for _, raw := range [][]byte{short, bad} {
		if _, err := ParseEDID(raw); !errors.Is(err, ErrInvalidEDID) {
			t.Fatalf("ParseEDID err = %v, want ErrInvalidEDID", err)
		}
	}
}

func TestStableID(t *testing.T) {
	a := StableID("HDMI-1", testEDID("U2720Q", "ABC123"))
	b := StableID("DP-3", testEDID("U2720Q", "ABC123"))
	if a != b {
		t.Fatalf("same monitor on another connector: %q != %q", a, b)
	}
	if c := StableID("HDMI-1", testEDID("U2720Q", "XYZ999")); c == a {
		t.Fatal("different serials produced the same id")
	}
	if got := StableID("HDMI-1", nil); got != "HDMI-1" {
		t.Fatalf("StableID without EDID = %q, want connector name", got)
	}
	if got := StableID("HDMI-1", []byte("garbage")); got != "HDMI-1" {
		t.Fatalf("StableID with bad EDID = %q, want connector name", got)
	}
}

func TestSet_UpdateDiffsAndEmits(t *testing.T) {
	bus := events.NewBus()
	var rec events.Recorder
	bus.Subscribe(rec.Handle)
	set := NewSet(bus, zerolog.Nop())

	left := NewDescriptor("DP-1", testEDID("A", "1"), geom.Rect{Width: 1920, Height: 1080}, geom.Rect{}, true)
	right := NewDescriptor("DP-2", nil, geom.Rect{X: 1920, Width: 1920, Height: 1080}, geom.Rect{}, false)

	ch := set.Update([]Descriptor{left, right})
	if len(ch.Added) != 2 || rec.Count(events.ScreenAdded) != 2 {
		t.Fatalf("added=%d events=%d", len(ch.Added), rec.Count(events.ScreenAdded))
	}
	if left.AvailableGeometry != left.Geometry {
		t.Fatal("empty available geometry should default to geometry")
	}

	// Same monitor moved to another connector with a panel reserved.
	moved := NewDescriptor("HDMI-1", testEDID("A", "1"), geom.Rect{Width: 1920, Height: 1080}, geom.Rect{Width: 1920, Height: 1040}, true)
	rec.Reset()
	ch = set.Update([]Descriptor{moved})
	if len(ch.Added) != 0 || len(ch.Removed) != 1 || len(ch.Resized) != 1 {
		t.Fatalf("change = %+v", ch)
	}
	if ch.Removed[0].ConnectorName != "DP-2" {
		t.Fatalf("removed %q, want DP-2", ch.Removed[0].ConnectorName)
	}
	if rec.Count(events.ScreenRemoved) != 1 || rec.Count(events.ScreenAdded) != 0 {
		t.Fatalf("events = %+v", rec.Events)
	}
}

func TestSet_Lookup(t *testing.T) {
	set := NewSet(nil, zerolog.Nop())
	d := NewDescriptor("DP-1", testEDID("A", "1"), geom.Rect{Width: 100, Height: 100}, geom.Rect{}, false)
	other := NewDescriptor("DP-2", nil, geom.Rect{X: 100, Width: 100, Height: 100}, geom.Rect{}, false)
	set.Update([]Descriptor{d, other})

	if got, ok := set.Lookup("DP-1"); !ok || got.StableID != d.StableID {
		t.Fatalf("Lookup(connector) = %+v, %v", got, ok)
	}
	if got := set.StableIDFor(d.StableID); got != d.StableID {
		t.Fatalf("StableIDFor(stable) = %q", got)
	}
	if got := set.StableIDFor("gone"); got != "gone" {
		t.Fatalf("StableIDFor(unknown) = %q, want passthrough", got)
	}
	if p, ok := set.Primary(); !ok || p.ConnectorName != "DP-1" {
		t.Fatalf("Primary = %+v", p)
	}
	if s, ok := set.At(geom.Point{X: 150, Y: 50}); !ok || s.ConnectorName != "DP-2" {
		t.Fatalf("At = %+v", s)
	}
	if s, ok := set.At(geom.Point{X: 500, Y: 50}); !ok || s.ConnectorName != "DP-2" {
		t.Fatalf("At(outside) = %+v, want nearest", s)
	}
}
