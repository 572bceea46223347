package platform

import (
	"testing"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/screens"
)

func TestRuntimeIDAndHandle(t *testing.T) {
	id := RuntimeID("org.kde.konsole", "konsole", 4194311)
	if id != "org.kde.konsole:konsole:4194311" {
		t.Fatalf("RuntimeID = %q", id)
	}
	h, ok := Handle(id)
	if !ok || h != 4194311 {
		t.Fatalf("Handle = %d, %v", h, ok)
	}
	if got := RuntimeID("", "Firefox", 7); got != "firefox:Firefox:7" {
		t.Fatalf("RuntimeID without app id = %q", got)
	}
	for _, bad := range []string{"nohandle", "a:b:xyz", "a:b:"} {
		if _, ok := Handle(bad); ok {
			t.Errorf("Handle(%q) succeeded", bad)
		}
	}
}

func TestScreenFor(t *testing.T) {
	descs := []screens.Descriptor{
		{StableID: "left", Geometry: geom.Rect{Width: 1920, Height: 1080}},
		{StableID: "right", Geometry: geom.Rect{X: 1920, Width: 2560, Height: 1440}},
	}
	tests := []struct {
		name string
		r    geom.Rect
		want string
	}{
		{"inside left", geom.Rect{X: 100, Y: 100, Width: 400, Height: 300}, "left"},
		{"center on right", geom.Rect{X: 1800, Y: 0, Width: 800, Height: 600}, "right"},
		{"center off screen", geom.Rect{X: 1900, Y: 1200, Width: 200, Height: 400}, "right"},
		{"nowhere", geom.Rect{X: -5000, Y: -5000, Width: 10, Height: 10}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScreenFor(descs, tt.r); got != tt.want {
				t.Fatalf("ScreenFor(%v) = %q, want %q", tt.r, got, tt.want)
			}
		})
	}
}

func TestDesktopNumber(t *testing.T) {
	if d, sticky := DesktopNumber(0); d != 1 || sticky {
		t.Fatalf("DesktopNumber(0) = %d, %v", d, sticky)
	}
	if d, sticky := DesktopNumber(-1); d != 0 || !sticky {
		t.Fatalf("DesktopNumber(-1) = %d, %v", d, sticky)
	}
}
