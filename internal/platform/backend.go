// Package platform abstracts the windowing-system client the daemon drives.
package platform

import (
	"context"
	"strconv"
	"strings"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/screens"
)

// Window contains metadata and geometry for a top-level window.
type Window struct {
	// ID is the runtime id "<app-id>:<class>:<handle>".
	ID    string `json:"id"`
	AppID string `json:"appId"`
	Class string `json:"class"`
	Title string `json:"title,omitempty"`
	// Screen is the stable id of the screen holding the window's center.
	Screen string `json:"screen"`
	// Desktop is 1-based; 0 when the window is on every desktop.
	Desktop   int       `json:"desktop"`
	Sticky    bool      `json:"sticky,omitempty"`
	Transient bool      `json:"transient,omitempty"`
	Geometry  geom.Rect `json:"geometry"`
}

// Ready reports whether the window's class is known. Windows are sometimes
// reported before their properties are set.
func (w Window) Ready() bool { return w.Class != "" }

// RuntimeID builds a runtime id from its parts.
func RuntimeID(appID, class string, handle uint32) string {
	if appID == "" {
		appID = strings.ToLower(class)
	}
	return appID + ":" + class + ":" + strconv.FormatUint(uint64(handle), 10)
}

// Handle extracts the numeric window handle from a runtime id.
func Handle(runtimeID string) (uint32, bool) {
	i := strings.LastIndexByte(runtimeID, ':')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(runtimeID[i+1:], 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// Commander issues geometry and focus commands.
type Commander interface {
	MoveResize(id string, r geom.Rect) error
	Activate(id string) error
}

// NotificationKind tags a window-system notification.
type NotificationKind int

const (
	WindowOpened NotificationKind = iota
	WindowReady
	WindowClosed
	// WindowChanged reports new geometry, screen or desktop.
	WindowChanged
	WindowActivated
	DesktopChanged
	DesktopCountChanged
	ScreensChanged
)

// Notification is one change reported by Watch.
type Notification struct {
	Kind    NotificationKind
	Window  Window
	Desktop int
	Count   int
}

// Backend abstracts window-system operations.
type Backend interface {
	Commander
	Screens() ([]screens.Descriptor, error)
	Windows() ([]Window, error)
	ActiveWindow() (string, error)
	// CurrentDesktop is 1-based.
	CurrentDesktop() (int, error)
	DesktopCount() (int, error)
	// Watch reports changes until ctx is done.
	Watch(ctx context.Context, notify func(Notification)) error
	Close() error
}
