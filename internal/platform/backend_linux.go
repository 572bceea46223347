//go:build linux

package platform

import (
	"context"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/screens"
	"github.com/plasmazones/plasmazones/internal/x11"
)

// LinuxBackend drives an EWMH window manager over an X11 connection.
type LinuxBackend struct {
	conn *x11.Connection
	log  zerolog.Logger

	mu      sync.Mutex
	screens []screens.Descriptor
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, log zerolog.Logger) *LinuxBackend {
	return &LinuxBackend{conn: conn, log: log.With().Str("component", "x11").Logger()}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay(log zerolog.Logger) (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn, log), nil
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	return b.conn.Root
}

// Close disconnects from the X server.
func (b *LinuxBackend) Close() error {
	b.conn.Close()
	return nil
}

func handleOf(id string) (xproto.Window, error) {
	h, ok := Handle(id)
	if !ok {
		return 0, fmt.Errorf("invalid window id %q", id)
	}
	return xproto.Window(h), nil
}

// MoveResize moves and resizes a window to the specified bounds.
func (b *LinuxBackend) MoveResize(id string, r geom.Rect) error {
	win, err := handleOf(id)
	if err != nil {
		return err
	}
	return b.conn.MoveResizeWindow(win, r)
}

// Activate focuses and raises a window.
func (b *LinuxBackend) Activate(id string) error {
	win, err := handleOf(id)
	if err != nil {
		return err
	}
	return b.conn.FocusWindow(win)
}

// Screens returns every connected output with its EDID-derived identity.
func (b *LinuxBackend) Screens() ([]screens.Descriptor, error) {
	outputs, err := b.conn.GetOutputs()
	if err != nil {
		return nil, err
	}
	descs := make([]screens.Descriptor, 0, len(outputs))
	for _, o := range outputs {
		descs = append(descs, screens.NewDescriptor(o.Name, o.EDID, o.Geometry, b.conn.WorkArea(o.Geometry), o.Primary))
	}

	b.mu.Lock()
	b.screens = descs
	b.mu.Unlock()
	return append([]screens.Descriptor(nil), descs...), nil
}

func (b *LinuxBackend) cachedScreens() []screens.Descriptor {
	b.mu.Lock()
	cached := b.screens
	b.mu.Unlock()
	if cached != nil {
		return cached
	}
	descs, err := b.Screens()
	if err != nil {
		b.log.Debug().Err(err).Msg("cannot query screens")
	}
	return descs
}

// Windows lists managed top-level windows whose class is known.
func (b *LinuxBackend) Windows() ([]Window, error) {
	clients, err := b.conn.GetClients()
	if err != nil {
		return nil, fmt.Errorf("failed to get client list: %w", err)
	}
	descs := b.cachedScreens()
	windows := make([]Window, 0, len(clients))
	for _, win := range clients {
		if w, ok := b.window(win, descs); ok && w.Ready() {
			windows = append(windows, w)
		}
	}
	return windows, nil
}

// window describes win; ok is false for docks, desktops and vanished windows.
func (b *LinuxBackend) window(win xproto.Window, descs []screens.Descriptor) (Window, bool) {
	if !b.conn.IsNormalWindow(win) {
		return Window{}, false
	}
	rect, ok := b.conn.GetWindowGeometry(win)
	if !ok {
		return Window{}, false
	}
	w := Window{
		AppID:     b.conn.GetDesktopFileName(win),
		Class:     b.conn.GetWindowClass(win),
		Title:     b.conn.GetWindowTitle(win),
		Transient: b.conn.IsTransient(win),
		Geometry:  rect,
		Screen:    ScreenFor(descs, rect),
	}
	if idx, err := b.conn.GetWindowDesktop(win); err == nil {
		w.Desktop, w.Sticky = DesktopNumber(idx)
	}
	w.ID = RuntimeID(w.AppID, w.Class, uint32(win))
	return w, true
}

// ActiveWindow returns the runtime id of the focused window, or "".
func (b *LinuxBackend) ActiveWindow() (string, error) {
	win, err := b.conn.GetActiveWindow()
	if err != nil || win == 0 {
		return "", err
	}
	w, ok := b.window(win, b.cachedScreens())
	if !ok {
		return "", nil
	}
	return w.ID, nil
}

// CurrentDesktop returns the 1-based current desktop.
func (b *LinuxBackend) CurrentDesktop() (int, error) {
	idx, err := b.conn.GetCurrentDesktop()
	if err != nil {
		return 0, err
	}
	return idx + 1, nil
}

// DesktopCount returns the number of virtual desktops.
func (b *LinuxBackend) DesktopCount() (int, error) {
	return b.conn.GetDesktopCount()
}

// Watch runs the X event loop until ctx is done, translating client list,
// desktop and RandR changes into notifications.
func (b *LinuxBackend) Watch(ctx context.Context, notify func(Notification)) error {
	w := &watcher{
		b:       b,
		notify:  notify,
		known:   make(map[xproto.Window]Window),
		waiting: make(map[xproto.Window]bool),
	}
	if err := b.conn.WatchRoot(w.hooks()); err != nil {
		return fmt.Errorf("failed to watch root window: %w", err)
	}
	w.syncClients(false)

	stop := context.AfterFunc(ctx, b.conn.Quit)
	defer stop()
	b.conn.EventLoop()
	return nil
}

// watcher is only touched from the X event loop goroutine.
type watcher struct {
	b       *LinuxBackend
	notify  func(Notification)
	known   map[xproto.Window]Window
	waiting map[xproto.Window]bool
}

func (w *watcher) hooks() x11.Hooks {
	return x11.Hooks{
		RootProperty:     w.rootProperty,
		WindowProperty:   w.windowProperty,
		WindowConfigured: w.changed,
		ScreensChanged:   w.screensChanged,
	}
}

func (w *watcher) rootProperty(name string) {
	conn := w.b.conn
	switch name {
	case "_NET_CLIENT_LIST":
		w.syncClients(true)
	case "_NET_ACTIVE_WINDOW":
		win, err := conn.GetActiveWindow()
		if err != nil {
			return
		}
		if known, ok := w.known[win]; ok {
			w.notify(Notification{Kind: WindowActivated, Window: known})
		}
	case "_NET_CURRENT_DESKTOP":
		if idx, err := conn.GetCurrentDesktop(); err == nil {
			w.notify(Notification{Kind: DesktopChanged, Desktop: idx + 1})
		}
	case "_NET_NUMBER_OF_DESKTOPS":
		if n, err := conn.GetDesktopCount(); err == nil {
			w.notify(Notification{Kind: DesktopCountChanged, Count: n})
		}
	case "_NET_WORKAREA":
		w.screensChanged()
	}
}

// syncClients diffs the client list against the known windows.
func (w *watcher) syncClients(announce bool) {
	clients, err := w.b.conn.GetClients()
	if err != nil {
		w.b.log.Debug().Err(err).Msg("cannot read client list")
		return
	}
	present := make(map[xproto.Window]bool, len(clients))
	for _, win := range clients {
		present[win] = true
		if _, ok := w.known[win]; ok || w.waiting[win] {
			continue
		}
		if err := w.b.conn.WatchWindow(win, w.hooks()); err != nil {
			continue
		}
		w.open(win, announce)
	}
	for win, known := range w.known {
		if present[win] {
			continue
		}
		w.b.conn.UnwatchWindow(win)
		delete(w.known, win)
		w.notify(Notification{Kind: WindowClosed, Window: known})
	}
	for win := range w.waiting {
		if !present[win] {
			w.b.conn.UnwatchWindow(win)
			delete(w.waiting, win)
		}
	}
}

// open announces win once its class is known. Windows mapped before
// WM_CLASS is set wait for the property to arrive.
func (w *watcher) open(win xproto.Window, announce bool) {
	desc, ok := w.b.window(win, w.b.cachedScreens())
	if !ok {
		return
	}
	if !desc.Ready() {
		w.waiting[win] = true
		return
	}
	delete(w.waiting, win)
	w.known[win] = desc
	if announce {
		w.notify(Notification{Kind: WindowOpened, Window: desc})
	}
}

func (w *watcher) windowProperty(win xproto.Window, name string) {
	switch name {
	case "WM_CLASS", "_KDE_NET_WM_DESKTOP_FILE":
		if w.waiting[win] {
			w.open(win, true)
		}
	case "_NET_WM_DESKTOP", "_NET_WM_STATE":
		w.changed(win)
	}
}

func (w *watcher) changed(win xproto.Window) {
	prev, ok := w.known[win]
	if !ok {
		return
	}
	cur, ok := w.b.window(win, w.b.cachedScreens())
	if !ok {
		return
	}
	// The runtime id is fixed when the window opens.
	cur.ID, cur.AppID, cur.Class = prev.ID, prev.AppID, prev.Class
	if cur.Geometry == prev.Geometry && cur.Screen == prev.Screen &&
		cur.Desktop == prev.Desktop && cur.Sticky == prev.Sticky {
		return
	}
	w.known[win] = cur
	w.notify(Notification{Kind: WindowChanged, Window: cur})
}

func (w *watcher) screensChanged() {
	if _, err := w.b.Screens(); err != nil {
		w.b.log.Warn().Err(err).Msg("cannot query screens")
	}
	w.notify(Notification{Kind: ScreensChanged})
}
