package x11

import (
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// Hooks are invoked from the event loop goroutine.
type Hooks struct {
	// RootProperty fires when a root window property such as
	// _NET_CLIENT_LIST or _NET_CURRENT_DESKTOP changes.
	RootProperty func(name string)
	// WindowProperty fires when a property of a watched client changes.
	WindowProperty func(win xproto.Window, name string)
	// WindowConfigured fires when a watched client moves or resizes.
	WindowConfigured func(win xproto.Window)
	// ScreensChanged fires on RandR changes and root resizes.
	ScreensChanged func()
}

// WatchRoot subscribes to root window property and structure changes.
func (c *Connection) WatchRoot(h Hooks) error {
	root := xwindow.New(c.XUtil, c.Root)
	if err := root.Listen(xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		return err
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if name, err := xprop.AtomName(xu, ev.Atom); err == nil && h.RootProperty != nil {
			h.RootProperty(name)
		}
	}).Connect(c.XUtil, c.Root)

	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if h.ScreensChanged != nil {
			h.ScreensChanged()
		}
	}).Connect(c.XUtil, c.Root)

	if err := c.InitRandR(); err == nil {
		xevent.HookFun(func(xu *xgbutil.XUtil, event interface{}) bool {
			switch event.(type) {
			case randr.ScreenChangeNotifyEvent, randr.NotifyEvent:
				if h.ScreensChanged != nil {
					h.ScreensChanged()
				}
			}
			return true
		}).Connect(c.XUtil)
	}
	return nil
}

// WatchWindow subscribes to property and geometry changes of a client.
func (c *Connection) WatchWindow(win xproto.Window, h Hooks) error {
	w := xwindow.New(c.XUtil, win)
	if err := w.Listen(xproto.EventMaskPropertyChange, xproto.EventMaskStructureNotify); err != nil {
		return err
	}
	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		if name, err := xprop.AtomName(xu, ev.Atom); err == nil && h.WindowProperty != nil {
			h.WindowProperty(win, name)
		}
	}).Connect(c.XUtil, win)
	xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
		if h.WindowConfigured != nil {
			h.WindowConfigured(win)
		}
	}).Connect(c.XUtil, win)
	return nil
}

// UnwatchWindow drops every callback registered for win.
func (c *Connection) UnwatchWindow(win xproto.Window) {
	xevent.Detach(c.XUtil, win)
}
