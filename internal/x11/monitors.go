package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/plasmazones/plasmazones/internal/geom"
)

// Output is one connected and enabled RandR output.
type Output struct {
	Name     string
	EDID     []byte
	Geometry geom.Rect
	Primary  bool
}

// edidMaxLength is the property length in 32-bit units; enough for a base
// block plus three extension blocks.
const edidMaxLength = 128

// InitRandR enables the RandR extension and selects screen change events
// on the root window.
func (c *Connection) InitRandR() error {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return fmt.Errorf("randr init failed: %w", err)
	}
	return randr.SelectInputChecked(c.XUtil.Conn(), c.Root,
		randr.NotifyMaskScreenChange|randr.NotifyMaskOutputChange|randr.NotifyMaskCrtcChange).Check()
}

// GetOutputs retrieves all active outputs using XRandR
func (c *Connection) GetOutputs() ([]Output, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(c.XUtil.Conn(), c.Root).Reply(); err == nil {
		primary = reply.Output
	}
	edidAtom, err := xprop.Atm(c.XUtil, "EDID")
	if err != nil {
		edidAtom = 0
	}

	var outputs []Output
	for _, output := range resources.Outputs {
		info, err := randr.GetOutputInfo(c.XUtil.Conn(), output, resources.ConfigTimestamp).Reply()
		if err != nil || info.Connection != randr.ConnectionConnected || info.Crtc == 0 {
			continue
		}
		crtc, err := randr.GetCrtcInfo(c.XUtil.Conn(), info.Crtc, resources.ConfigTimestamp).Reply()
		if err != nil || crtc.Width == 0 || crtc.Height == 0 {
			continue
		}

		out := Output{
			Name: string(info.Name),
			Geometry: geom.Rect{
				X:      int(crtc.X),
				Y:      int(crtc.Y),
				Width:  int(crtc.Width),
				Height: int(crtc.Height),
			},
			Primary: output == primary,
		}
		if edidAtom != 0 {
			prop, err := randr.GetOutputProperty(c.XUtil.Conn(), output, edidAtom,
				xproto.AtomAny, 0, edidMaxLength, false, false).Reply()
			if err == nil && prop.Format == 8 {
				out.EDID = prop.Data
			}
		}
		outputs = append(outputs, out)
	}

	if len(outputs) > 0 && primary == 0 {
		outputs[0].Primary = true
	}
	return outputs, nil
}

// WorkArea returns the part of monitor not covered by docks and panels.
func (c *Connection) WorkArea(monitor geom.Rect) geom.Rect {
	if area, ok := c.applyDockStruts(monitor); ok {
		return area
	}

	// Fallback: intersect with _NET_WORKAREA of the current desktop.
	workArea, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workArea) == 0 {
		return monitor
	}
	desktopIndex := 0
	if current, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(current) < len(workArea) {
		desktopIndex = int(current)
	}
	wa := workArea[desktopIndex]
	area := monitor.Intersection(geom.Rect{X: int(wa.X), Y: int(wa.Y), Width: int(wa.Width), Height: int(wa.Height)})
	if area.Empty() {
		return monitor
	}
	return area
}

type dockStruts struct {
	left   int
	right  int
	top    int
	bottom int
}

func (c *Connection) applyDockStruts(monitor geom.Rect) (geom.Rect, bool) {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return monitor, false
	}
	rootWidth := int(rootGeom.Width)
	rootHeight := int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return monitor, false
	}

	var struts dockStruts
	for _, windowID := range clients {
		types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
		if err != nil {
			continue
		}

		isDock := false
		for _, t := range types {
			if t == "_NET_WM_WINDOW_TYPE_DOCK" {
				isDock = true
				break
			}
		}
		if !isDock {
			continue
		}

		if sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID); err == nil {
			updateStrutsForMonitor(monitor, rootWidth, rootHeight, sp, &struts)
			continue
		}

		// Some docks only set _NET_WM_STRUT (no partial ranges).
		if s, err := ewmh.WmStrutGet(c.XUtil, windowID); err == nil {
			sp := &ewmh.WmStrutPartial{
				Left:       s.Left,
				Right:      s.Right,
				Top:        s.Top,
				Bottom:     s.Bottom,
				LeftEndY:   uint(rootHeight - 1),
				RightEndY:  uint(rootHeight - 1),
				TopEndX:    uint(rootWidth - 1),
				BottomEndX: uint(rootWidth - 1),
			}
			updateStrutsForMonitor(monitor, rootWidth, rootHeight, sp, &struts)
		}
	}

	if struts == (dockStruts{}) {
		return monitor, false
	}

	area := geom.Rect{
		X:      monitor.X + struts.left,
		Y:      monitor.Y + struts.top,
		Width:  max(monitor.Width-struts.left-struts.right, 1),
		Height: max(monitor.Height-struts.top-struts.bottom, 1),
	}
	return area, true
}

func updateStrutsForMonitor(monitor geom.Rect, rootWidth, rootHeight int, sp *ewmh.WmStrutPartial, acc *dockStruts) {
	// Top strut: y=[0,Top), x=[TopStartX,TopEndX]
	if sp.Top > 0 {
		r := spanRect(int(sp.TopStartX), 0, int(sp.TopEndX)+1, int(sp.Top))
		acc.top = max(acc.top, monitor.Intersection(r).Height)
	}

	// Bottom strut: y=[rootHeight-Bottom,rootHeight), x=[BottomStartX,BottomEndX]
	if sp.Bottom > 0 {
		r := spanRect(int(sp.BottomStartX), rootHeight-int(sp.Bottom), int(sp.BottomEndX)+1, rootHeight)
		acc.bottom = max(acc.bottom, monitor.Intersection(r).Height)
	}

	// Left strut: x=[0,Left), y=[LeftStartY,LeftEndY]
	if sp.Left > 0 {
		r := spanRect(0, int(sp.LeftStartY), int(sp.Left), int(sp.LeftEndY)+1)
		acc.left = max(acc.left, monitor.Intersection(r).Width)
	}

	// Right strut: x=[rootWidth-Right,rootWidth), y=[RightStartY,RightEndY]
	if sp.Right > 0 {
		r := spanRect(rootWidth-int(sp.Right), int(sp.RightStartY), rootWidth, int(sp.RightEndY)+1)
		acc.right = max(acc.right, monitor.Intersection(r).Width)
	}
}

func spanRect(x1, y1, x2, y2 int) geom.Rect {
	return geom.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// FindOutputForPointer returns the index of the output under the pointer,
// or -1.
func (c *Connection) FindOutputForPointer(outputs []Output) int {
	pointer, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return -1
	}
	p := geom.Point{X: int(pointer.RootX), Y: int(pointer.RootY)}
	for i, o := range outputs {
		if o.Geometry.Contains(p) {
			return i
		}
	}
	return -1
}
