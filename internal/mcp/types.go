package mcp

import (
	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/ipc"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/screens"
	"github.com/plasmazones/plasmazones/internal/tracker"
	"github.com/plasmazones/plasmazones/internal/unified"
)

// NoInput is the input for tools that take no arguments.
type NoInput struct{}

// StatusOutput is the output for the get_status tool.
type StatusOutput struct {
	ipc.StatusData
	QuickSlots map[int]string `json:"quick_slots,omitempty"`
}

// ListLayoutsOutput is the output for the list_layouts tool.
type ListLayoutsOutput struct {
	Layouts []unified.Entry `json:"layouts"`
}

// LayoutIDInput selects one layout.
type LayoutIDInput struct {
	ID string `json:"id" jsonschema:"required,Layout id (UUID)"`
}

// ZoneInfo describes one zone of a layout.
type ZoneInfo struct {
	Number   int          `json:"number"`
	Name     string       `json:"name,omitempty"`
	Geometry geom.RelRect `json:"geometry"`
}

// LayoutOutput is the output for the get_layout tool.
type LayoutOutput struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        string     `json:"type"`
	Description string     `json:"description,omitempty"`
	Hidden      bool       `json:"hidden,omitempty"`
	Zones       []ZoneInfo `json:"zones"`
}

func layoutOutput(l *layout.Layout) LayoutOutput {
	out := LayoutOutput{
		ID:          l.ID.String(),
		Name:        l.Name,
		Type:        l.Type.String(),
		Description: l.Description,
		Hidden:      l.Hidden,
		Zones:       make([]ZoneInfo, 0, len(l.Zones)),
	}
	for _, z := range l.Zones {
		out.Zones = append(out.Zones, ZoneInfo{Number: z.Number, Name: z.Name, Geometry: z.Geometry})
	}
	return out
}

// CreateLayoutInput is the input for the create_layout tool.
type CreateLayoutInput struct {
	Name    string `json:"name" jsonschema:"required,Display name of the layout"`
	Type    string `json:"type" jsonschema:"required,Template: columns, rows, grid, priority-grid, focus or custom"`
	Count   int    `json:"count,omitempty" jsonschema:"Number of zones for columns and rows (default 2)"`
	Columns int    `json:"columns,omitempty" jsonschema:"Grid columns (default 2)"`
	Rows    int    `json:"rows,omitempty" jsonschema:"Grid rows (default 2)"`
}

// CreateLayoutOutput is the output for the create_layout tool.
type CreateLayoutOutput struct {
	ID string `json:"id"`
}

// DeleteLayoutOutput is the output for the delete_layout tool.
type DeleteLayoutOutput struct {
	Deleted bool `json:"deleted"`
}

// ListScreensOutput is the output for the list_screens tool.
type ListScreensOutput struct {
	Screens []screens.Descriptor `json:"screens"`
}

// ContextInput names a screen and optionally a desktop or activity.
type ContextInput struct {
	Screen   string `json:"screen,omitempty" jsonschema:"Connector name or stable screen id (default: screen of the focused window)"`
	Desktop  int    `json:"desktop,omitempty" jsonschema:"Virtual desktop number starting at 1 (default: all desktops)"`
	Activity string `json:"activity,omitempty" jsonschema:"Activity id"`
}

func (c ContextInput) payload() ipc.ContextPayload {
	return ipc.ContextPayload{Screen: c.Screen, Desktop: c.Desktop, Activity: c.Activity}
}

// ResolvedOutput is the output for the get_layout_for_screen tool.
type ResolvedOutput struct {
	LayoutID   string `json:"layout_id,omitempty"`
	LayoutName string `json:"layout_name,omitempty"`
	Algorithm  string `json:"algorithm,omitempty"`
	Source     string `json:"source"`
}

// AssignInput is the input for the assign_layout tool.
type AssignInput struct {
	ContextInput
	LayoutID string `json:"layout_id" jsonschema:"required,Layout id or autotile:<algorithm>"`
}

// OKOutput acknowledges a state change.
type OKOutput struct {
	OK bool `json:"ok"`
}

// ApplyInput is the input for the apply_layout tool.
type ApplyInput struct {
	ContextInput
	ID     string `json:"id,omitempty" jsonschema:"Layout id or autotile:<algorithm>"`
	Number int    `json:"number,omitempty" jsonschema:"Quick layout slot number (1-9)"`
	Index  *int   `json:"index,omitempty" jsonschema:"Zero-based index into list_layouts"`
}

// ApplyOutput is the output for the apply_layout and cycle_layout tools.
type ApplyOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Screen  string `json:"screen"`
	Desktop int    `json:"desktop"`
	Changed bool   `json:"changed"`
}

// CycleInput is the input for the cycle_layout tool.
type CycleInput struct {
	Backward bool `json:"backward,omitempty" jsonschema:"Cycle to the previous layout instead of the next"`
}

// ModeInput is the input for the set_mode tool.
type ModeInput struct {
	Mode string `json:"mode" jsonschema:"required,manual, autotile or toggle"`
}

// ModeOutput is the output for the set_mode tool.
type ModeOutput struct {
	Mode string `json:"mode"`
}

// ActionInput is the input for the trigger_action tool.
type ActionInput struct {
	Name string `json:"name" jsonschema:"required,Action name"`
}

// WindowInfo describes one tracked window.
type WindowInfo struct {
	ID       string    `json:"id"`
	StableID string    `json:"stable_id"`
	Screen   string    `json:"screen"`
	Desktop  int       `json:"desktop"`
	Sticky   bool      `json:"sticky,omitempty"`
	Zones    []string  `json:"zones,omitempty"`
	Geometry geom.Rect `json:"geometry"`
}

func windowInfo(r tracker.Record) WindowInfo {
	info := WindowInfo{
		ID:       r.RuntimeID,
		StableID: r.StableID,
		Screen:   r.Screen,
		Desktop:  r.Desktop,
		Sticky:   r.Sticky,
		Geometry: r.Geometry,
	}
	for _, z := range r.Zones {
		info.Zones = append(info.Zones, z.String())
	}
	return info
}

// ListWindowsOutput is the output for the list_windows tool.
type ListWindowsOutput struct {
	Windows []WindowInfo `json:"windows"`
}

// SessionOutput is the output for the get_session tool.
type SessionOutput struct {
	Pending map[string]tracker.Pending `json:"pending"`
}
