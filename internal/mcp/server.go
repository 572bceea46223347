// Package mcp exposes the daemon's layout, assignment and window state to
// Model Context Protocol clients over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/ipc"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/screens"
	"github.com/plasmazones/plasmazones/internal/tracker"
	"github.com/plasmazones/plasmazones/internal/unified"
)

const (
	ServerName    = "plasmazones"
	ServerVersion = "0.1.0"
)

// Daemon is the subset of the IPC client the tools use.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	Layouts() ([]*layout.Layout, error)
	Layout(id string) (*layout.Layout, error)
	CreateLayout(p ipc.CreateLayoutPayload) (string, error)
	DeleteLayout(id string) error
	Screens() ([]screens.Descriptor, error)
	LayoutFor(ctx ipc.ContextPayload) (*ipc.ResolvedLayout, error)
	SetAssignment(p ipc.AssignPayload) error
	ClearAssignment(ctx ipc.ContextPayload) error
	UnifiedList() ([]unified.Entry, error)
	ApplyLayout(p ipc.ApplyPayload) (*ipc.ApplyResult, error)
	CycleLayout(p ipc.CyclePayload) (*ipc.ApplyResult, error)
	Mode() (string, error)
	SetMode(mode string) error
	Action(name string) error
	Windows() ([]tracker.Record, error)
	Session() (*tracker.Session, error)
	QuickLayoutSlots() (map[int]string, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server for plasmazones.
type Server struct {
	mcpServer *mcpsdk.Server
	daemon    Daemon
	log       zerolog.Logger
}

// NewServer creates an MCP server that forwards tool calls to daemon.
func NewServer(daemon Daemon, log zerolog.Logger) *Server {
	s := &Server{
		daemon: daemon,
		log:    log.With().Str("component", "mcp").Logger(),
	}
	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Msg("serving MCP on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_status",
		Description: "Report the daemon's tiling mode, active layout, current virtual desktop and activity, and counts of screens, layouts, tracked windows and pending restores.",
	}, s.handleGetStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_layouts",
		Description: "List every zone layout and autotile algorithm that can be applied, in the order used by layout cycling. Autotile entries have ids of the form autotile:<algorithm>.",
	}, s.handleListLayouts)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_layout",
		Description: "Fetch one zone layout by id, including its zones as fractions of the screen.",
	}, s.handleGetLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "create_layout",
		Description: "Create a zone layout from a template: columns, rows, grid, priority-grid, focus or custom. Returns the new layout id.",
	}, s.handleCreateLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "delete_layout",
		Description: "Delete a user layout. System layouts cannot be deleted. Assignments and quick slots that referenced it are cleared.",
	}, s.handleDeleteLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_screens",
		Description: "List connected screens with connector name, stable EDID-based id, geometry and available geometry.",
	}, s.handleListScreens)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_layout_for_screen",
		Description: "Resolve which layout applies to a screen, optionally for a given virtual desktop or activity. Reports whether the answer came from an activity, desktop or screen assignment or from the default.",
	}, s.handleLayoutFor)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "assign_layout",
		Description: "Assign a layout (or autotile:<algorithm>) to a screen, optionally limited to one virtual desktop or activity.",
	}, s.handleAssignLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "clear_assignment",
		Description: "Remove the layout assignment for a screen, desktop or activity so that the next less specific assignment applies.",
	}, s.handleClearAssignment)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "apply_layout",
		Description: "Apply a layout to the focused screen, or to a given screen and desktop, by id, quick slot number or list index. Snapped windows follow their zones.",
	}, s.handleApplyLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cycle_layout",
		Description: "Switch the focused screen to the next or previous entry of list_layouts.",
	}, s.handleCycleLayout)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "set_mode",
		Description: "Switch between manual zones and autotiling. Mode is manual, autotile or toggle.",
	}, s.handleSetMode)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "trigger_action",
		Description: "Run a shortcut action by name, e.g. move_window_left, focus_zone_right, swap_window_up, snap_to_zone_2, toggle_autotile or retile.",
	}, s.handleTriggerAction)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "list_windows",
		Description: "List tracked windows with their stable id, screen, desktop and the zones they are snapped to.",
	}, s.handleListWindows)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "get_session",
		Description: "Show the saved zone assignments that will be restored when the corresponding applications open again.",
	}, s.handleGetSession)
}
