package ipc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/plasmazones/plasmazones/internal/geom"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/tracker"
	"github.com/plasmazones/plasmazones/internal/unified"
)

// ErrTimeout is returned when the daemon does not answer in time.
var ErrTimeout = errors.New("daemon not responding")

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus CommandType = "GET_STATUS"
	CommandReload    CommandType = "RELOAD"
	CommandSubscribe CommandType = "SUBSCRIBE"

	CommandGetLayoutList       CommandType = "GET_LAYOUT_LIST"
	CommandGetLayout           CommandType = "GET_LAYOUT"
	CommandCreateLayout        CommandType = "CREATE_LAYOUT"
	CommandDeleteLayout        CommandType = "DELETE_LAYOUT"
	CommandDuplicateLayout     CommandType = "DUPLICATE_LAYOUT"
	CommandImportLayout        CommandType = "IMPORT_LAYOUT"
	CommandExportLayout        CommandType = "EXPORT_LAYOUT"
	CommandUpdateLayout        CommandType = "UPDATE_LAYOUT"
	CommandSetLayoutHidden     CommandType = "SET_LAYOUT_HIDDEN"
	CommandSetLayoutAutoAssign CommandType = "SET_LAYOUT_AUTO_ASSIGN"

	CommandGetScreenAssignments   CommandType = "GET_ALL_SCREEN_ASSIGNMENTS"
	CommandSetScreenAssignments   CommandType = "SET_ALL_SCREEN_ASSIGNMENTS"
	CommandGetDesktopAssignments  CommandType = "GET_ALL_DESKTOP_ASSIGNMENTS"
	CommandSetDesktopAssignments  CommandType = "SET_ALL_DESKTOP_ASSIGNMENTS"
	CommandGetActivityAssignments CommandType = "GET_ALL_ACTIVITY_ASSIGNMENTS"
	CommandSetActivityAssignments CommandType = "SET_ALL_ACTIVITY_ASSIGNMENTS"
	CommandGetQuickLayoutSlots    CommandType = "GET_ALL_QUICK_LAYOUT_SLOTS"
	CommandSetQuickLayoutSlots    CommandType = "SET_ALL_QUICK_LAYOUT_SLOTS"
	CommandGetLayoutForScreen     CommandType = "GET_LAYOUT_FOR_SCREEN"
	CommandGetLayoutForDesktop    CommandType = "GET_LAYOUT_FOR_SCREEN_DESKTOP"
	CommandGetLayoutForActivity   CommandType = "GET_LAYOUT_FOR_SCREEN_ACTIVITY"
	CommandHasExplicitAssignment  CommandType = "HAS_EXPLICIT_ASSIGNMENT"
	CommandSetAssignment          CommandType = "SET_ASSIGNMENT"
	CommandClearAssignment        CommandType = "CLEAR_ASSIGNMENT"

	CommandGetScreens       CommandType = "GET_SCREENS"
	CommandGetScreenInfo    CommandType = "GET_SCREEN_INFO"
	CommandGetPrimaryScreen CommandType = "GET_PRIMARY_SCREEN"

	CommandGetUnifiedList CommandType = "GET_UNIFIED_LIST"
	CommandApplyLayout    CommandType = "APPLY_LAYOUT"
	CommandCycleLayout    CommandType = "CYCLE_LAYOUT"
	CommandGetMode        CommandType = "GET_MODE"
	CommandSetMode        CommandType = "SET_MODE"
	CommandAction         CommandType = "ACTION"

	CommandGetSession   CommandType = "GET_SESSION"
	CommandClearSession CommandType = "CLEAR_SESSION"
	CommandGetWindows   CommandType = "GET_WINDOWS"

	CommandDragStart         CommandType = "DRAG_START"
	CommandDragMove          CommandType = "DRAG_MOVE"
	CommandDragEnd           CommandType = "DRAG_END"
	CommandDragCancel        CommandType = "DRAG_CANCEL"
	CommandWindowSnapped     CommandType = "WINDOW_SNAPPED"
	CommandWindowUnsnapped   CommandType = "WINDOW_UNSNAPPED"
	CommandSnapAssistSelect  CommandType = "SNAP_ASSIST_SELECT"
	CommandSetActivity       CommandType = "SET_CURRENT_ACTIVITY"
	CommandSetActivitiesList CommandType = "SET_ACTIVITIES"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status string          `json:"status"` // "OK" or "ERROR"
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	Mode          string `json:"mode"`
	ActiveLayout  string `json:"active_layout"`
	Desktop       int    `json:"desktop"`
	DesktopCount  int    `json:"desktop_count"`
	Activity      string `json:"activity,omitempty"`
	Screens       int    `json:"screens"`
	Layouts       int    `json:"layouts"`
	Windows       int    `json:"windows"`
	Pending       int    `json:"pending"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	DaemonRunning bool   `json:"daemon_running"`
}

type IDPayload struct {
	ID string `json:"id"`
}

type CreateLayoutPayload struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Count   int    `json:"count,omitempty"`
	Columns int    `json:"columns,omitempty"`
	Rows    int    `json:"rows,omitempty"`
}

type PathPayload struct {
	ID   string `json:"id,omitempty"`
	Path string `json:"path"`
}

type FlagPayload struct {
	ID    string `json:"id"`
	Value bool   `json:"value"`
}

// ContextPayload names a screen, desktop and activity. Desktop 0 means
// every desktop.
type ContextPayload struct {
	Screen   string `json:"screen"`
	Desktop  int    `json:"desktop,omitempty"`
	Activity string `json:"activity,omitempty"`
}

type AssignPayload struct {
	ContextPayload
	LayoutID string `json:"layout_id"`
}

// ResolvedLayout is the answer to the GET_LAYOUT_FOR_* commands.
type ResolvedLayout struct {
	Layout    *layout.Layout `json:"layout,omitempty"`
	Source    string         `json:"source"`
	Algorithm string         `json:"algorithm,omitempty"`
}

type ScreenPayload struct {
	Name string `json:"name"`
}

// ApplyPayload selects an entry by id, 1-based number, or index, in that
// order of precedence. An empty screen means the focused context.
type ApplyPayload struct {
	ContextPayload
	ID     string `json:"id,omitempty"`
	Number int    `json:"number,omitempty"`
	Index  *int   `json:"index,omitempty"`
}

type CyclePayload struct {
	ContextPayload
	Forward bool `json:"forward"`
}

type ModePayload struct {
	Mode string `json:"mode"`
}

type ActionPayload struct {
	Name string `json:"name"`
}

type DragPayload struct {
	Window string `json:"window,omitempty"`
	tracker.DragInput
}

type SnapPayload struct {
	Window  string   `json:"window"`
	Zones   []string `json:"zones,omitempty"`
	Screen  string   `json:"screen,omitempty"`
	Desktop int      `json:"desktop,omitempty"`
}

type ActivitiesPayload struct {
	Current string   `json:"current,omitempty"`
	All     []string `json:"all,omitempty"`
}

// ApplyResult reports what APPLY_LAYOUT and CYCLE_LAYOUT did.
type ApplyResult struct {
	Context unified.Context `json:"context"`
	Entry   unified.Entry   `json:"entry"`
	Changed bool            `json:"changed"`
}

// HoverData is the drag selection after DRAG_START and DRAG_MOVE.
type HoverData struct {
	Zones    []string  `json:"zones"`
	Geometry geom.Rect `json:"geometry"`
	Near     bool      `json:"near"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	if req.Command == "" {
		return nil, errors.New("failed to parse request: missing command")
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Decode unmarshals the request payload into v. An empty payload leaves v
// untouched.
func (r *Request) Decode(v any) error {
	if len(r.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", r.Command, err)
	}
	return nil
}
