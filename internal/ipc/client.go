package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/runtimepath"
	"github.com/plasmazones/plasmazones/internal/screens"
	"github.com/plasmazones/plasmazones/internal/tracker"
	"github.com/plasmazones/plasmazones/internal/unified"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client
func NewClient() *Client {
	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}
	return NewClientWithPath(socketPath)
}

// NewClientWithPath creates a client for an explicit socket.
func NewClientWithPath(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return conn, nil
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	reqData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	reqData = append(reqData, '\n')
	if _, err := conn.Write(reqData); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", timeout(err))
	}

	reader := bufio.NewReader(conn)
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", timeout(err))
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		if resp.Error == ErrTimeout.Error() {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("daemon error: %s", resp.Error)
	}
	return &resp, nil
}

func timeout(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// Call sends cmd with an optional payload and decodes the response data
// into out when out is non-nil.
func (c *Client) Call(cmd CommandType, payload, out any) error {
	req := &Request{Command: cmd}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		req.Payload = data
	}

	resp, err := c.sendRequest(req)
	if err != nil {
		return err
	}
	if out == nil || len(resp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Data, out); err != nil {
		return fmt.Errorf("failed to parse %s data: %w", cmd, err)
	}
	return nil
}

// Ping checks if the daemon is running
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}

// GetStatus retrieves the daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	var status StatusData
	if err := c.Call(CommandGetStatus, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Reload asks the daemon to re-read settings, layouts and assignments.
func (c *Client) Reload() error {
	return c.Call(CommandReload, nil, nil)
}

func (c *Client) Layouts() ([]*layout.Layout, error) {
	var out []*layout.Layout
	err := c.Call(CommandGetLayoutList, nil, &out)
	return out, err
}

func (c *Client) Layout(id string) (*layout.Layout, error) {
	var out layout.Layout
	if err := c.Call(CommandGetLayout, IDPayload{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateLayout returns the id of the new layout.
func (c *Client) CreateLayout(p CreateLayoutPayload) (string, error) {
	var out IDPayload
	err := c.Call(CommandCreateLayout, p, &out)
	return out.ID, err
}

func (c *Client) DeleteLayout(id string) error {
	return c.Call(CommandDeleteLayout, IDPayload{ID: id}, nil)
}

func (c *Client) DuplicateLayout(id string) (string, error) {
	var out IDPayload
	err := c.Call(CommandDuplicateLayout, IDPayload{ID: id}, &out)
	return out.ID, err
}

// ImportLayout imports a layout file readable by the daemon.
func (c *Client) ImportLayout(path string) (string, error) {
	var out IDPayload
	err := c.Call(CommandImportLayout, PathPayload{Path: path}, &out)
	return out.ID, err
}

func (c *Client) ExportLayout(id, path string) error {
	return c.Call(CommandExportLayout, PathPayload{ID: id, Path: path}, nil)
}

// UpdateLayout replaces a layout with the given JSON document.
func (c *Client) UpdateLayout(data []byte) error {
	return c.Call(CommandUpdateLayout, json.RawMessage(data), nil)
}

func (c *Client) SetLayoutHidden(id string, hidden bool) error {
	return c.Call(CommandSetLayoutHidden, FlagPayload{ID: id, Value: hidden}, nil)
}

func (c *Client) SetLayoutAutoAssign(id string, on bool) error {
	return c.Call(CommandSetLayoutAutoAssign, FlagPayload{ID: id, Value: on}, nil)
}

func (c *Client) getMap(cmd CommandType) (map[string]string, error) {
	out := map[string]string{}
	err := c.Call(cmd, nil, &out)
	return out, err
}

func (c *Client) ScreenAssignments() (map[string]string, error) {
	return c.getMap(CommandGetScreenAssignments)
}

func (c *Client) SetScreenAssignments(m map[string]string) error {
	return c.Call(CommandSetScreenAssignments, m, nil)
}

func (c *Client) DesktopAssignments() (map[string]string, error) {
	return c.getMap(CommandGetDesktopAssignments)
}

func (c *Client) SetDesktopAssignments(m map[string]string) error {
	return c.Call(CommandSetDesktopAssignments, m, nil)
}

func (c *Client) ActivityAssignments() (map[string]string, error) {
	return c.getMap(CommandGetActivityAssignments)
}

func (c *Client) SetActivityAssignments(m map[string]string) error {
	return c.Call(CommandSetActivityAssignments, m, nil)
}

func (c *Client) QuickLayoutSlots() (map[int]string, error) {
	out := map[int]string{}
	err := c.Call(CommandGetQuickLayoutSlots, nil, &out)
	return out, err
}

func (c *Client) SetQuickLayoutSlots(m map[int]string) error {
	return c.Call(CommandSetQuickLayoutSlots, m, nil)
}

// LayoutFor resolves the layout of a context. The command is chosen by
// the most specific field set.
func (c *Client) LayoutFor(ctx ContextPayload) (*ResolvedLayout, error) {
	cmd := CommandGetLayoutForScreen
	switch {
	case ctx.Activity != "":
		cmd = CommandGetLayoutForActivity
	case ctx.Desktop > 0:
		cmd = CommandGetLayoutForDesktop
	}
	var out ResolvedLayout
	if err := c.Call(cmd, ctx, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) HasExplicitAssignment(ctx ContextPayload) (bool, error) {
	var out bool
	err := c.Call(CommandHasExplicitAssignment, ctx, &out)
	return out, err
}

func (c *Client) SetAssignment(p AssignPayload) error {
	return c.Call(CommandSetAssignment, p, nil)
}

func (c *Client) ClearAssignment(ctx ContextPayload) error {
	return c.Call(CommandClearAssignment, ctx, nil)
}

func (c *Client) Screens() ([]screens.Descriptor, error) {
	var out []screens.Descriptor
	err := c.Call(CommandGetScreens, nil, &out)
	return out, err
}

func (c *Client) ScreenInfo(name string) (*screens.Descriptor, error) {
	var out screens.Descriptor
	if err := c.Call(CommandGetScreenInfo, ScreenPayload{Name: name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PrimaryScreen returns the connector name of the primary screen.
func (c *Client) PrimaryScreen() (string, error) {
	var out ScreenPayload
	err := c.Call(CommandGetPrimaryScreen, nil, &out)
	return out.Name, err
}

func (c *Client) UnifiedList() ([]unified.Entry, error) {
	var out []unified.Entry
	err := c.Call(CommandGetUnifiedList, nil, &out)
	return out, err
}

func (c *Client) ApplyLayout(p ApplyPayload) (*ApplyResult, error) {
	var out ApplyResult
	if err := c.Call(CommandApplyLayout, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CycleLayout(p CyclePayload) (*ApplyResult, error) {
	var out ApplyResult
	if err := c.Call(CommandCycleLayout, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Mode() (string, error) {
	var out ModePayload
	err := c.Call(CommandGetMode, nil, &out)
	return out.Mode, err
}

func (c *Client) SetMode(mode string) error {
	return c.Call(CommandSetMode, ModePayload{Mode: mode}, nil)
}

// Action runs a shortcut action by its settings key name.
func (c *Client) Action(name string) error {
	return c.Call(CommandAction, ActionPayload{Name: name}, nil)
}

func (c *Client) Session() (*tracker.Session, error) {
	var out tracker.Session
	if err := c.Call(CommandGetSession, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ClearSession() error {
	return c.Call(CommandClearSession, nil, nil)
}

func (c *Client) Windows() ([]tracker.Record, error) {
	var out []tracker.Record
	err := c.Call(CommandGetWindows, nil, &out)
	return out, err
}

// Subscribe streams daemon events to fn until ctx is done or the daemon
// closes the connection.
func (c *Client) Subscribe(ctx context.Context, fn func(events.Event)) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err := conn.Write([]byte(`{"command":"SUBSCRIBE"}` + "\n")); err != nil {
		return fmt.Errorf("failed to send request: %w", timeout(err))
	}

	reader := bufio.NewReader(conn)
	ack, err := reader.ReadBytes('\n')
	if err != nil {
		return fmt.Errorf("failed to read response: %w", timeout(err))
	}
	var resp Response
	if err := json.Unmarshal(ack, &resp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Status == "ERROR" {
		return fmt.Errorf("daemon error: %s", resp.Error)
	}
	conn.SetDeadline(time.Time{})

	dec := json.NewDecoder(reader)
	for {
		var ev events.Event
		if err := dec.Decode(&ev); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream closed: %w", err)
		}
		fn(ev)
	}
}
