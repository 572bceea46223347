package mcp

import (
	"context"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/plasmazones/plasmazones/internal/ipc"
)

func (s *Server) handleGetStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	status, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}
	out := StatusOutput{StatusData: *status}
	if slots, err := s.daemon.QuickLayoutSlots(); err == nil {
		out.QuickSlots = slots
	}
	return nil, out, nil
}

func (s *Server) handleListLayouts(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, ListLayoutsOutput, error) {
	entries, err := s.daemon.UnifiedList()
	if err != nil {
		return nil, ListLayoutsOutput{}, err
	}
	return nil, ListLayoutsOutput{Layouts: entries}, nil
}

func (s *Server) handleGetLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutIDInput) (*mcpsdk.CallToolResult, LayoutOutput, error) {
	if strings.TrimSpace(args.ID) == "" {
		return nil, LayoutOutput{}, fmt.Errorf("id is required")
	}
	l, err := s.daemon.Layout(args.ID)
	if err != nil {
		return nil, LayoutOutput{}, err
	}
	return nil, layoutOutput(l), nil
}

func (s *Server) handleCreateLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args CreateLayoutInput) (*mcpsdk.CallToolResult, CreateLayoutOutput, error) {
	if strings.TrimSpace(args.Name) == "" {
		return nil, CreateLayoutOutput{}, fmt.Errorf("name is required")
	}
	id, err := s.daemon.CreateLayout(ipc.CreateLayoutPayload{
		Name:    args.Name,
		Type:    args.Type,
		Count:   args.Count,
		Columns: args.Columns,
		Rows:    args.Rows,
	})
	if err != nil {
		return nil, CreateLayoutOutput{}, err
	}
	s.log.Info().Str("layout", id).Str("type", args.Type).Msg("layout created")
	return nil, CreateLayoutOutput{ID: id}, nil
}

func (s *Server) handleDeleteLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args LayoutIDInput) (*mcpsdk.CallToolResult, DeleteLayoutOutput, error) {
	if err := s.daemon.DeleteLayout(args.ID); err != nil {
		return nil, DeleteLayoutOutput{}, err
	}
	s.log.Info().Str("layout", args.ID).Msg("layout deleted")
	return nil, DeleteLayoutOutput{Deleted: true}, nil
}

func (s *Server) handleListScreens(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, ListScreensOutput, error) {
	list, err := s.daemon.Screens()
	if err != nil {
		return nil, ListScreensOutput{}, err
	}
	return nil, ListScreensOutput{Screens: list}, nil
}

func (s *Server) handleLayoutFor(_ context.Context, _ *mcpsdk.CallToolRequest, args ContextInput) (*mcpsdk.CallToolResult, ResolvedOutput, error) {
	res, err := s.daemon.LayoutFor(args.payload())
	if err != nil {
		return nil, ResolvedOutput{}, err
	}
	out := ResolvedOutput{Source: res.Source, Algorithm: res.Algorithm}
	if res.Layout != nil {
		out.LayoutID = res.Layout.ID.String()
		out.LayoutName = res.Layout.Name
	}
	return nil, out, nil
}

func (s *Server) handleAssignLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args AssignInput) (*mcpsdk.CallToolResult, OKOutput, error) {
	if strings.TrimSpace(args.LayoutID) == "" {
		return nil, OKOutput{}, fmt.Errorf("layout_id is required")
	}
	if err := s.daemon.SetAssignment(ipc.AssignPayload{ContextPayload: args.payload(), LayoutID: args.LayoutID}); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{OK: true}, nil
}

func (s *Server) handleClearAssignment(_ context.Context, _ *mcpsdk.CallToolRequest, args ContextInput) (*mcpsdk.CallToolResult, OKOutput, error) {
	if err := s.daemon.ClearAssignment(args.payload()); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{OK: true}, nil
}

func (s *Server) handleApplyLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args ApplyInput) (*mcpsdk.CallToolResult, ApplyOutput, error) {
	if args.ID == "" && args.Number == 0 && args.Index == nil {
		return nil, ApplyOutput{}, fmt.Errorf("one of id, number or index is required")
	}
	res, err := s.daemon.ApplyLayout(ipc.ApplyPayload{
		ContextPayload: args.payload(),
		ID:             args.ID,
		Number:         args.Number,
		Index:          args.Index,
	})
	if err != nil {
		return nil, ApplyOutput{}, err
	}
	return nil, applyOutput(res), nil
}

func (s *Server) handleCycleLayout(_ context.Context, _ *mcpsdk.CallToolRequest, args CycleInput) (*mcpsdk.CallToolResult, ApplyOutput, error) {
	res, err := s.daemon.CycleLayout(ipc.CyclePayload{Forward: !args.Backward})
	if err != nil {
		return nil, ApplyOutput{}, err
	}
	return nil, applyOutput(res), nil
}

func applyOutput(res *ipc.ApplyResult) ApplyOutput {
	return ApplyOutput{
		ID:      res.Entry.ID,
		Name:    res.Entry.Name,
		Screen:  res.Context.Screen,
		Desktop: res.Context.Desktop,
		Changed: res.Changed,
	}
}

func (s *Server) handleSetMode(_ context.Context, _ *mcpsdk.CallToolRequest, args ModeInput) (*mcpsdk.CallToolResult, ModeOutput, error) {
	switch args.Mode {
	case "manual", "autotile", "toggle":
	default:
		return nil, ModeOutput{}, fmt.Errorf("mode must be manual, autotile or toggle, got %q", args.Mode)
	}
	if err := s.daemon.SetMode(args.Mode); err != nil {
		return nil, ModeOutput{}, err
	}
	mode, err := s.daemon.Mode()
	if err != nil {
		return nil, ModeOutput{}, err
	}
	return nil, ModeOutput{Mode: mode}, nil
}

func (s *Server) handleTriggerAction(_ context.Context, _ *mcpsdk.CallToolRequest, args ActionInput) (*mcpsdk.CallToolResult, OKOutput, error) {
	if strings.TrimSpace(args.Name) == "" {
		return nil, OKOutput{}, fmt.Errorf("name is required")
	}
	if err := s.daemon.Action(args.Name); err != nil {
		return nil, OKOutput{}, err
	}
	return nil, OKOutput{OK: true}, nil
}

func (s *Server) handleListWindows(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, ListWindowsOutput, error) {
	records, err := s.daemon.Windows()
	if err != nil {
		return nil, ListWindowsOutput{}, err
	}
	out := ListWindowsOutput{Windows: make([]WindowInfo, 0, len(records))}
	for _, r := range records {
		out.Windows = append(out.Windows, windowInfo(r))
	}
	return nil, out, nil
}

func (s *Server) handleGetSession(_ context.Context, _ *mcpsdk.CallToolRequest, _ NoInput) (*mcpsdk.CallToolResult, SessionOutput, error) {
	session, err := s.daemon.Session()
	if err != nil {
		return nil, SessionOutput{}, err
	}
	return nil, SessionOutput{Pending: session.Pending}, nil
}
