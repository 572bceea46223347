package daemon

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/plasmazones/plasmazones/internal/assign"
	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/ipc"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/unified"
	"github.com/plasmazones/plasmazones/internal/zones"
)

var errScreenNotFound = errors.New("screen not found")

// Handle serves one IPC request on the loop. It implements ipc.Handler.
func (a *App) Handle(req *ipc.Request) *ipc.Response {
	var resp *ipc.Response
	if err := a.loop.Call(func() { resp = a.dispatch(req) }); err != nil {
		a.log.Warn().Err(err).Str("command", string(req.Command)).Msg("request not served")
		return ipc.NewErrorResponse(err.Error())
	}
	return resp
}

// result converts a handler outcome into a response.
func result(data any, err error) *ipc.Response {
	if err != nil {
		return ipc.NewErrorResponse(err.Error())
	}
	resp, err := ipc.NewOKResponse(data)
	if err != nil {
		return ipc.NewErrorResponse(err.Error())
	}
	return resp
}

func decode[T any](req *ipc.Request) (T, error) {
	var v T
	err := req.Decode(&v)
	return v, err
}

// dispatch runs on the loop.
func (a *App) dispatch(req *ipc.Request) *ipc.Response {
	switch req.Command {
	case ipc.CommandGetStatus:
		return result(a.status(), nil)
	case ipc.CommandReload:
		a.reload()
		return result(nil, nil)

	case ipc.CommandGetLayoutList:
		return result(a.layouts.List(), nil)
	case ipc.CommandGetLayout:
		return result(withID(req, func(id uuid.UUID) (any, error) {
			if l := a.layouts.Get(id); l != nil {
				return l, nil
			}
			return nil, fmt.Errorf("%w: %s", layout.ErrNotFound, id)
		}))
	case ipc.CommandCreateLayout:
		return result(a.createLayout(req))
	case ipc.CommandDeleteLayout:
		return result(withID(req, func(id uuid.UUID) (any, error) {
			return nil, a.layouts.Delete(id)
		}))
	case ipc.CommandDuplicateLayout:
		return result(withID(req, func(id uuid.UUID) (any, error) {
			l, err := a.layouts.Duplicate(id)
			if err != nil {
				return nil, err
			}
			return ipc.IDPayload{ID: l.ID.String()}, nil
		}))
	case ipc.CommandImportLayout:
		return result(a.importLayout(req))
	case ipc.CommandExportLayout:
		return result(a.exportLayout(req))
	case ipc.CommandUpdateLayout:
		return result(nil, a.layouts.Update(req.Payload))
	case ipc.CommandSetLayoutHidden, ipc.CommandSetLayoutAutoAssign:
		return result(a.setLayoutFlag(req))

	case ipc.CommandGetScreenAssignments:
		return result(a.table.ScreenAssignments(), nil)
	case ipc.CommandGetDesktopAssignments:
		return result(a.table.DesktopAssignments(), nil)
	case ipc.CommandGetActivityAssignments:
		return result(a.table.ActivityAssignments(), nil)
	case ipc.CommandSetScreenAssignments:
		return result(a.setAssignments(req, a.table.SetScreenAssignments))
	case ipc.CommandSetDesktopAssignments:
		return result(a.setAssignments(req, a.table.SetDesktopAssignments))
	case ipc.CommandSetActivityAssignments:
		return result(a.setAssignments(req, a.table.SetActivityAssignments))
	case ipc.CommandGetQuickLayoutSlots:
		return result(a.table.QuickSlotMap(), nil)
	case ipc.CommandSetQuickLayoutSlots:
		return result(a.setQuickSlots(req))
	case ipc.CommandGetLayoutForScreen, ipc.CommandGetLayoutForDesktop, ipc.CommandGetLayoutForActivity:
		return result(a.layoutFor(req))
	case ipc.CommandHasExplicitAssignment:
		return result(a.hasExplicit(req))
	case ipc.CommandSetAssignment:
		return result(a.setAssignment(req))
	case ipc.CommandClearAssignment:
		return result(a.clearAssignment(req))

	case ipc.CommandGetScreens:
		return result(a.screens.List(), nil)
	case ipc.CommandGetScreenInfo:
		return result(a.screenInfo(req))
	case ipc.CommandGetPrimaryScreen:
		d, ok := a.screens.Primary()
		if !ok {
			return result(nil, errScreenNotFound)
		}
		return result(ipc.ScreenPayload{Name: d.ConnectorName}, nil)

	case ipc.CommandGetUnifiedList:
		return result(a.unified.List(), nil)
	case ipc.CommandApplyLayout:
		return result(a.applyLayout(req))
	case ipc.CommandCycleLayout:
		return result(a.cycleLayout(req))
	case ipc.CommandGetMode:
		return result(ipc.ModePayload{Mode: string(a.router.Mode())}, nil)
	case ipc.CommandSetMode:
		return result(a.setMode(req))
	case ipc.CommandAction:
		p, err := decode[ipc.ActionPayload](req)
		if err != nil {
			return result(nil, err)
		}
		return result(nil, a.router.Dispatch(p.Name))

	case ipc.CommandGetSession:
		return result(a.tracker.Snapshot(), nil)
	case ipc.CommandClearSession:
		a.tracker.ClearPending()
		return result(nil, a.tracker.Save(a.opts.Paths.Session))
	case ipc.CommandGetWindows:
		return result(a.tracker.Windows(), nil)

	case ipc.CommandDragStart:
		p, err := decode[ipc.DragPayload](req)
		if err != nil {
			return result(nil, err)
		}
		if err := a.tracker.DragStart(p.Window, p.DragInput); err != nil {
			return result(nil, err)
		}
		return result(a.hover(), nil)
	case ipc.CommandDragMove:
		p, err := decode[ipc.DragPayload](req)
		if err != nil {
			return result(nil, err)
		}
		a.tracker.DragMove(p.DragInput)
		return result(a.hover(), nil)
	case ipc.CommandDragEnd:
		p, err := decode[ipc.DragPayload](req)
		if err != nil {
			return result(nil, err)
		}
		return result(nil, a.tracker.DragEnd(p.DragInput))
	case ipc.CommandDragCancel:
		a.tracker.DragCancel()
		return result(nil, nil)
	case ipc.CommandWindowSnapped:
		return result(a.windowSnapped(req))
	case ipc.CommandWindowUnsnapped:
		p, err := decode[ipc.SnapPayload](req)
		if err != nil {
			return result(nil, err)
		}
		return result(nil, a.tracker.WindowUnsnapped(p.Window))
	case ipc.CommandSnapAssistSelect:
		return result(a.snapAssistSelect(req))
	case ipc.CommandSetActivity, ipc.CommandSetActivitiesList:
		return result(a.setActivities(req))
	}
	return ipc.NewErrorResponse(fmt.Sprintf("Unknown command: %s", req.Command))
}

func (a *App) status() ipc.StatusData {
	return ipc.StatusData{
		Mode:          string(a.router.Mode()),
		ActiveLayout:  a.unified.ActiveID(),
		Desktop:       a.env.desktop,
		DesktopCount:  a.env.desktopCount,
		Activity:      a.env.activity,
		Screens:       len(a.screens.List()),
		Layouts:       a.layouts.Len(),
		Windows:       len(a.tracker.Windows()),
		Pending:       len(a.tracker.Pending()),
		UptimeSeconds: int64(time.Since(a.started).Seconds()),
		DaemonRunning: true,
	}
}

// reload re-reads settings and layouts from disk.
func (a *App) reload() {
	a.log.Info().Msg("reloading settings and layouts")
	a.store.Load()
	a.layouts.Load()
	a.unified.Invalidate()
	a.refreshAll()
}

func withID(req *ipc.Request, fn func(uuid.UUID) (any, error)) (any, error) {
	p, err := decode[ipc.IDPayload](req)
	if err != nil {
		return nil, err
	}
	id, err := layout.ParseID(p.ID)
	if err != nil {
		return nil, err
	}
	return fn(id)
}

func (a *App) createLayout(req *ipc.Request) (any, error) {
	p, err := decode[ipc.CreateLayoutPayload](req)
	if err != nil {
		return nil, err
	}
	l, err := a.layouts.Create(p.Name, p.Type, layout.Params{Count: p.Count, Columns: p.Columns, Rows: p.Rows})
	if err != nil {
		return nil, err
	}
	return ipc.IDPayload{ID: l.ID.String()}, nil
}

func (a *App) importLayout(req *ipc.Request) (any, error) {
	p, err := decode[ipc.PathPayload](req)
	if err != nil {
		return nil, err
	}
	id, err := a.layouts.ImportFile(p.Path)
	if err != nil {
		return nil, err
	}
	return ipc.IDPayload{ID: id.String()}, nil
}

func (a *App) exportLayout(req *ipc.Request) (any, error) {
	p, err := decode[ipc.PathPayload](req)
	if err != nil {
		return nil, err
	}
	id, err := layout.ParseID(p.ID)
	if err != nil {
		return nil, err
	}
	return nil, a.layouts.ExportFile(id, p.Path)
}

func (a *App) setLayoutFlag(req *ipc.Request) (any, error) {
	p, err := decode[ipc.FlagPayload](req)
	if err != nil {
		return nil, err
	}
	id, err := layout.ParseID(p.ID)
	if err != nil {
		return nil, err
	}
	if req.Command == ipc.CommandSetLayoutHidden {
		return nil, a.layouts.SetHidden(id, p.Value)
	}
	return nil, a.layouts.SetAutoAssign(id, p.Value)
}

// setAssignments replaces one class of entries in bulk. Every screen whose
// resolved layout changed gets a screen_layout_changed notification.
func (a *App) setAssignments(req *ipc.Request, set func(map[string]string) error) (any, error) {
	m, err := decode[map[string]string](req)
	if err != nil {
		return nil, err
	}
	before := a.resolvedAll()
	if err := set(m); err != nil {
		return nil, err
	}
	a.assignmentsChanged(before)
	return nil, nil
}

func (a *App) resolvedAll() map[string]string {
	out := make(map[string]string)
	for _, d := range a.screens.List() {
		ctx := a.env.context(d.StableID)
		out[d.StableID] = a.unified.Current(ctx)
	}
	return out
}

func (a *App) assignmentsChanged(before map[string]string) {
	a.saveTable()
	for screen, was := range before {
		now := a.unified.Current(a.env.context(screen))
		if now == was {
			continue
		}
		a.bus.Emit(events.Event{Kind: events.ScreenLayoutChanged, ScreenID: screen, LayoutID: now})
		a.refresh(screen)
	}
}

func (a *App) setQuickSlots(req *ipc.Request) (any, error) {
	m, err := decode[map[int]string](req)
	if err != nil {
		return nil, err
	}
	before := a.table.QuickSlotMap()
	if err := a.table.SetQuickSlotMap(m); err != nil {
		return nil, err
	}
	if !maps.Equal(before, a.table.QuickSlotMap()) {
		a.saveTable()
		a.bus.Emit(events.Event{Kind: events.QuickLayoutSlotsChanged})
	}
	return nil, nil
}

// context converts a payload into a unified context. An empty screen means
// the focused screen; connector names are mapped to stable ids.
func (a *App) context(p ipc.ContextPayload) unified.Context {
	if p.Screen == "" {
		ctx := a.focusedContext()
		if p.Desktop > 0 {
			ctx.Desktop = p.Desktop
		}
		if p.Activity != "" {
			ctx.Activity = p.Activity
		}
		return ctx
	}
	return unified.Context{Screen: a.screens.StableIDFor(p.Screen), Desktop: p.Desktop, Activity: p.Activity}
}

func (a *App) layoutFor(req *ipc.Request) (any, error) {
	p, err := decode[ipc.ContextPayload](req)
	if err != nil {
		return nil, err
	}
	switch req.Command {
	case ipc.CommandGetLayoutForScreen:
		p.Desktop, p.Activity = 0, ""
	case ipc.CommandGetLayoutForDesktop:
		p.Activity = ""
	}
	ctx := a.context(p)
	res := a.resolver.Lookup(ctx.Screen, ctx.Desktop, ctx.Activity)
	return ipc.ResolvedLayout{Layout: res.Layout, Source: res.Source.String(), Algorithm: res.Algorithm}, nil
}

func key(ctx unified.Context) assign.Key {
	if ctx.Activity != "" {
		return assign.ActivityKey(ctx.Screen, ctx.Activity)
	}
	return assign.DesktopKey(ctx.Screen, ctx.Desktop)
}

func (a *App) hasExplicit(req *ipc.Request) (any, error) {
	p, err := decode[ipc.ContextPayload](req)
	if err != nil {
		return nil, err
	}
	_, ok := a.resolver.Explicit(key(a.context(p)))
	return ok, nil
}

func (a *App) setAssignment(req *ipc.Request) (any, error) {
	p, err := decode[ipc.AssignPayload](req)
	if err != nil {
		return nil, err
	}
	ref, ok := config.CanonicalLayoutRef(p.LayoutID)
	if !ok || ref == "" {
		return nil, fmt.Errorf("invalid layout reference %q", p.LayoutID)
	}
	if !strings.HasPrefix(ref, config.AutotilePrefix) && !a.layouts.ContainsString(ref) {
		return nil, fmt.Errorf("%w: %s", layout.ErrNotFound, ref)
	}
	before := a.resolvedAll()
	if _, err := a.table.Set(key(a.context(p.ContextPayload)), ref); err != nil {
		return nil, err
	}
	a.unified.Invalidate()
	a.assignmentsChanged(before)
	return nil, nil
}

func (a *App) clearAssignment(req *ipc.Request) (any, error) {
	p, err := decode[ipc.ContextPayload](req)
	if err != nil {
		return nil, err
	}
	before := a.resolvedAll()
	if !a.table.Remove(key(a.context(p))) {
		return false, nil
	}
	a.assignmentsChanged(before)
	return true, nil
}

func (a *App) screenInfo(req *ipc.Request) (any, error) {
	p, err := decode[ipc.ScreenPayload](req)
	if err != nil {
		return nil, err
	}
	d, ok := a.screens.Lookup(p.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errScreenNotFound, p.Name)
	}
	return d, nil
}

func applyResult(ap unified.Applied) ipc.ApplyResult {
	return ipc.ApplyResult{Context: ap.Context, Entry: ap.Entry, Changed: ap.Changed}
}

func (a *App) applyLayout(req *ipc.Request) (any, error) {
	p, err := decode[ipc.ApplyPayload](req)
	if err != nil {
		return nil, err
	}
	ctx := a.context(p.ContextPayload)
	var ap unified.Applied
	switch {
	case p.ID != "":
		ap, err = a.unified.ApplyByID(ctx, p.ID)
	case p.Number > 0:
		ap, err = a.unified.ApplyByNumber(ctx, p.Number)
	case p.Index != nil:
		ap, err = a.unified.ApplyByIndex(ctx, *p.Index)
	default:
		return nil, errors.New("apply needs an id, number or index")
	}
	if err != nil {
		return nil, err
	}
	return applyResult(ap), nil
}

func (a *App) cycleLayout(req *ipc.Request) (any, error) {
	p, err := decode[ipc.CyclePayload](req)
	if err != nil {
		return nil, err
	}
	ap, err := a.unified.Cycle(a.context(p.ContextPayload), p.Forward)
	if err != nil {
		return nil, err
	}
	return applyResult(ap), nil
}

func (a *App) setMode(req *ipc.Request) (any, error) {
	p, err := decode[ipc.ModePayload](req)
	if err != nil {
		return nil, err
	}
	switch mode := config.TilingMode(p.Mode); mode {
	case config.TilingModeManual, config.TilingModeAutotile:
		return nil, a.router.SetMode(mode)
	case "toggle":
		return nil, a.router.ToggleMode()
	}
	return nil, fmt.Errorf("unknown tiling mode %q", p.Mode)
}

// hover reports the drag selection and schedules a zone selector update.
// The update is posted as a new task, never emitted from inside the drag
// handler.
func (a *App) hover() ipc.HoverData {
	res, screen, _ := a.tracker.Hover()
	a.loop.Post(func() {
		ev := events.Event{Kind: events.ZoneSelectorUpdate, ScreenID: screen, Count: len(res.Zones)}
		if res.Found() {
			ev.ZoneID = res.Zones[0].ID.String()
		}
		a.bus.Emit(ev)
	})
	return hoverData(res)
}

func hoverData(res zones.Result) ipc.HoverData {
	return ipc.HoverData{
		Zones:    lo.Map(res.Zones, func(p zones.Placed, _ int) string { return p.ID.String() }),
		Geometry: res.Geometry,
		Near:     res.Near,
	}
}

func parseZones(ids []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ids))
	for _, s := range ids {
		id, err := layout.ParseID(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (a *App) windowSnapped(req *ipc.Request) (any, error) {
	p, err := decode[ipc.SnapPayload](req)
	if err != nil {
		return nil, err
	}
	ids, err := parseZones(p.Zones)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, errors.New("no zones given")
	}
	screen := p.Screen
	if screen != "" {
		screen = a.screens.StableIDFor(screen)
	}
	return nil, a.tracker.WindowSnapped(p.Window, ids, screen, p.Desktop)
}

func (a *App) snapAssistSelect(req *ipc.Request) (any, error) {
	p, err := decode[ipc.SnapPayload](req)
	if err != nil {
		return nil, err
	}
	ids, err := parseZones(p.Zones)
	if err != nil {
		return nil, err
	}
	if len(ids) != 1 {
		return nil, errors.New("snap assist needs exactly one zone")
	}
	return nil, a.tracker.SelectSnapAssist(p.Window, ids[0])
}

func (a *App) setActivities(req *ipc.Request) (any, error) {
	p, err := decode[ipc.ActivitiesPayload](req)
	if err != nil {
		return nil, err
	}
	if req.Command == ipc.CommandSetActivitiesList {
		a.env.activities = p.All
		a.bus.Emit(events.Event{Kind: events.ActivitiesChanged, Count: len(p.All)})
		if p.Current == "" {
			return nil, nil
		}
	}
	a.setActivity(p.Current)
	return nil, nil
}

var _ ipc.Handler = (*App)(nil)
