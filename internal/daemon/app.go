package daemon

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/plasmazones/plasmazones/internal/assign"
	"github.com/plasmazones/plasmazones/internal/autotile"
	"github.com/plasmazones/plasmazones/internal/config"
	"github.com/plasmazones/plasmazones/internal/events"
	"github.com/plasmazones/plasmazones/internal/ipc"
	"github.com/plasmazones/plasmazones/internal/layout"
	"github.com/plasmazones/plasmazones/internal/logging"
	"github.com/plasmazones/plasmazones/internal/platform"
	"github.com/plasmazones/plasmazones/internal/router"
	"github.com/plasmazones/plasmazones/internal/runtimepath"
	"github.com/plasmazones/plasmazones/internal/screens"
	"github.com/plasmazones/plasmazones/internal/tracker"
	"github.com/plasmazones/plasmazones/internal/unified"
)

// Paths are the files the daemon reads and writes.
type Paths struct {
	Settings      string
	Assignments   string
	Session       string
	UserLayouts   string
	SystemLayouts []string
	Socket        string
}

// DefaultPaths resolves the XDG locations and the runtime socket.
func DefaultPaths() (Paths, error) {
	settings, err := config.DefaultConfigPath()
	if err != nil {
		return Paths{}, err
	}
	assignments, err := config.DataPath("assignments.json")
	if err != nil {
		return Paths{}, err
	}
	session, err := config.DataPath("session.json")
	if err != nil {
		return Paths{}, err
	}
	socket, err := runtimepath.SocketPath()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return Paths{
		Settings:      settings,
		Assignments:   assignments,
		Session:       session,
		UserLayouts:   config.UserLayoutDir(),
		SystemLayouts: config.SystemLayoutDirs(),
		Socket:        socket,
	}, nil
}

// Shortcuts registers global key sequences. fire runs on the shortcut
// goroutine with the action name of the pressed sequence.
type Shortcuts interface {
	Bind(bindings map[string]string, fire func(action string)) error
	Close() error
}

// Options configure an App.
type Options struct {
	Paths   Paths
	Backend platform.Backend
	// Shortcuts is optional.
	Shortcuts Shortcuts
	// WatchConfig reloads the settings file when it is edited externally.
	WatchConfig       bool
	ReconcileInterval time.Duration
	Log               zerolog.Logger
}

// App is the root composition object. Components are built leaves first
// in New; scoped resources are acquired in Start and released in reverse
// order by Close.
type App struct {
	opts    Options
	log     zerolog.Logger
	started time.Time

	bus      *events.Bus
	loop     *Loop
	store    *config.Store
	layouts  *layout.Registry
	table    *assign.Table
	resolver *assign.Resolver
	screens  *screens.Set
	env      *environment
	algs     *autotile.Registry
	engine   *autotile.Engine
	tracker  *tracker.Tracker
	unified  *unified.Controller
	router   *router.Router

	reconciler     *Reconciler
	layoutDebounce *Debouncer

	// shown is the manual layout last applied to each screen, used to map
	// windows by zone number when the layout changes.
	shown    map[string]*layout.Layout
	bound    map[string]string
	releases []func() error
}

// New builds every component and loads the persisted state. It does not
// talk to the window system.
func New(opts Options) (*App, error) {
	if opts.Backend == nil {
		return nil, errors.New("no window-system backend")
	}
	log := opts.Log
	a := &App{
		opts:  opts,
		log:   log.With().Str("component", "daemon").Logger(),
		bus:   events.NewBus(),
		shown: make(map[string]*layout.Layout),
	}
	a.loop = NewLoop(log)

	a.store = config.NewStore(opts.Paths.Settings, a.bus, log)
	a.store.Load()
	settings := a.store.Get()
	zerolog.SetGlobalLevel(logging.ParseLevel(settings.General.LogLevel))

	a.layouts = layout.NewRegistry(layout.NewFactory(log), opts.Paths.UserLayouts, opts.Paths.SystemLayouts, a.bus, log)
	a.layouts.Load()

	table, warnings, err := assign.Load(opts.Paths.Assignments)
	if err != nil {
		a.log.Error().Err(err).Str("path", opts.Paths.Assignments).Msg("cannot read assignments, starting empty")
		table = assign.NewTable()
	}
	for _, w := range warnings {
		a.log.Warn().Str("path", opts.Paths.Assignments).Msg(w)
	}
	a.table = table
	a.resolver = assign.NewResolver(table, a.layouts, a.store.DefaultLayoutID, log)

	a.screens = screens.NewSet(a.bus, log)
	a.env = &environment{screens: a.screens, desktop: 1, desktopCount: 1}
	a.algs = autotile.NewRegistry(log)
	a.engine = autotile.NewEngine(a.algs, opts.Backend, autotile.OptionsFrom(settings), log)
	a.tracker = tracker.New(a.resolver, opts.Backend, a.env, tracker.OptionsFrom(settings), a.bus, log)
	if err := a.tracker.Load(opts.Paths.Session); err != nil {
		a.log.Error().Err(err).Str("path", opts.Paths.Session).Msg("cannot read session, starting empty")
	}

	a.unified = unified.NewController(a.layouts, a.algs, a.resolver, a.store, a.bus, log)
	a.router = router.New(router.Deps{
		Store:   a.store,
		Tracker: a.tracker,
		Engine:  a.engine,
		Layouts: a.unified,
		Table:   a.table,
		Bus:     a.bus,
		Context: a.focusedContext,
	}, log)
	a.unified.OnApply(a.applied)

	a.resolver.OnStale(func() { a.loop.Post(a.prune) })
	a.reconciler = NewReconciler(ReconcilerConfig{Interval: opts.ReconcileInterval, Logger: log}, a.liveWindows, a.loop.Post, a.reconcile)
	a.layoutDebounce = NewDebouncer(layoutDebounce, a.loop.Post, a.refreshAll)
	a.bus.Subscribe(a.onEvent)
	return a, nil
}

// Bus returns the event bus.
func (a *App) Bus() *events.Bus { return a.bus }

// Start synchronizes with the window system and acquires the IPC socket,
// the settings watcher and the shortcut grabs. It runs before Run, on the
// caller's goroutine.
func (a *App) Start() error {
	a.started = time.Now()
	if err := a.syncBackend(); err != nil {
		return err
	}

	server := ipc.NewServer(a.opts.Paths.Socket, a, a.bus, a.opts.Log)
	if err := server.Start(); err != nil {
		return fmt.Errorf("cannot bind IPC socket: %w", err)
	}
	a.releases = append(a.releases, func() error {
		server.Stop()
		return nil
	})

	if a.opts.WatchConfig {
		stop, err := a.store.Watch(a.loop.Post)
		if err != nil {
			a.log.Warn().Err(err).Msg("settings file will not be watched")
		} else {
			a.releases = append(a.releases, stop)
		}
	}

	if a.opts.Shortcuts != nil {
		a.bindShortcuts()
		a.releases = append(a.releases, a.opts.Shortcuts.Close)
	}

	a.log.Info().Int("screens", len(a.screens.List())).Int("layouts", a.layouts.Len()).Msg("daemon ready")
	a.bus.Emit(events.Event{Kind: events.DaemonReady})
	return nil
}

// Run drives the loop, the window-system watch, the reconciler and the
// checkpoint timer until ctx is done or one of them fails.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.loop.Run(ctx) })
	g.Go(func() error {
		err := a.opts.Backend.Watch(ctx, a.notify)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("window system watch: %w", err)
		}
		return nil
	})
	g.Go(func() error { return a.reconciler.Run(ctx) })
	g.Go(func() error { return a.checkpointLoop(ctx) })
	return g.Wait()
}

// Close releases the scoped resources in reverse order, writes a final
// checkpoint and closes the backend. Call it after Run has returned.
func (a *App) Close() error {
	a.layoutDebounce.Stop()
	var errs []error
	for i := len(a.releases) - 1; i >= 0; i-- {
		errs = append(errs, a.releases[i]())
	}
	a.releases = nil
	a.checkpoint()
	errs = append(errs, a.opts.Backend.Close())
	return errors.Join(errs...)
}

func (a *App) syncBackend() error {
	b := a.opts.Backend
	descs, err := b.Screens()
	if err != nil {
		return fmt.Errorf("cannot query screens: %w", err)
	}
	a.screens.Update(descs)
	if n, err := b.CurrentDesktop(); err == nil && n > 0 {
		a.env.desktop = n
	}
	if n, err := b.DesktopCount(); err == nil && n > 0 {
		a.env.desktopCount = n
	}

	ctxs := make([]unified.Context, 0, len(descs))
	for _, d := range a.screens.List() {
		ctxs = append(ctxs, a.env.context(d.StableID))
	}
	a.router.Restore(ctxs...)
	a.refreshAll()

	windows, err := b.Windows()
	if err != nil {
		a.log.Warn().Err(err).Msg("cannot list windows")
	}
	for _, w := range windows {
		a.windowOpened(w)
	}
	if id, err := b.ActiveWindow(); err == nil && id != "" {
		a.windowActivated(id)
	}
	return nil
}

// notify is called by the backend on its own goroutine.
func (a *App) notify(n platform.Notification) {
	a.loop.Post(func() { a.handle(n) })
}

func (a *App) handle(n platform.Notification) {
	switch n.Kind {
	case platform.WindowOpened:
		a.windowOpened(n.Window)
	case platform.WindowReady:
		a.tracker.WindowReady(n.Window)
		a.addToEngine(n.Window)
	case platform.WindowClosed:
		a.engine.RemoveWindow(n.Window.ID)
		a.tracker.WindowClosed(n.Window.ID)
	case platform.WindowChanged:
		a.tracker.WindowChanged(n.Window)
	case platform.WindowActivated:
		a.windowActivated(n.Window.ID)
	case platform.DesktopChanged:
		a.desktopChanged(n.Desktop)
	case platform.DesktopCountChanged:
		if n.Count != a.env.desktopCount {
			a.env.desktopCount = n.Count
			a.bus.Emit(events.Event{Kind: events.VirtualDesktopCountChanged, Count: n.Count})
		}
	case platform.ScreensChanged:
		a.screensChanged()
	}
}

func (a *App) windowOpened(w platform.Window) {
	a.tracker.WindowOpened(w)
	a.addToEngine(w)
}

func (a *App) windowActivated(id string) {
	a.tracker.SetActive(id)
	a.engine.SetFocused(id)
}

// addToEngine hands a tracked window on the current desktop to the
// autotile engine when its screen is autotiled.
func (a *App) addToEngine(w platform.Window) {
	if _, ok := a.engine.Algorithm(w.Screen); !ok || a.engine.Manages(w.ID) {
		return
	}
	rec, ok := a.tracker.Record(w.ID)
	if !ok || !a.visible(rec) {
		return
	}
	if err := a.engine.AddWindow(rec.Screen, rec.RuntimeID); err != nil {
		a.log.Debug().Err(err).Str("window", w.ID).Msg("cannot autotile window")
	}
}

func (a *App) visible(r tracker.Record) bool {
	return r.Sticky || r.Desktop == 0 || r.Desktop == a.env.desktop
}

func (a *App) windowsOn(screen string) []string {
	var out []string
	for _, r := range a.tracker.Windows() {
		if r.Screen == screen && a.visible(r) {
			out = append(out, r.RuntimeID)
		}
	}
	return out
}

func (a *App) desktopChanged(n int) {
	if n <= 0 || n == a.env.desktop {
		return
	}
	a.log.Debug().Int("desktop", n).Msg("current desktop changed")
	a.env.desktop = n
	a.refreshAll()
}

func (a *App) setActivity(id string) {
	if id == a.env.activity {
		return
	}
	a.env.activity = id
	a.bus.Emit(events.Event{Kind: events.CurrentActivityChanged, ActivityID: id})
	a.refreshAll()
}

func (a *App) screensChanged() {
	descs, err := a.opts.Backend.Screens()
	if err != nil {
		a.log.Warn().Err(err).Msg("cannot query screens")
		return
	}
	ch := a.screens.Update(descs)
	for _, d := range ch.Removed {
		a.engine.Deactivate(d.StableID)
		delete(a.shown, d.StableID)
	}
	for _, d := range ch.Resized {
		a.engine.SetArea(d.StableID, d.AvailableGeometry)
		a.tracker.ScreenChanged(d.StableID)
	}
	for _, d := range ch.Added {
		a.refresh(d.StableID)
	}
}

func (a *App) refreshAll() {
	for _, d := range a.screens.List() {
		a.refresh(d.StableID)
	}
}

// refresh applies the effective layout or algorithm of the current
// context on screen to its windows.
func (a *App) refresh(screen string) {
	ctx := a.env.context(screen)
	res := a.resolver.Lookup(ctx.Screen, ctx.Desktop, ctx.Activity)
	if res.Algorithm != "" {
		area, ok := a.env.ScreenArea(screen)
		if !ok {
			return
		}
		windows := a.windowsOn(screen)
		keep := make(map[string]bool, len(windows))
		for _, w := range windows {
			keep[w] = true
		}
		for _, w := range a.engine.Windows(screen) {
			if !keep[w] {
				a.engine.RemoveWindow(w)
			}
		}
		a.engine.Activate(screen, res.Algorithm, area, windows)
		delete(a.shown, screen)
		return
	}

	a.engine.Deactivate(screen)
	numbers := make(map[uuid.UUID]int)
	if prev := a.shown[screen]; prev != nil {
		for _, z := range prev.Zones {
			if z.Number > 0 {
				numbers[z.ID] = z.Number
			}
		}
	}
	a.shown[screen] = res.Layout
	a.tracker.LayoutChanged(screen, numbers)
}

// applied runs after the unified controller applied an entry.
func (a *App) applied(ap unified.Applied) {
	if !ap.Changed {
		return
	}
	a.saveTable()
	ctx := ap.Context
	if ctx.Activity != "" && ctx.Activity != a.env.activity {
		return
	}
	if ctx.Desktop != 0 && ctx.Desktop != a.env.desktop {
		return
	}
	a.refresh(ctx.Screen)
}

// focusedContext is the screen of the active window, or the primary
// screen, with the current desktop and activity.
func (a *App) focusedContext() unified.Context {
	if rec, ok := a.tracker.Record(a.tracker.Active()); ok && rec.Screen != "" {
		return a.env.context(rec.Screen)
	}
	if d, ok := a.screens.Primary(); ok {
		return a.env.context(d.StableID)
	}
	return a.env.context("")
}

func (a *App) onEvent(ev events.Event) {
	switch ev.Kind {
	case events.LayoutModified, events.LayoutRemoved:
		a.layoutDebounce.Trigger()
		if ev.Kind == events.LayoutRemoved {
			a.loop.Post(a.prune)
		}
	case events.SettingsChanged:
		a.applySettings()
	}
}

func (a *App) applySettings() {
	s := a.store.Get()
	zerolog.SetGlobalLevel(logging.ParseLevel(s.General.LogLevel))
	a.tracker.SetOptions(tracker.OptionsFrom(s))
	a.engine.SetOptions(autotile.OptionsFrom(s))
	if a.opts.Shortcuts != nil && a.bound != nil && !maps.Equal(a.bound, s.Shortcuts()) {
		a.bindShortcuts()
	}
}

func (a *App) bindShortcuts() {
	bindings := a.store.Get().Shortcuts()
	err := a.opts.Shortcuts.Bind(bindings, func(action string) {
		a.loop.Post(func() { a.router.Dispatch(action) })
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("some shortcuts could not be registered")
	}
	a.bound = bindings
}

// prune drops assignments and quick slots that name missing layouts.
func (a *App) prune() {
	removed := a.table.Prune(a.layouts.ContainsString)
	if len(removed) == 0 && !a.table.Dirty() {
		return
	}
	for _, k := range removed {
		a.log.Info().Str("key", k.String()).Msg("removed assignment to missing layout")
	}
	a.resolver.ForgetStale()
	a.unified.Invalidate()
	a.saveTable()
}

// reconcile prunes stale assignments and forgets windows the window system
// no longer reports.
func (a *App) reconcile(alive map[string]bool) {
	a.prune()
	for _, screen := range a.engine.ActiveScreens() {
		for _, w := range a.engine.Windows(screen) {
			if !alive[w] {
				a.engine.RemoveWindow(w)
			}
		}
	}
	if n := a.tracker.Forget(alive); n > 0 {
		a.log.Info().Int("windows", n).Msg("forgot windows that no longer exist")
	}
}

func (a *App) liveWindows() ([]string, error) {
	windows, err := a.opts.Backend.Windows()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(windows))
	for i, w := range windows {
		ids[i] = w.ID
	}
	return ids, nil
}

func (a *App) saveTable() {
	if err := a.table.Save(a.opts.Paths.Assignments); err != nil {
		a.log.Error().Err(err).Msg("failed to save assignments")
	}
}

// checkpoint writes the session and the assignment table when dirty.
func (a *App) checkpoint() {
	if a.tracker.Dirty() {
		if err := a.tracker.Save(a.opts.Paths.Session); err != nil {
			a.log.Error().Err(err).Msg("session checkpoint failed")
		}
	}
	if a.table.Dirty() {
		a.saveTable()
	}
}

func (a *App) checkpointLoop(ctx context.Context) error {
	secs := a.store.Get().General.CheckpointSeconds
	if secs <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(time.Duration(secs) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			a.loop.Post(a.checkpoint)
		}
	}
}
