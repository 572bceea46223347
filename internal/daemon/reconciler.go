package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// WindowLister returns the runtime ids of the windows that currently exist.
type WindowLister func() ([]string, error)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   zerolog.Logger
}

// Reconciler periodically checks for state drift and corrects it. The
// window list is fetched on the reconciler goroutine; the correction runs
// on the daemon loop through post.
type Reconciler struct {
	interval    time.Duration
	listWindows WindowLister
	post        func(func())
	apply       func(alive map[string]bool)
	logger      zerolog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
// apply receives the set of live window ids and runs on the loop.
func NewReconciler(cfg ReconcilerConfig, listWindows WindowLister, post func(func()), apply func(alive map[string]bool)) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	return &Reconciler{
		interval:    interval,
		listWindows: listWindows,
		post:        post,
		apply:       apply,
		logger:      cfg.Logger.With().Str("component", "reconciler").Logger(),
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Debug().Dur("interval", r.interval).Msg("reconciler started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug().Msg("reconciler stopped")
			return nil
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error().Interface("panic", err).Msg("reconciler panic recovered")
		}
	}()

	ids, err := r.listWindows()
	if err != nil {
		r.logger.Warn().Err(err).Msg("reconciler: failed to list windows")
		return
	}

	alive := make(map[string]bool, len(ids))
	for _, id := range ids {
		alive[id] = true
	}
	r.post(func() { r.apply(alive) })
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
