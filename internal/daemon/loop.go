// Package daemon composes the tiling components and runs them on a single
// event loop.
package daemon

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/plasmazones/plasmazones/internal/ipc"
)

const (
	callTimeout = 5 * time.Second
	queueSize   = 256
)

// Loop runs tasks one at a time on its own goroutine. Every piece of
// mutable daemon state is touched only from inside a task.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	timeout time.Duration
	log     zerolog.Logger
}

// NewLoop creates a loop. It does nothing until Run is called.
func NewLoop(log zerolog.Logger) *Loop {
	return &Loop{
		tasks:   make(chan func(), queueSize),
		done:    make(chan struct{}),
		timeout: callTimeout,
		log:     log.With().Str("component", "loop").Logger(),
	}
}

// Run executes posted tasks until ctx is done. A panicking task is logged
// and the loop continues.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if err := recover(); err != nil {
			l.log.Error().Interface("panic", err).Msg("task panic recovered")
		}
	}()
	fn()
}

// Post queues fn without waiting for it. It is safe to call from inside a
// task: when the queue is full the send continues in the background.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	default:
		go func() {
			select {
			case l.tasks <- fn:
			case <-l.done:
			}
		}()
	}
}

// Call runs fn on the loop and waits for it. It returns ipc.ErrTimeout
// when fn has not finished within the call timeout. Call must not be used
// from inside a task.
func (l *Loop) Call(fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ipc.ErrTimeout
	case <-timer.C:
		l.log.Warn().Dur("timeout", l.timeout).Msg("loop call timed out")
		return ipc.ErrTimeout
	}
}
