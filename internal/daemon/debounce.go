package daemon

import (
	"sync"
	"time"
)

const layoutDebounce = 50 * time.Millisecond

// Debouncer coalesces bursts of triggers into one call of fn, posted
// through post once delay has passed without a new trigger.
type Debouncer struct {
	delay time.Duration
	post  func(func())
	fn    func()

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(delay time.Duration, post func(func()), fn func()) *Debouncer {
	return &Debouncer{delay: delay, post: post, fn: fn}
}

// Trigger restarts the delay.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.post(d.fn) })
}

// Stop drops a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
