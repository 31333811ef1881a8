package socketio

import (
	"sync"
	"time"

	"github.com/edumarques81/wavequeue/internal/domain/player"
)

// BroadcastDebouncer collapses rapid engine updates into one broadcast.
// The callback receives the union of the fields triggered during the window.
type BroadcastDebouncer struct {
	window   time.Duration
	callback func(changed player.Field)

	mu      sync.Mutex
	pending player.Field
	timer   *time.Timer
	stopped bool
}

// NewBroadcastDebouncer creates a debouncer with the given window duration.
func NewBroadcastDebouncer(window time.Duration, callback func(changed player.Field)) *BroadcastDebouncer {
	return &BroadcastDebouncer{
		window:   window,
		callback: callback,
	}
}

// Trigger records changed fields. The first trigger of a window arms the
// timer; later ones only add to the pending set, so steady ticks still
// flush once per window.
func (d *BroadcastDebouncer) Trigger(changed player.Field) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || changed == 0 {
		return
	}

	d.pending |= changed
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.flush)
	}
}

// Pending returns the fields waiting for the next flush.
func (d *BroadcastDebouncer) Pending() player.Field {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// flush fires the callback for any pending fields and resets them.
func (d *BroadcastDebouncer) flush() {
	d.mu.Lock()
	changed := d.pending
	d.pending = 0
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()

	if stopped || changed == 0 || d.callback == nil {
		return
	}
	d.callback(changed)
}

// Stop prevents any further callbacks from firing.
func (d *BroadcastDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = 0
}
