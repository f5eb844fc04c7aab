package slug

import (
	"context"
	"sync"
	"time"
)

// Debouncer delays a call per key until input has been quiet for delay.
// A newer call for the same key stops the pending timer and cancels the
// context handed to the superseded call, which may already be running.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]*pendingCall
	latest  map[string]uint64
}

type pendingCall struct {
	timer  *time.Timer
	cancel context.CancelFunc
	seq    uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:   delay,
		pending: make(map[string]*pendingCall),
		latest:  make(map[string]uint64),
	}
}

// Do schedules fn for key and returns its sequence token.
func (d *Debouncer) Do(key string, fn func(ctx context.Context, seq uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked(key)

	d.seq++
	seq := d.seq
	ctx, cancel := context.WithCancel(context.Background())
	call := &pendingCall{cancel: cancel, seq: seq}
	call.timer = time.AfterFunc(d.delay, func() {
		fn(ctx, seq)
		d.finish(key, seq)
	})
	d.pending[key] = call
	d.latest[key] = seq
	return seq
}

// IsCurrent reports whether seq is still the newest token for key.
func (d *Debouncer) IsCurrent(key string, seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest[key] == seq
}

// Cancel drops the pending call for key, if any, and invalidates its token.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked(key)
	delete(d.latest, key)
}

// Stop cancels every pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.pending {
		d.stopLocked(key)
	}
	d.latest = make(map[string]uint64)
}

// Pending returns the number of scheduled or running calls.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Debouncer) stopLocked(key string) {
	if call, ok := d.pending[key]; ok {
		call.timer.Stop()
		call.cancel()
		delete(d.pending, key)
	}
}

func (d *Debouncer) finish(key string, seq uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if call, ok := d.pending[key]; ok && call.seq == seq {
		call.cancel()
		delete(d.pending, key)
	}
}
