package bus

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of triggers into a single trailing-edge publish.
// Each Trigger restarts the timer; when the quiet period elapses the most
// recent payload is published once.
type Debouncer struct {
	bus   *Bus
	topic string
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	payload any
	stopped bool
}

// NewDebouncer creates a debouncer publishing on topic after delay of quiet.
func NewDebouncer(b *Bus, topic string, delay time.Duration) *Debouncer {
	return &Debouncer{bus: b, topic: topic, delay: delay}
}

// Trigger records payload and (re)starts the quiet-period timer.
func (d *Debouncer) Trigger(payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.payload = payload

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	payload := d.payload
	d.payload = nil
	d.timer = nil
	d.mu.Unlock()

	d.bus.Publish(d.topic, payload)
}

// Stop cancels any pending publish. The debouncer cannot be restarted.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
