package fs

import (
	"sync"
	"time"

	"github.com/aretw0/projctx/pkg/core"
)

// debouncer coalesces bursts of events for the same path into one event,
// emitted once the path has been quiet for delay.
type debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	pending map[string]*pendingEvent
	stopped bool
	wg      sync.WaitGroup
}

type pendingEvent struct {
	event core.Event
	emit  func(core.Event)
	timer *time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		pending: make(map[string]*pendingEvent),
	}
}

// add schedules e. emit runs on the timer goroutine.
func (d *debouncer) add(e core.Event, emit func(core.Event)) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if p, ok := d.pending[e.Path]; ok && p.timer.Stop() {
		p.event = coalesce(p.event, e)
		p.emit = emit
		p.timer.Reset(d.delay)
		return
	}

	p := &pendingEvent{event: e, emit: emit}
	d.pending[e.Path] = p
	d.wg.Add(1)
	p.timer = time.AfterFunc(d.delay, func() { d.fire(p) })
}

func (d *debouncer) fire(p *pendingEvent) {
	defer d.wg.Done()

	d.mu.Lock()
	if d.pending[p.event.Path] == p {
		delete(d.pending, p.event.Path)
	}
	event, emit := p.event, p.emit
	d.mu.Unlock()

	emit(event)
}

// stopAndWait drops pending events and waits up to timeout for emits already
// in progress.
func (d *debouncer) stopAndWait(timeout time.Duration) {
	d.mu.Lock()
	d.stopped = true
	for path, p := range d.pending {
		if p.timer.Stop() {
			d.wg.Done()
		}
		delete(d.pending, path)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// coalesce merges a newer event for the same path into an older one.
func coalesce(older, newer core.Event) core.Event {
	switch {
	case older.Type == core.EventCreate && newer.Type == core.EventModify:
		newer.Type = core.EventCreate
	case older.Type == core.EventDelete && newer.Type == core.EventCreate:
		// Atomic saves replace the file.
		newer.Type = core.EventModify
	}
	return newer
}
