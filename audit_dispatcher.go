package authkit

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher fans audit events out to a sink on a single background
// goroutine so lifecycle operations never block on sink latency.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	done       chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	closeOnce  sync.Once
	dropped    atomic.Uint64
	dropIfFull bool
}

func newAuditDispatcher(sink AuditSink, bufferSize int, dropIfFull bool) *auditDispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, bufferSize),
		done:       make(chan struct{}),
		dropIfFull: dropIfFull,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.done:
			// Drain what is already buffered, then exit.
			for {
				select {
				case event := <-d.events:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// dispatch enqueues an event for delivery. After Close, or when the buffer
// is full and dropIfFull is set, the event is counted as dropped instead.
func (d *auditDispatcher) dispatch(event AuditEvent) {
	if d == nil || d.closed.Load() {
		if d != nil {
			d.dropped.Add(1)
		}
		return
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-d.done:
		d.dropped.Add(1)
	}
}

func (d *auditDispatcher) droppedCount() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// close stops the dispatcher after draining buffered events. Safe to call
// more than once.
func (d *auditDispatcher) close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
