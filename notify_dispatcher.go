package authkit

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// notifyDispatcher delivers notifications on a single background goroutine
// so lifecycle operations never wait on the mail transport. Delivery
// failures are logged and counted, never surfaced to callers.
type notifyDispatcher struct {
	notifier   Notifier
	metrics    *Metrics
	messages   chan Notification
	done       chan struct{}
	wg         sync.WaitGroup
	closed     atomic.Bool
	closeOnce  sync.Once
	dropped    atomic.Uint64
	dropIfFull bool
}

func newNotifyDispatcher(notifier Notifier, metrics *Metrics, bufferSize int, dropIfFull bool) *notifyDispatcher {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	d := &notifyDispatcher{
		notifier:   notifier,
		metrics:    metrics,
		messages:   make(chan Notification, bufferSize),
		done:       make(chan struct{}),
		dropIfFull: dropIfFull,
	}

	d.wg.Add(1)
	go d.run()

	return d
}

func (d *notifyDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case n := <-d.messages:
			d.deliver(n)
		case <-d.done:
			// Drain what is already buffered, then exit.
			for {
				select {
				case n := <-d.messages:
					d.deliver(n)
				default:
					return
				}
			}
		}
	}
}

func (d *notifyDispatcher) deliver(n Notification) {
	if err := d.notifier.Send(context.Background(), n); err != nil {
		log.Printf("authkit: notification %q to %s failed: %v", n.Kind, n.Email, err)
		d.metrics.Inc(MetricNotifyFailure)
	}
}

func (d *notifyDispatcher) dispatch(n Notification) {
	if d == nil || d.closed.Load() {
		if d != nil {
			d.dropped.Add(1)
		}
		return
	}

	if d.dropIfFull {
		select {
		case d.messages <- n:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.messages <- n:
	case <-d.done:
		d.dropped.Add(1)
	}
}

func (d *notifyDispatcher) droppedCount() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *notifyDispatcher) close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.done)
		d.wg.Wait()
	})
}
