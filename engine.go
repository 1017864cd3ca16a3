package authkit

import (
	"github.com/quillbox/authkit/jwt"
	"github.com/quillbox/authkit/password"
)

// Engine is the authentication core. Construct one with [New] and treat it
// as immutable; every method is safe for concurrent use.
type Engine struct {
	config  Config
	store   AccountStore
	hasher  *password.Argon2
	tokens  *jwt.Manager
	notify  *notifyDispatcher
	audit   *auditDispatcher
	metrics *Metrics
}

// Close stops the background dispatchers after draining their buffers. The
// engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.close()
	}
	if e.notify != nil {
		e.notify.close()
	}
}

// AuditDropped reports how many audit events were discarded because the
// dispatcher buffer was full or already closed.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.droppedCount()
}

// NotificationsDropped reports how many notifications were discarded
// because the dispatcher buffer was full or already closed.
func (e *Engine) NotificationsDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.notify.droppedCount()
}

// MetricsSnapshot returns a point-in-time copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) emitNotify(n Notification) {
	if e == nil || e.notify == nil {
		return
	}
	e.notify.dispatch(n)
}
