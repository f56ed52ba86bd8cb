package kernel

import (
	"sync"
	"sync/atomic"
)

// CycleFunc reads a free-running cycle counter. The HAL provides one per
// platform; when absent the manager falls back to counting its own calls so
// the statistics stay monotonic.
type CycleFunc func() uint64

// DeferredStats aggregates bottom-half processing since boot.
type DeferredStats struct {
	Passes         uint64
	ItemsProcessed uint64
	TotalCycles    uint64
	MaxPassCycles  uint64
}

// DeferredManager is the single entry point interrupt handlers use to hand
// off bottom-half work. It owns the main work queue and the soft-IRQ
// machinery, and accounts every processing pass.
//
// Handlers may schedule and raise from interrupt context at any time; those
// paths are bounded and non-blocking. Draining happens only at explicit
// safe points, never inside a time-critical interrupt path.
type DeferredManager struct {
	mu       sync.Mutex
	main     WorkQueue
	soft     SoftIRQManager
	cycles   CycleFunc
	fallback atomic.Uint64
	stats    DeferredStats
	trace    *TraceRing
}

// NewDeferredManager builds a manager using cycles for pass timing; cycles
// may be nil.
func NewDeferredManager(cycles CycleFunc) *DeferredManager {
	return &DeferredManager{cycles: cycles}
}

func (d *DeferredManager) now() uint64 {
	if d.cycles != nil {
		return d.cycles()
	}
	return d.fallback.Add(1)
}

// ScheduleWork enqueues fn on the main queue. False means the queue was
// full; the caller decides whether to retry or drop.
func (d *DeferredManager) ScheduleWork(fn WorkFunc, data, ctx uint64) bool {
	return d.main.Schedule(fn, data, ctx)
}

// ScheduleWorkID is ScheduleWork returning the item id for a later Cancel.
func (d *DeferredManager) ScheduleWorkID(fn WorkFunc, data, ctx uint64) (uint32, bool) {
	return d.main.ScheduleID(fn, data, ctx)
}

// CancelWork invalidates a queued main-queue item by id.
func (d *DeferredManager) CancelWork(id uint32) bool {
	return d.main.Cancel(id)
}

// RaiseSoftIRQ marks a soft-IRQ class pending.
func (d *DeferredManager) RaiseSoftIRQ(irq SoftIRQ) error {
	return d.soft.Raise(irq)
}

// ScheduleSoftIRQWork enqueues fn on a class queue, raising the class on
// success.
func (d *DeferredManager) ScheduleSoftIRQWork(irq SoftIRQ, fn WorkFunc, data, ctx uint64) (bool, error) {
	return d.soft.ScheduleWork(irq, fn, data, ctx)
}

// ProcessDeferredWork drains the main queue, then every pending soft-IRQ
// class, and folds the pass into the aggregate statistics. It must be called
// from a safe point (return-from-interrupt hook or the scheduler tick),
// never from a time-critical interrupt path.
func (d *DeferredManager) ProcessDeferredWork() uint32 {
	start := d.now()

	n := d.main.ProcessAll()
	n += d.soft.Process()

	elapsed := d.now() - start

	d.mu.Lock()
	d.stats.Passes++
	d.stats.ItemsProcessed += uint64(n)
	d.stats.TotalCycles += elapsed
	if elapsed > d.stats.MaxPassCycles {
		d.stats.MaxPassCycles = elapsed
	}
	d.mu.Unlock()

	if n > 0 {
		d.trace.Record(TraceDrain, NoTask, elapsed)
	}
	return n
}

// HasPendingWork reports whether a drain pass would find anything: the main
// queue is non-empty or some soft-IRQ class is pending.
func (d *DeferredManager) HasPendingWork() bool {
	return !d.main.Empty() || d.soft.Pending()
}

func (d *DeferredManager) Stats() DeferredStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// MainQueueStats exposes the main queue counters for diagnostics.
func (d *DeferredManager) MainQueueStats() WorkQueueStats {
	return d.main.Stats()
}

// MainQueueLen reports the main queue depth.
func (d *DeferredManager) MainQueueLen() int {
	return d.main.Len()
}

// SoftIRQStats exposes the per-class counters for diagnostics.
func (d *DeferredManager) SoftIRQStats() SoftIRQStats {
	return d.soft.Stats()
}

// SoftIRQPendingMask exposes the pending bits for diagnostics.
func (d *DeferredManager) SoftIRQPendingMask() uint32 {
	return d.soft.PendingMask()
}

// SoftIRQQueueLen reports one class queue's depth for diagnostics.
func (d *DeferredManager) SoftIRQQueueLen(irq SoftIRQ) int {
	return d.soft.QueueLen(irq)
}

// SetTrace attaches a trace ring to the manager and its soft-IRQ machinery.
func (d *DeferredManager) SetTrace(tr *TraceRing) {
	d.mu.Lock()
	d.trace = tr
	d.mu.Unlock()
	d.soft.setTrace(tr)
}

// Init empties every queue and zeroes the statistics.
func (d *DeferredManager) Init() {
	d.main.reset()
	d.soft.reset()
	d.mu.Lock()
	d.stats = DeferredStats{}
	d.mu.Unlock()
}
