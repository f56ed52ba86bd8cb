package kernel

import "sync"

// SoftIRQ classifies deferred interrupt work. Classes drain in declaration
// order, so the most latency-sensitive class comes first.
type SoftIRQ uint8

const (
	SoftIRQTimer SoftIRQ = iota
	SoftIRQNet
	SoftIRQBlock
	SoftIRQTasklet
	SoftIRQSched

	// NumSoftIRQs is the number of soft-IRQ classes.
	NumSoftIRQs
)

func (s SoftIRQ) String() string {
	switch s {
	case SoftIRQTimer:
		return "timer"
	case SoftIRQNet:
		return "net"
	case SoftIRQBlock:
		return "block"
	case SoftIRQTasklet:
		return "tasklet"
	case SoftIRQSched:
		return "sched"
	default:
		return "unknown"
	}
}

func (s SoftIRQ) valid() bool { return s < NumSoftIRQs }

// SoftIRQStats counts raises and drained items per class.
type SoftIRQStats struct {
	Raised    [NumSoftIRQs]uint64
	Processed [NumSoftIRQs]uint64
}

// SoftIRQManager owns one WorkQueue per soft-IRQ class plus a pending
// bitmask. The mask makes "anything pending?" a single load instead of five
// queue probes; a bit is set iff its queue is non-empty or has been raised
// since the last full drain of that class.
type SoftIRQManager struct {
	mu      sync.Mutex
	queues  [NumSoftIRQs]WorkQueue
	pending uint32
	stats   SoftIRQStats
	trace   *TraceRing
}

// Raise marks a class pending. Raising an already-pending class is a no-op:
// the pending state is a bit, not a counter, and the raised statistic only
// moves on the clear-to-set transition.
func (m *SoftIRQManager) Raise(irq SoftIRQ) error {
	if !irq.valid() {
		return ErrInvalidSoftIRQ
	}

	m.mu.Lock()
	bit := uint32(1) << irq
	if m.pending&bit == 0 {
		m.pending |= bit
		m.stats.Raised[irq]++
		m.mu.Unlock()
		m.trace.Record(TraceSoftIRQ, NoTask, uint64(irq))
		return nil
	}
	m.mu.Unlock()
	return nil
}

// ScheduleWork enqueues fn on the class queue and raises the class, but only
// if the enqueue succeeded. The bool mirrors the queue's capacity check.
func (m *SoftIRQManager) ScheduleWork(irq SoftIRQ, fn WorkFunc, data, ctx uint64) (bool, error) {
	if !irq.valid() {
		return false, ErrInvalidSoftIRQ
	}
	if !m.queues[irq].Schedule(fn, data, ctx) {
		return false, nil
	}
	_ = m.Raise(irq)
	return true, nil
}

// Process drains every pending class in fixed order, Timer first, fully
// emptying one class before touching the next. A class's pending bit is
// cleared only when its queue ends the drain empty; work scheduled onto an
// earlier class mid-drain stays pending for the next pass. Returns the
// number of items consumed.
func (m *SoftIRQManager) Process() uint32 {
	var total uint32
	for irq := SoftIRQ(0); irq < NumSoftIRQs; irq++ {
		bit := uint32(1) << irq

		m.mu.Lock()
		pending := m.pending&bit != 0
		m.mu.Unlock()

		if !pending && m.queues[irq].Empty() {
			continue
		}

		n := m.queues[irq].ProcessAll()

		m.mu.Lock()
		m.stats.Processed[irq] += uint64(n)
		if m.queues[irq].Empty() {
			m.pending &^= bit
		}
		m.mu.Unlock()

		total += n
	}
	return total
}

// Pending reports whether any class has work or an unserviced raise.
func (m *SoftIRQManager) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending != 0
}

// PendingMask returns the raw pending bits, one per class.
func (m *SoftIRQManager) PendingMask() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending
}

// QueueLen reports the queue depth of one class, for diagnostics.
func (m *SoftIRQManager) QueueLen(irq SoftIRQ) int {
	if !irq.valid() {
		return 0
	}
	return m.queues[irq].Len()
}

func (m *SoftIRQManager) Stats() SoftIRQStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

func (m *SoftIRQManager) setTrace(tr *TraceRing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trace = tr
}

func (m *SoftIRQManager) reset() {
	for i := range m.queues {
		m.queues[i].reset()
	}
	m.mu.Lock()
	m.pending = 0
	m.stats = SoftIRQStats{}
	m.mu.Unlock()
}
