package kernel

import (
	"fmt"
	"io"
	"sync"
)

// TraceKind tags one kernel trace event.
type TraceKind uint8

const (
	TraceSwitch TraceKind = iota
	TracePreempt
	TraceBlock
	TraceUnblock
	TraceCreate
	TraceDestroy
	TraceDrain
	TraceSoftIRQ
)

func (k TraceKind) String() string {
	switch k {
	case TraceSwitch:
		return "switch"
	case TracePreempt:
		return "preempt"
	case TraceBlock:
		return "block"
	case TraceUnblock:
		return "unblock"
	case TraceCreate:
		return "create"
	case TraceDestroy:
		return "destroy"
	case TraceDrain:
		return "drain"
	case TraceSoftIRQ:
		return "softirq"
	default:
		return "unknown"
	}
}

// TraceEvent is one recorded kernel event. Arg depends on the kind: the
// priority for create, consumed items for drain, the class for softirq, the
// elapsed cycles for drain passes, and so on.
type TraceEvent struct {
	Seq  uint64
	Tick uint64
	Kind TraceKind
	Task TaskID
	Arg  uint64
}

// TraceRing keeps the most recent TraceDepth kernel events in a fixed ring,
// overwriting the oldest. Recording never allocates; snapshots are for the
// diagnostics path only.
type TraceRing struct {
	mu     sync.Mutex
	events [TraceDepth]TraceEvent
	next   uint64
	tick   uint64
}

// NewTraceRing returns an empty ring.
func NewTraceRing() *TraceRing {
	return &TraceRing{}
}

// SetTick updates the tick stamp applied to subsequent events.
func (t *TraceRing) SetTick(tick uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.tick = tick
	t.mu.Unlock()
}

// Record appends one event. Safe on a nil ring so tracing can be absent.
func (t *TraceRing) Record(kind TraceKind, task TaskID, arg uint64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events[t.next%TraceDepth] = TraceEvent{
		Seq:  t.next,
		Tick: t.tick,
		Kind: kind,
		Task: task,
		Arg:  arg,
	}
	t.next++
	t.mu.Unlock()
}

// Len reports how many events are currently retained.
func (t *TraceRing) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.next < TraceDepth {
		return int(t.next)
	}
	return TraceDepth
}

// Snapshot copies the retained events out, oldest first.
func (t *TraceRing) Snapshot() []TraceEvent {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.next
	count := uint64(TraceDepth)
	if n < count {
		count = n
	}
	out := make([]TraceEvent, 0, count)
	for i := n - count; i < n; i++ {
		out = append(out, t.events[i%TraceDepth])
	}
	return out
}

// Dump writes the retained events as one line each, oldest first, in the
// format cmd/embertrace parses back.
func (t *TraceRing) Dump(w io.Writer) error {
	for _, ev := range t.Snapshot() {
		_, err := fmt.Fprintf(w, "seq=%d tick=%d kind=%s task=%d arg=%d\n",
			ev.Seq, ev.Tick, ev.Kind, uint32(ev.Task), ev.Arg)
		if err != nil {
			return err
		}
	}
	return nil
}

func (t *TraceRing) reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.events = [TraceDepth]TraceEvent{}
	t.next = 0
	t.tick = 0
	t.mu.Unlock()
}
