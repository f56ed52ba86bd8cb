// Package trap is the exception-dispatch layer between the hardware vector
// table and the kernel core. It classifies taken exceptions by vector and
// ESR_EL1 class, keeps its own statistics independent of the scheduler's,
// and routes IRQ lines to registered top-half handlers. Top halves run in
// interrupt context: they may hand work to the deferred-processing manager
// but must never drain it.
//
// On hardware the assembly vectors call Dispatch; hosted, the runner injects
// synthetic exceptions through the same entry, so the path under test is the
// path that ships.
package trap

import (
	"errors"
	"sync"
)

// Vector names the taken vector-table entry.
type Vector uint8

const (
	VectorSync Vector = iota
	VectorIRQ
	VectorFIQ
	VectorSError

	// NumVectors sizes the per-vector counters.
	NumVectors
)

func (v Vector) String() string {
	switch v {
	case VectorSync:
		return "sync"
	case VectorIRQ:
		return "irq"
	case VectorFIQ:
		return "fiq"
	case VectorSError:
		return "serror"
	default:
		return "invalid"
	}
}

// MaxIRQLines is the size of the IRQ routing table.
const MaxIRQLines = 32

var (
	ErrBadIRQLine = errors.New("trap: irq line out of range")
	ErrLineInUse  = errors.New("trap: irq line already registered")
)

// IRQHandler is a top-half handler for one interrupt line.
type IRQHandler func(line uint8)

// Stats counts taken exceptions since boot.
type Stats struct {
	Vectors  [NumVectors]uint64
	Classes  [NumClasses]uint64
	IRQs     [MaxIRQLines]uint64
	Unrouted uint64
}

// Dispatcher owns the IRQ routing table and the exception counters.
type Dispatcher struct {
	mu    sync.Mutex
	lines [MaxIRQLines]IRQHandler
	stats Stats
}

// NewDispatcher returns a dispatcher with an empty routing table.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// RegisterIRQ binds a top-half handler to a line. A line takes exactly one
// handler; re-registering is refused rather than silently replaced.
func (d *Dispatcher) RegisterIRQ(line uint8, h IRQHandler) error {
	if line >= MaxIRQLines {
		return ErrBadIRQLine
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.lines[line] != nil {
		return ErrLineInUse
	}
	d.lines[line] = h
	return nil
}

// Dispatch classifies one taken exception and counts it. For VectorIRQ the
// syndrome's low ISS byte carries the line number and the bound top half
// runs; the other vectors only record their class here, the kernel proper
// never sees them.
func (d *Dispatcher) Dispatch(v Vector, esr uint64) {
	if v >= NumVectors {
		return
	}
	syn := DecodeESR(esr)

	d.mu.Lock()
	d.stats.Vectors[v]++
	d.stats.Classes[syn.Class]++
	d.mu.Unlock()

	if v == VectorIRQ {
		d.DispatchIRQ(uint8(syn.ISS))
	}
}

// DispatchIRQ routes one interrupt line to its top half. Unrouted lines are
// counted, not fatal: a spurious interrupt must never take the kernel down.
func (d *Dispatcher) DispatchIRQ(line uint8) {
	if line >= MaxIRQLines {
		d.mu.Lock()
		d.stats.Unrouted++
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	h := d.lines[line]
	if h == nil {
		d.stats.Unrouted++
	} else {
		d.stats.IRQs[line]++
	}
	d.mu.Unlock()

	if h != nil {
		h(line)
	}
}

// Stats returns a copy of the exception counters.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}
