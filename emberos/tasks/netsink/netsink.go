// Package netsink is the bottom-half demo: a task that blocks until the
// network soft IRQ delivers it a packet. The top half (an IRQ line handler)
// calls Deliver; the Net-class work item counts the packet and wakes the
// task. It walks the whole interrupt handoff chain in miniature: top half,
// soft IRQ, drain point, unblock, schedule.
package netsink

import (
	"sync/atomic"

	"ember/emberos/kernel"
)

// Sink accumulates delivered packets and wakes its task on each one.
type Sink struct {
	sched   *kernel.Scheduler
	def     *kernel.DeferredManager
	task    atomic.Uint32
	packets atomic.Uint64
	bytes   atomic.Uint64
	dropped atomic.Uint64
}

// New builds a sink wired to the scheduler it wakes and the deferred
// manager it schedules through.
func New(s *kernel.Scheduler, d *kernel.DeferredManager) *Sink {
	return &Sink{sched: s, def: d}
}

// Bind records the task the sink wakes. Call it once the task exists.
func (sk *Sink) Bind(id kernel.TaskID) {
	sk.task.Store(uint32(id))
}

// Entry is the task entry: consume whatever arrived, then block until the
// next delivery.
func (sk *Sink) Entry(rc *kernel.RunContext) {
	_ = rc.Block()
}

// Deliver is the top half. It only enqueues a Net-class work item and
// returns; safe from interrupt context. Queue overflow counts a drop.
func (sk *Sink) Deliver(size uint64) {
	ok, err := sk.def.ScheduleSoftIRQWork(kernel.SoftIRQNet, sk.receiveWork, size, 0)
	if !ok || err != nil {
		sk.dropped.Add(1)
	}
}

// receiveWork is the Net-class bottom half: account the packet, wake the
// sink task. The id may be stale after a destroy; the unblock then misses
// cleanly.
func (sk *Sink) receiveWork(size, _ uint64) {
	sk.packets.Add(1)
	sk.bytes.Add(size)
	if id := kernel.TaskID(sk.task.Load()); id != kernel.NoTask {
		_ = sk.sched.UnblockTask(id)
	}
}

// Packets reports delivered packet count.
func (sk *Sink) Packets() uint64 { return sk.packets.Load() }

// Bytes reports delivered byte count.
func (sk *Sink) Bytes() uint64 { return sk.bytes.Load() }

// Dropped reports top-half drops from a full Net queue.
func (sk *Sink) Dropped() uint64 { return sk.dropped.Load() }
