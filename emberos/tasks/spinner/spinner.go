// Package spinner is a CPU-bound workload that yields voluntarily after
// each burst. With two spinners at the same priority, the scheduler's round
// robin becomes visible in their near-equal burst counts.
package spinner

import (
	"sync/atomic"

	"ember/emberos/kernel"
)

// Spinner counts the run bursts it has been granted.
type Spinner struct {
	bursts atomic.Uint64
	work   int
}

// New returns a spinner burning roughly work iterations per burst.
func New(work int) *Spinner {
	if work <= 0 {
		work = 1 << 12
	}
	return &Spinner{work: work}
}

// Entry is the task entry function.
func (sp *Spinner) Entry(rc *kernel.RunContext) {
	sink := 0
	for i := 0; i < sp.work; i++ {
		sink += i ^ (sink << 1)
	}
	_ = sink
	sp.bursts.Add(1)
	rc.Yield()
}

// Bursts reports how many bursts have completed.
func (sp *Spinner) Bursts() uint64 {
	return sp.bursts.Load()
}
