package kernel

// RunContext is what a task entry function gets to talk to the kernel with.
// The executor builds one per dispatch; it is only valid for the duration of
// that run burst, while the task is the current task.
type RunContext struct {
	sched  *Scheduler
	def    *DeferredManager
	timers *Timers
	id     TaskID
}

// NewRunContext builds the context the executor passes to a task entry.
func NewRunContext(s *Scheduler, d *DeferredManager, t *Timers, id TaskID) *RunContext {
	return &RunContext{sched: s, def: d, timers: t, id: id}
}

// Self returns the running task's id.
func (rc *RunContext) Self() TaskID { return rc.id }

// Block parks the task until someone calls UnblockTask with its id.
func (rc *RunContext) Block() error {
	return rc.sched.BlockCurrentTask()
}

// Sleep parks the task for at least ticks jiffies.
func (rc *RunContext) Sleep(ticks uint64) error {
	return rc.timers.SleepCurrent(ticks)
}

// Yield gives up the rest of the slice; the task stays Ready.
func (rc *RunContext) Yield() {
	rc.sched.YieldCurrent()
}

// Jiffies reports the kernel tick count.
func (rc *RunContext) Jiffies() uint64 {
	return rc.timers.Jiffies()
}

// ScheduleWork hands a bottom half to the main deferred queue.
func (rc *RunContext) ScheduleWork(fn WorkFunc, data, ctx uint64) bool {
	return rc.def.ScheduleWork(fn, data, ctx)
}

// RaiseSoftIRQ marks a soft-IRQ class pending.
func (rc *RunContext) RaiseSoftIRQ(irq SoftIRQ) error {
	return rc.def.RaiseSoftIRQ(irq)
}
