package kernel

import "sync"

type sleeper struct {
	inUse bool
	due   uint64
	id    TaskID
}

// TimerStats counts tick and sleep activity since boot.
type TimerStats struct {
	Ticks           uint64
	Sleeps          uint64
	Wakeups         uint64
	TableFullEvents uint64
}

// Timers is the kernel tick keeper: a jiffies counter plus a fixed sleeper
// table. The hardware tick only enqueues a Timer-class work item; everything
// else, advancing jiffies and waking due sleepers, happens in the bottom
// half. Wakeups go through a Sched-class work item, so a full drain pass
// runs Timer work strictly before the unblocks it produces.
type Timers struct {
	mu    sync.Mutex
	sched *Scheduler
	def   *DeferredManager
	jiff  uint64
	table [MaxSleepers]sleeper
	stats TimerStats
}

// NewTimers wires the tick keeper to the scheduler it wakes tasks on and the
// deferred manager it schedules bottom halves through.
func NewTimers(s *Scheduler, d *DeferredManager) *Timers {
	return &Timers{sched: s, def: d}
}

// Jiffies reports the number of ticks the bottom half has processed.
func (t *Timers) Jiffies() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jiff
}

// OnTick is the timer top half. It only hands a work item to the Timer
// soft-IRQ class and returns; it is safe from interrupt context. False means
// the Timer queue was full and this tick's bottom half was dropped.
func (t *Timers) OnTick() bool {
	ok, err := t.def.ScheduleSoftIRQWork(SoftIRQTimer, t.tickWork, 0, 0)
	return ok && err == nil
}

// tickWork is the Timer-class bottom half: one jiffy forward, then a wakeup
// work item per due sleeper.
func (t *Timers) tickWork(_, _ uint64) {
	var due [MaxSleepers]TaskID
	n := 0

	t.mu.Lock()
	t.jiff++
	t.stats.Ticks++
	now := t.jiff
	for i := range t.table {
		sl := &t.table[i]
		if sl.inUse && sl.due <= now {
			due[n] = sl.id
			n++
			sl.inUse = false
		}
	}
	t.mu.Unlock()

	for i := 0; i < n; i++ {
		_, _ = t.def.ScheduleSoftIRQWork(SoftIRQSched, t.wakeWork, uint64(due[i]), 0)
	}
}

// wakeWork unblocks one sleeper. The id may be stale if the task was
// destroyed while asleep; generation checking makes that a clean miss.
func (t *Timers) wakeWork(data, _ uint64) {
	if t.sched.UnblockTask(TaskID(data)) == nil {
		t.mu.Lock()
		t.stats.Wakeups++
		t.mu.Unlock()
	}
}

// SleepCurrent blocks the running task for at least ticks jiffies. The entry
// is recorded before the task blocks so a tick between the two steps cannot
// lose the wakeup. ErrSleeperTableFull leaves the task running.
func (t *Timers) SleepCurrent(ticks uint64) error {
	id, ok := t.sched.CurrentTask()
	if !ok {
		return ErrNoCurrentTask
	}
	if ticks == 0 {
		ticks = 1
	}

	t.mu.Lock()
	idx := -1
	for i := range t.table {
		if !t.table[i].inUse {
			idx = i
			break
		}
	}
	if idx < 0 {
		t.stats.TableFullEvents++
		t.mu.Unlock()
		return ErrSleeperTableFull
	}
	t.table[idx] = sleeper{inUse: true, due: t.jiff + ticks, id: id}
	t.stats.Sleeps++
	t.mu.Unlock()

	if err := t.sched.BlockCurrentTask(); err != nil {
		t.mu.Lock()
		t.table[idx].inUse = false
		t.mu.Unlock()
		return err
	}
	return nil
}

// Sleeping reports the number of occupied sleeper slots.
func (t *Timers) Sleeping() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for i := range t.table {
		if t.table[i].inUse {
			n++
		}
	}
	return n
}

// Stats returns a copy of the timer counters.
func (t *Timers) Stats() TimerStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// Init clears the sleeper table and restarts jiffies from zero.
func (t *Timers) Init() {
	t.mu.Lock()
	t.table = [MaxSleepers]sleeper{}
	t.jiff = 0
	t.stats = TimerStats{}
	t.mu.Unlock()
}
