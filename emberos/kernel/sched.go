package kernel

import "sync"

// SchedStats counts scheduler activity since boot.
type SchedStats struct {
	Created         uint64
	Destroyed       uint64
	Switches        uint64
	Preemptions     uint64
	Blocks          uint64
	Unblocks        uint64
	SpuriousWakeups uint64
	IdleCycles      uint64
}

// Scheduler owns the task table and the per-priority ready rings. It picks
// the next task to run and handles preemption, blocking and unblocking. All
// state lives in fixed arrays; tasks never move, only their ids travel
// through the rings.
//
// Selection is strictly priority-first: the head of the highest non-empty
// ring wins, and within one ring order is FIFO, which yields round robin
// among equal-priority tasks under timer requeueing. There is no aging; a
// continuously ready higher-priority task starves lower ones. That is the
// intended policy, not an oversight.
type Scheduler struct {
	mu      sync.Mutex
	slots   [MaxTasks]taskSlot
	rings   [NumPriorities]readyRing
	current TaskID
	enabled bool
	quantum uint32
	stats   SchedStats
	trace   *TraceRing
}

// DefaultQuantumTicks is the time slice granted on each dispatch when the
// boot configuration does not say otherwise.
const DefaultQuantumTicks = 10

// NewScheduler returns an empty, enabled scheduler handing out quantum-tick
// time slices. A quantum of zero falls back to DefaultQuantumTicks.
func NewScheduler(quantum uint32) *Scheduler {
	s := &Scheduler{}
	s.quantum = quantum
	s.initLocked()
	return s
}

func (s *Scheduler) initLocked() {
	if s.quantum == 0 {
		s.quantum = DefaultQuantumTicks
	}
	for i := range s.slots {
		s.slots[i] = taskSlot{gen: 1}
	}
	for i := range s.rings {
		s.rings[i].reset()
	}
	s.current = NoTask
	s.enabled = true
	s.stats = SchedStats{}
}

// Init resets the task table and every ready ring to empty. Ids handed out
// before the reset are dead: generations restart, so stale lookups fail.
func (s *Scheduler) Init() {
	s.mu.Lock()
	s.initLocked()
	s.mu.Unlock()
}

// slotOf resolves an id to its live slot. The generation embedded in the id
// must match the slot's current generation, so an id held across a destroy
// never resolves to the slot's next occupant.
func (s *Scheduler) slotOf(id TaskID) *taskSlot {
	idx := int(id.slot())
	if idx >= MaxTasks {
		return nil
	}
	sl := &s.slots[idx]
	if !sl.used || sl.task.ID != id {
		return nil
	}
	return sl
}

// CreateTask allocates a task-table slot, marks the task Ready and appends
// it to the tail of its priority's ring. ErrTableFull when all MaxTasks
// slots are occupied.
func (s *Scheduler) CreateTask(name string, prio Priority, entry TaskFunc, stackBase uintptr, stackSize uint32) (TaskID, error) {
	if prio >= NumPriorities {
		prio = PriorityLow
	}

	s.mu.Lock()
	idx := -1
	for i := range s.slots {
		if !s.slots[i].used {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return NoTask, ErrTableFull
	}

	sl := &s.slots[idx]
	id := makeTaskID(uint8(idx), sl.gen)
	sl.used = true
	sl.task = Task{
		ID:        id,
		Name:      name,
		Priority:  prio,
		State:     TaskReady,
		Entry:     entry,
		StackBase: stackBase,
		StackSize: stackSize,
		remaining: s.quantum,
	}
	s.rings[prio].push(id)
	s.stats.Created++
	s.mu.Unlock()

	s.trace.Record(TraceCreate, id, uint64(prio))
	return id, nil
}

// DestroyTask removes the task from wherever it is queued, marks it
// Terminated and frees its slot, bumping the slot generation so the id dies
// with it. ErrTaskNotFound for unknown or stale ids; the failure leaves all
// scheduler state untouched.
func (s *Scheduler) DestroyTask(id TaskID) error {
	s.mu.Lock()
	sl := s.slotOf(id)
	if sl == nil {
		s.mu.Unlock()
		return ErrTaskNotFound
	}

	if sl.task.State == TaskReady {
		s.rings[sl.task.Priority].remove(id)
	}
	if s.current == id {
		s.current = NoTask
	}
	sl.task.State = TaskTerminated
	sl.task.Entry = nil
	sl.used = false
	sl.gen++
	if sl.gen > maxGeneration {
		sl.gen = 1
	}
	s.stats.Destroyed++
	s.mu.Unlock()

	s.trace.Record(TraceDestroy, id, 0)
	return nil
}

// Schedule selects the next task to run. A current task that is still
// Running goes back to the tail of its own ring first, so equal-priority
// peers take turns. Returns false when no task is Ready; the caller idles
// and the idle-cycle counter moves.
func (s *Scheduler) Schedule() (TaskID, bool) {
	s.mu.Lock()
	if cur := s.slotOf(s.current); cur != nil && cur.task.State == TaskRunning {
		cur.task.State = TaskReady
		s.rings[cur.task.Priority].push(cur.task.ID)
	}
	s.current = NoTask

	for p := Priority(0); p < NumPriorities; p++ {
		for {
			id, ok := s.rings[p].pop()
			if !ok {
				break
			}
			sl := s.slotOf(id)
			if sl == nil || sl.task.State != TaskReady {
				continue
			}
			sl.task.State = TaskRunning
			sl.task.remaining = s.quantum
			s.current = id
			s.stats.Switches++
			s.mu.Unlock()

			s.trace.Record(TraceSwitch, id, uint64(p))
			return id, true
		}
	}

	s.stats.IdleCycles++
	s.mu.Unlock()
	return NoTask, false
}

// HandleTimerPreemption is called by the timer driver once per tick and
// reports whether a task switch is warranted. With the CPU idle it answers
// "is anything ready". With a task running it burns one tick of its quantum
// and preempts when a strictly higher-priority task is waiting, or when the
// quantum is gone and an equal-priority peer wants a turn. A task alone at
// its level just gets its quantum recharged.
func (s *Scheduler) HandleTimerPreemption() bool {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return false
	}

	cur := s.slotOf(s.current)
	if cur == nil || cur.task.State != TaskRunning {
		ready := false
		for p := Priority(0); p < NumPriorities; p++ {
			if !s.rings[p].empty() {
				ready = true
				break
			}
		}
		s.mu.Unlock()
		return ready
	}

	if cur.task.remaining > 0 {
		cur.task.remaining--
	}

	for p := Priority(0); p < cur.task.Priority; p++ {
		if !s.rings[p].empty() {
			id := cur.task.ID
			s.stats.Preemptions++
			s.mu.Unlock()
			s.trace.Record(TracePreempt, id, uint64(p))
			return true
		}
	}

	if cur.task.remaining == 0 {
		if !s.rings[cur.task.Priority].empty() {
			id := cur.task.ID
			prio := cur.task.Priority
			s.stats.Preemptions++
			s.mu.Unlock()
			s.trace.Record(TracePreempt, id, uint64(prio))
			return true
		}
		cur.task.remaining = s.quantum
	}

	s.mu.Unlock()
	return false
}

// BlockCurrentTask moves the running task to Blocked and clears the current
// slot. ErrNoCurrentTask when nothing is running.
func (s *Scheduler) BlockCurrentTask() error {
	s.mu.Lock()
	cur := s.slotOf(s.current)
	if cur == nil || cur.task.State != TaskRunning {
		s.mu.Unlock()
		return ErrNoCurrentTask
	}
	id := cur.task.ID
	cur.task.State = TaskBlocked
	s.current = NoTask
	s.stats.Blocks++
	s.mu.Unlock()

	s.trace.Record(TraceBlock, id, 0)
	return nil
}

// UnblockTask moves a Blocked task back to Ready at the tail of its ring.
// Unblocking a live task that is not Blocked is a counted no-op, so a wakeup
// racing a destroy-and-recreate or arriving twice stays harmless.
// ErrTaskNotFound for unknown or stale ids.
func (s *Scheduler) UnblockTask(id TaskID) error {
	s.mu.Lock()
	sl := s.slotOf(id)
	if sl == nil {
		s.mu.Unlock()
		return ErrTaskNotFound
	}
	if sl.task.State != TaskBlocked {
		s.stats.SpuriousWakeups++
		s.mu.Unlock()
		return nil
	}
	sl.task.State = TaskReady
	s.rings[sl.task.Priority].push(id)
	s.stats.Unblocks++
	s.mu.Unlock()

	s.trace.Record(TraceUnblock, id, 0)
	return nil
}

// YieldCurrent gives up the rest of the running task's slice voluntarily,
// requeueing it at the tail of its ring. No-op when nothing is running.
func (s *Scheduler) YieldCurrent() {
	s.mu.Lock()
	cur := s.slotOf(s.current)
	if cur == nil || cur.task.State != TaskRunning {
		s.mu.Unlock()
		return
	}
	cur.task.State = TaskReady
	s.rings[cur.task.Priority].push(cur.task.ID)
	s.current = NoTask
	s.mu.Unlock()
}

// CurrentTask returns the id of the running task, if any.
func (s *Scheduler) CurrentTask() (TaskID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl := s.slotOf(s.current); sl != nil && sl.task.State == TaskRunning {
		return s.current, true
	}
	return NoTask, false
}

// TaskCount reports the number of live (non-destroyed) tasks.
func (s *Scheduler) TaskCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.slots {
		if s.slots[i].used {
			n++
		}
	}
	return n
}

// TaskInfo returns a read-only copy of one task's visible state.
func (s *Scheduler) TaskInfo(id TaskID) (TaskInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slotOf(id)
	if sl == nil {
		return TaskInfo{}, ErrTaskNotFound
	}
	return infoOf(&sl.task), nil
}

// Tasks calls fn for every live task, in slot order. The callback receives
// copies; it cannot reach back into the table.
func (s *Scheduler) Tasks(fn func(TaskInfo)) {
	s.mu.Lock()
	infos := make([]TaskInfo, 0, MaxTasks)
	for i := range s.slots {
		if s.slots[i].used {
			infos = append(infos, infoOf(&s.slots[i].task))
		}
	}
	s.mu.Unlock()

	for _, ti := range infos {
		fn(ti)
	}
}

// EntryOf hands the executor a task's entry function. Separate from TaskInfo
// so diagnostics never see function values.
func (s *Scheduler) EntryOf(id TaskID) (TaskFunc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slotOf(id)
	if sl == nil || sl.task.Entry == nil {
		return nil, false
	}
	return sl.task.Entry, true
}

// Stats returns a copy of the scheduler counters.
func (s *Scheduler) Stats() SchedStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// SetEnabled turns timer preemption on or off. Disabled, the scheduler still
// honors explicit Schedule calls; boot code uses that to single-task until
// the system is wired up.
func (s *Scheduler) SetEnabled(v bool) {
	s.mu.Lock()
	s.enabled = v
	s.mu.Unlock()
}

// Enabled reports whether timer preemption is active.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// QuantumTicks reports the configured time slice.
func (s *Scheduler) QuantumTicks() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quantum
}

// SetTrace attaches a trace ring. A nil ring disables recording.
func (s *Scheduler) SetTrace(tr *TraceRing) {
	s.mu.Lock()
	s.trace = tr
	s.mu.Unlock()
}
