package kernel

import "testing"

func nopEntry(*RunContext) {}

func mustCreate(t *testing.T, s *Scheduler, name string, prio Priority) TaskID {
	t.Helper()
	id, err := s.CreateTask(name, prio, nopEntry, 0, 0)
	if err != nil {
		t.Fatalf("CreateTask(%s) = %v, want nil", name, err)
	}
	return id
}

func TestTaskCountTracksLiveTasks(t *testing.T) {
	s := NewScheduler(0)

	ids := make([]TaskID, 0, 8)
	for i := 0; i < 8; i++ {
		ids = append(ids, mustCreate(t, s, "t", PriorityNormal))
	}
	if n := s.TaskCount(); n != 8 {
		t.Fatalf("TaskCount() = %d, want 8", n)
	}

	for i := 0; i < 3; i++ {
		if err := s.DestroyTask(ids[i]); err != nil {
			t.Fatalf("DestroyTask() = %v, want nil", err)
		}
	}
	if n := s.TaskCount(); n != 5 {
		t.Fatalf("TaskCount() = %d, want 5", n)
	}
}

func TestCreateTaskTableFull(t *testing.T) {
	s := NewScheduler(0)
	for i := 0; i < MaxTasks; i++ {
		mustCreate(t, s, "filler", PriorityLow)
	}
	if _, err := s.CreateTask("extra", PriorityLow, nopEntry, 0, 0); err != ErrTableFull {
		t.Fatalf("CreateTask() past capacity = %v, want ErrTableFull", err)
	}
	if n := s.TaskCount(); n != MaxTasks {
		t.Fatalf("TaskCount() = %d, want %d", n, MaxTasks)
	}
}

func TestScheduleSkipsBlockedAndTerminated(t *testing.T) {
	s := NewScheduler(0)
	a := mustCreate(t, s, "a", PriorityNormal)
	b := mustCreate(t, s, "b", PriorityNormal)
	mustCreate(t, s, "c", PriorityNormal)

	// Run a, block it; destroy b outright.
	if id, ok := s.Schedule(); !ok || id != a {
		t.Fatalf("Schedule() = %v, %v, want %v, true", id, ok, a)
	}
	if err := s.BlockCurrentTask(); err != nil {
		t.Fatalf("BlockCurrentTask() = %v, want nil", err)
	}
	if err := s.DestroyTask(b); err != nil {
		t.Fatalf("DestroyTask(b) = %v, want nil", err)
	}

	for i := 0; i < 6; i++ {
		id, ok := s.Schedule()
		if !ok {
			t.Fatalf("Schedule() ok = false with c ready")
		}
		ti, err := s.TaskInfo(id)
		if err != nil {
			t.Fatalf("TaskInfo(%v) = %v, want nil", id, err)
		}
		if ti.State != TaskRunning {
			t.Fatalf("scheduled task state = %v, want running", ti.State)
		}
		if id == a || id == b {
			t.Fatalf("Schedule() returned %v, want neither blocked %v nor destroyed %v", id, a, b)
		}
	}
}

func TestRoundRobinFairness(t *testing.T) {
	s := NewScheduler(0)
	const n = 4
	ids := make([]TaskID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, mustCreate(t, s, "peer", PriorityNormal))
	}

	// Two full laps: each task exactly once per lap, in insertion order.
	for lap := 0; lap < 2; lap++ {
		seen := map[TaskID]bool{}
		for i := 0; i < n; i++ {
			id, ok := s.Schedule()
			if !ok {
				t.Fatalf("Schedule() ok = false at lap %d slot %d", lap, i)
			}
			if seen[id] {
				t.Fatalf("task %v scheduled twice in one lap", id)
			}
			if id != ids[i] {
				t.Fatalf("lap %d slot %d = %v, want %v", lap, i, id, ids[i])
			}
			seen[id] = true
		}
	}
}

func TestSchedulePrefersHigherPriority(t *testing.T) {
	s := NewScheduler(0)
	low := mustCreate(t, s, "low", PriorityLow)
	crit := mustCreate(t, s, "crit", PriorityCritical)
	_ = low

	if id, ok := s.Schedule(); !ok || id != crit {
		t.Fatalf("Schedule() = %v, %v, want %v, true", id, ok, crit)
	}
	// The critical task never yields, so low never runs.
	for i := 0; i < 5; i++ {
		if id, ok := s.Schedule(); !ok || id != crit {
			t.Fatalf("Schedule() = %v, %v, want %v, true", id, ok, crit)
		}
	}
}

func TestScheduleIdle(t *testing.T) {
	s := NewScheduler(0)
	if id, ok := s.Schedule(); ok {
		t.Fatalf("Schedule() = %v, true on empty scheduler, want false", id)
	}
	if st := s.Stats(); st.IdleCycles != 1 {
		t.Fatalf("IdleCycles = %d, want 1", st.IdleCycles)
	}
}

func TestDestroyUnknownLeavesStateUnchanged(t *testing.T) {
	s := NewScheduler(0)
	mustCreate(t, s, "a", PriorityHigh)
	mustCreate(t, s, "b", PriorityNormal)

	before := s.Stats()
	count := s.TaskCount()

	if err := s.DestroyTask(makeTaskID(7, 99)); err != ErrTaskNotFound {
		t.Fatalf("DestroyTask(unknown) = %v, want ErrTaskNotFound", err)
	}

	if after := s.Stats(); after != before {
		t.Fatalf("Stats() changed across failed destroy: %+v -> %+v", before, after)
	}
	if n := s.TaskCount(); n != count {
		t.Fatalf("TaskCount() = %d after failed destroy, want %d", n, count)
	}
}

func TestStaleIDFailsAfterSlotReuse(t *testing.T) {
	s := NewScheduler(0)
	old := mustCreate(t, s, "old", PriorityNormal)
	if err := s.DestroyTask(old); err != nil {
		t.Fatalf("DestroyTask(old) = %v, want nil", err)
	}

	// The slot is reused immediately, under a fresh generation.
	reborn := mustCreate(t, s, "reborn", PriorityNormal)
	if reborn == old {
		t.Fatalf("new id %v equals destroyed id, generations not bumped", reborn)
	}

	if err := s.DestroyTask(old); err != ErrTaskNotFound {
		t.Fatalf("DestroyTask(stale) = %v, want ErrTaskNotFound", err)
	}
	if err := s.UnblockTask(old); err != ErrTaskNotFound {
		t.Fatalf("UnblockTask(stale) = %v, want ErrTaskNotFound", err)
	}
	if n := s.TaskCount(); n != 1 {
		t.Fatalf("TaskCount() = %d, want 1", n)
	}
}

func TestBlockAndUnblock(t *testing.T) {
	s := NewScheduler(0)
	a := mustCreate(t, s, "a", PriorityNormal)
	b := mustCreate(t, s, "b", PriorityNormal)

	if id, _ := s.Schedule(); id != a {
		t.Fatalf("Schedule() = %v, want %v", id, a)
	}
	if err := s.BlockCurrentTask(); err != nil {
		t.Fatalf("BlockCurrentTask() = %v, want nil", err)
	}
	if _, ok := s.CurrentTask(); ok {
		t.Fatalf("CurrentTask() ok = true after block, want false")
	}

	if id, _ := s.Schedule(); id != b {
		t.Fatalf("Schedule() = %v, want %v", id, b)
	}

	// a rejoins at the tail while b is off the ring running, so a is next;
	// b follows once Schedule requeues it.
	if err := s.UnblockTask(a); err != nil {
		t.Fatalf("UnblockTask(a) = %v, want nil", err)
	}
	if id, _ := s.Schedule(); id != a {
		t.Fatalf("Schedule() = %v, want woken %v", id, a)
	}
	if id, _ := s.Schedule(); id != b {
		t.Fatalf("Schedule() = %v, want %v", id, b)
	}
}

func TestBlockWithoutCurrent(t *testing.T) {
	s := NewScheduler(0)
	if err := s.BlockCurrentTask(); err != ErrNoCurrentTask {
		t.Fatalf("BlockCurrentTask() = %v, want ErrNoCurrentTask", err)
	}
}

func TestUnblockNotBlockedIsCountedNoop(t *testing.T) {
	s := NewScheduler(0)
	a := mustCreate(t, s, "a", PriorityNormal)

	if err := s.UnblockTask(a); err != nil {
		t.Fatalf("UnblockTask(ready task) = %v, want nil", err)
	}
	st := s.Stats()
	if st.SpuriousWakeups != 1 {
		t.Fatalf("SpuriousWakeups = %d, want 1", st.SpuriousWakeups)
	}
	if st.Unblocks != 0 {
		t.Fatalf("Unblocks = %d, want 0", st.Unblocks)
	}

	// The no-op must not have queued a second ready entry.
	if id, _ := s.Schedule(); id != a {
		t.Fatalf("Schedule() = %v, want %v", id, a)
	}
	if err := s.BlockCurrentTask(); err != nil {
		t.Fatalf("BlockCurrentTask() = %v, want nil", err)
	}
	if id, ok := s.Schedule(); ok {
		t.Fatalf("Schedule() = %v, true, want idle", id)
	}
}

func TestTimerPreemptionQuantum(t *testing.T) {
	s := NewScheduler(2)
	mustCreate(t, s, "a", PriorityNormal)
	mustCreate(t, s, "b", PriorityNormal)

	if _, ok := s.Schedule(); !ok {
		t.Fatalf("Schedule() ok = false, want true")
	}

	// First tick burns the quantum down to 1: no switch yet.
	if got := s.HandleTimerPreemption(); got {
		t.Fatalf("HandleTimerPreemption() tick 1 = true, want false")
	}
	// Second tick exhausts it with an equal-priority peer waiting.
	if got := s.HandleTimerPreemption(); !got {
		t.Fatalf("HandleTimerPreemption() tick 2 = false, want true")
	}
	if st := s.Stats(); st.Preemptions != 1 {
		t.Fatalf("Preemptions = %d, want 1", st.Preemptions)
	}
}

func TestTimerPreemptionAloneRecharges(t *testing.T) {
	s := NewScheduler(2)
	mustCreate(t, s, "solo", PriorityNormal)
	if _, ok := s.Schedule(); !ok {
		t.Fatalf("Schedule() ok = false, want true")
	}

	// With no peer the quantum recharges instead of forcing a switch.
	for tick := 0; tick < 10; tick++ {
		if got := s.HandleTimerPreemption(); got {
			t.Fatalf("HandleTimerPreemption() tick %d = true for a solo task, want false", tick)
		}
	}
}

func TestTimerPreemptionHigherPriorityWins(t *testing.T) {
	s := NewScheduler(100)
	norm := mustCreate(t, s, "norm", PriorityNormal)
	if id, _ := s.Schedule(); id != norm {
		t.Fatalf("Schedule() = %v, want %v", id, norm)
	}

	high := mustCreate(t, s, "high", PriorityHigh)
	// Quantum is nowhere near exhausted, but the higher class wins now.
	if got := s.HandleTimerPreemption(); !got {
		t.Fatalf("HandleTimerPreemption() = false with a high-priority task ready, want true")
	}
	if id, _ := s.Schedule(); id != high {
		t.Fatalf("Schedule() = %v, want %v", id, high)
	}
}

func TestTimerPreemptionIdleCPU(t *testing.T) {
	s := NewScheduler(0)
	if got := s.HandleTimerPreemption(); got {
		t.Fatalf("HandleTimerPreemption() = true with nothing to run, want false")
	}
	mustCreate(t, s, "a", PriorityLow)
	if got := s.HandleTimerPreemption(); !got {
		t.Fatalf("HandleTimerPreemption() = false with a ready task and idle CPU, want true")
	}
}

func TestSetEnabledSuppressesPreemption(t *testing.T) {
	s := NewScheduler(1)
	mustCreate(t, s, "a", PriorityNormal)
	mustCreate(t, s, "b", PriorityNormal)
	if _, ok := s.Schedule(); !ok {
		t.Fatalf("Schedule() ok = false, want true")
	}

	s.SetEnabled(false)
	for tick := 0; tick < 5; tick++ {
		if got := s.HandleTimerPreemption(); got {
			t.Fatalf("HandleTimerPreemption() = true while disabled, want false")
		}
	}

	s.SetEnabled(true)
	if got := s.HandleTimerPreemption(); !got {
		t.Fatalf("HandleTimerPreemption() = false after re-enable, want true")
	}
}

func TestYieldCurrentRequeues(t *testing.T) {
	s := NewScheduler(0)
	a := mustCreate(t, s, "a", PriorityNormal)
	b := mustCreate(t, s, "b", PriorityNormal)

	if id, _ := s.Schedule(); id != a {
		t.Fatalf("Schedule() = %v, want %v", id, a)
	}
	s.YieldCurrent()
	if _, ok := s.CurrentTask(); ok {
		t.Fatalf("CurrentTask() ok = true after yield, want false")
	}
	if id, _ := s.Schedule(); id != b {
		t.Fatalf("Schedule() = %v, want %v", id, b)
	}
}

func TestDestroyRunningTaskClearsCurrent(t *testing.T) {
	s := NewScheduler(0)
	a := mustCreate(t, s, "a", PriorityNormal)
	if id, _ := s.Schedule(); id != a {
		t.Fatalf("Schedule() = %v, want %v", id, a)
	}
	if err := s.DestroyTask(a); err != nil {
		t.Fatalf("DestroyTask(running) = %v, want nil", err)
	}
	if _, ok := s.CurrentTask(); ok {
		t.Fatalf("CurrentTask() ok = true after destroy, want false")
	}
	if id, ok := s.Schedule(); ok {
		t.Fatalf("Schedule() = %v, true after destroying the only task, want idle", id)
	}
}

func TestEndToEndSchedulingScenario(t *testing.T) {
	s := NewScheduler(2)
	a := mustCreate(t, s, "A", PriorityHigh)
	b := mustCreate(t, s, "B", PriorityNormal)
	c := mustCreate(t, s, "C", PriorityNormal)

	// A runs first: highest priority.
	if id, _ := s.Schedule(); id != a {
		t.Fatalf("Schedule() = %v, want A %v", id, a)
	}

	// A blocks; B is next in line.
	if err := s.BlockCurrentTask(); err != nil {
		t.Fatalf("BlockCurrentTask() = %v, want nil", err)
	}
	if id, _ := s.Schedule(); id != b {
		t.Fatalf("Schedule() = %v, want B %v", id, b)
	}

	// The timer exhausts B's quantum with C waiting at the same level.
	if s.HandleTimerPreemption() {
		t.Fatalf("HandleTimerPreemption() tick 1 = true, want false")
	}
	if !s.HandleTimerPreemption() {
		t.Fatalf("HandleTimerPreemption() tick 2 = false, want true")
	}

	// B is requeued to the tail; C runs; then B again. Round robin.
	if id, _ := s.Schedule(); id != c {
		t.Fatalf("Schedule() = %v, want C %v", id, c)
	}
	if id, _ := s.Schedule(); id != b {
		t.Fatalf("Schedule() = %v, want B %v again", id, b)
	}
}

func TestTasksIteratesLiveTasks(t *testing.T) {
	s := NewScheduler(0)
	mustCreate(t, s, "a", PriorityNormal)
	mustCreate(t, s, "b", PriorityLow)

	var names []string
	s.Tasks(func(ti TaskInfo) { names = append(names, ti.Name) })
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("Tasks() visited %v, want [a b]", names)
	}
}

func TestInitResets(t *testing.T) {
	s := NewScheduler(0)
	mustCreate(t, s, "a", PriorityNormal)
	s.Schedule()

	s.Init()
	if n := s.TaskCount(); n != 0 {
		t.Fatalf("TaskCount() = %d after Init, want 0", n)
	}
	if _, ok := s.CurrentTask(); ok {
		t.Fatalf("CurrentTask() ok = true after Init, want false")
	}
	if id, ok := s.Schedule(); ok {
		t.Fatalf("Schedule() = %v, true after Init, want idle", id)
	}
}
