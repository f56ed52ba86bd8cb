package kernel

// TaskFunc is a task entry point. The executor calls it for one run burst at
// a time; a task that wants the CPU back simply returns and is called again
// on its next slice. Blocking and sleeping go through the RunContext.
type TaskFunc func(rc *RunContext)

// SavedContext is the callee-saved register file the architecture-specific
// context switch restores when a task is resumed. The kernel treats it as an
// opaque blob; only the switch routine reads or writes it. The host executor
// ignores it entirely and re-enters the task through its entry function.
type SavedContext struct {
	X19, X20, X21, X22, X23 uint64
	X24, X25, X26, X27, X28 uint64
	FP                      uint64
	SP                      uint64
	PC                      uint64
}

// Task is the schedulable unit. Tasks live exclusively in the Scheduler's
// table; everything outside the scheduler refers to them by TaskID.
type Task struct {
	ID        TaskID
	Name      string
	Priority  Priority
	State     TaskState
	Entry     TaskFunc
	StackBase uintptr
	StackSize uint32
	Context   SavedContext

	// remaining is the quantum the task has left in its current slice,
	// counted down by timer preemption.
	remaining uint32
}

type taskSlot struct {
	used bool
	gen  uint32
	task Task
}

// TaskInfo is a read-only copy of a task's externally visible state, handed
// out to diagnostics.
type TaskInfo struct {
	ID        TaskID
	Name      string
	Priority  Priority
	State     TaskState
	StackBase uintptr
	StackSize uint32
	Remaining uint32
}

func infoOf(t *Task) TaskInfo {
	return TaskInfo{
		ID:        t.ID,
		Name:      t.Name,
		Priority:  t.Priority,
		State:     t.State,
		StackBase: t.StackBase,
		StackSize: t.StackSize,
		Remaining: t.remaining,
	}
}
