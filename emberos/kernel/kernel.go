// Package kernel implements the EmberOS concurrency core: the preemptive
// task scheduler and the deferred (bottom-half) interrupt processing
// machinery. Everything here is built on fixed-capacity containers; nothing
// allocates after boot and no operation blocks while a kernel lock is held.
//
// The core runs on one CPU. The only concurrency it has to survive is
// interrupt context racing task context, so every manager guards its state
// with a single mutex taken per operation. Suspension happens outside the
// kernel, at the context-switch boundary.
package kernel

import "errors"

const (
	// MaxTasks is the fixed task-table capacity.
	MaxTasks = 32

	// MaxWorkItems is the capacity of every deferred-work ring.
	MaxWorkItems = 32

	// MaxSleepers bounds the number of concurrently sleeping tasks.
	MaxSleepers = 32

	// TraceDepth is the number of trace events the kernel retains.
	TraceDepth = 256
)

var (
	ErrTaskNotFound     = errors.New("kernel: task not found")
	ErrTableFull        = errors.New("kernel: task table full")
	ErrNoCurrentTask    = errors.New("kernel: no current task")
	ErrInvalidSoftIRQ   = errors.New("kernel: invalid soft irq")
	ErrSleeperTableFull = errors.New("kernel: sleeper table full")
	ErrAlreadyBooted    = errors.New("kernel: already booted")
)

// TaskID identifies a task. The low byte is the task-table slot; the upper
// bits carry a generation counter bumped on every destroy, so an id held
// across a destroy can never alias the slot's next occupant. The zero value
// is never a valid id.
type TaskID uint32

// NoTask is the zero TaskID, used where no task is selected.
const NoTask TaskID = 0

const maxGeneration = 1<<24 - 1

func makeTaskID(slot uint8, gen uint32) TaskID {
	return TaskID(gen<<8 | uint32(slot))
}

func (id TaskID) slot() uint8        { return uint8(id) }
func (id TaskID) generation() uint32 { return uint32(id) >> 8 }

// Priority orders tasks. Lower numeric value means more urgent; the value
// doubles as the index into the per-priority ready rings.
type Priority uint8

const (
	PriorityCritical Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow

	// NumPriorities is the number of ready rings.
	NumPriorities
)

func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// TaskState is the lifecycle state of a task.
type TaskState uint8

const (
	TaskReady TaskState = iota
	TaskRunning
	TaskBlocked
	TaskTerminated
)

func (s TaskState) String() string {
	switch s {
	case TaskReady:
		return "ready"
	case TaskRunning:
		return "running"
	case TaskBlocked:
		return "blocked"
	case TaskTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}
