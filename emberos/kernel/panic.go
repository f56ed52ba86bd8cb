package kernel

import (
	"sync"
	"sync/atomic"
)

// PanicInfo describes a panic recovered at the task-entry boundary.
type PanicInfo struct {
	TaskID TaskID
	Value  any
	Stack  []byte
}

var (
	panicActive atomic.Bool
	panicOnce   sync.Once

	panicHandler atomic.Value // func(PanicInfo)
)

// InPanicMode reports whether a task panic has been recovered.
func InPanicMode() bool {
	return panicActive.Load()
}

// SetPanicHandler installs a process-wide panic handler.
//
// The handler is invoked at most once (on the first panic). It must not panic.
func SetPanicHandler(fn func(PanicInfo)) {
	panicHandler.Store(fn)
}

func triggerPanic(info PanicInfo) {
	panicOnce.Do(func() {
		panicActive.Store(true)
		info.Stack = captureStack()
		if v := panicHandler.Load(); v != nil {
			if fn, ok := v.(func(PanicInfo)); ok && fn != nil {
				fn(info)
			}
		}
	})
}

// RunEntry executes one run burst of a task entry, turning a panic into a
// call to the installed handler instead of taking the whole kernel down.
// The kernel core itself never panics; this fence exists for task code.
func RunEntry(rc *RunContext, entry TaskFunc) {
	if entry == nil {
		return
	}
	defer func() {
		if v := recover(); v != nil {
			triggerPanic(PanicInfo{TaskID: rc.id, Value: v})
		}
	}()
	entry(rc)
}
