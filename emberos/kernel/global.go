package kernel

import "sync"

// BootConfig parameterizes the process-wide kernel instances.
type BootConfig struct {
	// QuantumTicks is the time slice granted on each dispatch; zero means
	// DefaultQuantumTicks.
	QuantumTicks uint32

	// Cycles reads the platform cycle counter for deferred-pass accounting;
	// nil falls back to a call counter.
	Cycles CycleFunc

	// TraceDisabled turns off the kernel trace ring.
	TraceDisabled bool
}

var (
	bootMu  sync.Mutex
	booted  bool
	gSched  *Scheduler
	gDef    *DeferredManager
	gTimers *Timers
	gTrace  *TraceRing
)

// Boot constructs the process-wide scheduler, deferred manager, tick keeper
// and trace ring exactly once. There is no teardown: the instances live for
// the life of the process. A second call returns ErrAlreadyBooted and leaves
// the running kernel alone.
func Boot(cfg BootConfig) error {
	bootMu.Lock()
	defer bootMu.Unlock()
	if booted {
		return ErrAlreadyBooted
	}
	bootLocked(cfg)
	return nil
}

func bootLocked(cfg BootConfig) {
	if !cfg.TraceDisabled {
		gTrace = NewTraceRing()
	}
	gSched = NewScheduler(cfg.QuantumTicks)
	gSched.SetTrace(gTrace)
	gDef = NewDeferredManager(cfg.Cycles)
	gDef.SetTrace(gTrace)
	gTimers = NewTimers(gSched, gDef)
	booted = true
}

func ensureBooted() {
	bootMu.Lock()
	if !booted {
		bootLocked(BootConfig{})
	}
	bootMu.Unlock()
}

// Sched returns the process-wide scheduler, booting with defaults if Boot
// has not run; callers never see nil.
func Sched() *Scheduler {
	ensureBooted()
	return gSched
}

// Deferred returns the process-wide deferred-processing manager.
func Deferred() *DeferredManager {
	ensureBooted()
	return gDef
}

// Time returns the process-wide tick keeper.
func Time() *Timers {
	ensureBooted()
	return gTimers
}

// Trace returns the process-wide trace ring; nil when tracing was disabled
// at boot (TraceRing methods tolerate that).
func Trace() *TraceRing {
	ensureBooted()
	return gTrace
}
