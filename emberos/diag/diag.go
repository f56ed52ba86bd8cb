// Package diag implements the read-only diagnostic command interpreter the
// serial console exposes. Every command only queries kernel state; nothing
// here mutates the scheduler or the deferred machinery.
package diag

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"ember/emberos/kernel"
	"ember/emberos/trap"
	"ember/internal/buildinfo"

	"github.com/google/shlex"
)

// Interpreter binds the diag commands to the kernel instances they report
// on.
type Interpreter struct {
	sched  *kernel.Scheduler
	def    *kernel.DeferredManager
	timers *kernel.Timers
	trace  *kernel.TraceRing
	disp   *trap.Dispatcher
}

// New builds an interpreter. Any argument may be nil; the corresponding
// command then reports unavailability instead of crashing.
func New(s *kernel.Scheduler, d *kernel.DeferredManager, tk *kernel.Timers, tr *kernel.TraceRing, disp *trap.Dispatcher) *Interpreter {
	return &Interpreter{sched: s, def: d, timers: tk, trace: tr, disp: disp}
}

// Exec parses one command line and writes its report to w. Unknown commands
// and parse failures come back as errors; the caller decides how to show
// them.
func (it *Interpreter) Exec(line string, w io.Writer) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("diag: parse %q: %w", line, err)
	}
	if len(args) == 0 {
		return nil
	}

	switch args[0] {
	case "help":
		return it.cmdHelp(w)
	case "ps":
		return it.cmdPS(w)
	case "stats":
		return it.cmdStats(w)
	case "work":
		return it.cmdWork(w)
	case "softirq":
		return it.cmdSoftIRQ(w)
	case "trap":
		return it.cmdTrap(w)
	case "trace":
		return it.cmdTrace(w, args[1:])
	case "uptime":
		return it.cmdUptime(w)
	case "version":
		_, err := fmt.Fprintf(w, "emberos %s\n", buildinfo.Short())
		return err
	default:
		return fmt.Errorf("diag: unknown command %q (try help)", args[0])
	}
}

func (it *Interpreter) cmdHelp(w io.Writer) error {
	_, err := io.WriteString(w, strings.Join([]string{
		"help     commands",
		"ps       task table",
		"stats    scheduler counters",
		"work     deferred-work counters",
		"softirq  per-class soft-irq counters",
		"trap     exception counters",
		"trace N  last N trace events",
		"uptime   jiffies",
		"version  build id",
	}, "\n")+"\n")
	return err
}

func (it *Interpreter) cmdPS(w io.Writer) error {
	if it.sched == nil {
		return fmt.Errorf("diag: no scheduler")
	}
	fmt.Fprintf(w, "%-6s %-10s %-8s %-10s %s\n", "ID", "NAME", "PRIO", "STATE", "QUANTUM")
	var outerErr error
	it.sched.Tasks(func(ti kernel.TaskInfo) {
		if outerErr != nil {
			return
		}
		_, outerErr = fmt.Fprintf(w, "%-6d %-10s %-8s %-10s %d\n",
			uint32(ti.ID), ti.Name, ti.Priority, ti.State, ti.Remaining)
	})
	if outerErr != nil {
		return outerErr
	}
	_, err := fmt.Fprintf(w, "tasks: %d\n", it.sched.TaskCount())
	return err
}

func (it *Interpreter) cmdStats(w io.Writer) error {
	if it.sched == nil {
		return fmt.Errorf("diag: no scheduler")
	}
	st := it.sched.Stats()
	_, err := fmt.Fprintf(w,
		"created=%d destroyed=%d switches=%d preemptions=%d blocks=%d unblocks=%d spurious=%d idle=%d\n",
		st.Created, st.Destroyed, st.Switches, st.Preemptions,
		st.Blocks, st.Unblocks, st.SpuriousWakeups, st.IdleCycles)
	return err
}

func (it *Interpreter) cmdWork(w io.Writer) error {
	if it.def == nil {
		return fmt.Errorf("diag: no deferred manager")
	}
	ds := it.def.Stats()
	ms := it.def.MainQueueStats()
	fmt.Fprintf(w, "passes=%d items=%d cycles=%d maxpass=%d pending=%v\n",
		ds.Passes, ds.ItemsProcessed, ds.TotalCycles, ds.MaxPassCycles, it.def.HasPendingWork())
	_, err := fmt.Fprintf(w, "main: scheduled=%d processed=%d cancelled=%d full=%d len=%d\n",
		ms.Scheduled, ms.Processed, ms.Cancelled, ms.FullEvents, it.def.MainQueueLen())
	return err
}

func (it *Interpreter) cmdSoftIRQ(w io.Writer) error {
	if it.def == nil {
		return fmt.Errorf("diag: no deferred manager")
	}
	st := it.def.SoftIRQStats()
	mask := it.def.SoftIRQPendingMask()
	for irq := kernel.SoftIRQ(0); irq < kernel.NumSoftIRQs; irq++ {
		pending := " "
		if mask&(1<<irq) != 0 {
			pending = "*"
		}
		_, err := fmt.Fprintf(w, "%s %-8s raised=%d processed=%d len=%d\n",
			pending, irq, st.Raised[irq], st.Processed[irq], it.def.SoftIRQQueueLen(irq))
		if err != nil {
			return err
		}
	}
	return nil
}

func (it *Interpreter) cmdTrap(w io.Writer) error {
	if it.disp == nil {
		return fmt.Errorf("diag: no trap dispatcher")
	}
	st := it.disp.Stats()
	for v := trap.Vector(0); v < trap.NumVectors; v++ {
		if _, err := fmt.Fprintf(w, "vector %-7s %d\n", v, st.Vectors[v]); err != nil {
			return err
		}
	}
	for c := trap.Class(0); c < trap.NumClasses; c++ {
		if st.Classes[c] == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "class %-12s %d\n", c, st.Classes[c]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "unrouted=%d\n", st.Unrouted)
	return err
}

func (it *Interpreter) cmdTrace(w io.Writer, args []string) error {
	if it.trace == nil {
		return fmt.Errorf("diag: tracing disabled")
	}
	evs := it.trace.Snapshot()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("diag: trace: bad count %q", args[0])
		}
		if n < len(evs) {
			evs = evs[len(evs)-n:]
		}
	}
	for _, ev := range evs {
		_, err := fmt.Fprintf(w, "seq=%d tick=%d kind=%s task=%d arg=%d\n",
			ev.Seq, ev.Tick, ev.Kind, uint32(ev.Task), ev.Arg)
		if err != nil {
			return err
		}
	}
	return nil
}

func (it *Interpreter) cmdUptime(w io.Writer) error {
	if it.timers == nil {
		return fmt.Errorf("diag: no tick keeper")
	}
	st := it.timers.Stats()
	_, err := fmt.Fprintf(w, "jiffies=%d sleeping=%d sleeps=%d wakeups=%d\n",
		it.timers.Jiffies(), it.timers.Sleeping(), st.Sleeps, st.Wakeups)
	return err
}
