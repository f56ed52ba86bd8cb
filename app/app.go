// Package app boots EmberOS: it wires the HAL, the kernel core, the trap
// dispatcher, the console and the demo workloads together, and drives the
// tick → drain → preempt → run loop that hardware interrupts would drive on
// a board.
package app

import (
	"bufio"
	"fmt"
	"io"

	"ember/emberos/console"
	"ember/emberos/diag"
	"ember/emberos/kernel"
	"ember/emberos/tasks/blinker"
	"ember/emberos/tasks/netsink"
	"ember/emberos/tasks/spinner"
	"ember/emberos/trap"
	"ember/hal"
	"ember/internal/config"
)

// Virtual interrupt-controller line assignments. On hardware these would be
// GIC interrupt ids; hosted, key presses inject them.
const irqLineNet = 7

type system struct {
	h      hal.HAL
	cfg    config.Config
	sched  *kernel.Scheduler
	def    *kernel.DeferredManager
	timers *kernel.Timers
	disp   *trap.Dispatcher
	cons   *console.Console
	diag   *diag.Interpreter
	sink   *netsink.Sink
	ticks  uint64
}

// New initializes and starts the OS with default config.
func New(h hal.HAL) func() error {
	cfg, _ := config.Load("")
	return NewWithConfig(h, cfg)
}

// NewWithConfig initializes and starts the OS; the returned step function is
// invoked by the HAL runner once per hardware tick.
func NewWithConfig(h hal.HAL, cfg config.Config) func() error {
	sys := newSystem(h, cfg)
	return sys.step
}

// Run starts the OS and blocks forever (TinyGo/native entrypoint), driving
// the step loop from the HAL tick stream.
func Run(h hal.HAL) {
	cfg, _ := config.Load("")
	RunWithConfig(h, cfg)
}

func RunWithConfig(h hal.HAL, cfg config.Config) {
	sys := newSystem(h, cfg)
	ticks := h.Time().Ticks()
	if ticks == nil {
		select {}
	}
	for range ticks {
		_ = sys.step()
	}
}

func newSystem(h hal.HAL, cfg config.Config) *system {
	if cfg.ConsoleEvery <= 0 {
		cfg.ConsoleEvery = 10
	}
	if err := kernel.Boot(kernel.BootConfig{
		QuantumTicks: uint32(cfg.QuantumTicks),
		Cycles:       h.Time().Cycles,
	}); err != nil && err != kernel.ErrAlreadyBooted {
		h.Logger().WriteLineString(fmt.Sprintf("boot: %v", err))
	}

	sys := &system{
		h:      h,
		cfg:    cfg,
		sched:  kernel.Sched(),
		def:    kernel.Deferred(),
		timers: kernel.Time(),
		disp:   trap.NewDispatcher(),
	}

	installPanicHandler(h)

	var fb hal.Framebuffer
	if d := h.Display(); d != nil {
		fb = d.Framebuffer()
	}
	sys.cons = console.New(fb)
	sys.diag = diag.New(sys.sched, sys.def, sys.timers, kernel.Trace(), sys.disp)

	sys.spawnTasks()
	sys.wireTraps()
	sys.startDiagConsole()

	h.Logger().WriteLineString("emberos: up")
	return sys
}

func (sys *system) spawnTasks() {
	log := sys.h.Logger()

	entry := blinker.New(sys.h.LED(), uint64(sys.cfg.BlinkTicks))
	if _, err := sys.sched.CreateTask("blinker", kernel.PriorityNormal, entry, 0, 0); err != nil {
		log.WriteLineString(fmt.Sprintf("spawn blinker: %v", err))
	}

	for i := 0; i < sys.cfg.Spinners; i++ {
		sp := spinner.New(0)
		name := fmt.Sprintf("spin%d", i)
		if _, err := sys.sched.CreateTask(name, kernel.PriorityLow, sp.Entry, 0, 0); err != nil {
			log.WriteLineString(fmt.Sprintf("spawn %s: %v", name, err))
		}
	}

	if sys.cfg.NetSink {
		sys.sink = netsink.New(sys.sched, sys.def)
		id, err := sys.sched.CreateTask("netsink", kernel.PriorityHigh, sys.sink.Entry, 0, 0)
		if err != nil {
			log.WriteLineString(fmt.Sprintf("spawn netsink: %v", err))
		} else {
			sys.sink.Bind(id)
		}
	}
}

func (sys *system) wireTraps() {
	if sys.sink == nil {
		return
	}
	err := sys.disp.RegisterIRQ(irqLineNet, func(uint8) {
		// Top half: hand the frame to the Net bottom half and get out.
		sys.sink.Deliver(1500)
	})
	if err != nil {
		sys.h.Logger().WriteLineString(fmt.Sprintf("irq wiring: %v", err))
	}
}

// startDiagConsole serves the read-only diag commands over the serial port.
func (sys *system) startDiagConsole() {
	serial := sys.h.Serial()
	if serial == nil {
		return
	}
	go func() {
		sc := bufio.NewScanner(readerFrom(serial))
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				continue
			}
			if err := sys.diag.Exec(line, writerTo(serial)); err != nil {
				fmt.Fprintf(writerTo(serial), "%v\n", err)
			}
		}
	}()
}

func readerFrom(s hal.Serial) io.Reader { return serialRW{s} }
func writerTo(s hal.Serial) io.Writer   { return serialRW{s} }

type serialRW struct{ s hal.Serial }

func (w serialRW) Read(p []byte) (int, error)  { return w.s.Read(p) }
func (w serialRW) Write(p []byte) (int, error) { return w.s.Write(p) }

// step is one hardware tick: top halves have already run (key injection
// below stands in for them), deferred work drains at this safe point, then
// the timer preemption decision, then one run burst of the current task.
func (sys *system) step() error {
	if kernel.InPanicMode() {
		return nil
	}

	sys.ticks++
	kernel.Trace().SetTick(sys.ticks)

	sys.pollKeys()

	sys.timers.OnTick()
	if sys.def.HasPendingWork() {
		sys.def.ProcessDeferredWork()
	}

	if sys.sched.HandleTimerPreemption() {
		sys.sched.Schedule()
	} else if _, ok := sys.sched.CurrentTask(); !ok {
		sys.sched.Schedule()
	}

	if id, ok := sys.sched.CurrentTask(); ok {
		if entry, ok := sys.sched.EntryOf(id); ok {
			rc := kernel.NewRunContext(sys.sched, sys.def, sys.timers, id)
			kernel.RunEntry(rc, entry)
		}
	}

	if sys.ticks%uint64(sys.cfg.ConsoleEvery) == 0 {
		sys.renderConsole()
	}
	return nil
}

// pollKeys drains pending key events and injects the mapped synthetic
// exceptions: 'n' raises the network IRQ line, 's' logs scheduler stats.
func (sys *system) pollKeys() {
	in := sys.h.Input()
	if in == nil {
		return
	}
	kbd := in.Keyboard()
	if kbd == nil {
		return
	}
	ch := kbd.Events()
	if ch == nil {
		return
	}
	for {
		select {
		case ev := <-ch:
			if !ev.Press {
				continue
			}
			switch ev.Rune {
			case 'n':
				sys.disp.Dispatch(trap.VectorIRQ, irqLineNet)
			case 's':
				st := sys.sched.Stats()
				sys.logLine(fmt.Sprintf("sched: switches=%d preempt=%d idle=%d",
					st.Switches, st.Preemptions, st.IdleCycles))
			}
		default:
			return
		}
	}
}

func (sys *system) logLine(s string) {
	sys.h.Logger().WriteLineString(s)
	sys.cons.WriteLineString(s)
}

func (sys *system) renderConsole() {
	ds := sys.def.Stats()
	sys.cons.SetHeader(fmt.Sprintf("ember t=%d tasks=%d passes=%d items=%d",
		sys.ticks, sys.sched.TaskCount(), ds.Passes, ds.ItemsProcessed))

	if sys.sink != nil && sys.ticks%uint64(sys.cfg.ConsoleEvery*10) == 0 {
		sys.cons.WriteLineString(fmt.Sprintf("net: packets=%d bytes=%d dropped=%d",
			sys.sink.Packets(), sys.sink.Bytes(), sys.sink.Dropped()))
	}
	_ = sys.cons.Render()
}
