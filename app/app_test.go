//go:build !tinygo

package app

import (
	"testing"

	"ember/emberos/trap"
	"ember/hal"
	"ember/internal/config"
)

func TestSystemBootsAndRuns(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sys := newSystem(hal.New(), cfg)

	// blinker + two spinners + netsink
	if got := sys.sched.TaskCount(); got != 4 {
		t.Fatalf("TaskCount() = %d, want 4", got)
	}

	for i := 0; i < 200; i++ {
		if err := sys.step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}

	if got := sys.timers.Jiffies(); got == 0 {
		t.Fatalf("Jiffies() = 0 after stepping, want > 0")
	}
	if st := sys.sched.Stats(); st.Switches == 0 {
		t.Fatalf("Stats().Switches = 0 after stepping, want > 0")
	}
}

func TestNetIRQReachesSink(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	sys := newSystem(hal.New(), cfg)

	// Let the sink task run once so it is blocked waiting for a packet.
	for i := 0; i < 5; i++ {
		if err := sys.step(); err != nil {
			t.Fatalf("step %d error = %v", i, err)
		}
	}

	before := sys.sink.Packets()
	sys.disp.Dispatch(trap.VectorIRQ, irqLineNet)
	if err := sys.step(); err != nil {
		t.Fatalf("step after dispatch error = %v", err)
	}
	if got := sys.sink.Packets(); got != before+1 {
		t.Fatalf("Packets() = %d, want %d", got, before+1)
	}
	if got := sys.sink.Bytes(); got < 1500 {
		t.Fatalf("Bytes() = %d, want >= 1500", got)
	}
}
