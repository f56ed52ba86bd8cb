package kernel

import "testing"

func TestGlobalAccessorsBootLazily(t *testing.T) {
	if Sched() == nil {
		t.Fatalf("Sched() = nil, want instance")
	}
	if Deferred() == nil {
		t.Fatalf("Deferred() = nil, want instance")
	}
	if Time() == nil {
		t.Fatalf("Time() = nil, want instance")
	}

	// The globals are constructed once for the process lifetime; an explicit
	// Boot after first use must refuse.
	if err := Boot(BootConfig{}); err != ErrAlreadyBooted {
		t.Fatalf("Boot() after lazy boot = %v, want ErrAlreadyBooted", err)
	}

	if Sched() != Sched() {
		t.Fatalf("Sched() not stable across calls")
	}
}
