package netsink

import (
	"testing"

	"ember/emberos/kernel"
)

func TestDeliverWakesBlockedTask(t *testing.T) {
	s := kernel.NewScheduler(0)
	d := kernel.NewDeferredManager(nil)
	tk := kernel.NewTimers(s, d)

	sink := New(s, d)
	id, err := s.CreateTask("netsink", kernel.PriorityHigh, sink.Entry, 0, 0)
	if err != nil {
		t.Fatalf("CreateTask() = %v, want nil", err)
	}
	sink.Bind(id)

	got, ok := s.Schedule()
	if !ok || got != id {
		t.Fatalf("Schedule() = %v, %v, want %v, true", got, ok, id)
	}
	kernel.RunEntry(kernel.NewRunContext(s, d, tk, id), sink.Entry)
	if ti, _ := s.TaskInfo(id); ti.State != kernel.TaskBlocked {
		t.Fatalf("state after entry = %v, want blocked", ti.State)
	}

	sink.Deliver(1500)
	if !d.HasPendingWork() {
		t.Fatalf("HasPendingWork() = false after Deliver, want true")
	}
	d.ProcessDeferredWork()

	if ti, _ := s.TaskInfo(id); ti.State != kernel.TaskReady {
		t.Fatalf("state after drain = %v, want ready", ti.State)
	}
	if sink.Packets() != 1 || sink.Bytes() != 1500 {
		t.Fatalf("Packets, Bytes = %d, %d, want 1, 1500", sink.Packets(), sink.Bytes())
	}
}

func TestDeliverCountsDropsWhenQueueFull(t *testing.T) {
	s := kernel.NewScheduler(0)
	d := kernel.NewDeferredManager(nil)
	sink := New(s, d)

	for i := 0; i < kernel.MaxWorkItems; i++ {
		sink.Deliver(1)
	}
	if sink.Dropped() != 0 {
		t.Fatalf("Dropped = %d before overflow, want 0", sink.Dropped())
	}
	sink.Deliver(1)
	if sink.Dropped() != 1 {
		t.Fatalf("Dropped = %d, want 1", sink.Dropped())
	}
}
