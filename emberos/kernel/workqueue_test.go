package kernel

import "testing"

func TestWorkQueueFIFOOrder(t *testing.T) {
	var q WorkQueue
	var got []uint64
	record := func(data, _ uint64) { got = append(got, data) }

	for _, d := range []uint64{1, 2, 3} {
		if ok := q.Schedule(record, d, 0); !ok {
			t.Fatalf("Schedule(%d) ok = false, want true", d)
		}
	}

	if n := q.ProcessAll(); n != 3 {
		t.Fatalf("ProcessAll() = %d, want 3", n)
	}
	want := []uint64{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("executed %d items, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("execution order[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestWorkQueueFullRejects(t *testing.T) {
	var q WorkQueue
	var got []uint64
	record := func(data, _ uint64) { got = append(got, data) }

	for i := 0; i < MaxWorkItems; i++ {
		if ok := q.Schedule(record, uint64(i), 0); !ok {
			t.Fatalf("Schedule() ok = false at item %d, want true", i)
		}
	}
	if ok := q.Schedule(record, 999, 0); ok {
		t.Fatalf("Schedule() ok = true when full, want false")
	}

	st := q.Stats()
	if st.FullEvents != 1 {
		t.Fatalf("FullEvents = %d, want 1", st.FullEvents)
	}
	if q.Len() != MaxWorkItems {
		t.Fatalf("Len() = %d, want %d", q.Len(), MaxWorkItems)
	}

	// The rejected item must not have disturbed the queued ones.
	if n := q.ProcessAll(); n != MaxWorkItems {
		t.Fatalf("ProcessAll() = %d, want %d", n, MaxWorkItems)
	}
	for i := 0; i < MaxWorkItems; i++ {
		if got[i] != uint64(i) {
			t.Fatalf("execution order[%d] = %d, want %d", i, got[i], i)
		}
	}
}

func TestWorkQueueCancelSkips(t *testing.T) {
	var q WorkQueue
	var ran []uint64
	record := func(data, _ uint64) { ran = append(ran, data) }

	id1, ok := q.ScheduleID(record, 1, 0)
	if !ok {
		t.Fatalf("ScheduleID(1) ok = false, want true")
	}
	if ok := q.Schedule(record, 2, 0); !ok {
		t.Fatalf("Schedule(2) ok = false, want true")
	}

	if ok := q.Cancel(id1); !ok {
		t.Fatalf("Cancel(%d) ok = false, want true", id1)
	}
	if ok := q.Cancel(id1); ok {
		t.Fatalf("Cancel(%d) twice ok = true, want false", id1)
	}

	// The cancelled slot still drains, silently, and still counts.
	if n := q.ProcessAll(); n != 2 {
		t.Fatalf("ProcessAll() = %d, want 2", n)
	}
	if len(ran) != 1 || ran[0] != 2 {
		t.Fatalf("ran = %v, want [2]", ran)
	}

	st := q.Stats()
	if st.Cancelled != 1 {
		t.Fatalf("Cancelled = %d, want 1", st.Cancelled)
	}
	if st.Processed != 2 {
		t.Fatalf("Processed = %d, want 2", st.Processed)
	}
}

func TestWorkQueueProcessOneEmpty(t *testing.T) {
	var q WorkQueue
	if ok := q.ProcessOne(); ok {
		t.Fatalf("ProcessOne() on empty queue ok = true, want false")
	}
	if !q.Empty() {
		t.Fatalf("Empty() = false, want true")
	}
}

func TestWorkQueueCallbackMayReschedule(t *testing.T) {
	var q WorkQueue
	var ran []uint64

	second := func(data, _ uint64) { ran = append(ran, data) }
	first := func(data, _ uint64) {
		ran = append(ran, data)
		q.Schedule(second, data+1, 0)
	}

	if ok := q.Schedule(first, 10, 0); !ok {
		t.Fatalf("Schedule() ok = false, want true")
	}
	if n := q.ProcessAll(); n != 2 {
		t.Fatalf("ProcessAll() = %d, want 2", n)
	}
	if len(ran) != 2 || ran[0] != 10 || ran[1] != 11 {
		t.Fatalf("ran = %v, want [10 11]", ran)
	}
}

func TestWorkQueueNilFuncSkips(t *testing.T) {
	var q WorkQueue
	if ok := q.Schedule(nil, 0, 0); !ok {
		t.Fatalf("Schedule(nil) ok = false, want true")
	}
	if ok := q.ProcessOne(); !ok {
		t.Fatalf("ProcessOne() ok = false, want true")
	}
	if st := q.Stats(); st.Processed != 1 {
		t.Fatalf("Processed = %d, want 1", st.Processed)
	}
}
