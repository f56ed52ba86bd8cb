package kernel

import "sync"

// WorkFunc is a deferred callback. The two words are opaque to the queue;
// their meaning is a private contract between the scheduling site and the
// function. A WorkFunc runs with no kernel lock held and may schedule
// further work, including onto the queue that is draining it.
type WorkFunc func(data, ctx uint64)

// WorkItem is one queued deferred call. It is a plain value: scheduling
// copies it into the ring and processing copies it back out, so no item
// ever lives on the heap.
type WorkItem struct {
	fn    WorkFunc
	data  uint64
	ctx   uint64
	id    uint32
	valid bool
}

// WorkQueueStats counts what a queue has seen since boot.
type WorkQueueStats struct {
	Scheduled  uint64
	Processed  uint64
	Cancelled  uint64
	FullEvents uint64
}

// WorkQueue is a fixed-capacity FIFO of deferred calls. Enqueue fails
// immediately when the ring is full; nothing ever blocks or grows. FIFO
// order is load-bearing: it is what makes bottom halves run in arrival
// order.
type WorkQueue struct {
	mu     sync.Mutex
	items  [MaxWorkItems]WorkItem
	head   uint8
	tail   uint8
	count  uint8
	nextID uint32
	stats  WorkQueueStats
}

// Schedule enqueues fn with its two payload words. It reports false, and
// counts a full event, when the queue is at capacity.
func (q *WorkQueue) Schedule(fn WorkFunc, data, ctx uint64) bool {
	_, ok := q.ScheduleID(fn, data, ctx)
	return ok
}

// ScheduleID is Schedule returning the item id as well, for callers that
// may later Cancel the item.
func (q *WorkQueue) ScheduleID(fn WorkFunc, data, ctx uint64) (uint32, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count >= MaxWorkItems {
		q.stats.FullEvents++
		return 0, false
	}

	id := q.nextID
	q.nextID++ // wraps; ids only need to be unique among queued items

	q.items[q.head%MaxWorkItems] = WorkItem{fn: fn, data: data, ctx: ctx, id: id, valid: true}
	q.head++
	q.count++
	q.stats.Scheduled++
	return id, true
}

// Cancel marks a still-queued item invalid. The slot stays in the ring and
// drains as a silent skip. Reports whether the id was found.
func (q *WorkQueue) Cancel(id uint32) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := uint8(0); i < q.count; i++ {
		it := &q.items[(q.tail+i)%MaxWorkItems]
		if it.id == id && it.valid {
			it.valid = false
			q.stats.Cancelled++
			return true
		}
	}
	return false
}

// ProcessOne dequeues the oldest item and runs it exactly once. Items marked
// invalid (or carrying no function) are skipped silently but still counted
// as processed. Reports whether an item was dequeued.
func (q *WorkQueue) ProcessOne() bool {
	q.mu.Lock()
	if q.count == 0 {
		q.mu.Unlock()
		return false
	}

	it := q.items[q.tail%MaxWorkItems]
	q.items[q.tail%MaxWorkItems] = WorkItem{}
	q.tail++
	q.count--
	q.stats.Processed++
	q.mu.Unlock()

	// The callback runs outside the lock so it may safely reschedule.
	if it.valid && it.fn != nil {
		it.fn(it.data, it.ctx)
	}
	return true
}

// ProcessAll drains the queue until it is empty, including items enqueued by
// the callbacks it runs, and returns how many items it consumed.
func (q *WorkQueue) ProcessAll() uint32 {
	var n uint32
	for q.ProcessOne() {
		n++
	}
	return n
}

func (q *WorkQueue) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count == 0
}

func (q *WorkQueue) Full() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count >= MaxWorkItems
}

func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int(q.count)
}

func (q *WorkQueue) Stats() WorkQueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *WorkQueue) reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = [MaxWorkItems]WorkItem{}
	q.head = 0
	q.tail = 0
	q.count = 0
	q.nextID = 0
	q.stats = WorkQueueStats{}
}
