package kernel

// readyRing is a fixed FIFO of task ids, one per priority level. Indices run
// free and wrap through uint8 arithmetic; MaxTasks divides 256 so the
// modulo stays consistent across the wrap.
type readyRing struct {
	ids  [MaxTasks]TaskID
	head uint8
	tail uint8
}

func (r *readyRing) len() int {
	return int(r.head - r.tail)
}

func (r *readyRing) empty() bool {
	return r.head == r.tail
}

func (r *readyRing) push(id TaskID) bool {
	if r.head-r.tail >= MaxTasks {
		return false
	}
	r.ids[r.head%MaxTasks] = id
	r.head++
	return true
}

func (r *readyRing) pop() (TaskID, bool) {
	if r.tail == r.head {
		return NoTask, false
	}
	id := r.ids[r.tail%MaxTasks]
	r.ids[r.tail%MaxTasks] = NoTask
	r.tail++
	return id, true
}

// remove deletes one occurrence of id, compacting the ring toward the tail.
func (r *readyRing) remove(id TaskID) bool {
	n := r.head - r.tail
	for i := uint8(0); i < n; i++ {
		if r.ids[(r.tail+i)%MaxTasks] != id {
			continue
		}
		for j := i; j+1 < n; j++ {
			r.ids[(r.tail+j)%MaxTasks] = r.ids[(r.tail+j+1)%MaxTasks]
		}
		r.head--
		r.ids[r.head%MaxTasks] = NoTask
		return true
	}
	return false
}

func (r *readyRing) reset() {
	*r = readyRing{}
}
