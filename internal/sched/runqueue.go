package sched

// Runqueue is a circular singly-linked ring of READY threads (spec §4.I).
// A thread is on the ring for as long as it is READY or RUNNING; blocking
// or exiting removes it. It is not itself concurrency-safe — callers run
// with preemption disabled.
type Runqueue struct {
	head *Thread
	tail *Thread
	n    int
}

// Len returns the number of threads currently on the ring.
func (rq *Runqueue) Len() int { return rq.n }

// Head returns the ring's head, or nil if empty.
func (rq *Runqueue) Head() *Thread { return rq.head }

// Append adds t at the tail of the ring.
func (rq *Runqueue) Append(t *Thread) {
	t.next = nil
	if rq.tail == nil {
		rq.head, rq.tail = t, t
		t.next = t
		rq.n++
		return
	}
	t.next = rq.head
	rq.tail.next = t
	rq.tail = t
	rq.n++
}

// Remove unlinks t from the ring if present. Returns false if t was not
// found.
func (rq *Runqueue) Remove(t *Thread) bool {
	if rq.head == nil {
		return false
	}
	if rq.n == 1 {
		if rq.head != t {
			return false
		}
		rq.head, rq.tail = nil, nil
		t.next = nil
		rq.n = 0
		return true
	}
	prev := rq.tail
	cur := rq.head
	for i := 0; i < rq.n; i++ {
		if cur == t {
			prev.next = cur.next
			if cur == rq.head {
				rq.head = cur.next
			}
			if cur == rq.tail {
				rq.tail = prev
			}
			cur.next = nil
			rq.n--
			return true
		}
		prev = cur
		cur = cur.next
	}
	return false
}

// Successor returns the ring-order successor of t, or the head if t is no
// longer on the ring. Used by the tick handler's rotate decision (spec
// §4.I: "picks the successor in the ring if cur is still READY, otherwise
// picks head").
func (rq *Runqueue) Successor(t *Thread) *Thread {
	if t != nil && t.next != nil {
		return t.next
	}
	return rq.head
}

// Contains reports whether t is currently linked into the ring.
func (rq *Runqueue) Contains(t *Thread) bool {
	if rq.head == nil {
		return false
	}
	cur := rq.head
	for i := 0; i < rq.n; i++ {
		if cur == t {
			return true
		}
		cur = cur.next
	}
	return false
}
