package sched

import (
	"github.com/aarch64kernel/corekernel/internal/constants"
	"github.com/aarch64kernel/corekernel/internal/percpu"
)

// Policy picks the next thread to run and decides, on each tick, whether
// and how the current thread should give up the CPU (spec §4.I).
type Policy interface {
	// Select returns the thread that should run next, given the ring, the
	// thread currently running (still linked into the ring), and the
	// resched kind that triggered the selection.
	Select(rq *Runqueue, cur *Thread, kind percpu.ReschedKind) *Thread

	// Tick is called once per timer tick for the running thread and
	// returns the resched kind it should request, or ReschedNone.
	Tick(rq *Runqueue, cur *Thread) percpu.ReschedKind

	// Name identifies the policy for diagnostics.
	Name() string
}

// RoundRobin gives every thread an equal constants.Quantum-tick slice and
// rotates the ring on exhaustion, ignoring priority entirely.
type RoundRobin struct{}

func (RoundRobin) Name() string { return "round-robin" }

func (RoundRobin) Select(rq *Runqueue, cur *Thread, _ percpu.ReschedKind) *Thread {
	if cur != nil && rq.Contains(cur) {
		return rq.Successor(cur)
	}
	return rq.Head()
}

func (RoundRobin) Tick(_ *Runqueue, cur *Thread) percpu.ReschedKind {
	cur.Budget--
	if cur.Budget <= 0 {
		cur.Budget = constants.Quantum
		return percpu.ReschedNormal
	}
	return percpu.ReschedNone
}

// Priority runs the highest EffPrio READY thread on the ring, rotating
// among threads tied at the same priority once their quantum expires
// (spec §4.I).
type Priority struct{}

func (Priority) Name() string { return "priority" }

func highestPrio(rq *Runqueue) int {
	best := -1
	cur := rq.Head()
	for i := 0; i < rq.Len(); i++ {
		if cur.EffPrio > best {
			best = cur.EffPrio
		}
		cur = cur.next
	}
	return best
}

// Select picks the highest-priority READY thread. When the trigger was a
// ROTATE (quantum exhaustion among equals or an explicit yield), ties at
// the top priority are broken FIFO starting at cur.next; otherwise the
// selection is biased toward keeping cur if it already holds the top
// priority (spec §4.I).
func (Priority) Select(rq *Runqueue, cur *Thread, kind percpu.ReschedKind) *Thread {
	if rq.Len() == 0 {
		return nil
	}
	top := highestPrio(rq)

	if cur != nil && rq.Contains(cur) && cur.EffPrio == top && kind != percpu.ReschedRotate {
		return cur
	}

	start := rq.Head()
	if cur != nil && kind == percpu.ReschedRotate {
		start = rq.Successor(cur)
	}
	candidate := start
	for i := 0; i < rq.Len(); i++ {
		if candidate.EffPrio == top {
			return candidate
		}
		candidate = rq.Successor(candidate)
	}
	return start
}

func (Priority) Tick(rq *Runqueue, cur *Thread) percpu.ReschedKind {
	top := highestPrio(rq)
	if top > cur.EffPrio {
		return percpu.ReschedNormal
	}
	cur.Budget--
	if cur.Budget <= 0 {
		cur.Budget = constants.Quantum
		return percpu.ReschedRotate
	}
	return percpu.ReschedNone
}
