package kmutex

import (
	"github.com/aarch64kernel/corekernel/internal/preempt"
	"github.com/aarch64kernel/corekernel/internal/sched"
)

// Semaphore is a counting semaphore with no ownership concept, and
// therefore no priority inheritance (that is what distinguishes it from
// Mutex with count fixed at one). count can go negative, the classic
// representation: -n means n threads are waiting.
type Semaphore struct {
	count       int
	waitersHead *sched.Thread
	waitersTail *sched.Thread
}

// NewSemaphore returns a semaphore initialized to the given count.
func NewSemaphore(count int) *Semaphore {
	return &Semaphore{count: count}
}

// Wait (down) decrements the count; if it is still >= 0 the caller
// proceeds immediately, otherwise it blocks.
func (s *Semaphore) Wait() {
	preempt.Disable()
	s.count--
	if s.count >= 0 {
		preempt.Enable()
		return
	}
	cur := sched.Current()
	s.enqueue(cur)
	sched.BlockCurrent()
	preempt.Enable()
}

// Signal (up) increments the count; if it is now <= 0 there was at least
// one waiter, and the highest-priority one (stable scan) is made runnable.
// If its effective priority exceeds the signaling thread's, a reschedule
// is implied by WakeReady.
func (s *Semaphore) Signal() {
	preempt.Disable()
	defer preempt.Enable()
	s.count++
	if s.count > 0 {
		return
	}
	next := s.popHighestWaiter()
	if next == nil {
		return
	}
	sched.WakeReady(next)
}

// Pending reports how many threads are currently blocked on s.
func (s *Semaphore) Pending() int {
	preempt.Disable()
	defer preempt.Enable()
	n := 0
	for w := s.waitersHead; w != nil; w = w.WaitNext() {
		n++
	}
	return n
}

func (s *Semaphore) enqueue(t *sched.Thread) {
	t.SetWaitNext(nil)
	if s.waitersTail == nil {
		s.waitersHead, s.waitersTail = t, t
		return
	}
	s.waitersTail.SetWaitNext(t)
	s.waitersTail = t
}

func (s *Semaphore) popHighestWaiter() *sched.Thread {
	if s.waitersHead == nil {
		return nil
	}
	var best, bestPrev *sched.Thread
	var prev *sched.Thread
	for cur := s.waitersHead; cur != nil; cur = cur.WaitNext() {
		if best == nil || cur.EffPrio > best.EffPrio {
			best, bestPrev = cur, prev
		}
		prev = cur
	}
	if bestPrev == nil {
		s.waitersHead = best.WaitNext()
	} else {
		bestPrev.SetWaitNext(best.WaitNext())
	}
	if s.waitersTail == best {
		s.waitersTail = bestPrev
	}
	best.SetWaitNext(nil)
	return best
}
