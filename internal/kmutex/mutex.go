// Package kmutex implements the priority-inheriting mutex and the counting
// semaphore (spec's component K), both built directly on internal/sched
// rather than on internal/spinlock: their own bookkeeping is protected by a
// preempt-disabled section, since the kernel targets a single CPU and has
// no SMP cross-core race to guard against.
package kmutex

import (
	"fmt"

	"github.com/aarch64kernel/corekernel/internal/logging"
	"github.com/aarch64kernel/corekernel/internal/preempt"
	"github.com/aarch64kernel/corekernel/internal/sched"
)

// Mutex is a non-recursive, sleeping, priority-inheriting lock. The zero
// value is unlocked with priority inheritance enabled and lockdep
// disabled, ready to use.
type Mutex struct {
	owner       *sched.Thread
	ownerNext   sched.OwnedLock // next lock in owner's owned-lock chain
	waitersHead *sched.Thread   // singly-linked via Thread's wait link
	waitersTail *sched.Thread

	piDisabled bool
	lockdep    bool
}

// EnableLockdep turns on wait-for-cycle detection for this mutex's
// acquisitions. Scoped per-mutex since walking the graph on every Lock has
// a cost not every caller wants to pay.
func (m *Mutex) EnableLockdep(on bool) { m.lockdep = on }

// SetPriorityInheritance toggles donation for this mutex. Enabled by
// default. A current owner's effective priority is recomputed at once.
func (m *Mutex) SetPriorityInheritance(on bool) {
	preempt.Disable()
	m.piDisabled = !on
	if m.owner != nil {
		recomputeEffPrio(m.owner)
	}
	preempt.Enable()
}

// OwnerNext implements sched.OwnedLock.
func (m *Mutex) OwnerNext() sched.OwnedLock { return m.ownerNext }

// SetOwnerNext implements sched.OwnedLock.
func (m *Mutex) SetOwnerNext(n sched.OwnedLock) { m.ownerNext = n }

// HolderEffectivePriority implements sched.BlockedOn.
func (m *Mutex) HolderEffectivePriority() int {
	if m.owner == nil {
		return -1
	}
	return m.owner.EffPrio
}

// Holder implements sched.BlockedOn.
func (m *Mutex) Holder() *sched.Thread { return m.owner }

// ErrLockdepCycle describes a wait-for cycle caught before a lock was
// acquired. By the time a caller observes this, logging.Fatal has already
// logged it and halted the CPU in production; it exists so a hosted test
// harness (which intercepts the halt via arch.SetHaltHook) can still
// assert on the cycle found.
type ErrLockdepCycle struct {
	Cycle []uint64 // thread IDs forming the cycle, current thread first
}

func (e *ErrLockdepCycle) Error() string {
	return fmt.Sprintf("kmutex: lock order cycle detected: %v", e.Cycle)
}

// Lock acquires m, blocking the calling thread if it is already held by
// another thread. Re-locking by the current holder is a no-op (spec:
// non-recursive, "already acquired" returns).
func (m *Mutex) Lock() error {
	for {
		preempt.Disable()
		cur := sched.Current()

		if m.owner == nil {
			m.acquire(cur)
			preempt.Enable()
			return nil
		}
		if m.owner == cur {
			preempt.Enable()
			return nil
		}
		if m.lockdep {
			if cycle := detectCycle(cur, m); cycle != nil {
				logging.Fatalf("kmutex: lock order cycle: %v", cycle)
				preempt.Enable()
				return &ErrLockdepCycle{Cycle: cycle}
			}
		}

		cur.WaitingOn = m
		m.enqueueWaiter(cur)
		if !m.piDisabled {
			donate(m.owner, cur.EffPrio)
		}
		sched.BlockCurrent()
		preempt.Enable() // triggers the tail switch away from cur

		// Woken by Unlock, which may have handed m directly to cur; retry
		// the loop to observe that (spec step 6: "on wake-up, retry from
		// step 1").
	}
}

// TryLock attempts to acquire m without blocking.
func (m *Mutex) TryLock() bool {
	preempt.Disable()
	defer preempt.Enable()
	cur := sched.Current()
	if m.owner == cur {
		return true
	}
	if m.owner != nil {
		return false
	}
	m.acquire(cur)
	return true
}

// Unlock releases m, handing it directly to the highest-effective-priority
// waiter (if any, ties broken by arrival order) and undoing any priority
// donation this thread was carrying only on m's account.
func (m *Mutex) Unlock() {
	preempt.Disable()
	defer preempt.Enable()

	cur := sched.Current()
	if m.owner != cur {
		logging.Fatal("kmutex: unlock by non-owner")
		return
	}
	oldEff := cur.EffPrio
	m.releaseFrom(cur)
	recomputeEffPrio(cur)

	next := m.popHighestWaiter()
	if next == nil {
		m.owner = nil
		return
	}
	next.WaitingOn = nil
	m.acquire(next)
	if !m.piDisabled {
		recomputeEffPrio(next)
	}
	sched.WakeReady(next)
	if next.EffPrio > oldEff {
		// WakeReady already requests a reschedule; nothing further to do,
		// but the comparison is spelled out to mirror spec step 6.
		_ = next.EffPrio
	}
}

func (m *Mutex) acquire(t *sched.Thread) {
	m.owner = t
	m.ownerNext = t.OwnedHead
	t.OwnedHead = m
}

// releaseFrom unlinks m from t's owned-lock chain.
func (m *Mutex) releaseFrom(t *sched.Thread) {
	if t.OwnedHead == m {
		t.OwnedHead = m.ownerNext
		m.ownerNext = nil
		return
	}
	cur := t.OwnedHead
	for cur != nil {
		if cur.OwnerNext() == m {
			cur.SetOwnerNext(m.ownerNext)
			m.ownerNext = nil
			return
		}
		cur = cur.OwnerNext()
	}
}

func (m *Mutex) enqueueWaiter(t *sched.Thread) {
	t.SetWaitNext(nil)
	if m.waitersTail == nil {
		m.waitersHead, m.waitersTail = t, t
		return
	}
	m.waitersTail.SetWaitNext(t)
	m.waitersTail = t
}

// popHighestWaiter removes and returns the waiter with the highest
// effective priority, ties broken by arrival order (a stable scan, spec
// step 3 of unlock).
func (m *Mutex) popHighestWaiter() *sched.Thread {
	if m.waitersHead == nil {
		return nil
	}
	var best, bestPrev *sched.Thread
	var prev *sched.Thread
	for cur := m.waitersHead; cur != nil; cur = cur.WaitNext() {
		if best == nil || cur.EffPrio > best.EffPrio {
			best, bestPrev = cur, prev
		}
		prev = cur
	}
	if bestPrev == nil {
		m.waitersHead = best.WaitNext()
	} else {
		bestPrev.SetWaitNext(best.WaitNext())
	}
	if m.waitersTail == best {
		m.waitersTail = bestPrev
	}
	best.SetWaitNext(nil)
	return best
}

// donate raises holder's effective priority to at least prio, and, if
// holder is itself blocked on another mutex, recurses so inheritance
// propagates along the whole chain.
func donate(holder *sched.Thread, prio int) {
	for holder != nil && prio > holder.EffPrio {
		holder.EffPrio = prio
		blocked, ok := holder.WaitingOn.(*Mutex)
		if !ok || blocked == nil || blocked.piDisabled {
			return
		}
		holder = blocked.owner
	}
}

// recomputeEffPrio drops t's effective priority to
// max(base, max over owned PI-enabled mutexes of max-effective-priority
// over that mutex's waiters), clamped to >= base by construction.
func recomputeEffPrio(t *sched.Thread) {
	best := t.BasePrio
	lock := t.OwnedHead
	for lock != nil {
		if mu, ok := lock.(*Mutex); ok && !mu.piDisabled {
			for w := mu.waitersHead; w != nil; w = w.WaitNext() {
				if w.EffPrio > best {
					best = w.EffPrio
				}
			}
		}
		lock = lock.OwnerNext()
	}
	t.EffPrio = best
}

// detectCycle walks from m's owner along each thread's WaitingOn edge,
// looking for cur — if found, taking m would close a cycle. Bounded to 16
// steps per spec.
func detectCycle(cur *sched.Thread, m *Mutex) []uint64 {
	cycle := []uint64{cur.ID}
	walker := m.owner
	for i := 0; i < 16 && walker != nil; i++ {
		cycle = append(cycle, walker.ID)
		if walker == cur {
			return cycle
		}
		blocked, ok := walker.WaitingOn.(*Mutex)
		if !ok || blocked == nil {
			return nil
		}
		walker = blocked.owner
	}
	return nil
}
