package sched

import (
	"unsafe"

	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/logging"
	"github.com/aarch64kernel/corekernel/internal/percpu"
	"github.com/aarch64kernel/corekernel/internal/preempt"
)

// Scheduler owns the runqueue and the active policy for one CPU. The core
// targets a single CPU, so there is exactly one of these, installed by
// Configure and driven from Boot.
type Scheduler struct {
	rq     Runqueue
	policy Policy
	boot   *Thread
}

var global Scheduler

// Configure installs the scheduling policy to use. Must be called before
// Start.
func Configure(p Policy) {
	global.policy = p
	preempt.SetTail(tail)
}

// ResetForTest discards the scheduler singleton's state. Production boot
// never calls this; it exists so the test harness and the tests in
// internal/kmutex, test/unit and test/integration can start each scenario
// from an empty runqueue without a process restart.
func ResetForTest() {
	global = Scheduler{}
}

// Create allocates a new thread and appends it to the runqueue.
func Create(entry func(arg any), arg any, prio int, stackBytes int) (*Thread, error) {
	t, err := NewThread(entry, arg, prio, stackBytes)
	if err != nil {
		return nil, err
	}
	global.rq.Append(t)
	return t, nil
}

// Current returns the thread running on this CPU, or nil before Start.
func Current() *Thread {
	p := percpu.Current().CurrentThread
	if p == nil {
		return nil
	}
	return (*Thread)(p)
}

func setCurrent(t *Thread) {
	percpu.Current().CurrentThread = unsafe.Pointer(t)
}

// Start begins running the first thread the policy selects and never
// returns. Called exactly once, with preemption at its default enabled
// count.
func Start() {
	if global.policy == nil {
		global.policy = RoundRobin{}
	}
	first := global.policy.Select(&global.rq, nil, percpu.ReschedNone)
	if first == nil {
		logging.Fatal("sched: Start called with no runnable threads")
		return
	}
	global.boot = &Thread{ID: 0, State: StateRunning}
	global.boot.hostInit()
	setCurrent(first)
	first.State = StateRunning
	doSwitch(global.boot, first)
	// Reached only on the arm64 build, and only once the whole system has
	// nothing left to run; the host build's boot goroutine instead blocks
	// forever inside doSwitch's <-cur.host.resume.
	arch.Halt()
}

// Yield voluntarily gives up the CPU, picking a successor per policy under
// a ROTATE trigger. A no-op if preemption is disabled or no other runnable
// thread exists (spec §4.G).
func Yield() {
	if preempt.Disabled() {
		return
	}
	preempt.Disable()
	cur := Current()
	next := global.policy.Select(&global.rq, cur, percpu.ReschedRotate)
	switchAway(cur, next)
	preempt.Enable()
}

// Tick is the timer interrupt's handler: irq's Dispatch calls it for the
// timer INTID, before the IRQ tail runs (spec §4.C/§4.I). It validates the
// running thread's stack guard, charges its quantum, and requests whatever
// resched kind the policy decides — the actual switch happens later, once
// preempt.Enable's tail routine observes the request with preemption and
// IRQ depth both back at zero.
func Tick() {
	cur := Current()
	if cur == nil {
		return
	}
	if err := cur.CheckStack(); err != nil {
		logging.Fatal(err.Error())
		return
	}
	percpu.Current().Ticks++
	if k := global.policy.Tick(&global.rq, cur); k != percpu.ReschedNone {
		percpu.RequestResched(k)
	}
}

// Tail runs the same deferred-reschedule check the preempt-enable path
// runs, exported so internal/irq's return-path glue can drive it directly
// for the case where no preempt-disabled section was entered between the
// timer tick and the interrupt return (spec §4.J's "check need_resched on
// the way out" applies even when nothing in the handler body ever called
// preempt.Disable).
func Tail() { tail() }

// tail is installed as preempt's deferred-reschedule hook: it runs with
// preemption re-enabled, count back at zero, exactly where spec §4.D says
// the actual switch must happen. It also backs the IRQ return path (spec
// §4.J): if preempt is disabled, it does nothing and the flag survives.
func tail() {
	cpu := percpu.Current()
	k := cpu.NeedResched
	if k == percpu.ReschedNone {
		return
	}
	if preempt.Disabled() {
		return
	}
	cur := Current()
	next := global.policy.Select(&global.rq, cur, k)
	cpu.NeedResched = percpu.ReschedNone
	switchAway(cur, next)
}

func switchAway(cur, next *Thread) {
	if next == nil || next == cur {
		return
	}
	if cur != nil && cur.State == StateRunning {
		cur.State = StateReady
	}
	next.State = StateRunning
	setCurrent(next)
	doSwitch(cur, next)
}

// BlockCurrent marks the running thread BLOCKED and removes it from the
// ring, then requests a reschedule. Callers (internal/kmutex) must do this
// from inside a preempt-disabled section and let preempt.Enable's tail
// perform the actual switch — never call this with preemption enabled.
func BlockCurrent() *Thread {
	cur := Current()
	cur.State = StateBlocked
	global.rq.Remove(cur)
	percpu.RequestResched(percpu.ReschedNormal)
	return cur
}

// WakeReady transitions t back to READY and reinserts it into the ring.
// Safe to call from IRQ context or thread context; callers typically hold
// preempt.Disable already.
func WakeReady(t *Thread) {
	if t.State == StateReady || t.State == StateRunning {
		return
	}
	t.State = StateReady
	if !global.rq.Contains(t) {
		global.rq.Append(t)
	}
	percpu.RequestResched(percpu.ReschedNormal)
}

func exitCurrent(t *Thread) {
	t.State = StateExited
	global.rq.Remove(t)
	logging.Infof("sched: thread %d exited", t.ID)
	arch.Halt()
}

// Exit terminates the calling thread. It does not return.
func Exit() {
	preempt.Disable()
	cur := Current()
	cur.State = StateExited
	global.rq.Remove(cur)
	next := global.policy.Select(&global.rq, nil, percpu.ReschedNone)
	if next == nil {
		logging.Fatal("sched: last thread exited, nothing left to run")
		return
	}
	next.State = StateRunning
	setCurrent(next)
	doSwitch(cur, next)
}
