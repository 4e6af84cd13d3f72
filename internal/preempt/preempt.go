// Package preempt implements the nest-counted preemption-disable counter
// (spec §4.D) and the Section helper other packages use to guard
// interior-mutable state that only thread context touches.
package preempt

import (
	"sync/atomic"

	"github.com/aarch64kernel/corekernel/internal/percpu"
)

// tailFn is invoked by Enable when the counter reaches zero with IRQ depth
// zero and a reschedule pending. It is set once, by internal/sched, to
// avoid an import cycle (sched depends on preempt, not the reverse).
var tailFn atomic.Pointer[func()]

// SetTail installs the scheduler's tail routine. Called once during boot.
func SetTail(fn func()) {
	tailFn.Store(&fn)
}

// Disable increments the current CPU's preempt counter.
func Disable() {
	cpu := percpu.Current()
	atomic.AddInt32(&cpu.PreemptCount, 1)
}

// Enable decrements the preempt counter and, only when it reaches zero,
// IRQ depth is zero, and a reschedule is pending, calls the scheduler's
// tail routine (spec §4.D).
func Enable() {
	cpu := percpu.Current()
	n := atomic.AddInt32(&cpu.PreemptCount, -1)
	if n < 0 {
		panic("preempt: enable without matching disable")
	}
	if n == 0 && atomic.LoadInt32(&cpu.IRQDepth) == 0 && cpu.NeedResched != percpu.ReschedNone {
		if fn := tailFn.Load(); fn != nil {
			(*fn)()
		}
	}
}

// Count returns the current nesting depth. Used by the IRQ tail to decide
// whether preemption is disabled (spec §4.I: "if preempt is disabled, do
// nothing").
func Count() int32 {
	return atomic.LoadInt32(&percpu.Current().PreemptCount)
}

// Disabled reports whether preemption is currently disabled.
func Disabled() bool {
	return Count() > 0
}

// Section runs fn with preemption disabled for its duration, matching the
// "preempt-disabled section" capability spec §9 asks interior-mutable
// kernel state to be encapsulated behind.
func Section(fn func()) {
	Disable()
	defer Enable()
	fn()
}
