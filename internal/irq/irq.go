// Package irq implements interrupt dispatch (spec's component J): the
// handler body that reads IAR, dispatches by INTID, writes EOI, and the
// tail that decides whether the interrupted code path should reschedule
// before it resumes (spec §4.D/§4.I).
package irq

import (
	"github.com/aarch64kernel/corekernel/internal/interfaces"
	"github.com/aarch64kernel/corekernel/internal/logging"
	"github.com/aarch64kernel/corekernel/internal/percpu"
	"github.com/aarch64kernel/corekernel/internal/preempt"
)

// Spurious is the GICv3 special INTID returned by IAR when there is
// nothing to service; it must never be EOI'd.
const Spurious = 1023

// TimerINTID is the INTID the generic architected timer raises on this
// platform.
const TimerINTID = 30

// Frame records the register state an IRQ entry trampoline would have
// saved to the IRQ stack (spec §4.J). The core's Go layer never
// constructs or consumes the raw register values; it exists so tests and
// the dispatcher's signature can describe "what interrupted" without
// reaching into assembly-only state.
type Frame struct {
	INTID       uint32
	WasPreempt  bool // preempt_cnt at entry, for diagnostics
}

// Handler services one device interrupt's INTID. Returning an error halts
// the CPU via logging.Fatal — there is no recovery path for a driver that
// can't service its own interrupt.
type Handler func() error

// Dispatcher owns the controller and the INTID → handler table.
type Dispatcher struct {
	ctrl     interfaces.Controller
	handlers map[uint32]Handler
}

// NewDispatcher wires a dispatcher to the given interrupt controller.
func NewDispatcher(ctrl interfaces.Controller) *Dispatcher {
	return &Dispatcher{ctrl: ctrl, handlers: make(map[uint32]Handler)}
}

// Register installs a handler for intid. TimerINTID is normally left
// unregistered — Dispatch special-cases it to drive the tick handler
// directly, per spec.
func (d *Dispatcher) Register(intid uint32, h Handler) {
	d.handlers[intid] = h
}

// Dispatch is the handler body: irq_depth++, read IAR, route by INTID,
// write EOI, irq_depth--. onTick is called for the timer INTID instead of
// looking the handler table up, matching spec §4.J's hard-coded timer
// route; it is a parameter (rather than calling internal/sched directly)
// to keep this package import-cycle-free of the scheduler.
func (d *Dispatcher) Dispatch(onTick func()) {
	cpu := percpu.Current()
	cpu.IRQDepth++
	defer func() { cpu.IRQDepth-- }()

	intid := d.ctrl.Ack()
	if intid == Spurious {
		return
	}

	if intid == TimerINTID {
		onTick()
	} else if h, ok := d.handlers[intid]; ok {
		if err := h(); err != nil {
			logging.Fatalf("irq: handler for INTID %d failed: %v", intid, err)
			return
		}
	} else {
		logging.Warnf("irq: no handler registered for INTID %d", intid)
	}

	d.ctrl.EOI(intid)
}

// Tail runs after Dispatch's handler body, at the point spec §4.J says the
// return path should check whether to reschedule instead of resuming the
// interrupted code: if preemption is disabled it does nothing (the pending
// flag survives); otherwise it performs the switch itself. select/doSwitch
// live in internal/sched, so Tail is handed a thunk rather than depending
// on the scheduler package directly.
func Tail(schedTail func()) {
	if preempt.Disabled() {
		return
	}
	if percpu.Current().NeedResched == percpu.ReschedNone {
		return
	}
	schedTail()
}
