// Package interfaces defines the external collaborators the kernel core
// depends on but does not implement: the interrupt controller, the
// architected timer, and the diagnostic UART. These are deliberately thin —
// the boot assembly, GIC register programming, and timer register
// programming live outside this module's scope.
package interfaces

import "io"

// Controller is the subset of a GICv3-class interrupt controller the core
// requires: acknowledging the current interrupt, signalling end-of-interrupt,
// and enabling a specific interrupt ID.
type Controller interface {
	// Ack returns the interrupt identifier of the interrupt currently being
	// serviced (INTID), per the GIC ACK/EOI contract.
	Ack() uint32

	// EOI signals end-of-interrupt for id.
	EOI(id uint32)

	// Enable unmasks a specific interrupt ID at the distributor/redistributor.
	Enable(id uint32)
}

// Timer is the subset of the generic architected timer the core requires.
type Timer interface {
	// InitHz programs the first expiry for the given frequency and unmasks
	// the timer interrupt. onTick is invoked from inside the timer's own
	// interrupt handler on every expiry; the timer is responsible for
	// refilling the next expiry before returning.
	InitHz(hz uint32, onTick func())
}

// UART is the diagnostic byte sink used for kernel trace output. It carries
// no framing or flow control beyond what io.Writer implies.
type UART interface {
	io.Writer
}

// Observer receives scheduler and DMA telemetry. Implementations must be
// safe to call from both thread context and IRQ tail.
type Observer interface {
	ObserveContextSwitch()
	ObserveTick()
	ObserveReschedule()
	ObserveMutexContention()
	ObservePriorityBoost(from, to int)
	ObserveLockdepCycle()
	ObserveDMASubmit()
	ObserveDMAComplete(latencyTicks uint64)
	ObserveQueueDepth(depth int)
}
