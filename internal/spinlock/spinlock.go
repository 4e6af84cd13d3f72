package spinlock

import (
	"runtime"

	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/preempt"
)

// Spinlock wraps Raw with the preempt-aware acquisition protocol of spec
// §4.F: a thread spinning for the lock keeps preemption enabled between
// attempts, so on a single CPU the holder can still run.
//
// Locks that may also be taken from an IRQ handler must be acquired from
// thread context only through LockIRQSave/UnlockIRQRestore — otherwise a
// re-entrant IRQ can spin forever on a lock the interrupted thread holds.
type Spinlock struct {
	raw Raw
}

// Lock disables preemption, attempts the raw trylock, and if it fails,
// re-enables preemption and spins on the raw word before retrying.
func (l *Spinlock) Lock() {
	for {
		preempt.Disable()
		if l.raw.TryLock() {
			return
		}
		preempt.Enable()
		for l.raw.IsHeld() {
			// yield hint; see Raw.Lock for the busy-read loop this mirrors
			runtime.Gosched()
		}
	}
}

// Unlock releases the raw lock and re-enables preemption.
func (l *Spinlock) Unlock() {
	l.raw.Unlock()
	preempt.Enable()
}

// LockIRQSave masks local IRQs in addition to the preempt-aware protocol
// and returns the flag word UnlockIRQRestore must be given back.
func (l *Spinlock) LockIRQSave() arch.Flags {
	f := arch.IRQSave()
	l.Lock()
	return f
}

// UnlockIRQRestore releases the raw lock, then restores IRQs, then
// re-enables preempt — matching spec §4.F's ordering ("unlocks then
// restores flags then enables preempt").
func (l *Spinlock) UnlockIRQRestore(f arch.Flags) {
	l.raw.Unlock()
	arch.IRQRestore(f)
	preempt.Enable()
}
