// Package spinlock implements the raw spinlock (spec §4.E) and the
// preempt-aware, IRQ-save spinlock built on top of it (spec §4.F).
package spinlock

import (
	"runtime"

	"github.com/aarch64kernel/corekernel/internal/arch"
)

const (
	stateFree uint32 = 0
	stateHeld uint32 = 1
)

// Raw is a single exclusive-access word: 0 free, 1 held. It provides
// acquire ordering on successful lock and release ordering on unlock,
// correct under a weak memory model even with a single hardware thread.
type Raw struct {
	word uint32
}

// TryLock attempts to acquire the lock without spinning. It succeeds only
// if the load-exclusive observed the word free and the store-exclusive of
// 1 did not lose the monitor.
func (l *Raw) TryLock() bool {
	v := arch.LoadExclusive32(&l.word)
	if v != stateFree {
		arch.ClearExclusiveMonitor()
		return false
	}
	return arch.StoreExclusive32(&l.word, stateHeld) == 0
}

// Lock spins on TryLock, yielding between attempts and busy-reading the
// word until it looks free before retrying the exclusive pair.
func (l *Raw) Lock() {
	for {
		if l.TryLock() {
			return
		}
		for loadWord(&l.word) != stateFree {
			runtime.Gosched()
		}
	}
}

// Unlock performs a store-release of zero.
func (l *Raw) Unlock() {
	storeWord(&l.word, stateFree)
}

// IsHeld reports whether the lock currently appears held. For diagnostics
// only; it is not itself synchronized.
func (l *Raw) IsHeld() bool {
	return loadWord(&l.word) != stateFree
}
