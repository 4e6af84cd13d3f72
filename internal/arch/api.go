package arch

import "sync/atomic"

// This file is the single public surface both the arm64 build
// (arch_arm64.go/.s) and the portable host build (arch_stub.go)
// implement identically, so everything above this package is
// architecture-agnostic.

// DMB emits a data memory barrier ordering the given kind of access
// within the given domain.
func DMB(d Domain, k Kind) { dmb(d, k) }

// DSB emits a data synchronization barrier.
func DSB(d Domain, k Kind) { dsb(d, k) }

// ISB emits an instruction synchronization barrier.
func ISB() { isb() }

// CleanRange writes back dirty cache lines covering [addr, addr+n) to the
// point of coherency without invalidating them. Valid only on Normal
// cacheable mappings (spec §4.A).
func CleanRange(addr, n uintptr) { cleanRange(addr, n) }

// CleanInvalidateRange cleans and invalidates cache lines covering
// [addr, addr+n).
func CleanInvalidateRange(addr, n uintptr) { cleanInvalidateRange(addr, n) }

// InvalidateRange invalidates cache lines covering [addr, addr+n) without
// writing them back.
func InvalidateRange(addr, n uintptr) { invalidateRange(addr, n) }

// LoadExclusive32 loads addr and establishes the exclusive monitor.
func LoadExclusive32(addr *uint32) uint32 { return loadExclusive32(addr) }

// StoreExclusive32 stores val to addr if the exclusive monitor still
// holds; returns 0 on success.
func StoreExclusive32(addr *uint32, val uint32) uint32 { return storeExclusive32(addr, val) }

// ClearExclusiveMonitor clears the local exclusive monitor.
func ClearExclusiveMonitor() { clearExclusiveMonitor() }

// IRQSave masks local IRQs and returns the prior flag word.
func IRQSave() Flags { return irqSave() }

// IRQRestore restores a flag word saved by IRQSave.
func IRQRestore(f Flags) { irqRestore(f) }

// ContextSwitch saves the callee-saved register set to *prevSPSlot and
// loads it from nextSP, transferring control to the thread owning nextSP.
func ContextSwitch(prevSPSlot *uintptr, nextSP uintptr) { contextSwitch(prevSPSlot, nextSP) }

// CPUBlockRegister reads the architectural register holding the per-CPU
// block pointer.
func CPUBlockRegister() uintptr { return cpuBlockRegister() }

// SetCPUBlockRegister installs the per-CPU block pointer.
func SetCPUBlockRegister(p uintptr) { setCPUBlockRegister(p) }

var haltHook atomic.Pointer[func()]

// SetHaltHook overrides what Halt does instead of parking the CPU. Firmware
// never calls this; it exists so a test harness running the core hosted
// over goroutines can turn an otherwise-unrecoverable halt (stack guard
// trip, lockdep cycle, thread_exit) into an observable event instead of
// wedging the test binary. Passing nil restores the real WFE loop.
func SetHaltHook(fn func()) {
	if fn == nil {
		haltHook.Store(nil)
		return
	}
	haltHook.Store(&fn)
}

// Halt parks the CPU in a WFE loop and does not return, unless a hook is
// installed with SetHaltHook: then it runs the hook and returns. Used for
// fatal diagnostics and thread_exit (spec §7, §4.G).
func Halt() {
	if h := haltHook.Load(); h != nil {
		(*h)()
		return
	}
	for {
		wfe()
	}
}
