//go:build arm64

package arch

// The functions below have no Go body; they are implemented in
// arch_arm64.s. This is the kernel's one inline-assembly surface (spec
// §9, "Inline assembly ... must be isolated behind a small trusted
// surface").

// dmb emits DMB ISH (inner shareable, full barrier). domain and kind are
// not encoded: every call emits that same instruction.
func dmb(domain Domain, kind Kind)

// dsb emits DSB ISH (inner shareable, full barrier); like dmb, it ignores
// domain and kind.
func dsb(domain Domain, kind Kind)

// isb emits an ISB instruction.
func isb()

// cleanRange cleans (writes back without invalidating) cache lines
// covering [addr, addr+n) to the point of coherency.
func cleanRange(addr, n uintptr)

// cleanInvalidateRange cleans and invalidates cache lines covering
// [addr, addr+n).
func cleanInvalidateRange(addr, n uintptr)

// invalidateRange invalidates (without cleaning) cache lines covering
// [addr, addr+n).
func invalidateRange(addr, n uintptr)

// loadExclusive32 performs LDAXR on a 32-bit word, establishing the
// exclusive monitor for addr.
func loadExclusive32(addr *uint32) uint32

// storeExclusive32 performs STLXR of val to addr; returns 0 on success,
// nonzero if the exclusive monitor was lost.
func storeExclusive32(addr *uint32, val uint32) uint32

// clearExclusiveMonitor performs CLREX.
func clearExclusiveMonitor()

// irqSave masks IRQs locally (MSR DAIFSet) and returns the prior DAIF
// value, followed by an ISB.
func irqSave() Flags

// irqRestore writes DAIF back to f.
func irqRestore(f Flags)

// contextSwitch saves the callee-saved register set (and frame/link
// registers) to *prevSPSlot, then loads the same set from nextSP and
// returns into the thread owning nextSP.
func contextSwitch(prevSPSlot *uintptr, nextSP uintptr)

// cpuBlockRegister reads the architectural register holding the per-CPU
// block pointer (TPIDR_EL1).
func cpuBlockRegister() uintptr

// setCPUBlockRegister writes TPIDR_EL1.
func setCPUBlockRegister(p uintptr)

// wfe executes a Wait-For-Event instruction.
func wfe()
