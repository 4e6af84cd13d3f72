// Package percpu holds the single per-CPU block (spec §4.C). The kernel
// targets one hardware thread; SMP is explicitly out of scope, so this is a
// singleton installed during boot and retrieved through arch.CPUBlockRegister.
package percpu

import (
	"unsafe"

	"github.com/aarch64kernel/corekernel/internal/arch"
)

// ReschedKind is the three-valued need_resched tag (spec §3, §4.I).
type ReschedKind int32

const (
	ReschedNone ReschedKind = iota
	ReschedNormal
	ReschedRotate
)

// Block is the cache-line-aligned per-CPU record. IRQStackTop must remain
// the first field: the (out-of-scope) vector-table assembly reaches it at
// offset 0.
type Block struct {
	IRQStackTop  uintptr
	CurrentThread unsafe.Pointer // *sched.Thread, stored as unsafe.Pointer to avoid an import cycle
	PreemptCount int32
	NeedResched  ReschedKind
	Ticks        uint64
	IRQDepth     int32
	Halted       bool
}

var singleton Block

// Install publishes the single per-CPU block and installs it in the
// architectural register so low-level code (and, on arm64, the IRQ vector
// assembly) can reach it without a global lookup.
func Install() *Block {
	arch.SetCPUBlockRegister(uintptr(unsafe.Pointer(&singleton)))
	return &singleton
}

// Current returns the installed per-CPU block. If the architectural
// register is still zero, it calls Install first and returns the result.
func Current() *Block {
	p := arch.CPUBlockRegister()
	if p == 0 {
		return Install()
	}
	return (*Block)(unsafe.Pointer(p))
}

// RequestResched raises the need_resched tag, never downgrading ROTATE to
// NORMAL (spec §4.I: a pending rotate must survive a weaker request raised
// before it is serviced).
func RequestResched(k ReschedKind) {
	b := Current()
	if k == ReschedRotate || b.NeedResched == ReschedNone {
		b.NeedResched = k
	}
}
