// Package arch isolates every piece of the kernel core that must, on real
// hardware, be inline assembly: barrier emission, cache maintenance by
// virtual address, exclusive load/store, IRQ masking, context switch, and
// the per-CPU register. Everything outside this package is expressible in
// plain Go.
//
// A real arm64 build (build-tagged "arm64") implements these as Go
// assembly. Every other build uses the portable stub in arch_stub.go so
// the scheduler, lock, and DMA logic above this package can be developed
// and tested on the host, exactly as the teacher project's io_uring layer
// carries a real implementation plus a stub for non-Linux builds.
package arch

// Domain selects the shareability domain a barrier or cache-maintenance
// range operation applies to.
type Domain int

const (
	DomainInner Domain = iota
	DomainOuter
)

// Kind selects which accesses a DMB/DSB orders.
type Kind int

const (
	KindFull Kind = iota
	KindLoad
	KindStore
)

// Attribute classifies a memory mapping for the purposes of the cache
// maintenance contract in spec §4.A: range operations are valid only on
// Normal (cacheable) mappings.
type Attribute int

const (
	AttrNormalCacheable Attribute = iota
	AttrNormalNonCacheable
	AttrDevice
)

// Flags is the opaque word returned by IRQSave and consumed by IRQRestore.
type Flags uintptr
