// Package constants holds the tuning knobs shared across the kernel core.
package constants

// Scheduling constants.
const (
	// Quantum is the number of timer ticks a thread may run before a
	// rotation is requested.
	Quantum = 5

	// MinPriority and MaxPriority bound both base and effective priority.
	MinPriority = 0
	MaxPriority = 31

	// DefaultStackBytes is used when a caller does not size a thread's stack.
	DefaultStackBytes = 16 * 1024

	// StackAlignment is the required alignment of a thread's stack, in bytes.
	StackAlignment = 16
)

// Stack guard constants.
const (
	// GuardRegionBytes is the size of the magic-filled region at the low
	// end of every thread stack.
	GuardRegionBytes = 64

	// GuardWord is the repeating 8-byte magic written across the guard
	// region.
	GuardWord uint64 = 0xDEADC0DEF00DCAFE

	// WatermarkByte fills the remainder of a fresh stack so high-water
	// mark tracking can detect how much of it was ever touched.
	WatermarkByte byte = 0xA5
)

// Lock and mutex constants.
const (
	// LockdepMaxDepth bounds the owner-chain walk used to detect cycles.
	LockdepMaxDepth = 16
)

// DMA constants.
const (
	// CacheLineBytes is the granularity cache-maintenance range operations
	// operate on.
	CacheLineBytes = 64

	// DMAArenaBytes sizes the bump-allocated non-cacheable descriptor arena.
	DMAArenaBytes = 1 << 20
)

// MMU constants.
const (
	// IdentityRegionBytes is the size of the low, identity-mapped RAM
	// window covered by the Normal WBWA mapping and its NC alias.
	IdentityRegionBytes = 1 << 30 // 1 GiB

	// NCAliasOffset is the fixed positive offset at which the
	// Non-Cacheable alias of RAM is installed.
	NCAliasOffset = 1 << 31 // 2 GiB

	// PageBytes is the translation granule used by the scaffold.
	PageBytes = 4096
)
