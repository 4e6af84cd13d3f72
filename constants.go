package corekernel

import "github.com/aarch64kernel/corekernel/internal/constants"

// Re-exported tuning knobs, so callers configuring Boot don't need to
// import internal/constants directly.
const (
	Quantum             = constants.Quantum
	MinPriority         = constants.MinPriority
	MaxPriority         = constants.MaxPriority
	DefaultStackBytes   = constants.DefaultStackBytes
	StackAlignment      = constants.StackAlignment
	GuardRegionBytes    = constants.GuardRegionBytes
	WatermarkByte       = constants.WatermarkByte
	LockdepMaxDepth     = constants.LockdepMaxDepth
	CacheLineBytes      = constants.CacheLineBytes
	DMAArenaBytes       = constants.DMAArenaBytes
	IdentityRegionBytes = constants.IdentityRegionBytes
	NCAliasOffset       = constants.NCAliasOffset
	PageBytes           = constants.PageBytes
)
