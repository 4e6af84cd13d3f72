//go:build arm64

package sched

// saveFPU and restoreFPU are declared here and implemented in
// fpu_arm64.s; doSwitch calls them only when FPU.Dirty is set. Nothing in
// this package sets Dirty, so as built no SIMD/FP state is saved or
// restored across a context switch.

//go:noescape
func saveFPU(s *FPUState)

//go:noescape
func restoreFPU(s *FPUState)
