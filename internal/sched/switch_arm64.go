//go:build arm64

package sched

import "github.com/aarch64kernel/corekernel/internal/arch"

// On the real target, threads share a single CPU's register file and a
// context switch is a plain callee-saved register swap over each thread's
// own stack (spec §4.H). The trampoline arch.ContextSwitch lands on
// resumes at the return address saved on that stack, so doSwitch never
// itself "returns" into next's Entry — it returns into whatever function
// originally suspended next.
type hostThread struct{}

func (t *Thread) hostInit() {}

func (t *Thread) ensureStarted() {}

func doSwitch(cur, next *Thread) {
	if cur.FPU.Dirty {
		saveFPU(&cur.FPU)
	}
	arch.ContextSwitch(&cur.SavedSP, next.SavedSP)
	// Execution continues here only once a later switch resumes cur, so
	// cur is the thread now running.
	if cur.FPU.Dirty {
		restoreFPU(&cur.FPU)
	}
}
