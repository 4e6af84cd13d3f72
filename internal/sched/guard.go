package sched

import (
	"encoding/binary"
	"fmt"

	"github.com/aarch64kernel/corekernel/internal/constants"
)

// writeGuard stamps constants.GuardWord across the guard region at the start
// of buf (the low end of the stack, since AArch64 stacks grow down — the
// guard sits below the lowest address the thread's own stack usage should
// ever reach).
func writeGuard(buf []byte) {
	guard := buf[:constants.GuardRegionBytes]
	for i := 0; i+8 <= len(guard); i += 8 {
		binary.LittleEndian.PutUint64(guard[i:i+8], constants.GuardWord)
	}
}

// checkGuard reports whether the guard region is still intact.
func checkGuard(buf []byte) bool {
	guard := buf[:constants.GuardRegionBytes]
	for i := 0; i+8 <= len(guard); i += 8 {
		if binary.LittleEndian.Uint64(guard[i:i+8]) != constants.GuardWord {
			return false
		}
	}
	return true
}

// highWaterMark scans from the guard boundary upward and returns the
// number of stack bytes that have ever been written (no longer equal to
// constants.WatermarkByte), i.e. the deepest extent of use observed so
// far.
func highWaterMark(buf []byte) int {
	usable := buf[constants.GuardRegionBytes:]
	for i := 0; i < len(usable); i++ {
		if usable[i] != constants.WatermarkByte {
			return len(usable) - i
		}
	}
	return 0
}

// ErrStackOverflow is returned by CheckStack when a thread's guard region
// has been written through.
type ErrStackOverflow struct {
	ThreadID uint64
}

func (e *ErrStackOverflow) Error() string {
	return fmt.Sprintf("sched: thread %d overran its stack guard", e.ThreadID)
}

// CheckStack validates t's guard region, returning ErrStackOverflow if it
// has been corrupted. Called from the tick handler (spec §7).
func (t *Thread) CheckStack() error {
	if !checkGuard(t.buf) {
		return &ErrStackOverflow{ThreadID: t.ID}
	}
	return nil
}

// HighWaterMark reports the deepest stack usage observed for t so far, in
// bytes.
func (t *Thread) HighWaterMark() int {
	return highWaterMark(t.buf)
}

// CorruptGuardForTest deliberately overwrites a byte of t's guard region,
// standing in for the deep recursion spec §8 S6 describes so a test can
// exercise the overflow-halts-on-next-tick behavior deterministically.
func (t *Thread) CorruptGuardForTest() {
	t.buf[0] ^= 0xFF
}
