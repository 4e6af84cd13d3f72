// Package sched implements the thread model, runqueue, scheduling policies
// and context-switch boundary of the core (spec's components G, H, I).
//
// Mutex/semaphore ownership (component K) lives in internal/kmutex, which
// imports this package. To avoid the reverse import this package would
// otherwise need (a Thread's owned-lock chain and its wait target are both
// lock-shaped), Thread exposes them as the small OwnedLock/BlockedOn
// interfaces below rather than concrete *kmutex.Mutex fields.
package sched

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/aarch64kernel/corekernel/internal/constants"
	"github.com/aarch64kernel/corekernel/internal/kmem"
)

// ThreadState is a thread's scheduling state (spec §4.G).
type ThreadState int

const (
	StateReady ThreadState = iota
	StateRunning
	StateBlocked
	StateExited
)

func (s ThreadState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateExited:
		return "exited"
	default:
		return "unknown"
	}
}

// OwnedLock is the shape a lock held by a thread exposes so the scheduler
// can thread it onto (and off of) the thread's owned-lock chain without
// importing the lock package itself.
type OwnedLock interface {
	OwnerNext() OwnedLock
	SetOwnerNext(OwnedLock)
}

// BlockedOn is the shape of whatever a thread is parked on, enough for
// priority-inheritance and lockdep cycle walks to climb from a waiter to
// the thread currently holding what it wants.
type BlockedOn interface {
	HolderEffectivePriority() int
	Holder() *Thread
}

// FPUState holds the callee-saved SIMD/FP register file lazily swapped on
// context switch (spec's FPU lazy-save note under component H).
type FPUState struct {
	Regs  [32][2]uint64
	FPSR  uint32
	FPCR  uint32
	Dirty bool
}

// Thread is a kernel thread of control. SavedSP must stay the first field:
// the arm64 context-switch trampoline takes its address as a plain
// uintptr* and never learns the rest of the struct's layout.
type Thread struct {
	SavedSP uintptr

	ID         uint64
	Entry      func(arg any)
	Arg        any
	BasePrio   int
	EffPrio    int
	Budget     int
	State      ThreadState
	StackBase  uintptr
	StackBytes int
	FPU        FPUState

	OwnedHead OwnedLock
	WaitingOn BlockedOn

	buf      []byte  // full stack allocation, guard region included
	next     *Thread // runqueue ring link; owned by Runqueue
	waitNext *Thread // singly-linked wait-queue link; owned by whoever parked it

	host hostThread // host/stub build's goroutine plumbing; zero value on arm64
}

var nextThreadID atomic.Uint64

// allocThreadID assigns a monotonic thread ID without a lock, from an
// atomic counter.
func allocThreadID() uint64 {
	return nextThreadID.Add(1)
}

// NewThread allocates a stack (with guard region and high-water-mark
// watermark fill, spec §4.G) and returns a thread ready to be appended to
// the runqueue (Create does both). stackBytes of zero uses
// constants.DefaultStackBytes.
func NewThread(entry func(arg any), arg any, prio int, stackBytes int) (*Thread, error) {
	if prio < constants.MinPriority || prio > constants.MaxPriority {
		return nil, fmt.Errorf("sched: priority %d out of range [%d,%d]", prio, constants.MinPriority, constants.MaxPriority)
	}
	if stackBytes <= 0 {
		stackBytes = constants.DefaultStackBytes
	}
	total := stackBytes + constants.GuardRegionBytes
	buf := make([]byte, total)
	kmem.Memset(buf, constants.WatermarkByte)
	writeGuard(buf)

	t := &Thread{
		ID:         allocThreadID(),
		Entry:      entry,
		Arg:        arg,
		BasePrio:   prio,
		EffPrio:    prio,
		Budget:     constants.Quantum,
		State:      StateReady,
		StackBase:  uintptr(unsafe.Pointer(&buf[0])),
		StackBytes: stackBytes,
		buf:        buf,
	}
	t.hostInit()
	return t, nil
}

// WaitNext returns t's singly-linked wait-queue successor. Exposed so
// internal/kmutex can thread its wait queues through Thread without sched
// importing it.
func (t *Thread) WaitNext() *Thread { return t.waitNext }

// SetWaitNext sets t's wait-queue successor link.
func (t *Thread) SetWaitNext(n *Thread) { t.waitNext = n }
