// Package dma implements the non-coherent DMA engine (spec's component L):
// a FIFO descriptor queue bump-allocated from a non-cacheable arena, with
// an explicit cache-maintenance contract bracketing every descriptor's
// trip to and from the device.
package dma

import (
	"fmt"
	"unsafe"

	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/constants"
	"github.com/aarch64kernel/corekernel/internal/interfaces"
	"github.com/aarch64kernel/corekernel/internal/kmem"
	"github.com/aarch64kernel/corekernel/internal/percpu"
)

// Callback is invoked once a descriptor completes. status is always 0 on
// this engine: invalid requests are rejected at Submit, there is no
// in-flight failure path to report (spec §4.L).
type Callback func(status int, user any)

// descriptor is laid out the way the device would actually read it,
// bump-allocated in the non-cacheable arena and never touched through a
// cacheable alias once linked onto the FIFO.
type descriptor struct {
	dst, src  []byte
	status    uint32
	next      uintptr // address of the next descriptor's arena slot, or 0
	cb        Callback
	user      any
	submitted uint64 // percpu tick count at Submit time
}

const descriptorSize = 64 // one cache line; matches constants.CacheLineBytes

// Engine owns one non-cacheable descriptor arena and FIFO queue. The core
// scopes to a single DMA channel — no multi-channel arbitration.
type Engine struct {
	arena *kmem.Arena

	head, tail uintptr
	descByAddr map[uintptr]*descriptor

	obs interfaces.Observer
}

type noopObserver struct{}

func (noopObserver) ObserveContextSwitch()        {}
func (noopObserver) ObserveTick()                 {}
func (noopObserver) ObserveReschedule()            {}
func (noopObserver) ObserveMutexContention()       {}
func (noopObserver) ObservePriorityBoost(_, _ int) {}
func (noopObserver) ObserveLockdepCycle()          {}
func (noopObserver) ObserveDMASubmit()             {}
func (noopObserver) ObserveDMAComplete(_ uint64)    {}
func (noopObserver) ObserveQueueDepth(_ int)        {}

// NewEngine creates an engine whose descriptor arena is bump-allocated
// from mem, a buffer the caller has mapped Non-Cacheable at base (spec
// §4.M). obs may be nil.
func NewEngine(base uintptr, mem []byte, obs interfaces.Observer) *Engine {
	if obs == nil {
		obs = noopObserver{}
	}
	return &Engine{
		arena:      kmem.NewArena(base, mem),
		descByAddr: make(map[uintptr]*descriptor),
		obs:        obs,
	}
}

// ErrInvalidArgument is returned by Submit for a malformed request.
type ErrInvalidArgument struct{ Reason string }

func (e *ErrInvalidArgument) Error() string { return "dma: invalid argument: " + e.Reason }

// Submit bump-allocates a descriptor, prepares the source range for the
// device (clean to point-of-coherency, write-barrier, clean the descriptor
// itself), then links it onto the FIFO tail under IRQ-masked protection.
func (e *Engine) Submit(dst, src []byte, cb Callback, user any) error {
	if len(src) == 0 || len(dst) == 0 {
		return &ErrInvalidArgument{Reason: "zero length"}
	}
	if len(dst) < len(src) {
		return &ErrInvalidArgument{Reason: "dst shorter than src"}
	}
	if cb == nil {
		return &ErrInvalidArgument{Reason: "nil callback"}
	}

	addr, _, err := e.arena.Alloc(descriptorSize, constants.CacheLineBytes)
	if err != nil {
		return fmt.Errorf("dma: %w", err)
	}
	d := &descriptor{dst: dst, src: src, status: 1, cb: cb, user: user, submitted: percpu.Current().Ticks}

	srcAddr := uintptr(unsafe.Pointer(&src[0]))
	arch.CleanRange(srcAddr, uintptr(len(src)))
	arch.DSB(arch.DomainInner, arch.KindStore)
	arch.CleanRange(addr, descriptorSize)

	f := arch.IRQSave()
	var prevAddr uintptr
	if e.tail != 0 {
		prevAddr = e.tail
		e.descByAddr[prevAddr].next = addr
	}
	e.descByAddr[addr] = d
	if e.head == 0 {
		e.head = addr
	}
	e.tail = addr
	arch.IRQRestore(f)

	// Invariant: the descriptor's own cache line must be visible to the
	// device view before it becomes reachable through the previous tail's
	// next pointer, so the previous tail is cleaned only after the link is
	// written, never before.
	if prevAddr != 0 {
		arch.CleanRange(prevAddr, descriptorSize)
	}
	e.obs.ObserveDMASubmit()
	return nil
}

// Poll drains the FIFO, performing each descriptor's copy and completion
// contract, and returns the number of descriptors completed.
func (e *Engine) Poll() int {
	n := 0
	for {
		d, addr, ok := e.dequeue()
		if !ok {
			return n
		}
		e.complete(d, addr)
		n++
	}
}

func (e *Engine) dequeue() (*descriptor, uintptr, bool) {
	f := arch.IRQSave()
	defer arch.IRQRestore(f)
	if e.head == 0 {
		return nil, 0, false
	}
	addr := e.head
	d := e.descByAddr[addr]
	e.head = d.next
	if e.head == 0 {
		e.tail = 0
	}
	delete(e.descByAddr, addr)
	return d, addr, true
}

func (e *Engine) complete(d *descriptor, addr uintptr) {
	kmem.Memcpy(d.dst, d.src)

	dstAddr := uintptr(unsafe.Pointer(&d.dst[0]))
	arch.CleanRange(dstAddr, uintptr(len(d.dst)))

	arch.DMB(arch.DomainInner, arch.KindLoad)
	arch.InvalidateRange(dstAddr, uintptr(len(d.dst)))

	d.status = 0
	arch.CleanRange(addr, descriptorSize)
	// This core has no free-running wall clock, only the scheduler's tick
	// counter, so completion "latency" is reported in ticks elapsed since
	// Submit rather than nanoseconds.
	e.obs.ObserveDMAComplete(percpu.Current().Ticks - d.submitted)
	d.cb(int(d.status), d.user)
}

// Pending reports how many descriptors are currently queued, for
// diagnostics and tests.
func (e *Engine) Pending() int {
	n := 0
	for addr := e.head; addr != 0; {
		n++
		addr = e.descByAddr[addr].next
	}
	return n
}
