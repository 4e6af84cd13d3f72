package corekernel

import (
	"sync"

	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/constants"
	"github.com/aarch64kernel/corekernel/internal/dma"
	"github.com/aarch64kernel/corekernel/internal/irq"
	"github.com/aarch64kernel/corekernel/internal/kmem"
	"github.com/aarch64kernel/corekernel/internal/mmu"
	"github.com/aarch64kernel/corekernel/internal/percpu"
	"github.com/aarch64kernel/corekernel/internal/sched"
)

// fifoController is a minimal interfaces.Controller a test harness can
// queue synthetic interrupts onto, standing in for a real GICv3
// distributor/redistributor the same way the rest of this codebase's mock
// collaborators stand in for real hardware/kernel state.
type fifoController struct {
	mu      sync.Mutex
	pending []uint32
	enabled map[uint32]bool
	eoiLog  []uint32
}

func newFIFOController() *fifoController {
	return &fifoController{enabled: make(map[uint32]bool)}
}

func (c *fifoController) Raise(intid uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, intid)
}

func (c *fifoController) Ack() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return irq.Spurious
	}
	id := c.pending[0]
	c.pending = c.pending[1:]
	return id
}

func (c *fifoController) EOI(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eoiLog = append(c.eoiLog, id)
}

func (c *fifoController) Enable(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enabled[id] = true
}

// Harness boots the kernel core against the portable (non-arm64)
// internal/arch stub so tests can drive ticks, interrupts, locks and DMA
// traffic deterministically without real hardware, in the same spirit the
// teacher's MockBackend lets storage-facing tests run without a kernel
// ublk driver underneath.
type Harness struct {
	Metrics    *Metrics
	MMU        *mmu.Table
	DMA        *dma.Engine
	Dispatcher *irq.Dispatcher

	controller *fifoController
	arena      []byte
	halted     bool
}

// NewHarness boots a fresh kernel state machine: installs the per-CPU
// block, builds and enables the MMU scaffold, bump-allocates a DMA arena,
// configures the scheduler with policy, and wires a fake interrupt
// controller's timer route to sched.Tick. Boot-fatal conditions are
// captured rather than hung on, via arch.SetHaltHook.
func NewHarness(policy sched.Policy) (*Harness, error) {
	sched.ResetForTest()
	percpu.Install()

	h := &Harness{Metrics: NewMetrics(), controller: newFIFOController()}
	arch.SetHaltHook(func() { h.halted = true })

	h.MMU = mmu.New()
	if err := h.MMU.Build(0, constants.IdentityRegionBytes*3, constants.PageBytes); err != nil {
		return nil, WrapKernelError("Harness.Boot", ErrCodeMisaligned, err)
	}
	h.MMU.Enable()

	arena, err := kmem.MmapArena(int(constants.DMAArenaBytes))
	if err != nil {
		return nil, WrapKernelError("Harness.Boot", ErrCodeResourceExhausted, err)
	}
	h.arena = arena
	h.DMA = dma.NewEngine(constants.IdentityRegionBytes, arena, h.Metrics)

	sched.Configure(policy)
	h.Dispatcher = irq.NewDispatcher(h.controller)

	return h, nil
}

// Spawn creates a new thread on the harness's scheduler.
func (h *Harness) Spawn(entry func(arg any), arg any, prio int, stackBytes int) (*sched.Thread, error) {
	return sched.Create(entry, arg, prio, stackBytes)
}

// Start begins running the scheduler's first selected thread. It runs
// sched.Start on a new goroutine and returns at once; on the host build
// that goroutine parks forever as the synthetic "boot" thread, and the
// caller drives the simulation through Tick/DeliverIRQ from its own
// goroutine.
func (h *Harness) Start() {
	go sched.Start()
}

// Tick drives exactly one timer tick through the same IRQ path real
// hardware would: raise the timer INTID, dispatch it (routing to
// sched.Tick), then run the return-path reschedule check. On the host
// build this must be called from a point where no spawned thread's
// goroutine is concurrently executing past its own Yield call (see
// Kernel.Tick's longer caveat) — it is not a general-purpose async
// preemption simulator, only a deterministic driver for single-threaded
// scenarios and tests that coordinate their own handoffs.
func (h *Harness) Tick() {
	h.controller.Raise(irq.TimerINTID)
	h.Dispatcher.Dispatch(sched.Tick)
	h.Metrics.ObserveTick()
	irq.Tail(sched.Tail)
}

// DeliverIRQ raises and dispatches a device interrupt with no timer
// involvement, for IRQ-reentrancy scenarios that need to interleave a
// device interrupt with in-progress thread work.
func (h *Harness) DeliverIRQ(intid uint32) {
	h.controller.Raise(intid)
	h.Dispatcher.Dispatch(sched.Tick)
	irq.Tail(sched.Tail)
}

// Halted reports whether a fatal condition halted the simulated CPU.
func (h *Harness) Halted() bool { return h.halted }

// Close releases the harness's DMA arena.
func (h *Harness) Close() error {
	return kmem.UnmmapArena(h.arena)
}
