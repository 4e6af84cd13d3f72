// Package corekernel wires together the scheduler, locking primitives, DMA
// engine and MMU scaffold implemented under internal/ into a single
// bootable kernel core. Boot() is the module's one entry point, playing
// the role ublk.CreateAndServe plays for the control-plane side of the
// teacher project: it validates a Config, builds every subsystem in
// dependency order, and hands back a Kernel ready to run threads.
package corekernel

import (
	"github.com/rs/zerolog"

	"github.com/aarch64kernel/corekernel/internal/constants"
	"github.com/aarch64kernel/corekernel/internal/dma"
	"github.com/aarch64kernel/corekernel/internal/interfaces"
	"github.com/aarch64kernel/corekernel/internal/irq"
	"github.com/aarch64kernel/corekernel/internal/kmem"
	"github.com/aarch64kernel/corekernel/internal/kmutex"
	"github.com/aarch64kernel/corekernel/internal/logging"
	"github.com/aarch64kernel/corekernel/internal/mmu"
	"github.com/aarch64kernel/corekernel/internal/percpu"
	"github.com/aarch64kernel/corekernel/internal/sched"
	"github.com/aarch64kernel/corekernel/internal/uart"
)

// Config holds the build-time feature flags a platform's boot code
// chooses before calling Boot, the way DeviceParams configures a device
// before ublk.CreateAndServe wires its runners.
type Config struct {
	// Policy selects the scheduling discipline. Defaults to
	// sched.RoundRobin{} when nil.
	Policy sched.Policy

	// EnablePriorityInheritance is the PI setting for mutexes created
	// through Kernel.NewMutex. setDefaults leaves it alone, so a zero
	// Config creates them with PI off.
	EnablePriorityInheritance bool

	// EnableLockdep is the default lockdep setting for mutexes created
	// through Kernel.NewMutex. Off by default: walking the wait-for graph
	// on every Lock has a cost not every caller wants to pay.
	EnableLockdep bool

	// PhysBase is the base address of the identity-mapped RAM window
	// internal/mmu covers, and the base address the DMA arena is
	// allocated within.
	PhysBase uintptr

	// MMIOBase/MMIOSize describe the Device-nGnRE region internal/mmu
	// maps for the platform's interrupt controller, timer and UART.
	MMIOBase uintptr
	MMIOSize uintptr

	// DMAArenaBytes sizes the non-cacheable descriptor arena. Defaults to
	// constants.DMAArenaBytes when zero.
	DMAArenaBytes int

	// UART is the diagnostic byte sink logging.Configure writes to.
	// Defaults to uart.Null{} (discard) when nil — a platform's boot code
	// supplies uart.NewPL011(base) once the MMIO region is mapped.
	UART uart.Writer

	// LogLevel is the minimum level logging.Configure admits.
	LogLevel zerolog.Level

	// DefaultStackBytes sizes threads created without an explicit stack
	// size. Defaults to constants.DefaultStackBytes when zero.
	DefaultStackBytes int
}

func (c *Config) setDefaults() {
	if c.Policy == nil {
		c.Policy = sched.RoundRobin{}
	}
	if c.DMAArenaBytes == 0 {
		c.DMAArenaBytes = constants.DMAArenaBytes
	}
	if c.UART == nil {
		c.UART = uart.Null{}
	}
	if c.DefaultStackBytes == 0 {
		c.DefaultStackBytes = constants.DefaultStackBytes
	}
}

// Kernel is the booted state of one CPU's kernel core: the MMU scaffold,
// the DMA engine, the IRQ dispatcher and the metrics sink every subsystem
// reports through.
type Kernel struct {
	Config  Config
	Metrics *Metrics
	MMU     *mmu.Table

	DMA        *dma.Engine
	Dispatcher *irq.Dispatcher

	arena []byte
}

// Boot validates cfg, applies its defaults, and brings up every subsystem
// in the order spec §9's design notes imply: per-CPU state first (nothing
// else has anywhere to store itself without it), then the MMU (the DMA
// arena's cache-maintenance contract assumes the mappings it depends on
// already exist), then the DMA engine, then the scheduler, then the IRQ
// dispatcher that drives the scheduler's tick. It never returns an error
// for a condition spec §7 calls a programming error — those halt through
// logging.Fatal from inside the subsystem that detects them.
func Boot(cfg Config, ctrl interfaces.Controller) (*Kernel, error) {
	cfg.setDefaults()

	percpu.Install()
	logging.Configure(cfg.UART, cfg.LogLevel)

	k := &Kernel{Config: cfg, Metrics: NewMetrics()}

	k.MMU = mmu.New()
	if err := k.MMU.Build(cfg.PhysBase, cfg.MMIOBase, cfg.MMIOSize); err != nil {
		return nil, WrapKernelError("Boot", ErrCodeMisaligned, err)
	}
	k.MMU.Enable()

	arena, err := kmem.MmapArena(cfg.DMAArenaBytes)
	if err != nil {
		return nil, WrapKernelError("Boot", ErrCodeResourceExhausted, err)
	}
	k.arena = arena
	k.DMA = dma.NewEngine(cfg.PhysBase, arena, k.Metrics)

	sched.Configure(cfg.Policy)
	k.Dispatcher = irq.NewDispatcher(ctrl)

	logging.Infof("corekernel: booted (policy=%T, dma_arena=%d bytes)", cfg.Policy, cfg.DMAArenaBytes)
	return k, nil
}

// Spawn creates a new thread under this kernel's scheduler. stackBytes of
// zero uses the Config's DefaultStackBytes.
func (k *Kernel) Spawn(entry func(arg any), arg any, prio int, stackBytes int) (*sched.Thread, error) {
	if stackBytes == 0 {
		stackBytes = k.Config.DefaultStackBytes
	}
	return sched.Create(entry, arg, prio, stackBytes)
}

// NewMutex constructs a mutex with this kernel's configured PI/lockdep
// defaults, so callers don't re-thread Config through every call site that
// needs a lock.
func (k *Kernel) NewMutex() *kmutex.Mutex {
	m := &kmutex.Mutex{}
	m.SetPriorityInheritance(k.Config.EnablePriorityInheritance)
	m.EnableLockdep(k.Config.EnableLockdep)
	return m
}

// Run hands control to the scheduler. It does not return: on the arm64
// build it runs the first selected thread directly; every other thread
// transition happens through Tick-driven IRQs or voluntary Yield/Exit
// calls from inside running threads.
func (k *Kernel) Run() {
	sched.Start()
}

// Tick drives one timer interrupt through the dispatcher: acknowledge,
// route to sched.Tick, end-of-interrupt, then the return-path reschedule
// check (spec §4.J). A platform's real timer ISR calls this from inside
// the actual interrupt context; Harness.Tick calls it the same way from a
// synthetic one.
//
// On the arm64 build this is genuinely safe to call from interrupt
// context: the running thread's registers are frozen by the exception
// entry, not executing concurrently. On the host build there is no
// hardware interrupt, only goroutines, so Tick must be driven from a point
// where no spawned thread's goroutine is concurrently past its own Yield
// call — e.g. before any thread has been started, or from the same
// goroutine a cooperative test is already using to coordinate thread
// handoffs. It is not a general-purpose async preemption simulator.
func (k *Kernel) Tick() {
	k.Dispatcher.Dispatch(sched.Tick)
	k.Metrics.ObserveTick()
	irq.Tail(sched.Tail)
}

// Shutdown releases the kernel's DMA arena. Boot assembly never calls
// this — a real core halts rather than unwinding — but the host test
// harness and cmd/kernelsim's demo use it to release the mmap'd arena
// cleanly.
func (k *Kernel) Shutdown() error {
	return kmem.UnmmapArena(k.arena)
}
