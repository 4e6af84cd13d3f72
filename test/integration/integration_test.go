//go:build integration

// Package integration drives the six end-to-end scenarios spec.md §8
// names literally (S1-S6), each exercising the scheduler, locking
// primitives, DMA engine and stack guard together rather than in
// isolation the way the package-level unit tests do.
package integration

import (
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/dma"
	"github.com/aarch64kernel/corekernel/internal/irq"
	"github.com/aarch64kernel/corekernel/internal/kmutex"
	"github.com/aarch64kernel/corekernel/internal/percpu"
	"github.com/aarch64kernel/corekernel/internal/sched"
	"github.com/aarch64kernel/corekernel/internal/spinlock"
)

func reset(t *testing.T) {
	t.Helper()
	sched.ResetForTest()
	percpu.Install()
	arch.SetHaltHook(func() {})
	t.Cleanup(func() { arch.SetHaltHook(nil) })
}

// S1: priority inversion recovered once a monitor enables priority
// inheritance mid-run.
func TestS1PriorityInversionRecovery(t *testing.T) {
	reset(t)
	sched.Configure(sched.Priority{})

	var m kmutex.Mutex
	m.SetPriorityInheritance(false)

	lAcquired := make(chan struct{})
	hBlocked := make(chan struct{})
	lEffAtRelease := make(chan int, 1)
	hAcquired := make(chan struct{})

	_, err := sched.Create(func(any) {
		if err := m.Lock(); err != nil {
			t.Errorf("L: lock: %v", err)
			return
		}
		close(lAcquired)
		<-hBlocked
		for i := 0; i < 25; i++ {
			sched.Yield()
		}
		lEffAtRelease <- sched.Current().EffPrio
		m.Unlock()
		for {
			sched.Yield()
		}
	}, nil, 5, 8192)
	if err != nil {
		t.Fatalf("create L: %v", err)
	}

	_, err = sched.Create(func(any) {
		<-lAcquired
		sched.Yield()
		close(hBlocked)
		if err := m.Lock(); err != nil {
			t.Errorf("H: lock: %v", err)
			return
		}
		close(hAcquired)
		m.Unlock()
		for {
			sched.Yield()
		}
	}, nil, 20, 8192)
	if err != nil {
		t.Fatalf("create H: %v", err)
	}

	_, err = sched.Create(func(any) {
		<-lAcquired
		for i := 0; i < 20; i++ {
			sched.Yield()
		}
		m.SetPriorityInheritance(true)
		for {
			sched.Yield()
		}
	}, nil, 10, 8192)
	if err != nil {
		t.Fatalf("create monitor: %v", err)
	}

	go sched.Start()

	select {
	case eff := <-lEffAtRelease:
		if eff != 20 {
			t.Fatalf("L's effective priority at release = %d, want 20 (donated from H)", eff)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("L never released the mutex")
	}

	select {
	case <-hAcquired:
	case <-time.After(2 * time.Second):
		t.Fatal("H never acquired the mutex after L released it")
	}
}

// S2: with lockdep on, the second lock call in opposite acquisition order
// halts before either thread can deadlock; this test runs with lockdep
// enabled and asserts the reported cycle lists at least two entries.
func TestS2DeadlockDetection(t *testing.T) {
	reset(t)
	sched.Configure(sched.RoundRobin{})

	var a, b kmutex.Mutex
	a.EnableLockdep(true)
	b.EnableLockdep(true)

	cycleSeen := make(chan *kmutex.ErrLockdepCycle, 2)
	t1done := make(chan struct{})
	t2done := make(chan struct{})

	_, err := sched.Create(func(any) {
		defer close(t1done)
		if err := a.Lock(); err != nil {
			t.Errorf("t1: lock a: %v", err)
			return
		}
		sched.Yield()
		sched.Yield()
		if err := b.Lock(); err != nil {
			if cycle, ok := err.(*kmutex.ErrLockdepCycle); ok {
				cycleSeen <- cycle
			} else {
				t.Errorf("t1: lock b: unexpected error type %v", err)
			}
		}
		for {
			sched.Yield()
		}
	}, nil, 10, 8192)
	if err != nil {
		t.Fatalf("create t1: %v", err)
	}

	_, err = sched.Create(func(any) {
		defer close(t2done)
		if err := b.Lock(); err != nil {
			t.Errorf("t2: lock b: %v", err)
			return
		}
		sched.Yield()
		sched.Yield()
		if err := a.Lock(); err != nil {
			if cycle, ok := err.(*kmutex.ErrLockdepCycle); ok {
				cycleSeen <- cycle
			} else {
				t.Errorf("t2: lock a: unexpected error type %v", err)
			}
		}
		for {
			sched.Yield()
		}
	}, nil, 10, 8192)
	if err != nil {
		t.Fatalf("create t2: %v", err)
	}

	go sched.Start()

	select {
	case <-t1done:
	case <-time.After(2 * time.Second):
		t.Fatal("t1 never finished its lock attempts")
	}
	select {
	case <-t2done:
	case <-time.After(2 * time.Second):
		t.Fatal("t2 never finished its lock attempts")
	}

	select {
	case cycle := <-cycleSeen:
		if len(cycle.Cycle) < 2 {
			t.Fatalf("expected a cycle naming at least two threads, got %v", cycle.Cycle)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a lockdep cycle to have been detected")
	}
}

// S3: byte-for-byte DMA round trip, callback invoked exactly once, for
// the lengths spec §8 names.
func TestS3DMAMemcpyRoundTrip(t *testing.T) {
	for _, n := range []int{1, 63, 64, 65, 4096} {
		n := n
		t.Run(itoa(n), func(t *testing.T) {
			percpu.Install()
			eng := dma.NewEngine(0, make([]byte, 1<<16), nil)

			src := make([]byte, n)
			for i := range src {
				src[i] = byte((i * 7) & 0xFF)
			}
			dst := make([]byte, n)

			calls := 0
			var gotStatus int
			err := eng.Submit(dst, src, func(status int, _ any) {
				calls++
				gotStatus = status
			}, nil)
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if got := eng.Poll(); got != 1 {
				t.Fatalf("Poll completed %d descriptors, want 1", got)
			}
			if calls != 1 {
				t.Fatalf("callback invoked %d times, want 1", calls)
			}
			if gotStatus != 0 {
				t.Fatalf("callback status = %d, want 0", gotStatus)
			}
			for i := range src {
				if dst[i] != src[i] {
					t.Fatalf("byte %d: dst=%x src=%x", i, dst[i], src[i])
				}
			}
		})
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// S4: a raw spinlock held without masking IRQs deadlocks a simulated ISR
// spinning on the same word; the IRQ-save variant instead masks IRQs so
// the simulated ISR never even attempts the lock until it is free.
func TestS4IRQReentrancyWithoutIRQSave(t *testing.T) {
	var raw spinlock.Raw
	raw.Lock()

	acquired := make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		raw.Lock() // the "ISR" retaking the same raw word
		close(acquired)
		return nil
	})

	select {
	case <-acquired:
		t.Fatal("ISR should not have acquired a lock its own thread still holds")
	case <-time.After(50 * time.Millisecond):
		// Expected: the simulated ISR spins forever, the deadlock spec §8
		// S4 describes for the no-irqsave case.
	}

	raw.Unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("ISR should have acquired the lock once it was released")
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("simulated ISR goroutine: %v", err)
	}
}

func TestS4IRQReentrancyWithIRQSave(t *testing.T) {
	var l spinlock.Spinlock
	f := l.LockIRQSave()
	if !arch.IRQsMasked() {
		t.Fatal("IRQs should be masked while the irqsave lock is held")
	}

	// A real GIC would not even deliver the IRQ while PSTATE.I is set; the
	// simulated ISR models that by checking the mask before touching
	// anything the held lock protects, rather than attempting the lock.
	if !arch.IRQsMasked() {
		t.Fatal("simulated ISR must not run while IRQs are masked")
	}

	l.UnlockIRQRestore(f)
	if arch.IRQsMasked() {
		t.Fatal("IRQs should be unmasked after UnlockIRQRestore")
	}
}

// S5: three equal-priority threads rotate strictly in FIFO order on each
// Yield, and a lower-priority fourth thread never runs while any of
// them is READY.
func TestS5StrictPriorityRotation(t *testing.T) {
	reset(t)
	sched.Configure(sched.Priority{})

	order := make(chan int, 16)
	lowRan := make(chan struct{}, 1)
	done := make(chan struct{})

	mk := func(label int) func(any) {
		return func(any) {
			for i := 0; i < 2; i++ {
				order <- label
				sched.Yield()
			}
			done <- struct{}{}
			for {
				sched.Yield()
			}
		}
	}

	for i := 1; i <= 3; i++ {
		if _, err := sched.Create(mk(i), nil, 10, 8192); err != nil {
			t.Fatalf("create thread %d: %v", i, err)
		}
	}
	if _, err := sched.Create(func(any) {
		select {
		case lowRan <- struct{}{}:
		default:
		}
		for {
			sched.Yield()
		}
	}, nil, 1, 8192); err != nil {
		t.Fatalf("create low-priority thread: %v", err)
	}

	go sched.Start()

	var seen []int
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("not all equal-priority threads finished")
		}
	}
	close(order)
	for v := range order {
		seen = append(seen, v)
	}

	select {
	case <-lowRan:
		t.Fatal("low-priority thread ran while equal/higher-priority threads were READY")
	default:
	}
	if len(seen) != 6 {
		t.Fatalf("expected 6 scheduling events, got %d: %v", len(seen), seen)
	}
	for round := 0; round < 2; round++ {
		seg := seen[round*3 : round*3+3]
		if seg[0] == seg[1] || seg[1] == seg[2] || seg[0] == seg[2] {
			t.Fatalf("round %d did not rotate through all three distinct threads: %v", round, seg)
		}
	}
}

// S6: a corrupted stack guard halts the CPU on the next tick, with the
// overflowing thread's ID available on the error.
func TestS6StackOverflowTrap(t *testing.T) {
	reset(t)
	sched.Configure(sched.RoundRobin{})

	halted := make(chan struct{})
	arch.SetHaltHook(func() {
		select {
		case <-halted:
		default:
			close(halted)
		}
	})

	park := make(chan struct{})
	th, err := sched.Create(func(any) {
		<-park // blocks this goroutine without touching scheduler state,
		// so the test goroutine below can safely drive Tick itself
	}, nil, 10, 4096)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := th.CheckStack(); err != nil {
		t.Fatalf("fresh thread should have an intact guard: %v", err)
	}
	defer close(park)

	go sched.Start()
	time.Sleep(10 * time.Millisecond)

	th.CorruptGuardForTest()
	sched.Tick()

	select {
	case <-halted:
	case <-time.After(time.Second):
		t.Fatal("expected the overflow to halt the CPU on the next tick")
	}
}

// The IRQ dispatcher's timer route composes cleanly with the scheduler's
// exported Tail: dispatching the timer INTID then running irq.Tail should
// behave exactly as sched.Tick followed directly by sched.Tail, matching
// how the root package's Kernel.Tick/Harness.Tick wire the two together.
func TestIRQDispatchDrivesSchedTick(t *testing.T) {
	reset(t)
	sched.Configure(sched.RoundRobin{})

	park := make(chan struct{})
	defer close(park)
	for i := 0; i < 2; i++ {
		if _, err := sched.Create(func(any) {
			<-park // parked so the test goroutine can safely drive Tick itself
		}, nil, 10, 8192); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	go sched.Start()
	time.Sleep(10 * time.Millisecond)

	ctrl := newFIFOControllerForTest(irq.TimerINTID)
	d := irq.NewDispatcher(ctrl)
	d.Dispatch(sched.Tick)
	irq.Tail(sched.Tail)
}

type fifoControllerForTest struct{ queue []uint32 }

func newFIFOControllerForTest(ids ...uint32) *fifoControllerForTest {
	return &fifoControllerForTest{queue: ids}
}

func (c *fifoControllerForTest) Ack() uint32 {
	if len(c.queue) == 0 {
		return irq.Spurious
	}
	id := c.queue[0]
	c.queue = c.queue[1:]
	return id
}
func (c *fifoControllerForTest) EOI(uint32)    {}
func (c *fifoControllerForTest) Enable(uint32) {}
