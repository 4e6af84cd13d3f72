package irq

import (
	"errors"
	"testing"

	"github.com/aarch64kernel/corekernel/internal/arch"
	"github.com/aarch64kernel/corekernel/internal/percpu"
)

type fakeController struct {
	queue   []uint32
	eoiLog  []uint32
	enabled map[uint32]bool
}

func newFakeController(intids ...uint32) *fakeController {
	return &fakeController{queue: intids, enabled: make(map[uint32]bool)}
}

func (c *fakeController) Ack() uint32 {
	if len(c.queue) == 0 {
		return Spurious
	}
	id := c.queue[0]
	c.queue = c.queue[1:]
	return id
}

func (c *fakeController) EOI(id uint32)    { c.eoiLog = append(c.eoiLog, id) }
func (c *fakeController) Enable(id uint32) { c.enabled[id] = true }

func TestDispatchRoutesTimerToOnTick(t *testing.T) {
	percpu.Install()
	ctrl := newFakeController(TimerINTID)
	d := NewDispatcher(ctrl)

	ticked := false
	d.Dispatch(func() { ticked = true })

	if !ticked {
		t.Fatalf("expected onTick to be called for the timer INTID")
	}
	if len(ctrl.eoiLog) != 1 || ctrl.eoiLog[0] != TimerINTID {
		t.Fatalf("expected EOI(%d), got %v", TimerINTID, ctrl.eoiLog)
	}
	if percpu.Current().IRQDepth != 0 {
		t.Fatalf("IRQDepth should return to 0 after dispatch")
	}
}

func TestDispatchSpuriousSkipsEOI(t *testing.T) {
	percpu.Install()
	ctrl := newFakeController() // empty queue -> Ack returns Spurious
	d := NewDispatcher(ctrl)
	d.Dispatch(func() { t.Fatalf("onTick should not run for a spurious interrupt") })
	if len(ctrl.eoiLog) != 0 {
		t.Fatalf("spurious interrupt must not be EOI'd, got %v", ctrl.eoiLog)
	}
}

func TestDispatchRoutesDeviceHandler(t *testing.T) {
	percpu.Install()
	const devID = 42
	ctrl := newFakeController(devID)
	d := NewDispatcher(ctrl)

	called := false
	d.Register(devID, func() error { called = true; return nil })
	d.Dispatch(func() { t.Fatalf("onTick should not run for a device INTID") })

	if !called {
		t.Fatalf("expected the registered handler to run")
	}
	if len(ctrl.eoiLog) != 1 || ctrl.eoiLog[0] != devID {
		t.Fatalf("expected EOI(%d), got %v", devID, ctrl.eoiLog)
	}
}

func TestDispatchHandlerErrorSkipsEOI(t *testing.T) {
	percpu.Install()
	arch.SetHaltHook(func() {})
	defer arch.SetHaltHook(nil)

	const devID = 7
	ctrl := newFakeController(devID)
	d := NewDispatcher(ctrl)
	d.Register(devID, func() error { return errors.New("device wedged") })

	d.Dispatch(func() {})

	if len(ctrl.eoiLog) != 0 {
		t.Fatalf("a failed handler must not be EOI'd, got %v", ctrl.eoiLog)
	}
}
