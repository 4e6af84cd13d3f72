package corekernel

import (
	"sync/atomic"

	"github.com/aarch64kernel/corekernel/internal/interfaces"
)

// LatencyBuckets defines the DMA-completion latency histogram buckets, in
// scheduler ticks rather than nanoseconds: this core has no free-running
// wall clock (internal/dma documents the same substitution), only the
// tick counter internal/percpu maintains.
var LatencyBuckets = []uint64{1, 2, 4, 8, 16, 32, 64, 128}

const numLatencyBuckets = 8

// Metrics accumulates scheduler, lock and DMA telemetry for one boot. It
// implements internal/interfaces.Observer so it can be wired straight into
// internal/dma.NewEngine and the scheduler/lock call sites without an
// adapter.
type Metrics struct {
	ContextSwitches   atomic.Uint64
	Ticks             atomic.Uint64
	Reschedules       atomic.Uint64
	MutexContentions  atomic.Uint64
	PriorityBoosts    atomic.Uint64
	LockdepCycles     atomic.Uint64
	DMASubmits        atomic.Uint64
	DMACompletions    atomic.Uint64

	// DMA completion latency, in ticks (cumulative histogram).
	DMALatencyTicks [numLatencyBuckets]atomic.Uint64
	DMALatencyTotal atomic.Uint64

	QueueDepthTotal atomic.Int64
	QueueDepthCount atomic.Uint64
	MaxQueueDepth   atomic.Int64
}

// NewMetrics returns a zeroed metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveContextSwitch implements interfaces.Observer.
func (m *Metrics) ObserveContextSwitch() { m.ContextSwitches.Add(1) }

// ObserveTick implements interfaces.Observer.
func (m *Metrics) ObserveTick() { m.Ticks.Add(1) }

// ObserveReschedule implements interfaces.Observer.
func (m *Metrics) ObserveReschedule() { m.Reschedules.Add(1) }

// ObserveMutexContention implements interfaces.Observer.
func (m *Metrics) ObserveMutexContention() { m.MutexContentions.Add(1) }

// ObservePriorityBoost implements interfaces.Observer. from/to are logged
// by the caller; the counter here only tracks how often donation fires.
func (m *Metrics) ObservePriorityBoost(from, to int) { m.PriorityBoosts.Add(1) }

// ObserveLockdepCycle implements interfaces.Observer.
func (m *Metrics) ObserveLockdepCycle() { m.LockdepCycles.Add(1) }

// ObserveDMASubmit implements interfaces.Observer.
func (m *Metrics) ObserveDMASubmit() { m.DMASubmits.Add(1) }

// ObserveDMAComplete implements interfaces.Observer. latencyTicks is the
// elapsed tick count internal/dma measured between Submit and completion.
func (m *Metrics) ObserveDMAComplete(latencyTicks uint64) {
	m.DMACompletions.Add(1)
	m.DMALatencyTotal.Add(latencyTicks)
	for i, bucket := range LatencyBuckets {
		if latencyTicks <= bucket {
			m.DMALatencyTicks[i].Add(1)
		}
	}
}

// ObserveQueueDepth implements interfaces.Observer.
func (m *Metrics) ObserveQueueDepth(depth int) {
	m.QueueDepthTotal.Add(int64(depth))
	m.QueueDepthCount.Add(1)
	for {
		cur := m.MaxQueueDepth.Load()
		if int64(depth) <= cur {
			break
		}
		if m.MaxQueueDepth.CompareAndSwap(cur, int64(depth)) {
			break
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to log or
// compare in a test without racing the live counters.
type MetricsSnapshot struct {
	ContextSwitches  uint64
	Ticks            uint64
	Reschedules      uint64
	MutexContentions uint64
	PriorityBoosts   uint64
	LockdepCycles    uint64
	DMASubmits       uint64
	DMACompletions   uint64

	AvgDMALatencyTicks float64
	DMALatencyHistogram [numLatencyBuckets]uint64

	AvgQueueDepth float64
	MaxQueueDepth int64
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		ContextSwitches:  m.ContextSwitches.Load(),
		Ticks:            m.Ticks.Load(),
		Reschedules:      m.Reschedules.Load(),
		MutexContentions: m.MutexContentions.Load(),
		PriorityBoosts:   m.PriorityBoosts.Load(),
		LockdepCycles:    m.LockdepCycles.Load(),
		DMASubmits:       m.DMASubmits.Load(),
		DMACompletions:   m.DMACompletions.Load(),
		MaxQueueDepth:    m.MaxQueueDepth.Load(),
	}
	if snap.DMACompletions > 0 {
		snap.AvgDMALatencyTicks = float64(m.DMALatencyTotal.Load()) / float64(snap.DMACompletions)
	}
	if count := m.QueueDepthCount.Load(); count > 0 {
		snap.AvgQueueDepth = float64(m.QueueDepthTotal.Load()) / float64(count)
	}
	for i := range snap.DMALatencyHistogram {
		snap.DMALatencyHistogram[i] = m.DMALatencyTicks[i].Load()
	}
	return snap
}

// Reset zeroes every counter; used between test harness scenarios.
func (m *Metrics) Reset() {
	m.ContextSwitches.Store(0)
	m.Ticks.Store(0)
	m.Reschedules.Store(0)
	m.MutexContentions.Store(0)
	m.PriorityBoosts.Store(0)
	m.LockdepCycles.Store(0)
	m.DMASubmits.Store(0)
	m.DMACompletions.Store(0)
	m.DMALatencyTotal.Store(0)
	m.QueueDepthTotal.Store(0)
	m.QueueDepthCount.Store(0)
	m.MaxQueueDepth.Store(0)
	for i := range m.DMALatencyTicks {
		m.DMALatencyTicks[i].Store(0)
	}
}

var _ interfaces.Observer = (*Metrics)(nil)
