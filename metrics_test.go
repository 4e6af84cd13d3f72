package corekernel

import "testing"

func TestMetricsCountersAccumulate(t *testing.T) {
	m := NewMetrics()

	m.ObserveContextSwitch()
	m.ObserveContextSwitch()
	m.ObserveTick()
	m.ObserveReschedule()
	m.ObserveMutexContention()
	m.ObservePriorityBoost(5, 20)
	m.ObserveLockdepCycle()
	m.ObserveDMASubmit()

	snap := m.Snapshot()
	if snap.ContextSwitches != 2 {
		t.Errorf("ContextSwitches = %d, want 2", snap.ContextSwitches)
	}
	if snap.Ticks != 1 {
		t.Errorf("Ticks = %d, want 1", snap.Ticks)
	}
	if snap.Reschedules != 1 {
		t.Errorf("Reschedules = %d, want 1", snap.Reschedules)
	}
	if snap.MutexContentions != 1 {
		t.Errorf("MutexContentions = %d, want 1", snap.MutexContentions)
	}
	if snap.PriorityBoosts != 1 {
		t.Errorf("PriorityBoosts = %d, want 1", snap.PriorityBoosts)
	}
	if snap.LockdepCycles != 1 {
		t.Errorf("LockdepCycles = %d, want 1", snap.LockdepCycles)
	}
	if snap.DMASubmits != 1 {
		t.Errorf("DMASubmits = %d, want 1", snap.DMASubmits)
	}
}

func TestMetricsDMALatencyHistogram(t *testing.T) {
	m := NewMetrics()

	m.ObserveDMAComplete(1) // falls in every bucket >= 1
	m.ObserveDMAComplete(10)
	m.ObserveDMAComplete(100)

	snap := m.Snapshot()
	if snap.DMACompletions != 3 {
		t.Fatalf("DMACompletions = %d, want 3", snap.DMACompletions)
	}
	wantAvg := float64(1+10+100) / 3
	if snap.AvgDMALatencyTicks != wantAvg {
		t.Errorf("AvgDMALatencyTicks = %v, want %v", snap.AvgDMALatencyTicks, wantAvg)
	}
	// Bucket 0 (<=1 tick) should have exactly the first sample.
	if snap.DMALatencyHistogram[0] != 1 {
		t.Errorf("bucket[0] = %d, want 1", snap.DMALatencyHistogram[0])
	}
	// The last bucket (<=128 ticks) is cumulative and should count all three.
	if last := snap.DMALatencyHistogram[len(snap.DMALatencyHistogram)-1]; last != 3 {
		t.Errorf("last bucket = %d, want 3", last)
	}
}

func TestMetricsQueueDepthTracksMaxAndAverage(t *testing.T) {
	m := NewMetrics()

	m.ObserveQueueDepth(4)
	m.ObserveQueueDepth(10)
	m.ObserveQueueDepth(2)

	snap := m.Snapshot()
	if snap.MaxQueueDepth != 10 {
		t.Errorf("MaxQueueDepth = %d, want 10", snap.MaxQueueDepth)
	}
	wantAvg := float64(4+10+2) / 3
	if snap.AvgQueueDepth != wantAvg {
		t.Errorf("AvgQueueDepth = %v, want %v", snap.AvgQueueDepth, wantAvg)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.ObserveTick()
	m.ObserveDMAComplete(5)
	m.ObserveQueueDepth(3)

	m.Reset()

	snap := m.Snapshot()
	if snap.Ticks != 0 || snap.DMACompletions != 0 || snap.MaxQueueDepth != 0 {
		t.Fatalf("expected all counters zero after Reset, got %+v", snap)
	}
}
