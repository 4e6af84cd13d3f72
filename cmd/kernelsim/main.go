// Command kernelsim boots the kernel core against the portable (non-arm64)
// internal/arch stub and runs a small fixed demo workload. It exists to
// give a reader something runnable on a development machine; the real
// boot path is a platform's linker script and vector table, both out of
// scope here.
package main

import (
	"fmt"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/aarch64kernel/corekernel"
	"github.com/aarch64kernel/corekernel/internal/kmutex"
	"github.com/aarch64kernel/corekernel/internal/logging"
	"github.com/aarch64kernel/corekernel/internal/sched"
)

func main() {
	var (
		policyName = flag.String("policy", "priority", "scheduling policy: \"roundrobin\" or \"priority\"")
		iterations = flag.Int("iterations", 5, "critical-section iterations per worker")
		verbose    = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	logging.Configure(os.Stderr, level)

	var policy sched.Policy
	switch *policyName {
	case "roundrobin":
		policy = sched.RoundRobin{}
	case "priority":
		policy = sched.Priority{}
	default:
		fmt.Fprintf(os.Stderr, "unknown policy %q (want \"roundrobin\" or \"priority\")\n", *policyName)
		os.Exit(2)
	}

	harness, err := corekernel.NewHarness(policy)
	if err != nil {
		fmt.Fprintf(os.Stderr, "boot failed: %v\n", err)
		os.Exit(1)
	}
	defer harness.Close()

	logging.Infof("kernelsim: booted with %T", policy)

	// The host build's cooperative scheduler is one goroutine handing off
	// to the next through Yield; this demo drives it entirely that way
	// rather than layering concurrent Tick-driven preemption on top, which
	// would race against whichever worker goroutine is currently "running"
	// (see Harness.Tick's doc comment).
	lock := &kmutex.Mutex{}
	var shared int
	done := make(chan string, 2)

	worker := func(label string, n int) func(arg any) {
		return func(arg any) {
			for i := 0; i < n; i++ {
				if err := lock.Lock(); err != nil {
					logging.Errorf("%s: lock failed: %v", label, err)
					return
				}
				shared++
				logging.Debugf("%s: critical section, shared=%d", label, shared)
				lock.Unlock()
				sched.Yield()
			}
			done <- label
			for {
				sched.Yield()
			}
		}
	}

	if _, err := harness.Spawn(worker("low", *iterations), nil, 5, 0); err != nil {
		logging.Fatalf("spawn failed: %v", err)
	}
	if _, err := harness.Spawn(worker("high", *iterations), nil, 20, 0); err != nil {
		logging.Fatalf("spawn failed: %v", err)
	}

	harness.Start()

	deadline := time.After(5 * time.Second)
	for i := 0; i < 2; i++ {
		select {
		case label := <-done:
			fmt.Printf("kernelsim: %s worker finished (shared=%d)\n", label, shared)
		case <-deadline:
			fmt.Println("kernelsim: timed out waiting for workers")
			printSnapshot(harness)
			os.Exit(1)
		}
	}

	printSnapshot(harness)
}

func printSnapshot(h *corekernel.Harness) {
	snap := h.Metrics.Snapshot()
	fmt.Printf("context_switches=%d reschedules=%d mutex_contentions=%d dma_submits=%d\n",
		snap.ContextSwitches, snap.Reschedules, snap.MutexContentions, snap.DMASubmits)
}
