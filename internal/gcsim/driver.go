package gcsim

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gcforge/handlekit/pkg/diag"
	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots"
)

// Driver runs complete collections against a roots.Subsystem: one goroutine
// per worker, a barrier between passes, and the cross-worker OR-reduce loop
// for dependent-handle convergence.
type Driver struct {
	Sub     *roots.Subsystem
	Eng     *Engine
	Workers int

	// Delta displaces every relocatable survivor when Compact is set,
	// exercising the update-pointers passes.
	Compact bool
	Delta   uintptr

	collections int
}

// NewDriver wires a subsystem and engine together.
func NewDriver(sub *roots.Subsystem, eng *Engine, workers int) *Driver {
	if workers < 1 {
		workers = 1
	}
	return &Driver{Sub: sub, Eng: eng, Workers: workers, Compact: true, Delta: 1 << 20}
}

// contexts builds one ScanContext per worker.
func (d *Driver) contexts(concurrent bool) []*gc.ScanContext {
	scs := make([]*gc.ScanContext, d.Workers)
	for w := range scs {
		scs[w] = &gc.ScanContext{HomeHeap: w, Workers: d.Workers, Concurrent: concurrent}
	}
	return scs
}

// runPass executes fn on every worker in parallel and waits for all of
// them, simulating the driver-level barrier between scan passes.
func runPass(scs []*gc.ScanContext, fn func(sc *gc.ScanContext)) time.Duration {
	start := time.Now()
	var wg sync.WaitGroup
	for _, sc := range scs {
		wg.Add(1)
		go func(sc *gc.ScanContext) {
			defer wg.Done()
			fn(sc)
		}(sc)
	}
	wg.Wait()
	return time.Since(start)
}

// Collect runs one full collection of the given condemned generation and
// returns its report.
func (d *Driver) Collect(condemned, maxGen int, concurrent bool) (*diag.Report, error) {
	d.collections++
	rep := &diag.Report{
		Collection: d.collections,
		Condemned:  condemned,
		MaxGen:     maxGen,
		Workers:    d.Workers,
		Concurrent: concurrent,
	}
	scs := d.contexts(concurrent)
	pass := func(name string, fn func(sc *gc.ScanContext)) {
		rep.Passes = append(rep.Passes, diag.PassStats{Name: name, Duration: runPass(scs, fn)})
	}

	d.Eng.BeginCollection()
	weakBefore := d.severedWeaks()

	pass("pin", func(sc *gc.ScanContext) {
		d.Sub.ScanForPinning(sc, condemned, maxGen)
	})
	pass("promote-strong", func(sc *gc.ScanContext) {
		d.Sub.ScanForStrongPromotion(sc, condemned, maxGen)
	})
	pass("promote-refcount", func(sc *gc.ScanContext) {
		d.Sub.ScanForRefCounted(sc, condemned, maxGen)
	})

	// Dependent-handle fixed point: each worker converges over its own
	// tables; a promotion anywhere forces one more round everywhere, since
	// it may have made a primary on another heap reachable.
	dcs := make([]*roots.DhContext, d.Workers)
	for w := range dcs {
		dcs[w] = &roots.DhContext{Scan: scs[w], Condemned: condemned, MaxGen: maxGen}
	}
	start := time.Now()
	for {
		rep.DependentIterations++
		var promotedAny atomic.Bool
		runPass(scs, func(sc *gc.ScanContext) {
			if d.Sub.TraceDependentHandles(dcs[sc.HomeHeap]) {
				promotedAny.Store(true)
			}
		})
		if !promotedAny.Load() {
			break
		}
	}
	rep.Passes = append(rep.Passes, diag.PassStats{Name: "dependent", Duration: time.Since(start)})

	pass("check-weak", func(sc *gc.ScanContext) {
		d.Sub.CheckReachable(sc, condemned, maxGen)
	})
	pass("clear-dependent", func(sc *gc.ScanContext) {
		d.Sub.ClearDependentHandles(sc, condemned, maxGen)
	})

	pass("bridge-collect", func(sc *gc.ScanContext) {
		d.Sub.CollectBridgeCandidates(sc, condemned, maxGen)
	})
	rep.BridgeCandidates = d.Sub.ProcessBridgeCandidates()
	rep.BridgeUnreachable = d.Sub.BridgeUnreachableCount()
	pass("bridge-clear", func(sc *gc.ScanContext) {
		d.Sub.PropagateBridgeClears(sc, condemned, maxGen)
	})

	if d.Compact {
		d.Eng.PlanCompaction(condemned, d.Delta)
	}
	pass("update-pointers", func(sc *gc.ScanContext) {
		d.Sub.UpdatePointers(sc, condemned, maxGen)
	})
	pass("update-pinned", func(sc *gc.ScanContext) {
		d.Sub.UpdatePinnedPointers(sc, condemned, maxGen)
	})

	if condemned < maxGen {
		pass("age", func(sc *gc.ScanContext) {
			d.Sub.AgeHandles(sc, condemned, maxGen)
		})
	} else {
		pass("rejuvenate", func(sc *gc.ScanContext) {
			d.Sub.RejuvenateHandles(sc)
		})
	}

	var verifyErr error
	var mu sync.Mutex
	pass("verify", func(sc *gc.ScanContext) {
		if err := d.Sub.VerifyHandles(sc); err != nil {
			mu.Lock()
			verifyErr = err
			mu.Unlock()
		}
	})
	if verifyErr != nil {
		return rep, verifyErr
	}

	d.Eng.FinishCollection(condemned, maxGen)

	rep.PromotedObjects = d.Eng.PromotedObjects()
	var bytes uint64
	for h := 0; h < d.Workers; h++ {
		bytes += uint64(d.Eng.PromotedBytes(h))
	}
	rep.PromotedBytes = bytes
	rep.WeakSevered = d.severedWeaks() - weakBefore
	rep.Census = d.Sub.Census()
	return rep, nil
}

// severedWeaks counts weak-kind handles whose primary slot is empty.
func (d *Driver) severedWeaks() int {
	n := 0
	sc := &gc.ScanContext{HomeHeap: 0, Workers: 1}
	d.Sub.TraceForDiagnostics(sc, func(_ gc.Type, kind gc.RootKind, primary, _ gc.ObjectRef) {
		if kind&gc.RootWeak != 0 && primary == gc.NilRef {
			n++
		}
	})
	return n
}
