package roots

import (
	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots/table"
)

// DhContext is one worker's dependent-handle convergence state for one
// collection. Only the owning worker mutates it; the driver reads the
// result between rounds.
//
// Dependent handles model an asymmetric keep-alive: the secondary must be
// promoted exactly when the primary is, and severing the pair must not
// leave a strong cycle behind. An ordinary strong reference from primary
// to secondary cannot express this.
type DhContext struct {
	// Scan is the owning worker's scan context.
	Scan *gc.ScanContext

	// Condemned and MaxGen bound the collection the context belongs to.
	Condemned int
	MaxGen    int

	// Iterations counts convergence rounds run by TraceDependentHandles,
	// accumulated across re-entries within one collection.
	Iterations int

	promotedThisIteration   bool
	unpromotedPrimariesSeen bool
}

func (dc *DhContext) reset() {
	dc.promotedThisIteration = false
	dc.unpromotedPrimariesSeen = false
}

// promoteDependents runs one iteration over the worker's dependent handles
// and reports (promoted-anything, unpromoted-primaries-remain). Promoting a
// secondary can make another handle's primary reachable, so one iteration
// is rarely the whole story; the loop lives in TraceDependentHandles and
// the cross-worker re-entry lives in the driver.
func (s *Subsystem) promoteDependents(dc *DhContext) (promoted, unpromoted bool) {
	coll := s.cfg.Collector
	flags := baseFlags(dc.Scan) | table.ScanExtraInfo
	s.forEachOwnedTable(dc.Scan, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo) {
			prim := *primary
			if prim == gc.NilRef {
				return
			}
			s.assert(extra != nil, "dependent handle without extra info")
			if extra == nil {
				return
			}
			if !coll.IsPromoted(prim) {
				dc.unpromotedPrimariesSeen = true
				return
			}
			sec := gc.ObjectRef(*extra)
			if sec == gc.NilRef || coll.IsPromoted(sec) {
				return
			}
			coll.Promote(&sec, dc.Scan, 0)
			*extra = gc.ExtraInfo(sec)
			dc.promotedThisIteration = true
		}, dependentTypes, dc.Condemned, dc.MaxGen, flags)
	})
	return dc.promotedThisIteration, dc.unpromotedPrimariesSeen
}

// TraceDependentHandles drives this worker's fixed point: iterate while the
// previous iteration both promoted something and left unpromoted primaries
// behind. Returns whether any iteration promoted anything.
//
// A promotion on one worker's heap can be exactly what makes a primary on
// another worker's heap reachable, so the driver must OR-reduce the return
// values across workers and, if any promoted, run every worker's loop
// again. That re-entry barrier is the driver's, not this subsystem's.
func (s *Subsystem) TraceDependentHandles(dc *DhContext) bool {
	promotedAny := false
	for {
		dc.Iterations++
		dc.reset()
		promoted, unpromoted := s.promoteDependents(dc)
		promotedAny = promotedAny || promoted
		if !promoted || !unpromoted {
			return promotedAny
		}
	}
}

// ClearDependentHandles severs pairs whose primary did not survive: both
// slots are nulled. Run once reachability is final. A surviving primary
// must already have a promoted secondary by then; that is asserted, never
// repaired.
func (s *Subsystem) ClearDependentHandles(sc *gc.ScanContext, condemned, maxGen int) {
	coll := s.cfg.Collector
	flags := baseFlags(sc) | table.ScanExtraInfo
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo) {
			prim := *primary
			if extra == nil {
				s.assert(false, "dependent handle without extra info")
				return
			}
			if prim != gc.NilRef && coll.IsPromoted(prim) {
				sec := gc.ObjectRef(*extra)
				s.assert(sec == gc.NilRef || coll.IsPromoted(sec),
					"dependent secondary not promoted with live primary")
				return
			}
			*primary = gc.NilRef
			*extra = 0
		}, dependentTypes, condemned, maxGen, flags)
	})
}
