package roots

import (
	"errors"

	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots/table"
)

// Type sets per pass. CrossReference is excluded from aging so bridge
// collection always sees the full population.
var (
	pinningTypes     = []gc.Type{gc.TypePinned, gc.TypeVariable}
	asyncPinnedTypes = []gc.Type{gc.TypeAsyncPinned}
	strongTypes      = []gc.Type{gc.TypeStrong, gc.TypeVariable}
	sizedRefTypes    = []gc.Type{gc.TypeSizedRef}
	refCountedTypes  = []gc.Type{gc.TypeRefCounted}

	weakCheckTypes = []gc.Type{
		gc.TypeWeakShort, gc.TypeWeakLong, gc.TypeWeakNative,
		gc.TypeWeakInterior, gc.TypeRefCounted, gc.TypeVariable,
	}

	updateTypes = []gc.Type{
		gc.TypeWeakShort, gc.TypeWeakLong, gc.TypeStrong,
		gc.TypeRefCounted, gc.TypeWeakNative, gc.TypeSizedRef,
		gc.TypeCrossReference, gc.TypeVariable,
	}
	updatePinnedTypes  = []gc.Type{gc.TypePinned, gc.TypeAsyncPinned, gc.TypeVariable}
	weakInteriorTypes  = []gc.Type{gc.TypeWeakInterior}
	dependentTypes     = []gc.Type{gc.TypeDependent}
	crossRefTypes      = []gc.Type{gc.TypeCrossReference}
	weakPropagateTypes = []gc.Type{gc.TypeWeakShort, gc.TypeWeakLong}

	ageTypes = []gc.Type{
		gc.TypeWeakShort, gc.TypeWeakLong, gc.TypeStrong, gc.TypePinned,
		gc.TypeVariable, gc.TypeRefCounted, gc.TypeDependent,
		gc.TypeAsyncPinned, gc.TypeSizedRef, gc.TypeWeakNative,
		gc.TypeWeakInterior,
	}
)

// baseFlags maps the worker's concurrency mode onto the table engine mode.
func baseFlags(sc *gc.ScanContext) table.ScanFlags {
	if sc.Concurrent {
		return table.ScanAsync
	}
	return table.ScanNormal
}

// ScanForPinning promotes pinned handles with the pinned hint. Async-pinned
// handles additionally have their entire outgoing object graph pinned
// through the execution engine.
func (s *Subsystem) ScanForPinning(sc *gc.ScanContext, condemned, maxGen int) {
	coll, rt := s.cfg.Collector, s.cfg.Runtime
	flags := baseFlags(sc)
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
			if *primary == gc.NilRef {
				return
			}
			coll.Promote(primary, sc, gc.PromotePinned)
		}, pinningTypes, condemned, maxGen, flags|table.ScanVariablePinning)

		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
			if *primary == gc.NilRef {
				return
			}
			coll.Promote(primary, sc, gc.PromotePinned)
			rt.WalkPinnedGraph(*primary, sc, coll.Promote)
		}, asyncPinnedTypes, condemned, maxGen, flags)
	})
}

// ScanForStrongPromotion promotes strong and sized-ref handles
// unconditionally. Sized-ref handles record the promoted-byte delta their
// referent graph contributed in their extra word; sized-ref scanning is
// skipped for a blocking collection of the top generation, where everything
// survives anyway.
func (s *Subsystem) ScanForStrongPromotion(sc *gc.ScanContext, condemned, maxGen int) {
	coll := s.cfg.Collector
	flags := baseFlags(sc)
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
			if *primary == gc.NilRef {
				return
			}
			coll.Promote(primary, sc, 0)
		}, strongTypes, condemned, maxGen, flags|table.ScanVariableStrong)

		if condemned == maxGen && !sc.Concurrent {
			return
		}
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo) {
			if *primary == gc.NilRef {
				return
			}
			before := coll.PromotedBytes(sc.HomeHeap)
			coll.Promote(primary, sc, 0)
			if extra != nil {
				*extra = gc.ExtraInfo(coll.PromotedBytes(sc.HomeHeap) - before)
			}
		}, sizedRefTypes, condemned, maxGen, flags|table.ScanExtraInfo)
	})
}

// ScanForRefCounted promotes ref-counted handles whose referents still have
// outstanding external references. The pass is skipped entirely during
// concurrent scans: it races with external ref-count cleanup, and the
// referent is recovered by the next blocking collection instead.
func (s *Subsystem) ScanForRefCounted(sc *gc.ScanContext, condemned, maxGen int) {
	if sc.Concurrent {
		return
	}
	coll, rt := s.cfg.Collector, s.cfg.Runtime
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
			if *primary == gc.NilRef {
				return
			}
			if rt.HasExternalRefs(*primary) {
				coll.Promote(primary, sc, 0)
			}
		}, refCountedTypes, condemned, maxGen, table.ScanNormal)
	})
}

// CheckReachable severs weak handles whose referents were not promoted by
// the preceding passes: the primary slot is nulled. A severed weak-interior
// handle also drops its interior address, which is meaningless without the
// primary.
func (s *Subsystem) CheckReachable(sc *gc.ScanContext, condemned, maxGen int) {
	coll := s.cfg.Collector
	flags := baseFlags(sc)
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(typ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo) {
			if *primary == gc.NilRef || coll.IsPromoted(*primary) {
				return
			}
			*primary = gc.NilRef
			if typ == gc.TypeWeakInterior && extra != nil {
				*extra = 0
			}
		}, weakCheckTypes, condemned, maxGen, flags|table.ScanVariableWeak|table.ScanExtraInfo)
	})
}

// UpdatePointers rewrites every surviving reference to its post-compaction
// address: the flat handle types, then dependent pairs (primary and
// secondary independently), then weak-interior handles (interior word moved
// by the primary's delta, and only when the primary actually moved).
// Finally the global native weak registry is rescanned exactly once per
// collection regardless of how many workers run the pass.
func (s *Subsystem) UpdatePointers(sc *gc.ScanContext, condemned, maxGen int) {
	coll := s.cfg.Collector
	flags := baseFlags(sc)
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
			if *primary == gc.NilRef {
				return
			}
			coll.Relocate(primary, sc)
		}, updateTypes, condemned, maxGen,
			flags|table.ScanVariableStrong|table.ScanVariableWeak)

		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo) {
			if *primary != gc.NilRef {
				coll.Relocate(primary, sc)
			}
			s.assert(extra != nil, "dependent handle without extra info")
			if extra != nil && *extra != 0 {
				sec := gc.ObjectRef(*extra)
				coll.Relocate(&sec, sc)
				*extra = gc.ExtraInfo(sec)
			}
		}, dependentTypes, condemned, maxGen, flags|table.ScanExtraInfo)

		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo) {
			old := *primary
			if old == gc.NilRef {
				return
			}
			coll.Relocate(primary, sc)
			if extra == nil || *extra == 0 || *primary == old {
				return
			}
			*extra = gc.ExtraInfo(gc.RelocateInterior(old, *primary, uintptr(*extra)))
		}, weakInteriorTypes, condemned, maxGen, flags|table.ScanExtraInfo)
	})

	s.rescanWeakRegistryOnce(sc)
}

// UpdatePinnedPointers runs the relocation callback over pinned handles.
// Pinned referents do not move; the collector uses the calls for
// bookkeeping only.
func (s *Subsystem) UpdatePinnedPointers(sc *gc.ScanContext, condemned, maxGen int) {
	coll := s.cfg.Collector
	flags := baseFlags(sc)
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
			if *primary == gc.NilRef {
				return
			}
			coll.Relocate(primary, sc)
		}, updatePinnedTypes, condemned, maxGen, flags|table.ScanVariablePinning)
	})
}

// rescanWeakRegistryOnce arbitrates the exactly-once registry rescan with a
// single atomic counter: every worker increments, the worker that completes
// the set performs the action and compare-exchanges the counter back to
// zero for the next collection.
func (s *Subsystem) rescanWeakRegistryOnce(sc *gc.ScanContext) {
	workers := int64(sc.Workers)
	if workers <= 0 {
		workers = 1
	}
	if n := s.weakRescan.Add(1); n == workers {
		s.cfg.Runtime.RescanWeakRegistry(sc, s.cfg.Collector.Promote)
		s.weakRescan.CompareAndSwap(n, 0)
	}
}

// AgeHandles bulk-advances handle age metadata after a generational
// collection.
func (s *Subsystem) AgeHandles(sc *gc.ScanContext, condemned, maxGen int) {
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.AgeHandles(ageTypes, condemned, maxGen)
	})
}

// RejuvenateHandles resets handle age metadata to the baseline after a
// full, non-generational collection.
func (s *Subsystem) RejuvenateHandles(sc *gc.ScanContext) {
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.Rejuvenate(ageTypes)
	})
}

// VerifyHandles self-checks every owned table. Active only when Debug is
// set; returns all inconsistencies joined.
func (s *Subsystem) VerifyHandles(sc *gc.ScanContext) error {
	if !s.cfg.Debug {
		return nil
	}
	var errs []error
	s.forEachOwnedTable(sc, func(t *table.Table) {
		if err := t.Verify(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}
