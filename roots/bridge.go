package roots

import (
	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots/table"
)

// Bridge protocol: cross-reference handles interoperate with an externally
// reference-counted object graph. Unreached candidates are batched per
// worker, handed to the foreign bridge processor in one call, and the
// objects it judges unreachable have their weak handles severed.

// CollectBridgeCandidates gathers this worker's unreached cross-reference
// handles as (referent, foreign tag) pairs. The per-worker batch is rebuilt
// from scratch each collection.
func (s *Subsystem) CollectBridgeCandidates(sc *gc.ScanContext, condemned, maxGen int) {
	coll := s.cfg.Collector
	home := sc.HomeHeap
	if home < 0 || home >= len(s.bridgeCandidates) {
		return
	}
	batch := s.bridgeCandidates[home][:0]
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo) {
			if *primary == gc.NilRef || coll.IsPromoted(*primary) {
				return
			}
			var tag gc.ExtraInfo
			if extra != nil {
				tag = *extra
			}
			batch = append(batch, gc.BridgePair{Ref: *primary, Extra: tag})
		}, crossRefTypes, condemned, maxGen, baseFlags(sc)|table.ScanExtraInfo)
	})
	s.bridgeCandidates[home] = batch
}

// ProcessBridgeCandidates merges every worker's batch and hands it to the
// foreign bridge processor, retaining the unreachable set for propagation.
// The driver calls this once, between the collect and propagate passes.
// Returns the number of candidates handed off.
func (s *Subsystem) ProcessBridgeCandidates() int {
	total := 0
	for _, batch := range s.bridgeCandidates {
		total += len(batch)
	}
	s.bridgeUnreachable = nil
	if total == 0 {
		return 0
	}
	merged := make([]gc.BridgePair, 0, total)
	for _, batch := range s.bridgeCandidates {
		merged = append(merged, batch...)
	}
	s.bridgeUnreachable = s.cfg.Runtime.ProcessBridgeCandidates(merged)
	return total
}

// BridgeUnreachableCount reports how many objects the bridge processor
// judged unreachable in the current collection.
func (s *Subsystem) BridgeUnreachableCount() int {
	return len(s.bridgeUnreachable)
}

// PropagateBridgeClears severs this worker's weak handles whose referents
// the bridge processor judged unreachable. The match is a linear search of
// the unreachable set per handle; unreachable sets stay small.
func (s *Subsystem) PropagateBridgeClears(sc *gc.ScanContext, condemned, maxGen int) {
	unreachable := s.bridgeUnreachable
	if len(unreachable) == 0 {
		return
	}
	s.forEachOwnedTable(sc, func(t *table.Table) {
		t.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
			ref := *primary
			if ref == gc.NilRef {
				return
			}
			for _, dead := range unreachable {
				if ref == dead {
					*primary = gc.NilRef
					return
				}
			}
		}, weakPropagateTypes, condemned, maxGen, baseFlags(sc))
	})
}
