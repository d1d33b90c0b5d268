package table

import (
	"fmt"

	"github.com/gcforge/handlekit/pkg/gc"
)

// ScanFlags select per-pass scan behavior.
type ScanFlags uint32

const (
	// ScanNormal is a stop-the-world scan with no extra behavior.
	ScanNormal ScanFlags = 0

	// ScanAsync marks a concurrent/background scan. The engine itself does
	// not alter slot access for it; passes branch on it (and the documented
	// Variable-retag hazard applies).
	ScanAsync ScanFlags = 1 << iota

	// ScanExtraInfo passes the extra-word slot to the visitor. Without it
	// the visitor receives a nil extra pointer.
	ScanExtraInfo

	// ScanVariableStrong..ScanVariablePinning admit Variable handles whose
	// current sub-kind matches. A scan with none of them set skips Variable
	// handles entirely even if TypeVariable is in the type set.
	ScanVariableStrong
	ScanVariableWeak
	ScanVariablePinning
)

// Visitor is invoked per matching live handle. primary points at the live
// slot word; writes through it take effect immediately. extra is nil unless
// ScanExtraInfo was set and the handle's type carries an extra word.
type Visitor func(typ gc.Type, primary *gc.ObjectRef, extra *gc.ExtraInfo)

// typeMask is a bit set over gc.Type.
type typeMask uint16

func maskOf(types []gc.Type) typeMask {
	var m typeMask
	for _, t := range types {
		if t < gc.TypeCount {
			m |= 1 << t
		}
	}
	return m
}

func (m typeMask) has(t gc.Type) bool { return m&(1<<t) != 0 }

// variableAdmitted checks a Variable handle's current sub-kind against the
// scan's variable flags.
func variableAdmitted(extra gc.ExtraInfo, flags ScanFlags) bool {
	kind := gc.VariableKindOf(extra)
	if flags&ScanVariableStrong != 0 && kind&gc.VariableStrong != 0 {
		return true
	}
	if flags&ScanVariableWeak != 0 && kind&gc.VariableWeak != 0 {
		return true
	}
	if flags&ScanVariablePinning != 0 && kind&gc.VariablePinning != 0 {
		return true
	}
	return false
}

// ScanForGC visits every live handle whose type is in types and whose age
// places its referent at or below the condemned generation. This is the
// single primitive every collection pass is built on.
//
// No lock is taken: the caller guarantees exclusive scan ownership of this
// table for the duration of the pass.
func (t *Table) ScanForGC(visit Visitor, types []gc.Type, condemned, maxGen int, flags ScanFlags) {
	mask := maskOf(types)
	for _, seg := range t.segments {
		for i := range seg.slots {
			s := &seg.slots[i]
			if !s.live() || !mask.has(s.typ) {
				continue
			}
			if int(s.age) > condemned {
				// Referent lives in an older generation than this
				// collection condemns.
				continue
			}
			if s.typ == gc.TypeVariable && !variableAdmitted(s.extra, flags) {
				continue
			}
			var extra *gc.ExtraInfo
			if flags&ScanExtraInfo != 0 && s.typ.HasExtraInfo() {
				extra = &s.extra
			}
			visit(s.typ, &s.primary, extra)
		}
	}
}

// Enumerate walks every live handle of the given types with no age or
// sub-kind filtering. Returning false stops the walk. Used by diagnostics
// and the bridge census.
func (t *Table) Enumerate(types []gc.Type, fn func(h Handle, typ gc.Type, primary gc.ObjectRef, extra gc.ExtraInfo) bool) {
	mask := maskOf(types)
	for _, seg := range t.segments {
		for i := range seg.slots {
			s := &seg.slots[i]
			if !s.live() || !mask.has(s.typ) {
				continue
			}
			if !fn(Handle{seg: seg, slot: uint16(i)}, s.typ, s.primary, s.extra) {
				return
			}
		}
	}
}

// AgeHandles advances the age of every live handle of the given types in
// the condemned range, capped at maxGen. Run once per collection after
// pointers are final.
func (t *Table) AgeHandles(types []gc.Type, condemned, maxGen int) {
	mask := maskOf(types)
	for _, seg := range t.segments {
		for i := range seg.slots {
			s := &seg.slots[i]
			if !s.live() || !mask.has(s.typ) || int(s.age) > condemned {
				continue
			}
			if int(s.age) < maxGen {
				s.age++
			}
		}
	}
}

// Rejuvenate resets every live handle of the given types to the baseline
// age. Run after a full, non-generational collection invalidates the age
// map.
func (t *Table) Rejuvenate(types []gc.Type) {
	mask := maskOf(types)
	for _, seg := range t.segments {
		for i := range seg.slots {
			if s := &seg.slots[i]; s.live() && mask.has(s.typ) {
				s.age = 0
			}
		}
	}
}

// Verify self-checks table consistency: free-list entries must be dead,
// live counts must match the slots, types must be known, and handles
// without an extra-word trait must carry a zero extra word. Returns the
// first inconsistency found.
func (t *Table) Verify() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var counts [gc.TypeCount]int
	for segIdx, seg := range t.segments {
		for _, idx := range seg.free {
			if int(idx) >= len(seg.slots) {
				return fmt.Errorf("%w: segment %d free-list index %d out of range", ErrBadHandle, segIdx, idx)
			}
			if seg.slots[idx].live() {
				return fmt.Errorf("%w: segment %d slot %d live but on free list", ErrBadHandle, segIdx, idx)
			}
		}
		for i := range seg.slots {
			s := &seg.slots[i]
			if !s.live() {
				continue
			}
			if s.typ >= gc.TypeCount {
				return fmt.Errorf("%w: segment %d slot %d type %d", ErrBadType, segIdx, i, s.typ)
			}
			if !s.typ.HasExtraInfo() && s.extra != 0 {
				return fmt.Errorf("table: segment %d slot %d: %s handle carries extra info", segIdx, i, s.typ)
			}
			counts[s.typ]++
		}
	}
	if counts != t.counts {
		return fmt.Errorf("table: live counts drifted: recorded %v, actual %v", t.counts, counts)
	}
	return nil
}
