package gcsim

import "github.com/gcforge/handlekit/pkg/gc"

// BeginCollection resets per-collection mark, pinning, and relocation
// state.
func (e *Engine) BeginCollection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.marked = make(map[gc.ObjectRef]struct{})
	e.pinned = make(map[gc.ObjectRef]struct{})
	e.moves = make(map[gc.ObjectRef]gc.ObjectRef)
	e.promotedBytes = make([]uintptr, e.heaps)
	e.promotedObjs = 0
	e.rescans = 0
}

// IsPromoted reports whether ref was marked this collection.
func (e *Engine) IsPromoted(ref gc.ObjectRef) bool {
	if ref == gc.NilRef {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.marked[ref]
	return ok
}

// Promote marks ref and everything transitively reachable from it.
// Promoted bytes are attributed to the marking worker's home heap.
func (e *Engine) Promote(ref *gc.ObjectRef, sc *gc.ScanContext, flags gc.PromoteFlags) {
	if ref == nil || *ref == gc.NilRef {
		return
	}
	heap := 0
	if sc != nil && sc.HomeHeap >= 0 && sc.HomeHeap < e.heaps {
		heap = sc.HomeHeap
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if flags&gc.PromotePinned != 0 {
		e.pinned[*ref] = struct{}{}
	}
	stack := []gc.ObjectRef{*ref}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, done := e.marked[cur]; done {
			continue
		}
		e.marked[cur] = struct{}{}
		e.promotedObjs++
		if obj := e.objects[cur]; obj != nil {
			e.promotedBytes[heap] += obj.Size
			stack = append(stack, obj.Refs...)
		}
	}
}

// Relocate rewrites ref if its object was assigned a new address by
// PlanCompaction.
func (e *Engine) Relocate(ref *gc.ObjectRef, _ *gc.ScanContext) {
	if ref == nil || *ref == gc.NilRef {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if moved, ok := e.moves[*ref]; ok {
		*ref = moved
	}
}

// PromotedBytes returns the bytes promoted so far by the given heap's
// worker.
func (e *Engine) PromotedBytes(heap int) uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if heap < 0 || heap >= len(e.promotedBytes) {
		return 0
	}
	return e.promotedBytes[heap]
}

// PromotedObjects returns how many objects were marked this collection.
func (e *Engine) PromotedObjects() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.promotedObjs
}

// HasExternalRefs reports outstanding foreign references for ref-counted
// promotion.
func (e *Engine) HasExternalRefs(ref gc.ObjectRef) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.externalRefs[ref] > 0
}

// WalkPinnedGraph pins obj's entire outgoing graph through the supplied
// promote callback.
func (e *Engine) WalkPinnedGraph(obj gc.ObjectRef, sc *gc.ScanContext, promote gc.PromoteFunc) {
	e.walkPinned(obj, sc, promote, map[gc.ObjectRef]struct{}{obj: {}})
}

func (e *Engine) walkPinned(obj gc.ObjectRef, sc *gc.ScanContext, promote gc.PromoteFunc, seen map[gc.ObjectRef]struct{}) {
	e.mu.Lock()
	var children []gc.ObjectRef
	if o := e.objects[obj]; o != nil {
		children = append(children, o.Refs...)
	}
	e.mu.Unlock()
	for _, child := range children {
		if _, dup := seen[child]; dup {
			continue
		}
		seen[child] = struct{}{}
		c := child
		promote(&c, sc, gc.PromotePinned)
		e.walkPinned(child, sc, promote, seen)
	}
}

// RescanWeakRegistry promotes every registry entry and counts the
// invocation; the roots subsystem arbitrates exactly-once.
func (e *Engine) RescanWeakRegistry(sc *gc.ScanContext, promote gc.PromoteFunc) {
	e.mu.Lock()
	e.rescans++
	entries := append([]gc.ObjectRef(nil), e.weakRegistry...)
	e.mu.Unlock()
	for _, ref := range entries {
		r := ref
		promote(&r, sc, 0)
	}
}

// ProcessBridgeCandidates returns the candidates still unmarked, unless a
// BridgeJudge overrides the verdict.
func (e *Engine) ProcessBridgeCandidates(candidates []gc.BridgePair) []gc.ObjectRef {
	if e.BridgeJudge != nil {
		return e.BridgeJudge(candidates)
	}
	var dead []gc.ObjectRef
	for _, c := range candidates {
		if !e.IsPromoted(c.Ref) {
			dead = append(dead, c.Ref)
		}
	}
	return dead
}

// PlanCompaction assigns every marked, unpinned object in the condemned
// range a new address displaced by delta. Must run before the
// update-pointers passes so Relocate has the move table.
func (e *Engine) PlanCompaction(condemned int, delta uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for ref, obj := range e.objects {
		if obj.Gen > condemned {
			continue
		}
		if _, ok := e.marked[ref]; !ok {
			continue
		}
		if _, ok := e.pinned[ref]; ok {
			continue
		}
		e.moves[ref] = gc.ObjectRef(uintptr(ref) + delta)
	}
}

// FinishCollection applies the planned moves to the heap, frees unmarked
// condemned objects, and advances survivor generations. Runs after every
// scan pass has completed.
func (e *Engine) FinishCollection(condemned, maxGen int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := make(map[gc.ObjectRef]*Object, len(e.objects))
	for ref, obj := range e.objects {
		if obj.Gen <= condemned {
			if _, survived := e.marked[ref]; !survived {
				continue
			}
			if obj.Gen < maxGen {
				obj.Gen++
			}
		}
		for i, edge := range obj.Refs {
			if moved, ok := e.moves[edge]; ok {
				obj.Refs[i] = moved
			}
		}
		if moved, ok := e.moves[ref]; ok {
			next[moved] = obj
		} else {
			next[ref] = obj
		}
	}
	e.objects = next
	for i, ref := range e.weakRegistry {
		if moved, ok := e.moves[ref]; ok {
			e.weakRegistry[i] = moved
		}
	}
	for ref, n := range e.externalRefs {
		if moved, ok := e.moves[ref]; ok {
			delete(e.externalRefs, ref)
			e.externalRefs[moved] = n
		}
	}
}
