package roots

import (
	"sync"
	"testing"

	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots/table"
)

// fakeGC is a minimal collector + execution engine for white-box tests.
// Promotion marks exactly the given ref (nothing transitive), so tests can
// observe each pass's own work.
type fakeGC struct {
	mu         sync.Mutex
	marked     map[gc.ObjectRef]bool
	pinned     map[gc.ObjectRef]bool
	promotions []gc.ObjectRef
	moves      map[gc.ObjectRef]gc.ObjectRef
	relocated  []gc.ObjectRef
	bytes      map[int]uintptr
	perPromote uintptr
	externals  map[gc.ObjectRef]bool
	walkEdges  map[gc.ObjectRef][]gc.ObjectRef
	rescans    int
	bridgeIn   []gc.BridgePair
	bridgeOut  []gc.ObjectRef
}

func newFakeGC() *fakeGC {
	return &fakeGC{
		marked:     map[gc.ObjectRef]bool{},
		pinned:     map[gc.ObjectRef]bool{},
		moves:      map[gc.ObjectRef]gc.ObjectRef{},
		bytes:      map[int]uintptr{},
		perPromote: 32,
		externals:  map[gc.ObjectRef]bool{},
		walkEdges:  map[gc.ObjectRef][]gc.ObjectRef{},
	}
}

func (f *fakeGC) IsPromoted(ref gc.ObjectRef) bool {
	if ref == gc.NilRef {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marked[ref]
}

func (f *fakeGC) Promote(ref *gc.ObjectRef, sc *gc.ScanContext, flags gc.PromoteFlags) {
	if ref == nil || *ref == gc.NilRef {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.marked[*ref] {
		f.marked[*ref] = true
		f.promotions = append(f.promotions, *ref)
		heap := 0
		if sc != nil {
			heap = sc.HomeHeap
		}
		f.bytes[heap] += f.perPromote
	}
	if flags&gc.PromotePinned != 0 {
		f.pinned[*ref] = true
	}
}

func (f *fakeGC) Relocate(ref *gc.ObjectRef, _ *gc.ScanContext) {
	if ref == nil || *ref == gc.NilRef {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.relocated = append(f.relocated, *ref)
	if moved, ok := f.moves[*ref]; ok {
		*ref = moved
	}
}

func (f *fakeGC) PromotedBytes(heap int) uintptr {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bytes[heap]
}

func (f *fakeGC) HasExternalRefs(ref gc.ObjectRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.externals[ref]
}

func (f *fakeGC) WalkPinnedGraph(obj gc.ObjectRef, sc *gc.ScanContext, promote gc.PromoteFunc) {
	f.mu.Lock()
	children := append([]gc.ObjectRef(nil), f.walkEdges[obj]...)
	f.mu.Unlock()
	for _, child := range children {
		c := child
		promote(&c, sc, gc.PromotePinned)
	}
}

func (f *fakeGC) RescanWeakRegistry(*gc.ScanContext, gc.PromoteFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rescans++
}

func (f *fakeGC) ProcessBridgeCandidates(candidates []gc.BridgePair) []gc.ObjectRef {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bridgeIn = append([]gc.BridgePair(nil), candidates...)
	return f.bridgeOut
}

func (f *fakeGC) promotedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.promotions)
}

func newTestSubsystem(t *testing.T, f *fakeGC, heaps int) *Subsystem {
	t.Helper()
	cfg := Config{Collector: f, Runtime: f, Debug: true}
	if heaps > 1 {
		cfg.MultiHeap = true
		cfg.HeapCount = heaps
	}
	s, err := Initialize(cfg)
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	t.Cleanup(s.Shutdown)
	return s
}

func singleContext() *gc.ScanContext {
	return &gc.ScanContext{HomeHeap: 0, Workers: 1}
}

// allHeapContexts builds one context per heap for a multi-heap subsystem.
func allHeapContexts(heaps int, concurrent bool) []*gc.ScanContext {
	scs := make([]*gc.ScanContext, heaps)
	for w := range scs {
		scs[w] = &gc.ScanContext{HomeHeap: w, Workers: heaps, Concurrent: concurrent}
	}
	return scs
}

func allocHandle(t *testing.T, tbl *table.Table, typ gc.Type, primary gc.ObjectRef, extra gc.ExtraInfo) table.Handle {
	t.Helper()
	h, err := tbl.Allocate(typ)
	if err != nil {
		t.Fatalf("Allocate(%s) failed: %v", typ, err)
	}
	tbl.SetPrimary(h, primary)
	if extra != 0 {
		tbl.SetExtraInfo(h, extra)
	}
	return h
}
