// Package gcsim is a deterministic simulated heap, collector, and
// execution engine used to drive the roots subsystem end to end: in
// integration tests, in handlectl simulations, and in the handlescope
// viewer. It implements gc.Collector and gc.Runtime over an explicit
// object graph with mark-transitive promotion and sliding compaction.
package gcsim

import (
	"fmt"
	"sync"

	"github.com/gcforge/handlekit/pkg/gc"
)

// objAlign keeps simulated addresses 16-byte aligned.
const objAlign = 16

// Object is one simulated heap object. Refs are outgoing edges, stored as
// the current addresses of the referenced objects.
type Object struct {
	Size uintptr
	Gen  int
	Refs []gc.ObjectRef
}

// Engine is the simulated heap plus the collector and execution-engine
// contracts. All state is guarded by one mutex; promotion runs from N scan
// workers concurrently.
type Engine struct {
	mu      sync.Mutex
	heaps   int
	nextAdr uintptr

	objects map[gc.ObjectRef]*Object

	// Per-collection state, reset by BeginCollection.
	marked        map[gc.ObjectRef]struct{}
	pinned        map[gc.ObjectRef]struct{}
	moves         map[gc.ObjectRef]gc.ObjectRef
	promotedBytes []uintptr
	promotedObjs  int

	// Execution-engine state.
	externalRefs map[gc.ObjectRef]int
	weakRegistry []gc.ObjectRef
	rescans      int

	// BridgeJudge overrides the default "everything unmarked is
	// unreachable" bridge verdict when set.
	BridgeJudge func([]gc.BridgePair) []gc.ObjectRef
}

// NewEngine creates an empty simulated heap serving the given number of
// scan workers.
func NewEngine(heaps int) *Engine {
	if heaps < 1 {
		heaps = 1
	}
	return &Engine{
		heaps:         heaps,
		nextAdr:       objAlign,
		objects:       make(map[gc.ObjectRef]*Object),
		marked:        make(map[gc.ObjectRef]struct{}),
		pinned:        make(map[gc.ObjectRef]struct{}),
		moves:         make(map[gc.ObjectRef]gc.ObjectRef),
		promotedBytes: make([]uintptr, heaps),
		externalRefs:  make(map[gc.ObjectRef]int),
	}
}

// NewObject allocates a simulated object in the given generation and
// returns its reference. Addresses are handed out monotonically, so runs
// are deterministic.
func (e *Engine) NewObject(gen int, size uintptr) gc.ObjectRef {
	if size == 0 {
		size = objAlign
	}
	size = (size + objAlign - 1) &^ (objAlign - 1)
	e.mu.Lock()
	defer e.mu.Unlock()
	ref := gc.ObjectRef(e.nextAdr)
	e.nextAdr += size
	e.objects[ref] = &Object{Size: size, Gen: gen}
	return ref
}

// AddEdge records an outgoing reference from parent to child.
func (e *Engine) AddEdge(parent, child gc.ObjectRef) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	obj, ok := e.objects[parent]
	if !ok {
		return fmt.Errorf("gcsim: unknown parent %#x", uintptr(parent))
	}
	obj.Refs = append(obj.Refs, child)
	return nil
}

// Lookup returns the object at ref, or nil.
func (e *Engine) Lookup(ref gc.ObjectRef) *Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.objects[ref]
}

// Live returns the number of simulated objects.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.objects)
}

// SetExternalRefs sets the foreign reference count consulted for
// ref-counted handle promotion.
func (e *Engine) SetExternalRefs(ref gc.ObjectRef, n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.externalRefs[ref] = n
}

// RegisterNativeWeak adds ref to the global native weak registry revisited
// once per collection.
func (e *Engine) RegisterNativeWeak(ref gc.ObjectRef) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.weakRegistry = append(e.weakRegistry, ref)
}

// Rescans reports how many times the weak registry was rescanned.
func (e *Engine) Rescans() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rescans
}
