package gc

// ScanContext identifies one scan worker for the duration of a collection.
// The collector driver builds one per worker and passes it to every pass.
//
// HomeHeap and Workers drive the striping formula: worker w visits per-heap
// table slots w, w+Workers, w+2*Workers, ... so that every (bucket, heap)
// pair is owned by exactly one worker per pass.
type ScanContext struct {
	// HomeHeap is this worker's heap index, in [0, Workers).
	HomeHeap int

	// Workers is the total number of scan workers in this collection.
	Workers int

	// Concurrent is true for background/concurrent collections. Some passes
	// change behavior (RefCounted scanning is skipped entirely; SizedRef
	// skipping does not apply).
	Concurrent bool
}

// PromoteFlags qualify a promotion request.
type PromoteFlags uint32

const (
	// PromotePinned tells the collector the object must not be relocated.
	PromotePinned PromoteFlags = 1 << iota
)

// PromoteFunc marks the referent reachable for this collection. The ref
// pointer is the live handle slot; the collector may rewrite it.
type PromoteFunc func(ref *ObjectRef, sc *ScanContext, flags PromoteFlags)

// RelocateFunc rewrites a stored reference to its post-compaction address.
type RelocateFunc func(ref *ObjectRef, sc *ScanContext)

// Collector is the mark/compact collector this subsystem scans on behalf
// of. One instance serves all heaps; per-heap state is keyed by heap index.
type Collector interface {
	// IsPromoted reports whether ref has been marked reachable in the
	// current collection. NilRef is never promoted.
	IsPromoted(ref ObjectRef) bool

	// Promote marks ref reachable, tracing through it as needed.
	Promote(ref *ObjectRef, sc *ScanContext, flags PromoteFlags)

	// Relocate rewrites ref to its post-compaction address.
	Relocate(ref *ObjectRef, sc *ScanContext)

	// PromotedBytes returns the bytes promoted so far on the given heap.
	// SizedRef scanning uses deltas of this to attribute cost.
	PromotedBytes(heap int) uintptr
}

// Runtime is the execution-engine side of the contract: the hooks that need
// knowledge this subsystem doesn't have (external ref counts, the pinned
// object graph, the global weak registry, the foreign bridge processor).
type Runtime interface {
	// HasExternalRefs reports whether a ref-counted object still has
	// outstanding external references and must survive.
	HasExternalRefs(ref ObjectRef) bool

	// WalkPinnedGraph pins obj's entire outgoing object graph by invoking
	// promote on every reachable reference.
	WalkPinnedGraph(obj ObjectRef, sc *ScanContext, promote PromoteFunc)

	// RescanWeakRegistry revisits the global native weak registry once per
	// collection. The caller arbitrates the exactly-once invocation.
	RescanWeakRegistry(sc *ScanContext, promote PromoteFunc)

	// ProcessBridgeCandidates partitions unreached cross-reference
	// candidates into bridge clusters and returns the objects ultimately
	// judged unreachable.
	ProcessBridgeCandidates(candidates []BridgePair) []ObjectRef
}

// BridgePair is one unreached cross-reference handle's referent together
// with its opaque foreign tag, handed to the bridge processor.
type BridgePair struct {
	Ref   ObjectRef
	Extra ExtraInfo
}
