package roots

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/gcforge/handlekit/pkg/gc"
	"github.com/gcforge/handlekit/roots/table"
)

// Config configures a Subsystem.
type Config struct {
	// MultiHeap selects one handle table per heap. When false every bucket
	// has a single table and one worker scans everything.
	MultiHeap bool

	// HeapCount is the number of heaps in multi-heap mode. When zero the
	// logical processor count is used. The final heap count may not be
	// known at initialization time; if it ends up smaller, the surplus
	// table slots simply stay unused.
	HeapCount int

	// Collector and Runtime are the mark/compact collector and the
	// execution engine. Both are required.
	Collector gc.Collector
	Runtime   gc.Runtime

	// Debug enables protocol assertions and the Verify pass. Release
	// configurations assume the caller contract holds.
	Debug bool
}

// Subsystem owns the handle-table directory and all per-collection scan
// state. The collector constructs exactly one at startup and shuts it down
// at exit; nothing here is process-global.
type Subsystem struct {
	cfg            Config
	dir            *Directory
	slotsPerBucket int

	// weakRescan counts workers arriving at the update-pointers
	// rendezvous; the last arrival performs the global weak-registry
	// rescan and resets the counter for the next collection.
	weakRescan atomic.Int64

	// Per-worker bridge candidate slices, merged at hand-off time, and the
	// unreachable set returned by the bridge processor. Rebuilt from
	// scratch every collection that uses the feature.
	bridgeCandidates  [][]gc.BridgePair
	bridgeUnreachable []gc.ObjectRef

	mu     sync.Mutex
	closed bool
}

// Initialize builds the subsystem. Failure here is fatal to collector
// startup; there is no degraded mode.
func Initialize(cfg Config) (*Subsystem, error) {
	if cfg.Collector == nil {
		return nil, ErrNoCollector
	}
	if cfg.Runtime == nil {
		return nil, ErrNoRuntime
	}
	slots := 1
	if cfg.MultiHeap {
		slots = cfg.HeapCount
		if slots <= 0 {
			slots = runtime.NumCPU()
		}
	}
	return &Subsystem{
		cfg:              cfg,
		dir:              NewDirectory(),
		slotsPerBucket:   slots,
		bridgeCandidates: make([][]gc.BridgePair, slots),
	}, nil
}

// Shutdown destroys every registered bucket and retires the subsystem.
func (s *Subsystem) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.dir.ForEach(func(b *Bucket) bool {
		s.dir.Remove(b)
		b.destroy()
		return true
	})
}

// SlotsPerBucket returns the per-heap table slot count fixed at
// initialization.
func (s *Subsystem) SlotsPerBucket() int { return s.slotsPerBucket }

// Directory exposes the bucket directory for diagnostics.
func (s *Subsystem) Directory() *Directory { return s.dir }

// CreateBucket builds a fully populated bucket for a new allocation domain
// and publishes it. The bucket is visible to in-flight scans from the
// moment Register's CAS lands.
func (s *Subsystem) CreateBucket() (*Bucket, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, ErrShutdown
	}
	b, err := newBucket(s.slotsPerBucket)
	if err != nil {
		return nil, err
	}
	s.dir.Register(b)
	return b, nil
}

// DestroyBucket removes the bucket from the directory and tears down its
// tables. Destroying a bucket twice is a no-op at the directory level.
func (s *Subsystem) DestroyBucket(b *Bucket) {
	s.dir.Remove(b)
	b.destroy()
}

// forEachOwnedTable visits every per-heap table the calling worker owns:
// slot indexes home, home+stride, home+2*stride, ... in every bucket.
// Across all workers of one pass this covers each (bucket, heap) pair
// exactly once, which is the invariant that keeps scanning lock-free.
func (s *Subsystem) forEachOwnedTable(sc *gc.ScanContext, fn func(t *table.Table)) {
	stride := sc.Workers
	if stride <= 0 {
		stride = 1
	}
	s.dir.ForEach(func(b *Bucket) bool {
		for i := sc.HomeHeap; i < b.Slots(); i += stride {
			if t := b.Table(i); t != nil {
				fn(t)
			}
		}
		return true
	})
}

// assert panics on contract violations when Debug is set. Release
// configurations skip the check entirely.
func (s *Subsystem) assert(cond bool, msg string) {
	if s.cfg.Debug && !cond {
		panic("roots: " + msg)
	}
}

// Census aggregates live handle counts per type across every table.
func (s *Subsystem) Census() [gc.TypeCount]int {
	var total [gc.TypeCount]int
	s.dir.ForEach(func(b *Bucket) bool {
		for i := 0; i < b.Slots(); i++ {
			if t := b.Table(i); t != nil {
				c := t.Census()
				for typ := range c {
					total[typ] += c[typ]
				}
			}
		}
		return true
	})
	return total
}
