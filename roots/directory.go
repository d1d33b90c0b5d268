package roots

import "sync/atomic"

// DirectorySlots is the number of bucket slots per directory segment.
const DirectorySlots = 64

// dirSegment is one fixed block of bucket slots. Segments are appended to
// the list and never retracted or freed while the subsystem is alive, so
// readers need no hazard protection.
type dirSegment struct {
	base  uint32
	slots [DirectorySlots]atomic.Pointer[Bucket]
	next  atomic.Pointer[dirSegment]
}

// Directory maps a stable integer index to a registered Bucket. It is an
// append-only linked list of fixed-capacity segments; global index i lives
// at segment i/DirectorySlots, slot i%DirectorySlots.
//
// Registration, removal, and traversal never block one another: slots are
// claimed and cleared with single CAS operations and segment growth is a
// CAS on the tail's next pointer. The only ordering guarantee traversal
// relies on is that a published bucket is fully constructed, which Register
// callers provide by finishing the bucket before passing it in.
type Directory struct {
	head atomic.Pointer[dirSegment]
}

// NewDirectory creates a directory with one empty segment.
func NewDirectory() *Directory {
	d := &Directory{}
	d.head.Store(&dirSegment{})
	return d
}

// Register finds a free slot for b, assigns b its global index, and
// publishes it. Freed indexes are reused before the directory grows. The
// whole path is retry-on-CAS-failure; it never blocks and never fails.
func (d *Directory) Register(b *Bucket) uint32 {
	for {
		seg := d.head.Load()
		var tail *dirSegment
		for seg != nil {
			for i := range seg.slots {
				slot := &seg.slots[i]
				if slot.Load() != nil {
					continue
				}
				// Tentatively assign the index before publishing: a reader
				// that sees the bucket must see it fully indexed.
				b.index = seg.base + uint32(i)
				if slot.CompareAndSwap(nil, b) {
					return b.index
				}
				// Lost the slot to a concurrent registration; keep looking.
			}
			tail = seg
			seg = seg.next.Load()
		}
		// No free slot anywhere: append a segment. The loser of this race
		// discards its allocation and retries against the winner's segment.
		fresh := &dirSegment{base: tail.base + DirectorySlots}
		tail.next.CompareAndSwap(nil, fresh)
	}
}

// Remove clears b's slot, but only if it still holds exactly b. A mismatch
// means a concurrent or earlier removal already ran; that is a no-op, not
// an error.
func (d *Directory) Remove(b *Bucket) {
	idx := b.index
	for seg := d.head.Load(); seg != nil; seg = seg.next.Load() {
		if idx < seg.base || idx >= seg.base+DirectorySlots {
			continue
		}
		seg.slots[idx-seg.base].CompareAndSwap(b, nil)
		return
	}
}

// Lookup returns the bucket at the given index, or nil.
func (d *Directory) Lookup(idx uint32) *Bucket {
	for seg := d.head.Load(); seg != nil; seg = seg.next.Load() {
		if idx >= seg.base && idx < seg.base+DirectorySlots {
			return seg.slots[idx-seg.base].Load()
		}
	}
	return nil
}

// ForEach visits every registered bucket. Returning false stops the walk.
// The traversal is lock-free: a segment appended or a bucket registered
// after the walk started may be missed, which callers accept.
func (d *Directory) ForEach(fn func(b *Bucket) bool) {
	for seg := d.head.Load(); seg != nil; seg = seg.next.Load() {
		for i := range seg.slots {
			if b := seg.slots[i].Load(); b != nil {
				if !fn(b) {
					return
				}
			}
		}
	}
}

// segmentCount reports how many segments the directory has grown to.
func (d *Directory) segmentCount() int {
	n := 0
	for seg := d.head.Load(); seg != nil; seg = seg.next.Load() {
		n++
	}
	return n
}
