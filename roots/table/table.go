package table

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gcforge/handlekit/pkg/gc"
)

// Handle identifies one allocated slot in one table. The zero Handle is
// invalid. Handles stay valid until freed or until the table is destroyed.
type Handle struct {
	seg  *segment
	slot uint16
}

// Valid reports whether h refers to a slot at all (not whether it is live).
func (h Handle) Valid() bool { return h.seg != nil }

// Table is one heap's handle storage.
type Table struct {
	mu       sync.Mutex
	segments []*segment
	counts   [gc.TypeCount]int
	index    int
	closed   bool
}

// New creates an empty table with one segment pre-allocated.
func New() (*Table, error) {
	seg, err := newSegment()
	if err != nil {
		return nil, err
	}
	return &Table{segments: []*segment{seg}, index: -1}, nil
}

// Destroy releases every segment. Outstanding handles become invalid.
func (t *Table) Destroy() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	var first error
	for _, seg := range t.segments {
		if err := seg.destroy(); err != nil && first == nil {
			first = err
		}
	}
	t.segments = nil
	return first
}

// Index returns the owner-assigned table index (the heap slot this table
// occupies in its bucket), or -1 if unset.
func (t *Table) Index() int { return t.index }

// SetIndex records the owner-assigned table index.
func (t *Table) SetIndex(i int) { t.index = i }

// Allocate creates a live handle of the given type with nil primary and
// zero extra word. Grows the table by one segment when full; a failed grow
// leaves the table unchanged.
func (t *Table) Allocate(typ gc.Type) (Handle, error) {
	if typ >= gc.TypeCount {
		return Handle{}, ErrBadType
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return Handle{}, ErrClosed
	}
	for _, seg := range t.segments {
		if idx, ok := seg.take(); ok {
			return t.fill(seg, idx, typ), nil
		}
	}
	seg, err := newSegment()
	if err != nil {
		return Handle{}, err
	}
	t.segments = append(t.segments, seg)
	idx, _ := seg.take()
	return t.fill(seg, idx, typ), nil
}

func (t *Table) fill(seg *segment, idx uint16, typ gc.Type) Handle {
	s := &seg.slots[idx]
	*s = slot{typ: typ, flags: slotLive}
	t.counts[typ]++
	return Handle{seg: seg, slot: idx}
}

// Free releases a handle. Freeing an already-freed or invalid handle
// returns ErrBadHandle.
func (t *Table) Free(h Handle) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := h.deref()
	if s == nil || !s.live() {
		return ErrBadHandle
	}
	t.counts[s.typ]--
	*s = slot{}
	h.seg.put(h.slot)
	return nil
}

func (h Handle) deref() *slot {
	if h.seg == nil || h.seg.slots == nil || int(h.slot) >= len(h.seg.slots) {
		return nil
	}
	return &h.seg.slots[h.slot]
}

// Primary reads the handle's primary reference.
func (t *Table) Primary(h Handle) gc.ObjectRef {
	if s := h.deref(); s != nil {
		return s.primary
	}
	return gc.NilRef
}

// SetPrimary stores the handle's primary reference. The slot drops back to
// the youngest generation so the new referent is seen by the next scan even
// when the handle itself had aged past the condemned generation.
func (t *Table) SetPrimary(h Handle, ref gc.ObjectRef) {
	if s := h.deref(); s != nil {
		s.primary = ref
		s.age = 0
	}
}

// ExtraInfo reads the handle's extra word.
func (t *Table) ExtraInfo(h Handle) gc.ExtraInfo {
	if s := h.deref(); s != nil {
		return s.extra
	}
	return 0
}

// SetExtraInfo stores the handle's extra word.
func (t *Table) SetExtraInfo(h Handle, extra gc.ExtraInfo) {
	if s := h.deref(); s != nil {
		s.extra = extra
	}
}

// CompareExchangeExtraInfo atomically replaces the extra word if it still
// holds old. Used by mutators retagging Variable handles.
func (t *Table) CompareExchangeExtraInfo(h Handle, old, next gc.ExtraInfo) bool {
	s := h.deref()
	if s == nil {
		return false
	}
	return atomic.CompareAndSwapUintptr(
		(*uintptr)(unsafe.Pointer(&s.extra)), uintptr(old), uintptr(next))
}

// FetchType returns the handle's type.
func (t *Table) FetchType(h Handle) (gc.Type, error) {
	s := h.deref()
	if s == nil || !s.live() {
		return 0, ErrBadHandle
	}
	return s.typ, nil
}

// Age returns the handle's age generation.
func (t *Table) Age(h Handle) uint8 {
	if s := h.deref(); s != nil {
		return s.age
	}
	return 0
}

// LiveCount returns the number of live handles of the given type.
func (t *Table) LiveCount(typ gc.Type) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if typ >= gc.TypeCount {
		return 0
	}
	return t.counts[typ]
}

// Census copies the per-type live counts.
func (t *Table) Census() [gc.TypeCount]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts
}
