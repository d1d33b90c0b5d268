package table

import (
	"fmt"
	"unsafe"

	"github.com/gcforge/handlekit/internal/slab"
	"github.com/gcforge/handlekit/pkg/gc"
)

// SegmentSlots is the number of handle slots per segment.
const SegmentSlots = 256

// slotLive marks an allocated slot.
const slotLive = 1

// slot is one handle's storage. Scalar words only: the slab backing the
// slot array is invisible to the Go collector.
type slot struct {
	primary gc.ObjectRef
	extra   gc.ExtraInfo
	typ     gc.Type
	age     uint8
	flags   uint8
}

func (s *slot) live() bool { return s.flags&slotLive != 0 }

// segment is a fixed block of slots plus its free list. The free list is a
// LIFO of slot indexes so freed handles are reused before the segment is
// considered full.
type segment struct {
	slots   []slot
	release func() error
	free    []uint16
}

func newSegment() (*segment, error) {
	size := int(unsafe.Sizeof(slot{})) * SegmentSlots
	block, release, err := slab.Alloc(size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentAlloc, err)
	}
	seg := &segment{
		slots:   unsafe.Slice((*slot)(unsafe.Pointer(&block[0])), SegmentSlots),
		release: release,
		free:    make([]uint16, 0, SegmentSlots),
	}
	// Push in reverse so slot 0 is handed out first.
	for i := SegmentSlots - 1; i >= 0; i-- {
		seg.free = append(seg.free, uint16(i))
	}
	return seg, nil
}

func (s *segment) destroy() error {
	s.slots = nil
	s.free = nil
	if s.release == nil {
		return nil
	}
	return s.release()
}

// take pops a free slot index, or returns false if the segment is full.
func (s *segment) take() (uint16, bool) {
	n := len(s.free)
	if n == 0 {
		return 0, false
	}
	idx := s.free[n-1]
	s.free = s.free[:n-1]
	return idx, true
}

func (s *segment) put(idx uint16) {
	s.free = append(s.free, idx)
}
