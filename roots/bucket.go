package roots

import (
	"fmt"

	"github.com/gcforge/handlekit/roots/table"
)

// Bucket is one allocation domain's group of handle tables: one table per
// heap slot. A bucket is fully constructed before it is published to the
// directory and lives until its domain is torn down; there is no reference
// counting.
type Bucket struct {
	index  uint32
	tables []*table.Table
}

// newBucket creates the per-heap tables. On any table failure the ones
// already created are destroyed before returning.
func newBucket(slots int) (*Bucket, error) {
	b := &Bucket{tables: make([]*table.Table, slots)}
	for i := range b.tables {
		t, err := table.New()
		if err != nil {
			for _, prev := range b.tables[:i] {
				prev.Destroy()
			}
			return nil, fmt.Errorf("roots: bucket table %d: %w", i, err)
		}
		t.SetIndex(i)
		b.tables[i] = t
	}
	return b, nil
}

func (b *Bucket) destroy() {
	for i, t := range b.tables {
		if t != nil {
			t.Destroy()
			b.tables[i] = nil
		}
	}
}

// Index returns the bucket's directory index.
func (b *Bucket) Index() uint32 { return b.index }

// Table returns the table for the given heap slot, or nil if that slot is
// absent. Absent slots are skipped by scanning, not errors.
func (b *Bucket) Table(heap int) *table.Table {
	if heap < 0 || heap >= len(b.tables) {
		return nil
	}
	return b.tables[heap]
}

// Slots returns the number of per-heap table slots.
func (b *Bucket) Slots() int { return len(b.tables) }
