package table

import (
	"errors"
	"testing"

	"github.com/gcforge/handlekit/pkg/gc"
)

func newTestTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { tbl.Destroy() })
	return tbl
}

func mustAllocate(t *testing.T, tbl *Table, typ gc.Type, primary gc.ObjectRef) Handle {
	t.Helper()
	h, err := tbl.Allocate(typ)
	if err != nil {
		t.Fatalf("Allocate(%s) failed: %v", typ, err)
	}
	tbl.SetPrimary(h, primary)
	return h
}

func Test_Table_AllocateFreeReuse(t *testing.T) {
	tbl := newTestTable(t)

	h := mustAllocate(t, tbl, gc.TypeStrong, 0x100)
	if got := tbl.Primary(h); got != 0x100 {
		t.Fatalf("primary = %#x, want 0x100", uintptr(got))
	}
	typ, err := tbl.FetchType(h)
	if err != nil || typ != gc.TypeStrong {
		t.Fatalf("FetchType = %v, %v", typ, err)
	}
	if n := tbl.LiveCount(gc.TypeStrong); n != 1 {
		t.Fatalf("live count = %d, want 1", n)
	}

	if err := tbl.Free(h); err != nil {
		t.Fatalf("Free failed: %v", err)
	}
	if err := tbl.Free(h); !errors.Is(err, ErrBadHandle) {
		t.Fatalf("double free: got %v, want ErrBadHandle", err)
	}
	if n := tbl.LiveCount(gc.TypeStrong); n != 0 {
		t.Fatalf("live count after free = %d, want 0", n)
	}

	// The freed slot is handed out again before the table grows.
	h2 := mustAllocate(t, tbl, gc.TypeWeakShort, 0x200)
	if h2.seg != h.seg || h2.slot != h.slot {
		t.Fatal("freed slot not reused")
	}
}

func Test_Table_GrowsBySegments(t *testing.T) {
	tbl := newTestTable(t)

	for i := 0; i < SegmentSlots+5; i++ {
		mustAllocate(t, tbl, gc.TypeStrong, gc.ObjectRef(0x1000+i*16))
	}
	if len(tbl.segments) != 2 {
		t.Fatalf("segment count = %d, want 2", len(tbl.segments))
	}
	if n := tbl.LiveCount(gc.TypeStrong); n != SegmentSlots+5 {
		t.Fatalf("live count = %d, want %d", n, SegmentSlots+5)
	}
	if err := tbl.Verify(); err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
}

func Test_Table_AllocateRejectsBadType(t *testing.T) {
	tbl := newTestTable(t)
	if _, err := tbl.Allocate(gc.TypeCount); !errors.Is(err, ErrBadType) {
		t.Fatalf("got %v, want ErrBadType", err)
	}
}

func Test_Table_AllocateAfterDestroy(t *testing.T) {
	tbl, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	tbl.Destroy()
	if _, err := tbl.Allocate(gc.TypeStrong); !errors.Is(err, ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}
}

func Test_Table_ExtraInfoCompareExchange(t *testing.T) {
	tbl := newTestTable(t)
	h := mustAllocate(t, tbl, gc.TypeVariable, 0x300)
	tbl.SetExtraInfo(h, gc.ExtraInfo(gc.VariableStrong))

	ok := tbl.CompareExchangeExtraInfo(h, gc.ExtraInfo(gc.VariableStrong), gc.ExtraInfo(gc.VariableWeak))
	if !ok {
		t.Fatal("CAS with matching old value failed")
	}
	ok = tbl.CompareExchangeExtraInfo(h, gc.ExtraInfo(gc.VariableStrong), gc.ExtraInfo(gc.VariablePinning))
	if ok {
		t.Fatal("CAS with stale old value succeeded")
	}
	if got := tbl.ExtraInfo(h); got != gc.ExtraInfo(gc.VariableWeak) {
		t.Fatalf("extra = %#x, want weak tag", uintptr(got))
	}
}

func Test_Table_VerifyCatchesStrayExtraInfo(t *testing.T) {
	tbl := newTestTable(t)
	h := mustAllocate(t, tbl, gc.TypeStrong, 0x400)
	tbl.SetExtraInfo(h, 0xBEEF)
	if err := tbl.Verify(); err == nil {
		t.Fatal("Verify accepted extra info on a strong handle")
	}
}

func Test_Table_Census(t *testing.T) {
	tbl := newTestTable(t)
	mustAllocate(t, tbl, gc.TypeStrong, 0x1)
	mustAllocate(t, tbl, gc.TypeStrong, 0x2)
	mustAllocate(t, tbl, gc.TypeWeakLong, 0x3)

	c := tbl.Census()
	if c[gc.TypeStrong] != 2 || c[gc.TypeWeakLong] != 1 {
		t.Fatalf("census = %v", c)
	}
}
