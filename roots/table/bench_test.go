package table

import (
	"testing"

	"github.com/gcforge/handlekit/pkg/gc"
)

// BenchmarkAllocateFree measures handle churn through the segment free
// lists.
func BenchmarkAllocateFree(b *testing.B) {
	tbl, err := New()
	if err != nil {
		b.Fatal(err)
	}
	defer tbl.Destroy()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		h, err := tbl.Allocate(gc.TypeStrong)
		if err != nil {
			b.Fatal(err)
		}
		if err := tbl.Free(h); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkScanForGC measures a strong-promotion sweep over a populated
// table.
func BenchmarkScanForGC(b *testing.B) {
	tbl, err := New()
	if err != nil {
		b.Fatal(err)
	}
	defer tbl.Destroy()

	for i := 0; i < 10_000; i++ {
		h, err := tbl.Allocate(gc.TypeStrong)
		if err != nil {
			b.Fatal(err)
		}
		tbl.SetPrimary(h, gc.ObjectRef(0x1000+16*i))
	}

	types := []gc.Type{gc.TypeStrong}
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		n := 0
		tbl.ScanForGC(func(_ gc.Type, _ *gc.ObjectRef, _ *gc.ExtraInfo) {
			n++
		}, types, 2, 2, ScanNormal)
		if n != 10_000 {
			b.Fatalf("visited %d handles", n)
		}
	}
}

// BenchmarkAgeHandles measures the aging sweep.
func BenchmarkAgeHandles(b *testing.B) {
	tbl, err := New()
	if err != nil {
		b.Fatal(err)
	}
	defer tbl.Destroy()

	for i := 0; i < 10_000; i++ {
		h, err := tbl.Allocate(gc.TypeWeakShort)
		if err != nil {
			b.Fatal(err)
		}
		tbl.SetPrimary(h, gc.ObjectRef(0x1000+16*i))
	}

	types := []gc.Type{gc.TypeWeakShort}
	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		tbl.AgeHandles(types, 2, 2)
		tbl.Rejuvenate(types)
	}
}
