package table

import (
	"testing"

	"github.com/gcforge/handlekit/pkg/gc"
)

func collectVisited(tbl *Table, types []gc.Type, condemned, maxGen int, flags ScanFlags) []gc.ObjectRef {
	var seen []gc.ObjectRef
	tbl.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
		seen = append(seen, *primary)
	}, types, condemned, maxGen, flags)
	return seen
}

func Test_Scan_TypeFiltering(t *testing.T) {
	tbl := newTestTable(t)
	mustAllocate(t, tbl, gc.TypeStrong, 0x10)
	mustAllocate(t, tbl, gc.TypeWeakShort, 0x20)
	mustAllocate(t, tbl, gc.TypePinned, 0x30)

	seen := collectVisited(tbl, []gc.Type{gc.TypeWeakShort}, 0, 2, ScanNormal)
	if len(seen) != 1 || seen[0] != 0x20 {
		t.Fatalf("visited %v, want [0x20]", seen)
	}
}

func Test_Scan_AgeFiltering(t *testing.T) {
	tbl := newTestTable(t)
	mustAllocate(t, tbl, gc.TypeStrong, 0x10)
	old := mustAllocate(t, tbl, gc.TypeStrong, 0x20)

	// Age the whole table twice: both handles reach age 2.
	tbl.AgeHandles([]gc.Type{gc.TypeStrong}, 2, 2)
	tbl.AgeHandles([]gc.Type{gc.TypeStrong}, 2, 2)
	if got := tbl.Age(old); got != 2 {
		t.Fatalf("age = %d, want 2", got)
	}

	// A gen-1 scan skips handles whose referents are known old.
	if seen := collectVisited(tbl, []gc.Type{gc.TypeStrong}, 1, 2, ScanNormal); len(seen) != 0 {
		t.Fatalf("gen-1 scan visited %v, want none", seen)
	}
	// A full scan sees everything.
	if seen := collectVisited(tbl, []gc.Type{gc.TypeStrong}, 2, 2, ScanNormal); len(seen) != 2 {
		t.Fatalf("gen-2 scan visited %v, want both", seen)
	}
}

func Test_Scan_SetPrimaryResetsAge(t *testing.T) {
	tbl := newTestTable(t)
	h := mustAllocate(t, tbl, gc.TypeStrong, 0x10)

	tbl.AgeHandles([]gc.Type{gc.TypeStrong}, 2, 2)
	tbl.AgeHandles([]gc.Type{gc.TypeStrong}, 2, 2)
	if got := tbl.Age(h); got != 2 {
		t.Fatalf("age = %d, want 2", got)
	}

	// Storing a new referent drops the handle back to the youngest
	// generation, so a young-only scan must see it.
	tbl.SetPrimary(h, 0x200)
	if got := tbl.Age(h); got != 0 {
		t.Fatalf("age after reassignment = %d, want 0", got)
	}
	seen := collectVisited(tbl, []gc.Type{gc.TypeStrong}, 0, 2, ScanNormal)
	if len(seen) != 1 || seen[0] != 0x200 {
		t.Fatalf("gen-0 scan visited %v, want the reassigned referent", seen)
	}
}

func Test_Scan_AgeCapsAtMaxGen(t *testing.T) {
	tbl := newTestTable(t)
	h := mustAllocate(t, tbl, gc.TypeStrong, 0x10)
	for i := 0; i < 5; i++ {
		tbl.AgeHandles([]gc.Type{gc.TypeStrong}, 2, 2)
	}
	if got := tbl.Age(h); got != 2 {
		t.Fatalf("age = %d, want cap 2", got)
	}
}

func Test_Scan_AgeThenRejuvenateRestoresBaseline(t *testing.T) {
	tbl := newTestTable(t)
	h := mustAllocate(t, tbl, gc.TypeWeakLong, 0x10)
	if got := tbl.Age(h); got != 0 {
		t.Fatalf("baseline age = %d, want 0", got)
	}

	tbl.AgeHandles([]gc.Type{gc.TypeWeakLong}, 2, 2)
	if got := tbl.Age(h); got != 1 {
		t.Fatalf("aged to %d, want 1", got)
	}

	tbl.Rejuvenate([]gc.Type{gc.TypeWeakLong})
	if got := tbl.Age(h); got != 0 {
		t.Fatalf("rejuvenated age = %d, want baseline 0", got)
	}
}

func Test_Scan_AgeRespectsTypeSet(t *testing.T) {
	tbl := newTestTable(t)
	bridge := mustAllocate(t, tbl, gc.TypeCrossReference, 0x10)

	tbl.AgeHandles([]gc.Type{gc.TypeStrong}, 2, 2)
	if got := tbl.Age(bridge); got != 0 {
		t.Fatalf("cross-reference handle aged to %d", got)
	}
}

func Test_Scan_VariableSubKind(t *testing.T) {
	tbl := newTestTable(t)
	strong := mustAllocate(t, tbl, gc.TypeVariable, 0x10)
	tbl.SetExtraInfo(strong, gc.WithVariableKind(0, gc.VariableStrong))
	weak := mustAllocate(t, tbl, gc.TypeVariable, 0x20)
	tbl.SetExtraInfo(weak, gc.WithVariableKind(0, gc.VariableWeak))

	seen := collectVisited(tbl, []gc.Type{gc.TypeVariable}, 0, 2, ScanVariableWeak)
	if len(seen) != 1 || seen[0] != 0x20 {
		t.Fatalf("weak sub-kind scan visited %v, want [0x20]", seen)
	}

	// No sub-kind flags: Variable handles are skipped outright.
	if seen := collectVisited(tbl, []gc.Type{gc.TypeVariable}, 0, 2, ScanNormal); len(seen) != 0 {
		t.Fatalf("flagless scan visited %v, want none", seen)
	}
}

func Test_Scan_ExtraInfoPointerGating(t *testing.T) {
	tbl := newTestTable(t)
	dep := mustAllocate(t, tbl, gc.TypeDependent, 0x10)
	tbl.SetExtraInfo(dep, 0x99)
	mustAllocate(t, tbl, gc.TypeWeakShort, 0x20)

	types := []gc.Type{gc.TypeDependent, gc.TypeWeakShort}
	got := map[gc.Type]bool{}
	tbl.ScanForGC(func(typ gc.Type, _ *gc.ObjectRef, extra *gc.ExtraInfo) {
		got[typ] = extra != nil
	}, types, 0, 2, ScanExtraInfo)

	if !got[gc.TypeDependent] {
		t.Fatal("dependent handle visited without extra pointer")
	}
	if got[gc.TypeWeakShort] {
		t.Fatal("weak handle visited with extra pointer despite no trait")
	}

	// Without the flag nobody gets the pointer.
	tbl.ScanForGC(func(typ gc.Type, _ *gc.ObjectRef, extra *gc.ExtraInfo) {
		if extra != nil {
			t.Fatalf("%s got extra pointer without ScanExtraInfo", typ)
		}
	}, types, 0, 2, ScanNormal)
}

func Test_Scan_VisitorWritesLand(t *testing.T) {
	tbl := newTestTable(t)
	h := mustAllocate(t, tbl, gc.TypeWeakShort, 0x50)

	tbl.ScanForGC(func(_ gc.Type, primary *gc.ObjectRef, _ *gc.ExtraInfo) {
		*primary = gc.NilRef
	}, []gc.Type{gc.TypeWeakShort}, 0, 2, ScanNormal)

	if got := tbl.Primary(h); got != gc.NilRef {
		t.Fatalf("primary = %#x after severance, want nil", uintptr(got))
	}
}

func Test_Enumerate_StopsEarly(t *testing.T) {
	tbl := newTestTable(t)
	for i := 0; i < 10; i++ {
		mustAllocate(t, tbl, gc.TypeStrong, gc.ObjectRef(0x100+i*16))
	}
	n := 0
	tbl.Enumerate([]gc.Type{gc.TypeStrong}, func(Handle, gc.Type, gc.ObjectRef, gc.ExtraInfo) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Fatalf("visited %d handles, want 3", n)
	}
}
