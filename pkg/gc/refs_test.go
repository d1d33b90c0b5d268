package gc

import "testing"

func TestRelocateInteriorForward(t *testing.T) {
	oldBase := ObjectRef(0x1000)
	interior := uintptr(0x1018) // 0x18 bytes into the object
	newBase := ObjectRef(0x8000)

	got := RelocateInterior(oldBase, newBase, interior)
	if got != 0x8018 {
		t.Fatalf("interior = %#x, want %#x", got, 0x8018)
	}
}

func TestRelocateInteriorBackward(t *testing.T) {
	oldBase := ObjectRef(0x9000)
	interior := uintptr(0x9004)
	newBase := ObjectRef(0x2000)

	got := RelocateInterior(oldBase, newBase, interior)
	if got != 0x2004 {
		t.Fatalf("interior = %#x, want %#x", got, 0x2004)
	}
}

func TestRelocateInteriorPreservesOffset(t *testing.T) {
	oldBase := ObjectRef(0x4000)
	newBase := ObjectRef(0x7450)
	for _, offset := range []uintptr{0, 1, 8, 0x3FF} {
		got := RelocateInterior(oldBase, newBase, uintptr(oldBase)+offset)
		if got-uintptr(newBase) != offset {
			t.Fatalf("offset %#x drifted to %#x", offset, got-uintptr(newBase))
		}
	}
}
