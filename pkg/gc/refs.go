package gc

// ObjectRef is an opaque reference to a managed heap object. The zero value
// means "no object". Scanning reads and writes handle slots holding these;
// it never dereferences them itself.
type ObjectRef uintptr

// ExtraInfo is the second word some handle types carry. Its meaning is
// type-dependent: a secondary ObjectRef for Dependent, a raw interior
// address for WeakInterior, a VariableKind tag for Variable, a promoted
// byte accumulator for SizedRef, an opaque foreign tag for CrossReference.
type ExtraInfo uintptr

// NilRef is the empty object reference.
const NilRef ObjectRef = 0

// RelocateInterior recomputes an interior address after its containing
// object moved from oldBase to newBase. The interior value is a raw address
// inside the object, never a traceable reference, so the only legal
// transformation is the base delta.
//
// Callers must invoke this only when the base actually moved.
func RelocateInterior(oldBase, newBase ObjectRef, interior uintptr) uintptr {
	return interior + uintptr(newBase) - uintptr(oldBase)
}
