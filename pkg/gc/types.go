package gc

import "fmt"

// Type identifies the kind of a handle. The kind decides how each scan pass
// treats the handle's primary slot and whether the handle carries a second
// ("extra info") word alongside it.
type Type uint8

const (
	// TypeWeakShort is a short weak handle: severed as soon as its referent
	// is not promoted by the current collection.
	TypeWeakShort Type = iota

	// TypeWeakLong is a long weak handle: same severance rule, but the
	// referent is allowed to be resurrected by finalization first.
	TypeWeakLong

	// TypeStrong keeps its referent unconditionally alive.
	TypeStrong

	// TypePinned keeps its referent alive and forbids the collector from
	// relocating it.
	TypePinned

	// TypeVariable carries a dynamic sub-kind (strong/weak/pinning) in its
	// extra word and behaves as that kind for the current collection.
	TypeVariable

	// TypeRefCounted keeps its referent alive only while the execution
	// engine reports outstanding external references.
	TypeRefCounted

	// TypeDependent is a primary/secondary pair: the secondary is kept
	// alive exactly when the primary is.
	TypeDependent

	// TypeAsyncPinned pins its referent and additionally pins every object
	// reachable from it (in-flight I/O buffers).
	TypeAsyncPinned

	// TypeSizedRef is a strong handle that accumulates the promoted byte
	// count attributable to its referent in its extra word.
	TypeSizedRef

	// TypeWeakNative is a weak handle paired with a native resource,
	// rescanned through the execution engine's global weak registry.
	TypeWeakNative

	// TypeWeakInterior is a weak handle whose extra word is a raw address
	// inside the primary object, relocated by delta when the primary moves.
	TypeWeakInterior

	// TypeCrossReference participates in cycle collection across a foreign
	// reference-counted runtime; its extra word is an opaque foreign tag.
	TypeCrossReference

	// TypeCount is the number of handle types. Not itself a valid type.
	TypeCount
)

// HasExtraInfo reports whether handles of this type carry a second word.
// The trait lives on the enum itself so the type list and the trait table
// cannot disagree.
func (t Type) HasExtraInfo() bool {
	switch t {
	case TypeVariable, TypeDependent, TypeSizedRef, TypeWeakInterior, TypeCrossReference:
		return true
	}
	return false
}

func (t Type) String() string {
	switch t {
	case TypeWeakShort:
		return "weak-short"
	case TypeWeakLong:
		return "weak-long"
	case TypeStrong:
		return "strong"
	case TypePinned:
		return "pinned"
	case TypeVariable:
		return "variable"
	case TypeRefCounted:
		return "ref-counted"
	case TypeDependent:
		return "dependent"
	case TypeAsyncPinned:
		return "async-pinned"
	case TypeSizedRef:
		return "sized-ref"
	case TypeWeakNative:
		return "weak-native"
	case TypeWeakInterior:
		return "weak-interior"
	case TypeCrossReference:
		return "cross-reference"
	}
	return fmt.Sprintf("gc.Type(%d)", uint8(t))
}

// AllTypes returns every valid handle type, in enum order.
func AllTypes() []Type {
	out := make([]Type, 0, TypeCount)
	for t := Type(0); t < TypeCount; t++ {
		out = append(out, t)
	}
	return out
}

// VariableKind is the dynamic sub-kind of a Variable handle, stored in the
// low bits of its extra word. A Variable handle behaves as the kind it
// currently carries.
//
// Changing the kind while a concurrent scan is in flight is not safe and is
// not prevented here; callers own that exclusion.
type VariableKind uint8

const (
	VariableStrong VariableKind = 1 << iota
	VariableWeak
	VariablePinning
)

// variableKindMask covers the bits of an extra word that hold the kind.
const variableKindMask = ExtraInfo(VariableStrong | VariableWeak | VariablePinning)

// VariableKindOf extracts the sub-kind from a Variable handle's extra word.
func VariableKindOf(extra ExtraInfo) VariableKind {
	return VariableKind(extra & variableKindMask)
}

// WithVariableKind returns extra with its kind bits replaced by k.
func WithVariableKind(extra ExtraInfo, k VariableKind) ExtraInfo {
	return (extra &^ variableKindMask) | ExtraInfo(k)
}

// RootKind describes a handle for diagnostics consumers (profilers, trace
// tooling). Observability only; scanning never branches on these.
type RootKind uint8

const (
	RootWeak RootKind = 1 << iota
	RootPinning
	RootRefCounted
	RootDependent
)

// RootKindOf maps a handle type (and, for Variable handles, the current
// sub-kind) to its diagnostic flags.
func RootKindOf(t Type, extra ExtraInfo) RootKind {
	switch t {
	case TypeWeakShort, TypeWeakLong, TypeWeakNative, TypeWeakInterior, TypeCrossReference:
		return RootWeak
	case TypePinned, TypeAsyncPinned:
		return RootPinning
	case TypeRefCounted:
		return RootRefCounted
	case TypeDependent:
		return RootDependent
	case TypeVariable:
		var k RootKind
		vk := VariableKindOf(extra)
		if vk&VariableWeak != 0 {
			k |= RootWeak
		}
		if vk&VariablePinning != 0 {
			k |= RootPinning
		}
		return k
	}
	return 0
}
