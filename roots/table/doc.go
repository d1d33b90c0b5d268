// Package table implements the per-heap handle table: segmented slot
// storage for handles of every type, with the scan/enumerate contract the
// roots package drives during a collection.
//
// # Overview
//
// A Table owns a list of fixed-capacity segments. Each segment's slot
// array lives in a page-aligned slab outside the Go heap (the slots hold
// only scalar words, never Go pointers). A slot records the handle's
// primary reference, its optional extra word, its type, and a small age.
//
// # Ages
//
// A slot's age is the generation its referent was last known to live in.
// Fresh handles start at age zero, so they are always visited. ScanForGC
// skips slots whose age exceeds the condemned generation: their referents
// live in generations this collection does not touch. AgeHandles advances
// ages after a collection; Rejuvenate resets every age to the baseline
// after a full, non-generational collection.
//
// # Thread safety
//
// Allocate and Free take the table lock and may run concurrently with each
// other. The scan entry points take no lock: during a collection each
// table is owned by exactly one scan worker (the striping invariant in the
// roots package), and the mutator is stopped or excluded by the caller.
package table
