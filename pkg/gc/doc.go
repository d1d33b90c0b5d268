// Package gc defines the shared value types and collaborator contracts for
// the handle-scanning subsystem: the handle type model, object reference
// words, per-worker scan contexts, and the interfaces the collector and the
// execution engine implement.
//
// This package only exposes types and small pure primitives. The scanning
// machinery lives in the roots package; per-heap storage lives in
// roots/table.
//
// Design goals:
//   - One enum carries its traits inline (no parallel flag arrays to drift).
//   - Typed per-pass contexts instead of opaque callback payload words.
//   - Address arithmetic confined to explicit, isolated primitives.
//
// This package has no dependencies beyond the standard library.
package gc
