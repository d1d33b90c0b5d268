// Package roots orchestrates handle scanning for a generational, optionally
// multi-heap collector: it owns the lock-free directory of handle-table
// buckets, runs the per-collection scan passes across worker threads, and
// implements the dependent-handle fixed point and the bridge batch protocol.
//
// # Shape
//
// A Bucket groups one handle table per heap. The Directory maps a stable
// integer index to each registered bucket and is safe to read while buckets
// are registered and removed concurrently. A Subsystem ties the directory
// to the collector and execution-engine collaborators and exposes one
// method per scan pass.
//
// # Ownership during a collection
//
// The collector driver supplies one gc.ScanContext per worker. Worker w
// visits per-heap table slots w, w+Workers, w+2*Workers, ... of every
// bucket, so each (bucket, heap) pair is scanned by exactly one worker per
// pass. That disjointness is what lets every pass run without locks; no
// pass takes one.
//
// Pass order per collection: pinning, strong promotion, [collector mark],
// ref-counted promotion, dependent-handle convergence, weak severance,
// bridge processing, pointer update, then age or rejuvenate. The driver
// owns the order and the barriers between passes; this package owns what
// each pass does.
package roots
