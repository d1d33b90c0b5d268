// Package slab hands out page-aligned anonymous memory blocks for handle
// table segments. On unix it maps pages directly so segment storage stays
// out of the Go heap; elsewhere it falls back to ordinary allocation.
//
// Blocks hold only scalar slot data (no Go pointers), so the collector
// never needs to see them.
package slab

// Alloc returns a zeroed block of at least size bytes, rounded up to the
// platform page size, together with a release function. Release must be
// called exactly once; calling it invalidates the block.
func Alloc(size int) ([]byte, func() error, error) {
	return alloc(size)
}

// pageAlign rounds size up to a multiple of pageSize.
func pageAlign(size, pageSize int) int {
	if pageSize <= 0 {
		return size
	}
	return (size + pageSize - 1) &^ (pageSize - 1)
}
