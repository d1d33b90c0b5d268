package table

import "errors"

var (
	// ErrSegmentAlloc indicates that backing storage for a new segment
	// could not be mapped.
	ErrSegmentAlloc = errors.New("table: segment allocation failed")

	// ErrBadHandle indicates an invalid, freed, or foreign handle.
	ErrBadHandle = errors.New("table: bad handle")

	// ErrBadType indicates a handle type outside the known enumeration.
	ErrBadType = errors.New("table: unknown handle type")

	// ErrClosed indicates the table has been destroyed.
	ErrClosed = errors.New("table: table destroyed")
)
