//go:build unix

package slab

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func alloc(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("slab: invalid block size %d", size)
	}
	mapped := pageAlign(size, os.Getpagesize())
	data, err := unix.Mmap(-1, 0, mapped,
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("slab: mmap %d bytes: %w", mapped, err)
	}
	release := func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		if errors.Is(err, unix.EINVAL) {
			// Treat double-unmap as no-op for callers.
			return nil
		}
		return err
	}
	return data[:size], release, nil
}
