// Package mmap maps snapshot files into memory read-only and syncs written
// files to disk.
package mmap

import (
	"fmt"
	"os"
)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead. Maps to
	// MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << 0

	// Prefault asks for the entire file to be loaded in memory up front.
	// Maps to MAP_POPULATE on Linux, ignored elsewhere.
	Prefault Options = 1 << 1
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Map maps the first size bytes of f read-only. The returned slice must not
// be written to and must be released via Unmap.
func Map(f *os.File, size int, opt Options) ([]byte, error) {
	if size <= 0 || size > MaxSize {
		return nil, fmt.Errorf("mmap: unsupported size %d", size)
	}
	return mmap(f, size, opt)
}

// Unmap unmaps the given slice from memory. The slice must have been returned
// by Map.
func Unmap(b []byte) error {
	return munmap(b)
}

// MapFile maps the whole of f. Returns nil data (and a no-op release) for an
// empty file.
func MapFile(f *os.File, opt Options) (data []byte, release func() error, err error) {
	st, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if st.Size() == 0 {
		return nil, func() error { return nil }, nil
	}
	if st.Size() > MaxSize {
		return nil, nil, fmt.Errorf("mmap: %s is too large (%d bytes)", f.Name(), st.Size())
	}
	data, err = Map(f, int(st.Size()), opt)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return Unmap(data) }, nil
}
