package mmap

import "os"

// Fdatasync flushes the data written to f to stable storage, skipping
// metadata like modification times where the OS allows it.
//
// Errors returned here are not recoverable: the kernel may have already
// marked the failed pages clean. Callers should treat the file as suspect.
func Fdatasync(f *os.File) error {
	return fdatasync(f)
}
