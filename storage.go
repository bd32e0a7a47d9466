package filedb

import (
	"context"
	"io"
)

// storage represents a backend holding one snapshot (file, Bolt).
type storage interface {
	// Load calls f with the stored snapshot. f is not called and found is
	// false if there's no snapshot yet. data is only valid during the call.
	Load(f func(data []byte) error) (found bool, err error)

	// Write overwrites the stored snapshot in place.
	Write(data []byte) error

	// Replace writes the snapshot into a temporary sibling file and atomically
	// moves it over the original.
	Replace(data []byte) error

	// Backup copies the raw stored bytes to dst verbatim.
	Backup(ctx context.Context, dst string) error

	// Close releases any resources held.
	Close() error
}

// ctxWriter fails writes once ctx is done, so that long copies can be
// cancelled between chunks.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (w ctxWriter) Write(p []byte) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

func tempPath(path string) string {
	return path + ".tmp"
}
