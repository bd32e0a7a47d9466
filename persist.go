package filedb

import (
	"context"
	"fmt"
)

// Push encodes every collection and overwrites the backing file. If anything
// was deleted since the last compaction, it compacts right away.
func (db *DB) Push() error {
	if db.closed.Load() {
		return ErrClosed
	}
	data, err := encodeSnapshot(&db.data, db.compress)
	if err != nil {
		return fmt.Errorf("filedb: push: %w", err)
	}
	if err := db.store.Write(data); err != nil {
		return fmt.Errorf("filedb: push: %w", err)
	}
	db.PushCount.Add(1)
	db.recordWrite(data)
	db.trace("PUSH", "size", humanSize(int64(len(data))))

	if db.dirty {
		if err := db.compact(data); err != nil {
			return err
		}
		db.dirty = false
	}
	return nil
}

// Compact writes the full snapshot into a temporary sibling file and renames
// it over the backing file, so the file is either the old or the new
// snapshot even if the process dies midway.
func (db *DB) Compact() error {
	if db.closed.Load() {
		return ErrClosed
	}
	data, err := encodeSnapshot(&db.data, db.compress)
	if err != nil {
		return fmt.Errorf("filedb: compact: %w", err)
	}
	return db.compact(data)
}

func (db *DB) compact(data []byte) error {
	if err := db.store.Replace(data); err != nil {
		return fmt.Errorf("filedb: compact: %w", err)
	}
	db.CompactCount.Add(1)
	db.recordWrite(data)
	db.trace("COMPACT", "size", humanSize(int64(len(data))))
	return nil
}

// Backup copies the backing file byte for byte to dst (DefaultBackupPath if
// empty). It does not touch the in-memory state and may run on another
// goroutine; concurrent backups to the same dst share a single copy. Pushes
// and compactions wait for a running copy, so dst always holds a complete
// snapshot. On failure dst is removed.
//
// Only pushed state is copied.
func (db *DB) Backup(ctx context.Context, dst string) error {
	if db.closed.Load() {
		return ErrClosed
	}
	if dst == "" {
		dst = DefaultBackupPath
	}
	_, err, _ := db.backups.Do(dst, func() (any, error) {
		err := db.store.Backup(ctx, dst)
		if err == nil {
			db.BackupCount.Add(1)
		}
		return nil, err
	})
	if err != nil {
		return fmt.Errorf("filedb: backup to %s: %w", dst, err)
	}
	if db.verbose {
		db.logger.Info("db: BACKUP", "path", db.path, "dst", dst)
	}
	return nil
}

// BackupAsync runs Backup on a new goroutine. The returned channel receives
// its result and is then closed.
func (db *DB) BackupAsync(ctx context.Context, dst string) <-chan error {
	ch := make(chan error, 1)
	go func() {
		defer close(ch)
		ch <- db.Backup(ctx, dst)
	}()
	return ch
}
