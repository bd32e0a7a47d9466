package filedb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"go.etcd.io/bbolt"
)

var (
	boltBucket      = []byte("filedb")
	boltSnapshotKey = []byte("snapshot")
)

// boltStorage keeps the snapshot as a single value inside a Bolt file. Bolt
// holds an exclusive flock on the file while open, so a second DB on the same
// path fails to open instead of silently clobbering the first one.
type boltStorage struct {
	path string
	bopt *bbolt.Options

	// swapLock guards bdb against Replace swapping files under a backup
	// running on another goroutine.
	swapLock sync.RWMutex
	bdb      *bbolt.DB
}

func openBoltStorage(path string, noSync bool) (*boltStorage, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if noSync {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}

	bdb, err := bbolt.Open(path, 0o666, bopt)
	if err != nil {
		return nil, err
	}
	return &boltStorage{path: path, bopt: bopt, bdb: bdb}, nil
}

func (s *boltStorage) Load(f func(data []byte) error) (bool, error) {
	var found bool
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		b := btx.Bucket(boltBucket)
		if b == nil {
			return nil
		}
		data := b.Get(boltSnapshotKey)
		if data == nil {
			return nil
		}
		found = true
		return f(data)
	})
	return found, err
}

func (s *boltStorage) Write(data []byte) error {
	return putBoltSnapshot(s.bdb, data)
}

func putBoltSnapshot(bdb *bbolt.DB, data []byte) error {
	return bdb.Update(func(btx *bbolt.Tx) error {
		b, err := btx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return b.Put(boltSnapshotKey, data)
	})
}

// Replace builds a fresh Bolt file holding only the new snapshot, which drops
// the free pages left behind by earlier snapshots, and renames it over the
// original.
func (s *boltStorage) Replace(data []byte) error {
	tmp := tempPath(s.path)
	if err := os.Remove(tmp); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	tdb, err := bbolt.Open(tmp, 0o666, s.bopt)
	if err != nil {
		return err
	}
	err = putBoltSnapshot(tdb, data)
	if cerr := tdb.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}

	s.swapLock.Lock()
	defer s.swapLock.Unlock()
	if err := s.bdb.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	renameErr := os.Rename(tmp, s.path)
	if renameErr != nil {
		_ = os.Remove(tmp)
	}
	bdb, err := bbolt.Open(s.path, 0o666, s.bopt)
	if err != nil {
		return fmt.Errorf("reopening after compaction: %w", err)
	}
	s.bdb = bdb
	return renameErr
}

func (s *boltStorage) Backup(ctx context.Context, dst string) error {
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	s.swapLock.RLock()
	defer s.swapLock.RUnlock()
	err = s.bdb.View(func(btx *bbolt.Tx) error {
		_, err := btx.WriteTo(ctxWriter{ctx, out})
		return err
	})
	if err != nil {
		// WriteTo flattens writer errors into text
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
	} else {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}

func (s *boltStorage) Close() error {
	s.swapLock.Lock()
	defer s.swapLock.Unlock()
	return s.bdb.Close()
}
