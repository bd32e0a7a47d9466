package filedb

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"

	"github.com/spf13/afero"

	"github.com/andreyvit/filedb/mmap"
)

// mmapThreshold is the smallest snapshot loaded via mmap instead of a read.
const mmapThreshold = 1024 * 1024

// fileStorage keeps the raw snapshot in a single file on an afero filesystem.
type fileStorage struct {
	fs     afero.Fs
	path   string
	perm   fs.FileMode
	noSync bool

	// writeLock keeps backups from copying a file that a push is rewriting
	// in place.
	writeLock sync.RWMutex
}

func newFileStorage(fsys afero.Fs, path string, noSync bool) *fileStorage {
	return &fileStorage{fs: fsys, path: path, perm: 0o644, noSync: noSync}
}

func (s *fileStorage) Load(f func(data []byte) error) (bool, error) {
	file, err := s.fs.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	defer file.Close()

	if osf, ok := file.(*os.File); ok {
		st, err := osf.Stat()
		if err != nil {
			return true, err
		}
		if st.Size() >= mmapThreshold {
			data, release, err := mmap.MapFile(osf, mmap.SequentialAccess)
			if err != nil {
				return true, err
			}
			defer release()
			return true, f(data)
		}
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return true, err
	}
	return true, f(data)
}

func (s *fileStorage) Write(data []byte) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	return s.writeFile(s.path, data)
}

func (s *fileStorage) Replace(data []byte) error {
	tmp := tempPath(s.path)
	if err := s.writeFile(tmp, data); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return err
	}
	return nil
}

func (s *fileStorage) writeFile(path string, data []byte) error {
	f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.perm)
	if err != nil {
		return err
	}
	if _, err = f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err = s.sync(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *fileStorage) sync(f afero.File) error {
	if s.noSync {
		return nil
	}
	if osf, ok := f.(*os.File); ok {
		return mmap.Fdatasync(osf)
	}
	return f.Sync()
}

func (s *fileStorage) Backup(ctx context.Context, dst string) error {
	s.writeLock.RLock()
	defer s.writeLock.RUnlock()
	src, err := s.fs.Open(s.path)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := s.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, s.perm)
	if err != nil {
		return err
	}
	_, err = io.Copy(ctxWriter{ctx, out}, src)
	if err == nil {
		err = s.sync(out)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.fs.Remove(dst)
		return err
	}
	return nil
}

func (s *fileStorage) Close() error {
	return nil
}
