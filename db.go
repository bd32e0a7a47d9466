package filedb

import (
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCollection = "default"
	DefaultBackupPath = "backup.db"
)

// Backend selects how the snapshot is kept on disk.
type Backend int

const (
	// FileBackend stores the raw msgpack snapshot as the entire file.
	FileBackend Backend = iota

	// BoltBackend stores the snapshot as a value inside a Bolt file.
	BoltBackend
)

// DB is an in-memory set of named collections backed by a single file.
//
// DB is not safe for concurrent use. All methods except Backup, BackupAsync
// and Stats must be called by the owning goroutine. Changes only reach the
// disk on Push (or on calls documented to push).
type DB struct {
	path     string
	fs       afero.Fs
	store    storage
	logger   *slog.Logger
	verbose  bool
	compress bool
	closed   atomic.Bool

	data  collSet
	coll  string
	dirty bool

	lastSize     atomic.Int64
	lastChecksum atomic.Uint64
	PushCount    atomic.Uint64
	CompactCount atomic.Uint64
	BackupCount  atomic.Uint64

	backups singleflight.Group
}

type Options struct {
	// Collection is the collection made active on open, created if missing.
	// Defaults to DefaultCollection.
	Collection string

	Backend Backend

	// FS is the filesystem used by FileBackend and by JSON/YAML import and
	// export. Defaults to the OS filesystem. BoltBackend always uses the OS.
	FS afero.Fs

	// Compress wraps written snapshots into a zstd frame. Compressed
	// snapshots are detected on load regardless of this option.
	Compress bool

	// NoSync skips fsync after writes. Only sensible for tests.
	NoSync bool

	Logger  *slog.Logger
	Verbose bool
}

// Open loads the database stored at path, or starts an empty one if the file
// does not exist yet. Nothing is written until the first push.
func Open(path string, opt Options) (*DB, error) {
	if opt.Collection == "" {
		opt.Collection = DefaultCollection
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	if opt.FS == nil {
		opt.FS = afero.NewOsFs()
	}

	var store storage
	switch opt.Backend {
	case FileBackend:
		store = newFileStorage(opt.FS, path, opt.NoSync)
	case BoltBackend:
		bs, err := openBoltStorage(path, opt.NoSync)
		if err != nil {
			return nil, fmt.Errorf("filedb: %w", err)
		}
		store = bs
	default:
		return nil, fmt.Errorf("filedb: unknown backend %d", opt.Backend)
	}

	db := &DB{
		path:     path,
		fs:       opt.FS,
		store:    store,
		logger:   opt.Logger,
		verbose:  opt.Verbose,
		compress: opt.Compress,
		data:     newCollSet(),
		coll:     opt.Collection,
	}

	found, err := store.Load(func(raw []byte) error {
		db.recordWrite(raw)
		cs, err := decodeSnapshot(path, raw)
		if err != nil {
			return err
		}
		db.data = cs
		return nil
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("filedb: loading: %w", err)
	}
	if db.verbose {
		if found {
			db.logger.Info("db: LOAD", "path", path, "colls", len(db.data.names), "size", humanSize(db.lastSize.Load()))
		} else {
			db.logger.Info("db: LOAD.NEW", "path", path)
		}
	}

	if !db.data.has(db.coll) {
		db.data.put(db.coll, []*Doc{})
	}
	return db, nil
}

// Close releases the backend. It does not push pending changes.
func (db *DB) Close() error {
	if db.closed.Swap(true) {
		return nil
	}
	return db.store.Close()
}

// Path returns the backing file path.
func (db *DB) Path() string {
	return db.path
}

// Colls returns collection names in their stored order.
func (db *DB) Colls() []string {
	return slices.Clone(db.data.names)
}

// Len returns the number of collections.
func (db *DB) Len() int {
	return len(db.data.names)
}

// Coll returns the name of the active collection.
func (db *DB) Coll() string {
	return db.coll
}

// CollLen returns the number of records in the active collection.
func (db *DB) CollLen() int {
	return len(db.data.colls[db.coll])
}

// Records returns the records of the active collection. The slice and the
// records are live: mutating them mutates the database.
func (db *DB) Records() []*Doc {
	return db.data.colls[db.coll]
}

// All returns every collection keyed by name. Like Records, the returned
// records are live.
func (db *DB) All() map[string][]*Doc {
	m := make(map[string][]*Doc, len(db.data.names))
	for _, name := range db.data.names {
		m[name] = db.data.colls[name]
	}
	return m
}

// IsDirty reports whether a deletion happened since the last compaction.
func (db *DB) IsDirty() bool {
	return db.dirty
}

func (db *DB) records() []*Doc {
	return db.data.colls[db.coll]
}

func (db *DB) setRecords(recs []*Doc) {
	db.data.colls[db.coll] = recs
}

func (db *DB) markDeleted() {
	db.dirty = true
}

func (db *DB) diag(msg string, args ...any) {
	db.logger.Info("filedb: "+msg, append(args, "coll", db.coll)...)
}

func (db *DB) trace(msg string, args ...any) {
	if db.verbose {
		db.logger.Info("db: "+msg, append(args, "coll", db.coll)...)
	}
}
