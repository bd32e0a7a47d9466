package filedb

import (
	"github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
)

type CollStats struct {
	Name    string
	Records int
}

type Stats struct {
	Colls  []CollStats
	Active string
	Dirty  bool

	// LastSize is the size of the snapshot last loaded or written, and
	// LastChecksum its xxhash64.
	LastSize     int64
	LastChecksum uint64

	Pushes   uint64
	Compacts uint64
	Backups  uint64
}

func (s *Stats) TotalRecords() int {
	var n int
	for _, cs := range s.Colls {
		n += cs.Records
	}
	return n
}

// Stats returns a summary of in-memory and on-disk state. Counters and sizes
// are safe to read from any goroutine; collection counts are not.
func (db *DB) Stats() Stats {
	s := Stats{
		Colls:        make([]CollStats, 0, len(db.data.names)),
		Active:       db.coll,
		Dirty:        db.dirty,
		LastSize:     db.lastSize.Load(),
		LastChecksum: db.lastChecksum.Load(),
		Pushes:       db.PushCount.Load(),
		Compacts:     db.CompactCount.Load(),
		Backups:      db.BackupCount.Load(),
	}
	for _, name := range db.data.names {
		s.Colls = append(s.Colls, CollStats{name, len(db.data.colls[name])})
	}
	return s
}

func (db *DB) recordWrite(data []byte) {
	db.lastSize.Store(int64(len(data)))
	db.lastChecksum.Store(checksum(data))
}

func checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

func humanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.Bytes(uint64(n))
}
