package filedb

import (
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpCollHeaders = DumpFlags(1 << iota)
	DumpRecords
	DumpStats

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the in-memory state for debugging and tests.
func (db *DB) Dump(f DumpFlags) string {
	var buf strings.Builder
	if f.Contains(DumpStats) {
		s := db.Stats()
		fmt.Fprintf(&buf, "stats: colls = %d, records = %d, active = %s, dirty = %v, last_size = %d, pushes = %d, compacts = %d\n",
			len(s.Colls), s.TotalRecords(), s.Active, s.Dirty, s.LastSize, s.Pushes, s.Compacts)
	}
	for _, name := range db.data.names {
		db.dumpColl(&buf, f, name)
	}
	return buf.String()
}

func (db *DB) dumpColl(w *strings.Builder, f DumpFlags, name string) {
	recs := db.data.colls[name]
	if f.Contains(DumpCollHeaders) {
		fmt.Fprintln(w, dumpSep1)
		var active string
		if name == db.coll {
			active = " ACTIVE"
		}
		fmt.Fprintf(w, "%s (%d records)%s\n", name, len(recs), active)
	}
	if f.Contains(DumpRecords) {
		if f.Contains(DumpCollHeaders) && len(recs) > 0 {
			fmt.Fprintln(w, dumpSep2)
		}
		for i, rec := range recs {
			fmt.Fprintf(w, "%s.%d = %s\n", name, i, rec)
		}
	}
}
