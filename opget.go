package filedb

// Get returns the record of the active collection with the given identity.
// A miss is logged and reported by ok == false.
func (db *DB) Get(id int64) (rec *Doc, ok bool) {
	if i := indexOfID(db.records(), id); i >= 0 {
		return db.records()[i], true
	}
	db.diag("no entry found", "id", id)
	return nil, false
}

// Exists reports whether a record with the given identity exists, without
// logging misses.
func (db *DB) Exists(id int64) bool {
	return indexOfID(db.records(), id) >= 0
}

// Find returns the records of the active collection whose key equals v.
func (db *DB) Find(key string, v Value) []*Doc {
	var result []*Doc
	for _, rec := range db.records() {
		if actual, ok := rec.Get(key); ok && actual.Equal(v) {
			result = append(result, rec)
		}
	}
	return result
}

// Filter returns the records matching every keys[i] == vals[i] pair. Keys and
// values of different lengths match nothing.
func (db *DB) Filter(keys []string, vals []Value) []*Doc {
	if len(keys) != len(vals) {
		return nil
	}
	var result []*Doc
	for _, rec := range db.records() {
		if matchesAll(rec, keys, vals) {
			result = append(result, rec)
		}
	}
	return result
}

func matchesAll(rec *Doc, keys []string, vals []Value) bool {
	for i, key := range keys {
		actual, ok := rec.Get(key)
		if !ok || !actual.Equal(vals[i]) {
			return false
		}
	}
	return true
}

func indexOfID(recs []*Doc, id int64) int {
	for i, rec := range recs {
		if rec.hasID(id) {
			return i
		}
	}
	return -1
}
