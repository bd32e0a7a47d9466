package filedb

import "slices"

// Edit sets key to v on the record with the given identity. A missing record
// is logged and reported as false. Editing IDField fails with
// ErrIdentityField.
func (db *DB) Edit(key string, v Value, id int64) (bool, error) {
	if key == IDField {
		return false, ErrIdentityField
	}
	i := indexOfID(db.records(), id)
	if i < 0 {
		db.diag("no entry found", "id", id)
		return false, nil
	}
	db.records()[i].Set(key, v)
	db.trace("EDIT", "id", id, "key", key)
	return true, nil
}

// EditMany sets key to v on every record whose identity is in ids, and
// returns how many were edited. Identities without a record are logged and
// skipped.
func (db *DB) EditMany(key string, v Value, ids []int64) (int, error) {
	if key == IDField {
		return 0, ErrIdentityField
	}
	var n int
	found := make(map[int64]bool, len(ids))
	for _, rec := range db.records() {
		if id, ok := rec.ID(); ok && slices.Contains(ids, id) {
			rec.Set(key, v)
			found[id] = true
			n++
		}
	}
	for _, id := range ids {
		if !found[id] {
			db.diag("no entry found", "id", id)
		}
	}
	db.trace("EDIT.MANY", "key", key, "edited", n, "requested", len(ids))
	return n, nil
}

// EditAll sets key to v on every record of the active collection.
func (db *DB) EditAll(key string, v Value) (int, error) {
	if key == IDField {
		return 0, ErrIdentityField
	}
	recs := db.records()
	for _, rec := range recs {
		rec.Set(key, v)
	}
	db.trace("EDIT.ALL", "key", key, "edited", len(recs))
	return len(recs), nil
}
