package filedb

import "slices"

// DelItem removes the record with the given identity from the active
// collection. A missing record is logged and reported as false.
func (db *DB) DelItem(id int64) bool {
	i := indexOfID(db.records(), id)
	if i < 0 {
		db.diag("no entry found", "id", id)
		return false
	}
	db.setRecords(slices.Delete(db.records(), i, i+1))
	db.markDeleted()
	db.trace("DELETE", "id", id)
	return true
}

// DelItems removes the records with the given identities and returns how
// many were removed. Every missing identity is logged.
func (db *DB) DelItems(ids []int64) int {
	var n int
	for _, id := range ids {
		i := indexOfID(db.records(), id)
		if i < 0 {
			db.diag("no entry found", "id", id)
			continue
		}
		db.setRecords(slices.Delete(db.records(), i, i+1))
		db.markDeleted()
		db.trace("DELETE", "id", id)
		n++
	}
	return n
}

// DelKey removes field key from the record with the given identity. Reports
// false if there is no such record or it has no such field.
func (db *DB) DelKey(key string, id int64) (bool, error) {
	n, err := db.DelKeys([]string{key}, id)
	return n > 0, err
}

// DelKeys removes the given fields from the record with the given identity,
// returning the number of fields removed.
func (db *DB) DelKeys(keys []string, id int64) (int, error) {
	if slices.Contains(keys, IDField) {
		return 0, ErrIdentityField
	}
	i := indexOfID(db.records(), id)
	if i < 0 {
		db.diag("no entry found", "id", id)
		return 0, nil
	}
	rec := db.records()[i]
	var n int
	for _, key := range keys {
		if rec.Delete(key) {
			n++
		} else {
			db.diag("no such key in entry", "id", id, "key", key)
		}
	}
	if n > 0 {
		db.markDeleted()
		db.trace("DELETE.KEYS", "id", id, "keys", keys)
	}
	return n, nil
}

// DelKeyForAll removes field key from every record of the active collection,
// returning the number of records that had it.
func (db *DB) DelKeyForAll(key string) (int, error) {
	return db.DelKeysForAll([]string{key})
}

// DelKeysForAll removes the given fields from every record of the active
// collection, returning the total number of fields removed.
func (db *DB) DelKeysForAll(keys []string) (int, error) {
	if slices.Contains(keys, IDField) {
		return 0, ErrIdentityField
	}
	var n int
	for _, key := range keys {
		for _, rec := range db.records() {
			if rec.Delete(key) {
				n++
			}
		}
	}
	if n > 0 {
		db.markDeleted()
	}
	db.trace("DELETE.KEYS.ALL", "keys", keys, "removed", n)
	return n, nil
}
