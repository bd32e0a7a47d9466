package filedb

// AddColl creates an empty collection and makes it active. The current state
// is pushed first. If the collection already exists, nothing happens (and
// nothing is pushed).
func (db *DB) AddColl(name string) error {
	if db.data.has(name) {
		db.diag("collection already exists", "name", name)
		return nil
	}
	if err := db.Push(); err != nil {
		return err
	}
	db.data.put(name, []*Doc{})
	db.coll = name
	db.trace("COLL.ADD", "name", name)
	return nil
}

// UseColl pushes the current state, then makes the named collection active,
// creating it if it doesn't exist.
func (db *DB) UseColl(name string) error {
	if err := db.Push(); err != nil {
		return err
	}
	if db.data.has(name) {
		db.coll = name
		db.diag("switched to collection")
	} else {
		db.data.put(name, []*Doc{})
		db.coll = name
		db.diag("created and switched to collection")
	}
	return nil
}

// DelColl removes the named collection. Refuses (logging why and returning
// false) to delete the active collection or the last remaining one.
func (db *DB) DelColl(name string) bool {
	if len(db.data.names) == 1 {
		db.diag("cannot delete the last collection", "name", name)
		return false
	}
	if name == db.coll {
		db.diag("cannot delete the collection while using it", "name", name)
		return false
	}
	if !db.data.remove(name) {
		db.diag("no such collection", "name", name)
		return false
	}
	db.markDeleted()
	db.trace("COLL.DELETE", "name", name)
	return true
}

// SetColl replaces the contents of the active collection with records as is.
// The caller is responsible for their identities.
func (db *DB) SetColl(records []*Doc) error {
	for i, rec := range records {
		if rec == nil {
			return &TypeError{Op: "set collection", Got: KindNull, Err: ErrNotObject, Pos: i}
		}
	}
	if records == nil {
		records = []*Doc{}
	}
	db.setRecords(records)
	db.diag("collection overwritten", "count", len(records))
	return nil
}

// SetCollValue is like SetColl, but takes a list value of maps and fails with
// a TypeError on anything else.
func (db *DB) SetCollValue(v Value) error {
	recs, err := docsFromList("set collection", v)
	if err != nil {
		return err
	}
	return db.SetColl(recs)
}

func docsFromList(op string, v Value) ([]*Doc, error) {
	items, ok := v.AsList()
	if !ok {
		return nil, typeErrf(op, v.Kind(), ErrNotList)
	}
	recs := make([]*Doc, len(items))
	for i, item := range items {
		rec, ok := item.AsMap()
		if !ok {
			return nil, &TypeError{Op: op, Got: item.Kind(), Err: ErrNotObject, Pos: i}
		}
		recs[i] = rec
	}
	return recs, nil
}
