package filedb

// Add appends rec to the active collection under the next free identity and
// returns that identity. rec is copied; a "#" field in rec is ignored.
//
// The identity is one more than the largest identity in the collection, or 0
// if the collection has none, so identities freed by deletions are not reused
// until Reindex.
func (db *DB) Add(rec *Doc) (int64, error) {
	if rec == nil {
		return 0, typeErrf("add", KindNull, ErrNotObject)
	}
	id := nextID(db.records())
	db.setRecords(append(db.records(), rec.withID(id)))
	db.trace("ADD", "id", id)
	return id, nil
}

// AddValue is like Add, but accepts anything ValueOf understands, and fails
// with a TypeError unless it converts to a map.
func (db *DB) AddValue(x any) (int64, error) {
	v, err := ValueOf(x)
	if err != nil {
		return 0, err
	}
	rec, ok := v.AsMap()
	if !ok {
		return 0, typeErrf("add", v.Kind(), ErrNotObject)
	}
	return db.Add(rec)
}

func nextID(recs []*Doc) int64 {
	var maxID int64 = -1
	for _, rec := range recs {
		if id, ok := rec.ID(); ok && id > maxID {
			maxID = id
		}
	}
	return maxID + 1
}
