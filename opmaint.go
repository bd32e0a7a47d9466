package filedb

// Reindex renumbers the active collection 0..n-1 in its current order, then
// pushes and compacts regardless of the dirty flag.
func (db *DB) Reindex() error {
	for i, rec := range db.records() {
		rec.setID(int64(i))
	}
	db.trace("REINDEX", "count", db.CollLen())
	if err := db.Push(); err != nil {
		return err
	}
	return db.Compact()
}
