package filedb

import (
	"fmt"

	"github.com/spf13/afero"
)

const wholeDBExportName = "db"

// ToJSON writes a collection as a JSON array, pretty-printed with two-space
// indentation. With an empty coll, the whole database is written as an
// object of collections. The file defaults to <coll>.json (db.json for the
// whole database).
func (db *DB) ToJSON(coll, path string) error {
	return db.export("json", coll, path, encodeJSONColl, encodeJSONCollSet)
}

// ToYAML is like ToJSON, but writes YAML into <coll>.yaml by default.
func (db *DB) ToYAML(coll, path string) error {
	return db.export("yaml", coll, path, encodeYAMLColl, encodeYAMLCollSet)
}

func (db *DB) export(ext, coll, path string, encColl func([]*Doc) ([]byte, error), encAll func(*collSet) ([]byte, error)) error {
	var data []byte
	var err error
	if coll == "" {
		coll = wholeDBExportName
		data, err = encAll(&db.data)
	} else {
		recs, found := db.data.colls[coll]
		if !found {
			return fmt.Errorf("filedb: export %s: %w", coll, ErrCollectionNotFound)
		}
		data, err = encColl(recs)
	}
	if err != nil {
		return fmt.Errorf("filedb: export %s: %w", coll, err)
	}

	if path == "" {
		path = coll + "." + ext
	}
	if err := afero.WriteFile(db.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("filedb: export %s: %w", coll, err)
	}
	db.trace("EXPORT", "src", coll, "path", path, "size", humanSize(int64(len(data))))
	return nil
}
