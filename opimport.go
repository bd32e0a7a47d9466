package filedb

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
)

// AddJSON appends the records of a JSON file to the active collection and
// returns how many were added. The file must hold a list of objects; comments
// and trailing commas are allowed.
//
// Identities found in the file are dropped and the imported records are
// numbered from 0 in file order, regardless of what the collection already
// holds. Call Reindex afterwards if identities must stay unique.
func (db *DB) AddJSON(path string) (int, error) {
	return db.importFile("import JSON", path, decodeJSON)
}

// AddYAML is like AddJSON, but for a YAML file.
func (db *DB) AddYAML(path string) (int, error) {
	return db.importFile("import YAML", path, decodeYAML)
}

func (db *DB) importFile(op, path string, decode func([]byte) (Value, error)) (int, error) {
	raw, err := afero.ReadFile(db.fs, path)
	if err != nil {
		return 0, fmt.Errorf("filedb: %s: %w", op, err)
	}
	v, err := decode(raw)
	if err != nil {
		return 0, dataErrf(path, raw, err, "cannot %s", op)
	}
	recs, err := docsFromList(op, v)
	if err != nil {
		var te *TypeError
		if errors.As(err, &te) {
			te.Path = path
		}
		return 0, err
	}

	batch := make([]*Doc, len(recs))
	for i, rec := range recs {
		batch[i] = rec.withID(int64(i))
	}
	db.setRecords(append(db.records(), batch...))
	db.trace("IMPORT", "path", path, "count", len(batch))
	return len(batch), nil
}
