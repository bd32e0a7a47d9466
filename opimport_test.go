package filedb

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

func TestToJSON(t *testing.T) {
	db, fs := setup(t)
	seed(t, db, NewDoc("name", "a", "n", 1.5), NewDoc("name", "<b>", "tags", []any{"x"}, "none", nil))

	ensure(db.ToJSON(DefaultCollection, ""))
	got := string(must(afero.ReadFile(fs, "default.json")))
	want := `[
  {
    "#": 0,
    "name": "a",
    "n": 1.5
  },
  {
    "#": 1,
    "name": "<b>",
    "tags": [
      "x"
    ],
    "none": null
  }
]
`
	deepEqual(t, got, want)
}

func TestToJSONUnescapedAndEmpty(t *testing.T) {
	db, fs := setup(t)
	ensure(db.ToJSON(DefaultCollection, "empty.json"))
	deepEqual(t, string(must(afero.ReadFile(fs, "empty.json"))), "[]\n")

	seed(t, db, NewDoc("html", "a < b && c > d", "list", []any{}, "map", map[string]any{}))
	ensure(db.ToJSON(DefaultCollection, ""))
	got := string(must(afero.ReadFile(fs, "default.json")))
	want := `[
  {
    "#": 0,
    "html": "a < b && c > d",
    "list": [],
    "map": {}
  }
]
`
	deepEqual(t, got, want)
}

func TestToJSONWholeDB(t *testing.T) {
	db, fs := setup(t)
	seed(t, db, NewDoc("a", 1))
	ensure(db.UseColl("second"))
	seed(t, db, NewDoc("b", 2))

	ensure(db.ToJSON("", ""))
	got := string(must(afero.ReadFile(fs, "db.json")))
	want := `{
  "default": [
    {
      "#": 0,
      "a": 1
    }
  ],
  "second": [
    {
      "#": 0,
      "b": 2
    }
  ]
}
`
	deepEqual(t, got, want)

	ensure(db.ToJSON("second", "custom.json"))
	exists := must(afero.Exists(fs, "custom.json"))
	deepEqual(t, exists, true)
}

func TestToYAML(t *testing.T) {
	db, fs := setup(t)
	seed(t, db, NewDoc("name", "a", "num", 2.0, "s", "true", "bin", []byte("hi")), NewDoc("name", "b", "list", []any{1, nil}))

	ensure(db.ToYAML(DefaultCollection, ""))
	got := string(must(afero.ReadFile(fs, "default.yaml")))
	want := `- '#': 0
  name: a
  num: 2.0
  s: "true"
  bin: !!binary aGk=
- '#': 1
  name: b
  list:
    - 1
    - null
`
	deepEqual(t, got, want)
}

func TestExportUnknownCollection(t *testing.T) {
	db, _ := setup(t)
	for _, err := range []error{db.ToJSON("nope", ""), db.ToYAML("nope", "")} {
		if !errors.Is(err, ErrCollectionNotFound) {
			t.Errorf("export err = %v, wanted ErrCollectionNotFound", err)
		}
	}
}

func TestAddJSON(t *testing.T) {
	db, fs := setup(t)
	seed(t, db, NewDoc("name", "existing"))

	ensure(afero.WriteFile(fs, "in.json", []byte(`[
		// comments are fine
		{"#": 42, "name": "a", "n": 1, "f": 1.5, "big": 12345678901234567890},
		{"name": "b", "nested": {"z": 1, "a": [true, null]}},
	]`), 0o644))

	n := must(db.AddJSON("in.json"))
	deepEqual(t, n, 2)
	deepEqual(t, names(db.Records()), []string{"existing", "a", "b"})
	// imported batch is numbered from 0
	deepEqual(t, ids(db.Records()), []int64{0, 0, 1})

	a := db.Records()[1]
	deepEqual(t, a.Keys(), []string{IDField, "name", "n", "f", "big"})
	nv, _ := a.Get("n")
	deepEqual(t, nv.Kind(), KindInt)
	fv, _ := a.Get("f")
	deepEqual(t, fv.Kind(), KindFloat)
	bv, _ := a.Get("big")
	deepEqual(t, bv.Kind(), KindFloat)

	nested, _ := db.Records()[2].Get("nested")
	nd, _ := nested.AsMap()
	deepEqual(t, nd.Keys(), []string{"z", "a"})
}

func TestAddYAML(t *testing.T) {
	db, fs := setup(t)
	ensure(afero.WriteFile(fs, "in.yaml", []byte(`
- name: a
  "#": 7
  n: 1
  f: 2.5
  ok: yes
  when: 2001-12-14
- &b
  name: b
  tags: [x, y]
- *b
`), 0o644))

	n := must(db.AddYAML("in.yaml"))
	deepEqual(t, n, 3)
	deepEqual(t, ids(db.Records()), []int64{0, 1, 2})
	deepEqual(t, names(db.Records()), []string{"a", "b", "b"})

	a := db.Records()[0]
	deepEqual(t, a.Keys(), []string{IDField, "name", "n", "f", "ok", "when"})
	deepEqual(t, first(a.Get("n")), Int(1))
	deepEqual(t, first(a.Get("f")), Float(2.5))
	deepEqual(t, first(a.Get("ok")), Str("yes"))
	deepEqual(t, first(a.Get("when")).Kind(), KindString)
	deepEqual(t, first(db.Records()[1].Get("tags")), List(Str("x"), Str("y")))
}

func TestAddYAMLAliasBombs(t *testing.T) {
	db, fs := setup(t)

	var chain strings.Builder
	chain.WriteString("- a0: &a0 [x, x]\n")
	for i := 1; i < 40; i++ {
		fmt.Fprintf(&chain, "- a%d: &a%d [*a%d, *a%d]\n", i, i, i-1, i-1)
	}
	ensure(afero.WriteFile(fs, "chain.yaml", []byte(chain.String()), 0o644))
	ensure(afero.WriteFile(fs, "self.yaml", []byte("- &a\n  x: [*a]\n"), 0o644))

	_, err := db.AddYAML("chain.yaml")
	var de *DataError
	if !errors.As(err, &de) || !errors.Is(err, errYAMLAliasing) {
		t.Errorf("AddYAML(chain) err = %v, wanted excessive aliasing", err)
	}
	_, err = db.AddYAML("self.yaml")
	if !errors.As(err, &de) {
		t.Errorf("AddYAML(self) err = %v, wanted DataError", err)
	}
	deepEqual(t, db.CollLen(), 0)
}

func TestImportRejectsBadShapes(t *testing.T) {
	db, fs := setup(t)
	seed(t, db, NewDoc("name", "a"))

	files := map[string]string{
		"obj.json":   `{"a": 1}`,
		"mixed.json": `[{"a": 1}, 2]`,
		"obj.yaml":   `a: 1`,
		"mixed.yaml": "- a: 1\n- [1, 2]\n",
	}
	for fn, content := range files {
		ensure(afero.WriteFile(fs, fn, []byte(content), 0o644))
	}

	tests := []struct {
		fn  string
		err error
		pos int
	}{
		{"obj.json", ErrNotList, -1},
		{"mixed.json", ErrNotObject, 1},
		{"obj.yaml", ErrNotList, -1},
		{"mixed.yaml", ErrNotObject, 1},
	}
	for _, tt := range tests {
		var err error
		if strings.HasSuffix(tt.fn, ".json") {
			_, err = db.AddJSON(tt.fn)
		} else {
			_, err = db.AddYAML(tt.fn)
		}
		var te *TypeError
		if !errors.As(err, &te) || !errors.Is(err, tt.err) || te.Pos != tt.pos || te.Path != tt.fn {
			t.Errorf("import %s err = %v, wanted TypeError(%v) at %d", tt.fn, err, tt.err, tt.pos)
		}
	}
	deepEqual(t, db.CollLen(), 1)
}

func TestImportBrokenFiles(t *testing.T) {
	db, fs := setup(t)
	ensure(afero.WriteFile(fs, "bad.json", []byte(`[{"a": }]`), 0o644))
	ensure(afero.WriteFile(fs, "bad.yaml", []byte("- a: [1, 2\n"), 0o644))

	_, err := db.AddJSON("bad.json")
	var de *DataError
	if !errors.As(err, &de) || de.Path != "bad.json" {
		t.Errorf("AddJSON(bad) err = %v, wanted DataError", err)
	}
	_, err = db.AddYAML("bad.yaml")
	if !errors.As(err, &de) || de.Path != "bad.yaml" {
		t.Errorf("AddYAML(bad) err = %v, wanted DataError", err)
	}
	_, err = db.AddJSON("missing.json")
	if err == nil {
		t.Errorf("AddJSON(missing) succeeded, wanted error")
	}
	deepEqual(t, db.CollLen(), 0)
}

func TestExportImportRoundTrip(t *testing.T) {
	db, _ := setup(t)
	seed(t, db,
		NewDoc("name", "a", "n", 1, "f", 2.5, "b", false, "raw", []byte{1, 2, 3}, "nested", map[string]any{"k": []any{"v", nil}}),
		NewDoc("name", "b", "s", "123"),
	)
	orig := cloneDocs(db.Records())

	ensure(db.ToJSON(DefaultCollection, "x.json"))
	ensure(db.ToYAML(DefaultCollection, "x.yaml"))

	ensure(db.UseColl("fromyaml"))
	must(db.AddYAML("x.yaml"))
	deepEqual(t, db.Records(), orig)

	ensure(db.UseColl("fromjson"))
	must(db.AddJSON("x.json"))
	// JSON has no binary type
	raw, _ := db.Records()[0].Get("raw")
	deepEqual(t, raw, Str("AQID"))
	db.Records()[0].Set("raw", Bin([]byte{1, 2, 3}))
	deepEqual(t, db.Records(), orig)
}

func TestDocJSONAndYAMLMarshalers(t *testing.T) {
	d := NewDoc("z", 1, "a", []any{"x", 1.5}, "m", map[string]any{"q": nil})

	js := string(must(json.Marshal(d)))
	deepEqual(t, js, `{"z":1,"a":["x",1.5],"m":{"q":null}}`)
	var dj Doc
	ensure(json.Unmarshal([]byte(js), &dj))
	deepEqual(t, &dj, d)
	deepEqual(t, dj.Keys(), []string{"z", "a", "m"})

	ys := must(yaml.Marshal(d))
	var dy Doc
	ensure(yaml.Unmarshal(ys, &dy))
	deepEqual(t, &dy, d)
	deepEqual(t, dy.Keys(), []string{"z", "a", "m"})

	var v Value
	ensure(json.Unmarshal([]byte(`[1, "a"]`), &v))
	deepEqual(t, v, List(Int(1), Str("a")))
}
