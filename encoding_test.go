package filedb

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func sampleCollSet() collSet {
	cs := newCollSet()
	cs.put("people", []*Doc{
		NewDoc(IDField, 0, "name", "alice", "age", 30, "score", 1.25, "admin", true),
		NewDoc(IDField, 1, "name", "bob", "nested", map[string]any{"list": []any{1, "x", nil}}, "raw", []byte{0, 255}),
	})
	cs.put("empty", []*Doc{})
	cs.put("numbers", []*Doc{
		NewDoc(IDField, 0, "big", int64(math.MaxInt64), "neg", int64(math.MinInt64), "small", -1, "f", math.Inf(1)),
	})
	return cs
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		cs := sampleCollSet()
		data := must(encodeSnapshot(&cs, compress))
		got := must(decodeSnapshot("x.db", data))

		deepEqual(t, got.names, []string{"people", "empty", "numbers"})
		for _, name := range cs.names {
			deepEqual(t, got.colls[name], cs.colls[name])
			for i, rec := range cs.colls[name] {
				deepEqual(t, got.colls[name][i].Keys(), rec.Keys())
			}
		}
	}
}

func TestSnapshotPreservesKinds(t *testing.T) {
	cs := sampleCollSet()
	got := must(decodeSnapshot("x.db", must(encodeSnapshot(&cs, false))))

	rec := got.colls["people"][0]
	for key, kind := range map[string]Kind{IDField: KindInt, "name": KindString, "age": KindInt, "score": KindFloat, "admin": KindBool} {
		v, _ := rec.Get(key)
		if v.Kind() != kind {
			t.Errorf("%s decoded as %v, wanted %v", key, v.Kind(), kind)
		}
	}
	raw, _ := got.colls["people"][1].Get("raw")
	deepEqual(t, raw.Kind(), KindBytes)

	big, _ := got.colls["numbers"][0].Get("big")
	deepEqual(t, big, Int(math.MaxInt64))
	neg, _ := got.colls["numbers"][0].Get("neg")
	deepEqual(t, neg, Int(math.MinInt64))
}

func TestDecodeSnapshotEmpty(t *testing.T) {
	cs := must(decodeSnapshot("x.db", nil))
	isempty(t, cs.names)
}

func TestDecodeSnapshotCorrupted(t *testing.T) {
	cs := sampleCollSet()
	data := must(encodeSnapshot(&cs, false))

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{"truncated", data[:len(data)-3], "failed to decode"},
		{"trailing", append(append([]byte{}, data...), 0xc0), "trailing bytes"},
		{"not a map", []byte{0x91, 0x01}, "failed to decode msgpack snapshot"},
		{"record not a map", []byte{0x81, 0xa1, 'x', 0x91, 0x05}, "not a map"},
		{"bad zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00, 0x01}, "decompress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeSnapshot("x.db", tt.data)
			var de *DataError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, wanted DataError", err)
			}
			if !strings.Contains(err.Error(), tt.msg) || !strings.HasPrefix(err.Error(), "x.db: ") {
				t.Fatalf("err = %q, wanted x.db: ... %s", err, tt.msg)
			}
		})
	}
}

func TestDocMsgpack(t *testing.T) {
	d := NewDoc("b", 1, "a", []any{"x", 2.5})
	data := must(msgpack.Marshal(d))

	var out Doc
	ensure(msgpack.Unmarshal(data, &out))
	deepEqual(t, &out, d)
	deepEqual(t, out.Keys(), []string{"b", "a"})

	var v Value
	ensure(msgpack.Unmarshal(data, &v))
	deepEqual(t, v, Map(d))

	if err := msgpack.Unmarshal(must(msgpack.Marshal(Int(5))), &out); err == nil {
		t.Fatalf("decoding an int into Doc succeeded, wanted error")
	}
}
