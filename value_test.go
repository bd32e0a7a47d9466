package filedb

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestValueOf(t *testing.T) {
	tests := []struct {
		in   any
		kind Kind
		str  string
	}{
		{nil, KindNull, "null"},
		{true, KindBool, "true"},
		{42, KindInt, "42"},
		{int8(-3), KindInt, "-3"},
		{uint16(7), KindInt, "7"},
		{uint64(math.MaxUint64), KindFloat, "1.8446744073709552e+19"},
		{1.5, KindFloat, "1.5"},
		{float32(0.5), KindFloat, "0.5"},
		{"hi", KindString, `"hi"`},
		{[]byte{1, 2}, KindBytes, "b64:AQI="},
		{[]int{1, 2}, KindList, "[1, 2]"},
		{[]any{"a", nil}, KindList, `["a", null]`},
		{map[string]int{"b": 2, "a": 1}, KindMap, `{"a": 1, "b": 2}`},
		{json.Number("12"), KindInt, "12"},
		{json.Number("1.25"), KindFloat, "1.25"},
		{time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), KindString, `"2024-01-02T03:04:05Z"`},
		{NewDoc("x", 1), KindMap, `{"x": 1}`},
		{(*Doc)(nil), KindNull, "null"},
		{Str("v"), KindString, `"v"`},
	}
	for _, tt := range tests {
		v, err := ValueOf(tt.in)
		if err != nil {
			t.Errorf("ValueOf(%#v) failed: %v", tt.in, err)
			continue
		}
		if v.Kind() != tt.kind || v.String() != tt.str {
			t.Errorf("ValueOf(%#v) = %v %s, wanted %v %s", tt.in, v.Kind(), v, tt.kind, tt.str)
		}
	}

	if _, err := ValueOf(make(chan int)); err == nil {
		t.Errorf("ValueOf(chan) succeeded, wanted error")
	}
	if _, err := ValueOf(map[int]string{1: "x"}); err == nil {
		t.Errorf("ValueOf(map[int]string) succeeded, wanted error")
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		a, b Value
		eq   bool
	}{
		{Int(1), Float(1), true},
		{Int(1), Int(2), false},
		{Int(1), Str("1"), false},
		{Null(), Null(), true},
		{Null(), Bool(false), false},
		{Bin([]byte{1}), Bin([]byte{1}), true},
		{Bin(nil), Bin([]byte{}), true},
		{List(Int(1), Str("a")), List(Float(1), Str("a")), true},
		{List(Int(1)), List(Int(1), Int(2)), false},
		{Map(NewDoc("a", 1, "b", 2)), Map(NewDoc("b", 2, "a", 1)), true},
		{Map(NewDoc("a", 1)), Map(NewDoc("a", 1, "b", 2)), false},
		{Map(NewDoc("a", []any{1})), Map(NewDoc("a", []any{2})), false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.eq {
			t.Errorf("%v.Equal(%v) = %v, wanted %v", tt.a, tt.b, got, tt.eq)
		}
		if got := tt.b.Equal(tt.a); got != tt.eq {
			t.Errorf("%v.Equal(%v) = %v, wanted %v", tt.b, tt.a, got, tt.eq)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if f, ok := Int(3).AsFloat(); !ok || f != 3 {
		t.Errorf("Int(3).AsFloat() = %v, %v", f, ok)
	}
	if _, ok := Str("3").AsInt(); ok {
		t.Errorf("Str.AsInt() ok = true, wanted false")
	}
	if !Int(1).IsNumber() || !Float(1).IsNumber() || Str("1").IsNumber() {
		t.Errorf("IsNumber misbehaves")
	}
	if id, ok := Float(4).asIdentity(); !ok || id != 4 {
		t.Errorf("Float(4).asIdentity() = %v, %v", id, ok)
	}
	if _, ok := Float(4.5).asIdentity(); ok {
		t.Errorf("Float(4.5).asIdentity() ok = true, wanted false")
	}
	deepEqual(t, Map(NewDoc("a", []any{1, "x"})).Any(), any(map[string]any{"a": []any{int64(1), "x"}}))
}

func TestValueClone(t *testing.T) {
	orig := Map(NewDoc("list", []any{map[string]any{"x": 1}}, "bin", []byte{1}))
	cp := orig.Clone()

	d, _ := orig.AsMap()
	items, _ := first(d.Get("list")).AsList()
	inner, _ := items[0].AsMap()
	inner.Set("x", Int(2))
	bin, _ := first(d.Get("bin")).AsBin()
	bin[0] = 9

	deepEqual(t, cp, MustValueOf(map[string]any{"list": []any{map[string]any{"x": 1}}, "bin": []byte{1}}))
}

func TestDoc(t *testing.T) {
	d := NewDoc("b", 1, "a", 2)
	deepEqual(t, d.Keys(), []string{"b", "a"})

	d.Set("b", Str("x")).Set("c", Null())
	deepEqual(t, d.Keys(), []string{"b", "a", "c"})
	deepEqual(t, d.String(), `{"b": "x", "a": 2, "c": null}`)

	deepEqual(t, d.Delete("a"), true)
	deepEqual(t, d.Delete("a"), false)
	deepEqual(t, d.Has("a"), false)
	deepEqual(t, d.Len(), 2)

	var keys []string
	for k := range d.All() {
		keys = append(keys, k)
	}
	deepEqual(t, keys, []string{"b", "c"})

	var nilDoc *Doc
	deepEqual(t, nilDoc.Len(), 0)
	deepEqual(t, nilDoc.Has("x"), false)
	isempty(t, nilDoc.Keys())
}

func TestDocIdentity(t *testing.T) {
	d := NewDoc("a", 1)
	if _, ok := d.ID(); ok {
		t.Fatalf("ID() ok = true on a doc without identity")
	}
	d.setID(5)
	deepEqual(t, d.Keys(), []string{IDField, "a"})
	d.setID(6)
	id, _ := d.ID()
	deepEqual(t, id, int64(6))

	r := NewDoc("a", 1, IDField, 9, "b", 2).withID(3)
	deepEqual(t, r.Keys(), []string{IDField, "a", "b"})
	id, _ = r.ID()
	deepEqual(t, id, int64(3))

	d.Set(IDField, Str("x"))
	if _, ok := d.ID(); ok {
		t.Fatalf("ID() ok = true on a string identity")
	}
}

func TestNewDocPanics(t *testing.T) {
	for _, args := range [][]any{{"a"}, {1, 2}, {"a", make(chan int)}} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("NewDoc(%v) did not panic", args)
				}
			}()
			NewDoc(args...)
		}()
	}
}

type person struct {
	ID      int64     `msgpack:"#"`
	Name    string    `json:"name"`
	Email   string    `msgpack:"email,omitempty"`
	Skipped string    `msgpack:"-"`
	Tags    []string  `json:"tags"`
	Born    time.Time `json:"born"`
	secret  string
}

func TestStructs(t *testing.T) {
	p := &person{ID: 7, Name: "Alice", Tags: []string{"x"}, Skipped: "no", secret: "s", Born: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)}
	v := MustValueOf(p)
	d, ok := v.AsMap()
	if !ok {
		t.Fatalf("ValueOf(struct) = %v, wanted a map", v.Kind())
	}
	deepEqual(t, d.Keys(), []string{IDField, "name", "tags", "born"})
	name, _ := d.Get("name")
	deepEqual(t, name, Str("Alice"))
	born, _ := d.Get("born")
	deepEqual(t, born, Str("2000-01-01T00:00:00Z"))

	var out person
	ensure(NewDoc(IDField, 3, "name", "Bob", "email", "b@example.com", "tags", []any{"y"}, "extra", 1).Decode(&out))
	deepEqual(t, out.ID, int64(3))
	deepEqual(t, out.Name, "Bob")
	deepEqual(t, out.Email, "b@example.com")
	deepEqual(t, out.Tags, []string{"y"})

	if err := NewDoc().Decode(out); err == nil {
		t.Fatalf("Decode(non-pointer) succeeded, wanted error")
	}
}

func first[T any](v T, _ bool) T {
	return v
}
