package filedb

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindMap
	KindList
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindMap:    "map",
	KindList:   "list",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a schema-less field value: null, bool, int64, float64, string,
// bytes, a nested map (*Doc) or a list of values. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	bin  []byte
	doc  *Doc
	list []Value
}

func Null() Value               { return Value{} }
func Bool(b bool) Value         { return Value{kind: KindBool, b: b} }
func Int(i int64) Value         { return Value{kind: KindInt, i: i} }
func Float(f float64) Value     { return Value{kind: KindFloat, f: f} }
func Str(s string) Value        { return Value{kind: KindString, s: s} }
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Bin returns a bytes value. A nil slice is stored as an empty one so that
// it survives encoding as bytes rather than null.
func Bin(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{kind: KindBytes, bin: b}
}

// Map returns a nested map value. A nil doc is stored as an empty map.
func Map(d *Doc) Value {
	if d == nil {
		d = NewDoc()
	}
	return Value{kind: KindMap, doc: d}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsMap() bool    { return v.kind == KindMap }
func (v Value) IsList() bool   { return v.kind == KindList }
func (v Value) IsNumber() bool { return v.kind == KindInt || v.kind == KindFloat }

func (v Value) AsBool() (bool, bool)    { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)    { return v.i, v.kind == KindInt }
func (v Value) AsStr() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsBin() ([]byte, bool)   { return v.bin, v.kind == KindBytes }
func (v Value) AsMap() (*Doc, bool)     { return v.doc, v.kind == KindMap }
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == KindList }

// AsFloat returns the numeric value of an int or float.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	default:
		return 0, false
	}
}

// asIdentity accepts ints and integral floats; the latter show up in files
// written by encoders that only have a double type.
func (v Value) asIdentity() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && math.Abs(v.f) < 1<<53 {
			return int64(v.f), true
		}
	}
	return 0, false
}

// Equal reports deep equality. Ints and floats compare numerically, maps
// compare regardless of field order, lists compare element-wise.
func (v Value) Equal(o Value) bool {
	if v.IsNumber() && o.IsNumber() {
		if v.kind == KindInt && o.kind == KindInt {
			return v.i == o.i
		}
		a, _ := v.AsFloat()
		b, _ := o.AsFloat()
		return a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindBytes:
		return bytes.Equal(v.bin, o.bin)
	case KindMap:
		return v.doc.Equal(o.doc)
	case KindList:
		return slices.EqualFunc(v.list, o.list, Value.Equal)
	default:
		panic("unreachable")
	}
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	switch v.kind {
	case KindBytes:
		return Bin(slices.Clone(v.bin))
	case KindMap:
		return Map(v.doc.Clone())
	case KindList:
		items := make([]Value, len(v.list))
		for i, item := range v.list {
			items[i] = item.Clone()
		}
		return List(items...)
	default:
		return v
	}
}

// Any converts the value into plain Go types: nil, bool, int64, float64,
// string, []byte, map[string]any, []any. Field order of maps is lost.
func (v Value) Any() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		return v.bin
	case KindMap:
		return v.doc.Map()
	case KindList:
		items := make([]any, len(v.list))
		for i, item := range v.list {
			items[i] = item.Any()
		}
		return items
	default:
		panic("unreachable")
	}
}

func (v Value) String() string {
	var buf strings.Builder
	v.format(&buf)
	return buf.String()
}

func (v Value) format(buf *strings.Builder) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		buf.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString:
		buf.WriteString(strconv.Quote(v.s))
	case KindBytes:
		buf.WriteString("b64:")
		buf.WriteString(base64.StdEncoding.EncodeToString(v.bin))
	case KindMap:
		v.doc.format(buf)
	case KindList:
		buf.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				buf.WriteString(", ")
			}
			item.format(buf)
		}
		buf.WriteByte(']')
	}
}

// MustValueOf is like ValueOf, but panics on unsupported types.
func MustValueOf(x any) Value {
	return must(ValueOf(x))
}

// ValueOf converts a Go value into a Value. Supported are nil, Value, *Doc,
// booleans, integers, floats, strings, []byte, time.Time (stored as an
// RFC 3339 string in UTC), numbers with an Int64 method (json.Number), structs
// (see Doc.Decode for the field naming rules), and maps with string keys and
// slices of any of the above. Map keys are sorted, since Go
// maps have no order.
func ValueOf(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case *Doc:
		if x == nil {
			return Null(), nil
		}
		return Map(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case float64:
		return Float(x), nil
	case string:
		return Str(x), nil
	case []byte:
		return Bin(x), nil
	case time.Time:
		return Str(x.UTC().Format(time.RFC3339Nano)), nil
	case []any:
		items := make([]Value, len(x))
		for i, item := range x {
			v, err := ValueOf(item)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case map[string]any:
		d, err := DocFromMap(x)
		if err != nil {
			return Value{}, err
		}
		return Map(d), nil
	case interface{ Int64() (int64, error) }:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		if f, ok := x.(interface{ Float64() (float64, error) }); ok {
			if v, err := f.Float64(); err == nil {
				return Float(v), nil
			}
		}
		return Value{}, fmt.Errorf("unsupported number %v", x)
	}
	return valueOfReflect(reflect.ValueOf(x))
}

func valueOfReflect(rv reflect.Value) (Value, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return Float(float64(u)), nil
		}
		return Int(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float()), nil
	case reflect.String:
		return Str(rv.String()), nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null(), nil
		}
		return ValueOf(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Bin(rv.Bytes()), nil
		}
		n := rv.Len()
		items := make([]Value, n)
		for i := range n {
			v, err := ValueOf(rv.Index(i).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items[i] = v
		}
		return List(items...), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Value{}, fmt.Errorf("unsupported map key type %v", rv.Type().Key())
		}
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return strings.Compare(a.String(), b.String())
		})
		d := &Doc{fields: make([]Field, 0, len(keys))}
		for _, k := range keys {
			v, err := ValueOf(rv.MapIndex(k).Interface())
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k.String(), err)
			}
			d.fields = append(d.fields, Field{k.String(), v})
		}
		return Map(d), nil
	case reflect.Struct:
		return structValue(rv)
	default:
		return Value{}, fmt.Errorf("unsupported type %v", rv.Type())
	}
}
