package filedb

import (
	"fmt"
	"iter"
	"slices"
	"strconv"
	"strings"
)

// IDField is the reserved identity field of every record.
const IDField = "#"

// Field is a single key/value pair of a Doc.
type Field struct {
	Key   string
	Value Value
}

// Doc is an ordered map of field names to values. Records stored in
// a collection are Docs carrying an integer IDField; nested map values are
// Docs too.
//
// Docs keep fields in insertion order. Setting an existing key replaces its
// value in place.
type Doc struct {
	fields []Field
}

// NewDoc builds a Doc out of alternating keys and values, converting values
// with ValueOf. Panics on odd argument count, non-string keys or unsupported
// value types, so it's meant for literals.
func NewDoc(kv ...any) *Doc {
	if len(kv)%2 != 0 {
		panic(fmt.Errorf("NewDoc: odd number of arguments (%d)", len(kv)))
	}
	d := &Doc{fields: make([]Field, 0, len(kv)/2)}
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			panic(fmt.Errorf("NewDoc: key #%d is %T instead of string", i/2, kv[i]))
		}
		v, err := ValueOf(kv[i+1])
		if err != nil {
			panic(fmt.Errorf("NewDoc: %s: %w", key, err))
		}
		d.Set(key, v)
	}
	return d
}

// DocFromMap converts a Go map into a Doc with keys in sorted order.
func DocFromMap(m map[string]any) (*Doc, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	d := &Doc{fields: make([]Field, 0, len(keys))}
	for _, k := range keys {
		v, err := ValueOf(m[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		d.fields = append(d.fields, Field{k, v})
	}
	return d, nil
}

func (d *Doc) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}

func (d *Doc) Keys() []string {
	if d == nil {
		return nil
	}
	keys := make([]string, len(d.fields))
	for i, f := range d.fields {
		keys[i] = f.Key
	}
	return keys
}

// All iterates over fields in order.
func (d *Doc) All() iter.Seq2[string, Value] {
	return func(yield func(string, Value) bool) {
		if d == nil {
			return
		}
		for _, f := range d.fields {
			if !yield(f.Key, f.Value) {
				return
			}
		}
	}
}

func (d *Doc) index(key string) int {
	if d == nil {
		return -1
	}
	for i, f := range d.fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

func (d *Doc) Has(key string) bool {
	return d.index(key) >= 0
}

func (d *Doc) Get(key string) (Value, bool) {
	if i := d.index(key); i >= 0 {
		return d.fields[i].Value, true
	}
	return Value{}, false
}

// Set assigns the value of key, appending the key if it's new. Returns d to
// allow chaining.
func (d *Doc) Set(key string, v Value) *Doc {
	if i := d.index(key); i >= 0 {
		d.fields[i].Value = v
	} else {
		d.fields = append(d.fields, Field{key, v})
	}
	return d
}

// Delete removes key and reports whether it was present.
func (d *Doc) Delete(key string) bool {
	i := d.index(key)
	if i < 0 {
		return false
	}
	d.fields = slices.Delete(d.fields, i, i+1)
	return true
}

// ID returns the record identity, if the Doc has an integer IDField.
func (d *Doc) ID() (int64, bool) {
	v, ok := d.Get(IDField)
	if !ok {
		return 0, false
	}
	return v.asIdentity()
}

func (d *Doc) hasID(id int64) bool {
	actual, ok := d.ID()
	return ok && actual == id
}

// setID replaces the identity in place, or puts it in front when absent.
func (d *Doc) setID(id int64) {
	if i := d.index(IDField); i >= 0 {
		d.fields[i].Value = Int(id)
	} else {
		d.fields = slices.Insert(d.fields, 0, Field{IDField, Int(id)})
	}
}

// withID returns a copy of d with the given identity as the first field,
// dropping any identity d might carry.
func (d *Doc) withID(id int64) *Doc {
	r := &Doc{fields: make([]Field, 1, 1+d.Len())}
	r.fields[0] = Field{IDField, Int(id)}
	for _, f := range d.fields {
		if f.Key != IDField {
			r.fields = append(r.fields, f)
		}
	}
	return r
}

// Clone returns a deep copy of d.
func (d *Doc) Clone() *Doc {
	if d == nil {
		return nil
	}
	r := &Doc{fields: make([]Field, len(d.fields))}
	for i, f := range d.fields {
		r.fields[i] = Field{f.Key, f.Value.Clone()}
	}
	return r
}

// Equal compares fields regardless of their order.
func (d *Doc) Equal(o *Doc) bool {
	if d.Len() != o.Len() {
		return false
	}
	for _, f := range d.fieldsOrNil() {
		ov, ok := o.Get(f.Key)
		if !ok || !f.Value.Equal(ov) {
			return false
		}
	}
	return true
}

// Map converts d into a plain Go map, see Value.Any.
func (d *Doc) Map() map[string]any {
	m := make(map[string]any, d.Len())
	for k, v := range d.All() {
		m[k] = v.Any()
	}
	return m
}

func (d *Doc) String() string {
	var buf strings.Builder
	d.format(&buf)
	return buf.String()
}

func (d *Doc) format(buf *strings.Builder) {
	buf.WriteByte('{')
	for i, f := range d.fieldsOrNil() {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(strconv.Quote(f.Key))
		buf.WriteString(": ")
		f.Value.format(buf)
	}
	buf.WriteByte('}')
}

func (d *Doc) fieldsOrNil() []Field {
	if d == nil {
		return nil
	}
	return d.fields
}
