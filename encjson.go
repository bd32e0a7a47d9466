package filedb

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/tailscale/hujson"
)

const jsonIndent = "  "

var errJSONStructure = errors.New("malformed JSON structure")

// MarshalJSON encodes the record as a JSON object, keeping field order.
// Bytes become base64 strings.
func (d *Doc) MarshalJSON() ([]byte, error) {
	return appendJSONDoc(nil, d, "", 0)
}

func (d *Doc) UnmarshalJSON(data []byte) error {
	v, err := decodeJSON(data)
	if err != nil {
		return err
	}
	m, ok := v.AsMap()
	if !ok {
		return typeErrf("decode JSON", v.Kind(), ErrNotObject)
	}
	*d = *m
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	return appendJSONValue(nil, v, "", 0)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	r, err := decodeJSON(data)
	if err != nil {
		return err
	}
	*v = r
	return nil
}

// appendJSONNewline starts a new line indented to depth. With an empty
// indent, output stays compact.
func appendJSONNewline(buf []byte, indent string, depth int) []byte {
	if indent == "" {
		return buf
	}
	buf = append(buf, '\n')
	for range depth {
		buf = append(buf, indent...)
	}
	return buf
}

func appendJSONDoc(buf []byte, d *Doc, indent string, depth int) ([]byte, error) {
	fields := d.fieldsOrNil()
	if len(fields) == 0 {
		return append(buf, "{}"...), nil
	}
	buf = append(buf, '{')
	for i, f := range fields {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendJSONNewline(buf, indent, depth+1)
		var err error
		buf, err = appendJSONString(buf, f.Key)
		if err != nil {
			return nil, err
		}
		buf = append(buf, ':')
		if indent != "" {
			buf = append(buf, ' ')
		}
		buf, err = appendJSONValue(buf, f.Value, indent, depth+1)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Key, err)
		}
	}
	buf = appendJSONNewline(buf, indent, depth)
	return append(buf, '}'), nil
}

func appendJSONDocs(buf []byte, docs []*Doc, indent string, depth int) ([]byte, error) {
	if len(docs) == 0 {
		return append(buf, "[]"...), nil
	}
	buf = append(buf, '[')
	for i, d := range docs {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendJSONNewline(buf, indent, depth+1)
		var err error
		buf, err = appendJSONDoc(buf, d, indent, depth+1)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
	}
	buf = appendJSONNewline(buf, indent, depth)
	return append(buf, ']'), nil
}

func appendJSONValue(buf []byte, v Value, indent string, depth int) ([]byte, error) {
	switch v.kind {
	case KindNull:
		return append(buf, "null"...), nil
	case KindBool:
		return strconv.AppendBool(buf, v.b), nil
	case KindInt:
		return strconv.AppendInt(buf, v.i, 10), nil
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil, fmt.Errorf("unsupported float %v", v.f)
		}
		return strconv.AppendFloat(buf, v.f, 'g', -1, 64), nil
	case KindString:
		return appendJSONString(buf, v.s)
	case KindBytes:
		b, err := json.MarshalNoEscape(v.bin)
		if err != nil {
			return nil, err
		}
		return append(buf, b...), nil
	case KindMap:
		return appendJSONDoc(buf, v.doc, indent, depth)
	case KindList:
		if len(v.list) == 0 {
			return append(buf, "[]"...), nil
		}
		buf = append(buf, '[')
		for i, item := range v.list {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = appendJSONNewline(buf, indent, depth+1)
			var err error
			buf, err = appendJSONValue(buf, item, indent, depth+1)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
		}
		buf = appendJSONNewline(buf, indent, depth)
		return append(buf, ']'), nil
	default:
		panic(fmt.Errorf("unknown kind %v", v.kind))
	}
}

// appendJSONString quotes s without HTML escaping, so exports keep <, > and &
// as typed.
func appendJSONString(buf []byte, s string) ([]byte, error) {
	b, err := json.MarshalNoEscape(s)
	if err != nil {
		return nil, err
	}
	return append(buf, b...), nil
}

// encodeJSONColl renders records as an indented JSON array.
func encodeJSONColl(recs []*Doc) ([]byte, error) {
	buf, err := appendJSONDocs(nil, recs, jsonIndent, 0)
	if err != nil {
		return nil, err
	}
	return append(buf, '\n'), nil
}

// encodeJSONCollSet renders every collection as one indented JSON object of
// arrays, in collection order.
func encodeJSONCollSet(cs *collSet) ([]byte, error) {
	if len(cs.names) == 0 {
		return []byte("{}\n"), nil
	}
	buf := []byte{'{'}
	for i, name := range cs.names {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendJSONNewline(buf, jsonIndent, 1)
		var err error
		buf, err = appendJSONString(buf, name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, ':', ' ')
		buf, err = appendJSONDocs(buf, cs.colls[name], jsonIndent, 1)
		if err != nil {
			return nil, fmt.Errorf("%s%w", name, err)
		}
	}
	buf = appendJSONNewline(buf, jsonIndent, 0)
	return append(buf, '}', '\n'), nil
}

// decodeJSON parses a single JSON value, tolerating comments and trailing
// commas. Object field order is kept. Integral numbers that fit into int64
// become KindInt, everything else KindFloat.
func decodeJSON(data []byte) (Value, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return Value{}, err
	}
	dec := json.NewDecoder(bytes.NewReader(std))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return Value{}, noEOF(err)
	}
	v, err := decodeJSONToken(dec, tok)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeJSONToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return Str(t), nil
	case json.Number:
		return parseJSONNumber(string(t))
	case json.Delim:
		switch t {
		case '{':
			return decodeJSONObject(dec)
		case '[':
			return decodeJSONArray(dec)
		default:
			return Value{}, fmt.Errorf("%w: unexpected %q", errJSONStructure, rune(t))
		}
	default:
		return Value{}, fmt.Errorf("%w: unexpected token %T", errJSONStructure, tok)
	}
}

func decodeJSONObject(dec *json.Decoder) (Value, error) {
	d := NewDoc()
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, noEOF(err)
		}
		if tok == json.Delim('}') {
			return Map(d), nil
		}
		key, ok := tok.(string)
		if !ok {
			return Value{}, fmt.Errorf("%w: object key is %T", errJSONStructure, tok)
		}
		tok, err = dec.Token()
		if err != nil {
			return Value{}, noEOF(err)
		}
		v, err := decodeJSONToken(dec, tok)
		if err != nil {
			return Value{}, fmt.Errorf("%s: %w", key, err)
		}
		d.Set(key, v)
	}
}

func decodeJSONArray(dec *json.Decoder) (Value, error) {
	items := []Value{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return Value{}, noEOF(err)
		}
		if tok == json.Delim(']') {
			return List(items...), nil
		}
		v, err := decodeJSONToken(dec, tok)
		if err != nil {
			return Value{}, fmt.Errorf("[%d]: %w", len(items), err)
		}
		items = append(items, v)
	}
}

func parseJSONNumber(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, err
	}
	return Float(f), nil
}

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
