package filedb

import (
	"bytes"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

// fallbackStructTag is consulted for field names when a field has no msgpack
// tag, so structs written for JSON work as records unchanged.
const fallbackStructTag = "json"

// structValue converts a struct into a map value with fields in declaration
// order, honoring msgpack (or json) tags, including "-" and omitempty.
func structValue(rv reflect.Value) (Value, error) {
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	enc.SetCustomStructTag(fallbackStructTag)
	err := enc.EncodeValue(rv)
	msgpack.PutEncoder(enc)
	if err != nil {
		return Value{}, fmt.Errorf("%v: %w", rv.Type(), err)
	}

	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(&buf)
	return decodeValue(dec)
}

// Decode fills the struct (or map) pointed to by out from the record, the
// inverse of passing a struct to ValueOf. Use a field tagged `msgpack:"#"` to
// receive the identity.
func (d *Doc) Decode(out any) error {
	if rv := reflect.ValueOf(out); rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("decode: non-nil pointer required, got %T", out)
	}
	var buf bytes.Buffer
	enc := msgpack.GetEncoder()
	enc.Reset(&buf)
	err := encodeDoc(enc, d)
	msgpack.PutEncoder(enc)
	if err != nil {
		return err
	}

	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(&buf)
	dec.SetCustomStructTag(fallbackStructTag)
	return dec.Decode(out)
}
