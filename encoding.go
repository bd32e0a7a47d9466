package filedb

import (
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// Snapshot format: a single msgpack map of collection name to an array of
// records, both in insertion order. Records are msgpack maps with string keys.
// Optionally the whole thing is wrapped into a zstd frame; msgpack maps never
// start with the zstd magic, so decoding detects compression by sniffing.

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil)
	})
	return zstdEnc, zstdDec, zstdErr
}

// collSet is the in-memory dataset: collections keyed by name plus their order.
type collSet struct {
	names []string
	colls map[string][]*Doc
}

func newCollSet() collSet {
	return collSet{colls: make(map[string][]*Doc)}
}

func (cs *collSet) has(name string) bool {
	_, ok := cs.colls[name]
	return ok
}

func (cs *collSet) put(name string, recs []*Doc) {
	if !cs.has(name) {
		cs.names = append(cs.names, name)
	}
	cs.colls[name] = recs
}

func (cs *collSet) remove(name string) bool {
	if !cs.has(name) {
		return false
	}
	delete(cs.colls, name)
	for i, n := range cs.names {
		if n == name {
			cs.names = append(cs.names[:i], cs.names[i+1:]...)
			break
		}
	}
	return true
}

func encodeSnapshot(cs *collSet, compress bool) ([]byte, error) {
	var buf *bytes.Buffer
	if compress {
		buf = scratchBufPool.Get().(*bytes.Buffer)
		defer releaseScratchBuf(buf)
	} else {
		buf = new(bytes.Buffer)
	}

	enc := msgpack.GetEncoder()
	enc.Reset(buf)
	err := encodeCollSet(enc, cs)
	msgpack.PutEncoder(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot using MsgPack: %w", err)
	}
	if !compress {
		return buf.Bytes(), nil
	}
	ze, _, err := zstdCodecs()
	if err != nil {
		return nil, err
	}
	return ze.EncodeAll(buf.Bytes(), nil), nil
}

func encodeCollSet(enc *msgpack.Encoder, cs *collSet) error {
	if err := enc.EncodeMapLen(len(cs.names)); err != nil {
		return err
	}
	for _, name := range cs.names {
		if err := enc.EncodeString(name); err != nil {
			return err
		}
		recs := cs.colls[name]
		if err := enc.EncodeArrayLen(len(recs)); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := encodeDoc(enc, rec); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
		}
	}
	return nil
}

func decodeSnapshot(path string, data []byte) (collSet, error) {
	cs := newCollSet()
	if len(data) == 0 {
		return cs, nil
	}
	if bytes.HasPrefix(data, zstdMagic) {
		_, zd, err := zstdCodecs()
		if err != nil {
			return cs, err
		}
		raw, err := zd.DecodeAll(data, nil)
		if err != nil {
			return cs, dataErrf(path, data, err, "failed to decompress snapshot")
		}
		data = raw
	}

	var r bytes.Reader
	r.Reset(data)
	dec := msgpack.GetDecoder()
	dec.Reset(&r)
	defer msgpack.PutDecoder(dec)

	n, err := dec.DecodeMapLen()
	if err != nil {
		return cs, dataErrf(path, data, err, "failed to decode msgpack snapshot")
	}
	for range max(n, 0) {
		name, err := dec.DecodeString()
		if err != nil {
			return cs, dataErrf(path, data, err, "failed to decode collection name")
		}
		count, err := dec.DecodeArrayLen()
		if err != nil {
			return cs, dataErrf(path, data, err, "%s: failed to decode collection", name)
		}
		recs := make([]*Doc, 0, max(count, 0))
		for i := range max(count, 0) {
			v, err := decodeValue(dec)
			if err != nil {
				return cs, dataErrf(path, data, err, "%s[%d]: failed to decode record", name, i)
			}
			rec, ok := v.AsMap()
			if !ok {
				return cs, dataErrf(path, data, nil, "%s[%d]: record is %v, not a map", name, i, v.Kind())
			}
			recs = append(recs, rec)
		}
		cs.put(name, recs)
	}
	if r.Len() != 0 {
		return cs, dataErrf(path, data, nil, "%d trailing bytes after snapshot", r.Len())
	}
	return cs, nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (d *Doc) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeDoc(enc, d)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (d *Doc) DecodeMsgpack(dec *msgpack.Decoder) error {
	v, err := decodeValue(dec)
	if err != nil {
		return err
	}
	m, ok := v.AsMap()
	if !ok {
		return fmt.Errorf("msgpack: cannot decode %v into Doc", v.Kind())
	}
	*d = *m
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (v Value) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeValue(enc, v)
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (v *Value) DecodeMsgpack(dec *msgpack.Decoder) error {
	r, err := decodeValue(dec)
	if err != nil {
		return err
	}
	*v = r
	return nil
}

func encodeDoc(enc *msgpack.Encoder, d *Doc) error {
	if err := enc.EncodeMapLen(d.Len()); err != nil {
		return err
	}
	for _, f := range d.fieldsOrNil() {
		if err := enc.EncodeString(f.Key); err != nil {
			return err
		}
		if err := encodeValue(enc, f.Value); err != nil {
			return fmt.Errorf("%s: %w", f.Key, err)
		}
	}
	return nil
}

func encodeValue(enc *msgpack.Encoder, v Value) error {
	switch v.kind {
	case KindNull:
		return enc.EncodeNil()
	case KindBool:
		return enc.EncodeBool(v.b)
	case KindInt:
		return enc.EncodeInt(v.i)
	case KindFloat:
		return enc.EncodeFloat64(v.f)
	case KindString:
		return enc.EncodeString(v.s)
	case KindBytes:
		if v.bin == nil {
			return enc.EncodeBytes([]byte{})
		}
		return enc.EncodeBytes(v.bin)
	case KindMap:
		return encodeDoc(enc, v.doc)
	case KindList:
		if err := enc.EncodeArrayLen(len(v.list)); err != nil {
			return err
		}
		for _, item := range v.list {
			if err := encodeValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported value kind %v", v.kind)
	}
}

func decodeValue(dec *msgpack.Decoder) (Value, error) {
	c, err := dec.PeekCode()
	if err != nil {
		return Value{}, err
	}
	switch {
	case c == msgpcode.Nil:
		return Null(), dec.DecodeNil()
	case c == msgpcode.False || c == msgpcode.True:
		b, err := dec.DecodeBool()
		return Bool(b), err
	case c == msgpcode.Float || c == msgpcode.Double:
		f, err := dec.DecodeFloat64()
		return Float(f), err
	case c == msgpcode.Uint64:
		u, err := dec.DecodeUint64()
		if u > math.MaxInt64 {
			return Float(float64(u)), err
		}
		return Int(int64(u)), err
	case msgpcode.IsFixedNum(c),
		c == msgpcode.Uint8, c == msgpcode.Uint16, c == msgpcode.Uint32,
		c == msgpcode.Int8, c == msgpcode.Int16, c == msgpcode.Int32, c == msgpcode.Int64:
		i, err := dec.DecodeInt64()
		return Int(i), err
	case msgpcode.IsString(c):
		s, err := dec.DecodeString()
		return Str(s), err
	case msgpcode.IsBin(c):
		b, err := dec.DecodeBytes()
		return Bin(b), err
	case msgpcode.IsFixedMap(c), c == msgpcode.Map16, c == msgpcode.Map32:
		n, err := dec.DecodeMapLen()
		if err != nil {
			return Value{}, err
		}
		d := &Doc{fields: make([]Field, 0, n)}
		for range n {
			key, err := dec.DecodeString()
			if err != nil {
				return Value{}, err
			}
			v, err := decodeValue(dec)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", key, err)
			}
			d.Set(key, v)
		}
		return Map(d), nil
	case msgpcode.IsFixedArray(c), c == msgpcode.Array16, c == msgpcode.Array32:
		n, err := dec.DecodeArrayLen()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, n)
		for i := range n {
			items[i], err = decodeValue(dec)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
		}
		return List(items...), nil
	default:
		// extensions, e.g. msgpack timestamps
		x, err := dec.DecodeInterface()
		if err != nil {
			return Value{}, err
		}
		return ValueOf(x)
	}
}
