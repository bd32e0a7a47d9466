package filedb

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const yamlIndent = 2

// MarshalYAML encodes the record as a YAML mapping, keeping field order.
func (d *Doc) MarshalYAML() (any, error) {
	return yamlDocNode(d), nil
}

func (d *Doc) UnmarshalYAML(n *yaml.Node) error {
	v, err := valueFromYAML(n)
	if err != nil {
		return err
	}
	m, ok := v.AsMap()
	if !ok {
		return typeErrf("decode YAML", v.Kind(), ErrNotObject)
	}
	*d = *m
	return nil
}

func (v Value) MarshalYAML() (any, error) {
	return yamlValueNode(v), nil
}

func (v *Value) UnmarshalYAML(n *yaml.Node) error {
	r, err := valueFromYAML(n)
	if err != nil {
		return err
	}
	*v = r
	return nil
}

func yamlScalar(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func yamlDocNode(d *Doc) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, f := range d.fieldsOrNil() {
		n.Content = append(n.Content, yamlScalar("!!str", f.Key), yamlValueNode(f.Value))
	}
	return n
}

func yamlValueNode(v Value) *yaml.Node {
	switch v.kind {
	case KindNull:
		return yamlScalar("!!null", "null")
	case KindBool:
		return yamlScalar("!!bool", strconv.FormatBool(v.b))
	case KindInt:
		return yamlScalar("!!int", strconv.FormatInt(v.i, 10))
	case KindFloat:
		return yamlScalar("!!float", formatYAMLFloat(v.f))
	case KindString:
		return yamlScalar("!!str", v.s)
	case KindBytes:
		return yamlScalar("!!binary", base64.StdEncoding.EncodeToString(v.bin))
	case KindMap:
		return yamlDocNode(v.doc)
	case KindList:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.list {
			n.Content = append(n.Content, yamlValueNode(item))
		}
		return n
	default:
		panic(fmt.Errorf("unknown kind %v", v.kind))
	}
}

// formatYAMLFloat renders f so that it resolves back to a float rather than
// an int.
func formatYAMLFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func encodeYAMLNode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(yamlIndent)
	if err := enc.Encode(n); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeYAMLColl(recs []*Doc) ([]byte, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
	for _, rec := range recs {
		n.Content = append(n.Content, yamlDocNode(rec))
	}
	return encodeYAMLNode(n)
}

func encodeYAMLCollSet(cs *collSet) ([]byte, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, name := range cs.names {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, rec := range cs.colls[name] {
			seq.Content = append(seq.Content, yamlDocNode(rec))
		}
		n.Content = append(n.Content, yamlScalar("!!str", name), seq)
	}
	return encodeYAMLNode(n)
}

// decodeYAML parses the first document of data. An empty document decodes
// to null.
func decodeYAML(data []byte) (Value, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return Value{}, err
	}
	if root.Kind == 0 {
		return Null(), nil
	}
	return valueFromYAML(&root)
}

var (
	errYAMLAliasing  = errors.New("document contains excessive aliasing")
	errYAMLRecursive = errors.New("anchor value contains itself")
)

// yamlConverter expands aliases while turning a node tree into a Value.
// Parsing into a yaml.Node leaves aliases unexpanded, so it applies the same
// expansion budget yaml.v3 enforces when decoding into Go values.
type yamlConverter struct {
	nodes      int
	aliased    int
	aliasDepth int
	expanding  map[*yaml.Node]bool
}

func valueFromYAML(n *yaml.Node) (Value, error) {
	c := &yamlConverter{expanding: make(map[*yaml.Node]bool)}
	return c.convert(n)
}

// allowedAliasRatio mirrors yaml.v3: small documents may be mostly aliases,
// large ones may not.
func allowedAliasRatio(nodes int) float64 {
	const low, high = 400000, 4000000
	switch {
	case nodes <= low:
		return 0.99
	case nodes >= high:
		return 0.10
	default:
		return 0.99 - 0.89*(float64(nodes-low)/float64(high-low))
	}
}

func (c *yamlConverter) convert(n *yaml.Node) (Value, error) {
	c.nodes++
	if c.aliasDepth > 0 {
		c.aliased++
	}
	if c.aliased > 100 && c.nodes > 1000 && float64(c.aliased)/float64(c.nodes) > allowedAliasRatio(c.nodes) {
		return Value{}, errYAMLAliasing
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return Null(), nil
		}
		return c.convert(n.Content[0])
	case yaml.AliasNode:
		if n.Alias == nil {
			return Value{}, fmt.Errorf("line %d: dangling alias %q", n.Line, n.Value)
		}
		if c.expanding[n.Alias] {
			return Value{}, fmt.Errorf("line %d: %w: %q", n.Line, errYAMLRecursive, n.Value)
		}
		c.expanding[n.Alias] = true
		c.aliasDepth++
		v, err := c.convert(n.Alias)
		c.aliasDepth--
		delete(c.expanding, n.Alias)
		return v, err
	case yaml.MappingNode:
		d := NewDoc()
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, vn := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return Value{}, fmt.Errorf("line %d: mapping key must be a scalar", k.Line)
			}
			v, err := c.convert(vn)
			if err != nil {
				return Value{}, fmt.Errorf("%s: %w", k.Value, err)
			}
			d.Set(k.Value, v)
		}
		return Map(d), nil
	case yaml.SequenceNode:
		items := make([]Value, 0, len(n.Content))
		for i, cn := range n.Content {
			v, err := c.convert(cn)
			if err != nil {
				return Value{}, fmt.Errorf("[%d]: %w", i, err)
			}
			items = append(items, v)
		}
		return List(items...), nil
	case yaml.ScalarNode:
		return scalarFromYAML(n)
	default:
		return Value{}, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func scalarFromYAML(n *yaml.Node) (Value, error) {
	var x any
	if err := n.Decode(&x); err != nil {
		return Value{}, err
	}
	if n.ShortTag() == "!!binary" {
		if s, ok := x.(string); ok {
			return Bin([]byte(s)), nil
		}
	}
	switch x := x.(type) {
	case uint64:
		if x > math.MaxInt64 {
			return Float(float64(x)), nil
		}
		return Int(int64(x)), nil
	}
	return ValueOf(x)
}
