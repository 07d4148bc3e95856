// Package document provides the dynamic configuration document model: an
// order-preserving YAML mapping type, the value union that flows through
// compilation untyped, and the deep merge used to combine a base document
// with a local override.
//
// Values decoded from YAML are one of: *Mapping, []any, string, int,
// float64, bool, or nil. The compiler never interprets values it does not
// need; they travel through operations untouched and are resolved by the
// backend at the boundary.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Mapping is a YAML mapping that remembers key insertion order.
//
// Plain map[string]any loses document order, and node definition order is
// semantically significant (it fixes the order backend definitions are
// emitted), so every mapping in a document decodes into this type.
type Mapping struct {
	keys   []string
	values map[string]any
}

// NewMapping returns an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]any)}
}

// Len returns the number of keys in the mapping.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Keys returns the mapping's keys in insertion order. The returned slice
// is a copy and safe to retain.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Get returns the value stored under key and whether the key is present.
func (m *Mapping) Get(key string) (any, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key. A new key is appended at the end; an
// existing key keeps its original position.
func (m *Mapping) Set(key string, value any) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Clone returns a deep copy of the mapping. Nested mappings and sequences
// are copied; scalar values are shared (they are immutable).
func (m *Mapping) Clone() *Mapping {
	if m == nil {
		return nil
	}
	out := NewMapping()
	for _, k := range m.keys {
		out.Set(k, CloneValue(m.values[k]))
	}
	return out
}

// CloneValue deep-copies a document value.
func CloneValue(v any) any {
	switch val := v.(type) {
	case *Mapping:
		return val.Clone()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return v
	}
}

// AsMapping returns v as a *Mapping if it is one.
func AsMapping(v any) (*Mapping, bool) {
	m, ok := v.(*Mapping)
	return m, ok
}

// Merge combines base and override into a fresh mapping. For each key in
// override: if base holds a mapping under the same key and the override
// value is also a mapping, the two merge recursively; any other override
// value replaces the base value wholesale (sequences included). Keys only
// present in base carry through unchanged. Neither input is mutated.
func Merge(base, override *Mapping) *Mapping {
	if base == nil {
		base = NewMapping()
	}
	if override == nil {
		return base.Clone()
	}
	out := base.Clone()
	for _, key := range override.keys {
		ov := override.values[key]
		if bv, ok := out.Get(key); ok {
			bm, baseIsMap := AsMapping(bv)
			om, overrideIsMap := AsMapping(ov)
			if baseIsMap && overrideIsMap {
				out.Set(key, Merge(bm, om))
				continue
			}
		}
		out.Set(key, CloneValue(ov))
	}
	return out
}

// UnmarshalYAML decodes a YAML mapping node, preserving key order.
func (m *Mapping) UnmarshalYAML(node *yaml.Node) error {
	node = resolveAlias(node)
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping, got %s", node.Line, nodeKind(node))
	}
	if m.values == nil {
		m.values = make(map[string]any)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode := resolveAlias(node.Content[i])
		var key string
		if err := keyNode.Decode(&key); err != nil {
			return fmt.Errorf("line %d: mapping key must be a string: %w", keyNode.Line, err)
		}
		value, err := DecodeNode(node.Content[i+1])
		if err != nil {
			return err
		}
		m.Set(key, value)
	}
	return nil
}

// DecodeNode converts a YAML node into a document value: mappings become
// *Mapping, sequences become []any, scalars decode to their natural Go
// type (string, int, float64, bool, or nil).
func DecodeNode(node *yaml.Node) (any, error) {
	node = resolveAlias(node)
	switch node.Kind {
	case yaml.MappingNode:
		m := NewMapping()
		if err := m.UnmarshalYAML(node); err != nil {
			return nil, err
		}
		return m, nil
	case yaml.SequenceNode:
		seq := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			v, err := DecodeNode(item)
			if err != nil {
				return nil, err
			}
			seq = append(seq, v)
		}
		return seq, nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return DecodeNode(node.Content[0])
	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", node.Line, node.Kind)
	}
}

// MarshalYAML encodes the mapping as a YAML node with keys in insertion
// order.
func (m *Mapping) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.keys {
		keyNode := &yaml.Node{}
		if err := keyNode.Encode(k); err != nil {
			return nil, err
		}
		valueNode, err := encodeValue(m.values[k])
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content, keyNode, valueNode)
	}
	return node, nil
}

func encodeValue(v any) (*yaml.Node, error) {
	switch val := v.(type) {
	case *Mapping:
		encoded, err := val.MarshalYAML()
		if err != nil {
			return nil, err
		}
		return encoded.(*yaml.Node), nil
	case []any:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range val {
			itemNode, err := encodeValue(item)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, itemNode)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return nil, err
		}
		return node, nil
	}
}

// MarshalJSON encodes the mapping as a JSON object with keys in insertion
// order.
func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valueJSON, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valueJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func nodeKind(node *yaml.Node) string {
	switch node.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
