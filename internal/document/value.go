// Package document models structured configuration documents as ordered trees
// of strings, mappings and sequences, and converts them to and from XML, JSON
// and YAML.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	StringKind Kind = iota
	MappingKind
	SequenceKind
)

func (k Kind) String() string {
	switch k {
	case StringKind:
		return "string"
	case MappingKind:
		return "mapping"
	case SequenceKind:
		return "sequence"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Field is one key/value pair of a mapping.
type Field struct {
	Key   string
	Value *Value
}

// Value is a node of a document: a string, an ordered mapping or a sequence.
// The zero Value is the empty string.
type Value struct {
	kind   Kind
	str    string
	fields []Field
	items  []*Value
}

// String returns a string Value.
func String(s string) *Value {
	return &Value{kind: StringKind, str: s}
}

// Mapping returns a mapping Value holding fields in the given order.
func Mapping(fields ...Field) *Value {
	v := &Value{kind: MappingKind}
	for _, f := range fields {
		v.Set(f.Key, f.Value)
	}
	return v
}

// Sequence returns a sequence Value.
func Sequence(items ...*Value) *Value {
	return &Value{kind: SequenceKind, items: append([]*Value(nil), items...)}
}

func (v *Value) Kind() Kind { return v.kind }

// Str returns the string content; it is empty for mappings and sequences.
func (v *Value) Str() string { return v.str }

// Fields returns the mapping fields in document order.
func (v *Value) Fields() []Field { return v.fields }

// Items returns the sequence elements.
func (v *Value) Items() []*Value { return v.items }

// Keys returns the mapping keys in document order.
func (v *Value) Keys() []string {
	keys := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// Len is the number of fields or items, or the byte length of a string.
func (v *Value) Len() int {
	switch v.kind {
	case MappingKind:
		return len(v.fields)
	case SequenceKind:
		return len(v.items)
	default:
		return len(v.str)
	}
}

// Get returns the value stored under key in a mapping.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.kind != MappingKind {
		return nil, false
	}
	for _, f := range v.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under key, keeping its position, or appends a new
// field. It panics when v is not a mapping.
func (v *Value) Set(key string, val *Value) {
	if v.kind != MappingKind {
		panic(fmt.Sprintf("document: Set on %s value", v.kind))
	}
	if val == nil {
		val = String("")
	}
	for i := range v.fields {
		if v.fields[i].Key == key {
			v.fields[i].Value = val
			return
		}
	}
	v.fields = append(v.fields, Field{Key: key, Value: val})
}

// Delete removes key from a mapping and reports whether it was present.
func (v *Value) Delete(key string) bool {
	if v.kind != MappingKind {
		return false
	}
	for i, f := range v.fields {
		if f.Key == key {
			v.fields = append(v.fields[:i], v.fields[i+1:]...)
			return true
		}
	}
	return false
}

// Append adds an element to a sequence. It panics when v is not a sequence.
func (v *Value) Append(item *Value) {
	if v.kind != SequenceKind {
		panic(fmt.Sprintf("document: Append on %s value", v.kind))
	}
	v.items = append(v.items, item)
}

// Lookup walks a key path through nested mappings.
func (v *Value) Lookup(path ...string) (*Value, bool) {
	cur := v
	for _, key := range path {
		next, ok := cur.Get(key)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// Clone returns a deep copy.
func (v *Value) Clone() *Value {
	if v == nil {
		return nil
	}
	out := &Value{kind: v.kind, str: v.str}
	if v.fields != nil {
		out.fields = make([]Field, len(v.fields))
		for i, f := range v.fields {
			out.fields[i] = Field{Key: f.Key, Value: f.Value.Clone()}
		}
	}
	if v.items != nil {
		out.items = make([]*Value, len(v.items))
		for i, item := range v.items {
			out.items[i] = item.Clone()
		}
	}
	return out
}

// WithReplaced returns a deep copy of v where the value at path is replaced
// by a copy of val. Missing intermediate mappings are created.
func (v *Value) WithReplaced(path []string, val *Value) (*Value, error) {
	if len(path) == 0 {
		return val.Clone(), nil
	}
	out := v.Clone()
	cur := out
	for i, key := range path {
		if cur.kind != MappingKind {
			return nil, &PathError{Path: path[:i], Kind: cur.kind}
		}
		if i == len(path)-1 {
			cur.Set(key, val.Clone())
			break
		}
		next, ok := cur.Get(key)
		if !ok {
			next = Mapping()
			cur.Set(key, next)
		}
		cur = next
	}
	return out, nil
}

// Equal reports deep structural equality. Sequences compare in order; mappings
// compare by key set and values, ignoring field order.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case StringKind:
		return v.str == other.str
	case SequenceKind:
		if len(v.items) != len(other.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(other.items[i]) {
				return false
			}
		}
		return true
	case MappingKind:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for _, f := range v.fields {
			ov, ok := other.Get(f.Key)
			if !ok || !f.Value.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Interface converts the value to plain Go types: string, []any and
// map[string]any. Field order is lost.
func (v *Value) Interface() any {
	if v == nil {
		return nil
	}
	switch v.kind {
	case MappingKind:
		m := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			m[f.Key] = f.Value.Interface()
		}
		return m
	case SequenceKind:
		s := make([]any, len(v.items))
		for i, item := range v.items {
			s[i] = item.Interface()
		}
		return s
	default:
		return v.str
	}
}

// MarshalJSON encodes the value as JSON, keeping mapping field order.
func (v *Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.writeJSON(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v *Value) writeJSON(buf *bytes.Buffer) error {
	if v == nil {
		buf.WriteString("null")
		return nil
	}
	switch v.kind {
	case MappingKind:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := f.Value.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case SequenceKind:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.writeJSON(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		s, err := json.Marshal(v.str)
		if err != nil {
			return err
		}
		buf.Write(s)
	}
	return nil
}

// PathError reports a path that runs through a non-mapping value.
type PathError struct {
	Path []string
	Kind Kind
}

func (e *PathError) Error() string {
	return fmt.Sprintf("document path '%s' is a %s, not a mapping", strings.Join(e.Path, "."), e.Kind)
}
