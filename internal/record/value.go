// Package record models raw, semi-structured input records as a tagged tree
// and flattens them into dotted-path columns.
package record

import (
	"encoding/json"
	"sort"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindScalar
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Field is one key of an object. Objects keep their fields in source order so
// flattened column order is deterministic.
type Field struct {
	Key   string
	Value Value
}

// Value is a node of a raw record tree: null, scalar, object or array.
//
// Scalars hold string, json.Number, bool or a Go numeric type. The zero Value
// is null.
type Value struct {
	kind   Kind
	scalar any
	fields []Field
	items  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Scalar wraps a leaf value. A nil v yields Null.
func Scalar(v any) Value {
	if v == nil {
		return Value{}
	}
	return Value{kind: KindScalar, scalar: v}
}

// Object builds an object from fields, in the given order.
func Object(fields ...Field) Value {
	return Value{kind: KindObject, fields: fields}
}

// Array builds an array value.
func Array(items ...Value) Value {
	return Value{kind: KindArray, items: items}
}

// F is shorthand for building a Field.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

func (v Value) Kind() Kind       { return v.kind }
func (v Value) IsNull() bool     { return v.kind == KindNull }
func (v Value) Fields() []Field  { return v.fields }
func (v Value) Items() []Value   { return v.items }
func (v Value) ScalarValue() any { return v.scalar }

// Get returns the value stored under key when v is an object. When a key
// repeats, the last occurrence wins (matching encoding/json).
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	for i := len(v.fields) - 1; i >= 0; i-- {
		if v.fields[i].Key == key {
			return v.fields[i].Value, true
		}
	}
	return Value{}, false
}

// FromAny converts a decoded Go value (the shapes produced by encoding/json or
// yaml) into a Value. Map keys are sorted because Go maps carry no order.
func FromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, Field{Key: k, Value: FromAny(t[k])})
		}
		return Object(fields...)
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return FromAny(m)
	case []any:
		items := make([]Value, 0, len(t))
		for _, it := range t {
			items = append(items, FromAny(it))
		}
		return Array(items...)
	case []string:
		items := make([]Value, 0, len(t))
		for _, s := range t {
			items = append(items, Scalar(s))
		}
		return Array(items...)
	default:
		return Scalar(t)
	}
}

// ToAny converts v back into plain Go values (map[string]any, []any,
// scalars). Useful for re-encoding a record.
func (v Value) ToAny() any {
	switch v.kind {
	case KindScalar:
		return v.scalar
	case KindObject:
		m := make(map[string]any, len(v.fields))
		for _, f := range v.fields {
			m[f.Key] = f.Value.ToAny()
		}
		return m
	case KindArray:
		out := make([]any, len(v.items))
		for i, it := range v.items {
			out[i] = it.ToAny()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes v keeping object field order.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindScalar:
		return json.Marshal(v.scalar)
	case KindArray:
		if len(v.items) == 0 {
			return []byte("[]"), nil
		}
		return json.Marshal(v.items)
	case KindObject:
		buf := []byte{'{'}
		for i, f := range v.fields {
			if i > 0 {
				buf = append(buf, ',')
			}
			k, err := json.Marshal(f.Key)
			if err != nil {
				return nil, err
			}
			buf = append(buf, k...)
			buf = append(buf, ':')
			b, err := f.Value.MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf = append(buf, b...)
		}
		return append(buf, '}'), nil
	}
	return []byte("null"), nil
}

// Raw is one source record as produced by a parser. Line is the 1-based
// ordinal of the record in its source (the CSV line for CSV input).
type Raw struct {
	Line  int
	Value Value
}
