package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Separator joins nested keys into a flattened column name.
const Separator = "."

// ErrNotObject is returned when a record root is not a JSON object.
var ErrNotObject = errors.New("record: root is not an object")

// PathConflictError reports two distinct tree locations flattening to the
// same dotted path (e.g. a literal "a.b" key next to a nested {"a":{"b":..}}).
type PathConflictError struct {
	Path string
}

func (e *PathConflictError) Error() string {
	return fmt.Sprintf("record: flattened path %q is produced more than once", e.Path)
}

// Flat is a flattened record: dotted paths mapped to scalar values (nil for
// JSON null). Paths keep first-seen order.
type Flat struct {
	paths  []string
	values map[string]any
}

// NewFlat returns an empty Flat with room for n paths.
func NewFlat(n int) *Flat {
	return &Flat{
		paths:  make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// Set stores v under path. It fails when path is already present.
func (f *Flat) Set(path string, v any) error {
	if _, exists := f.values[path]; exists {
		return &PathConflictError{Path: path}
	}
	f.paths = append(f.paths, path)
	f.values[path] = v
	return nil
}

// Len returns the number of flattened paths.
func (f *Flat) Len() int { return len(f.paths) }

// Paths returns the flattened paths in first-seen order.
func (f *Flat) Paths() []string { return f.paths }

// Get returns the scalar stored under path.
func (f *Flat) Get(path string) (any, bool) {
	v, ok := f.values[path]
	return v, ok
}

// Text returns the value under path rendered as text. ok is false when the
// path is absent or null.
func (f *Flat) Text(path string) (string, bool) {
	v, ok := f.values[path]
	if !ok || v == nil {
		return "", false
	}
	return ScalarText(v), true
}

// Flatten collapses nested objects of an object-rooted record into dotted-path
// keys. Array elements are addressed by index ("a.0.b"), so every flattened
// value is a scalar. Empty objects and arrays produce no paths.
func Flatten(v Value) (*Flat, error) {
	if v.kind != KindObject {
		return nil, fmt.Errorf("%w (got %s)", ErrNotObject, v.kind)
	}
	out := NewFlat(len(v.fields))
	if err := flattenInto(out, "", v); err != nil {
		return nil, err
	}
	return out, nil
}

func flattenInto(out *Flat, prefix string, v Value) error {
	switch v.kind {
	case KindObject:
		for _, f := range v.fields {
			if err := flattenInto(out, join(prefix, f.Key), f.Value); err != nil {
				return err
			}
		}
		return nil
	case KindArray:
		for i, it := range v.items {
			if err := flattenInto(out, join(prefix, strconv.Itoa(i)), it); err != nil {
				return err
			}
		}
		return nil
	case KindScalar:
		return out.Set(prefix, v.scalar)
	default:
		return out.Set(prefix, nil)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + Separator + key
}

// Unflatten rebuilds a nested object from dotted paths. It is the inverse of
// Flatten for records without array indices (indices come back as object
// keys).
func Unflatten(paths []string, values []any) (Value, error) {
	if len(paths) != len(values) {
		return Value{}, fmt.Errorf("record: unflatten: %d paths, %d values", len(paths), len(values))
	}
	root := &node{}
	for i, p := range paths {
		if err := root.insert(strings.Split(p, Separator), values[i], p); err != nil {
			return Value{}, err
		}
	}
	return root.value(), nil
}

type node struct {
	keys     []string
	children map[string]*node
	leaf     bool
	scalar   any
}

func (n *node) insert(parts []string, v any, full string) error {
	if len(parts) == 0 {
		if n.leaf || len(n.keys) > 0 {
			return &PathConflictError{Path: full}
		}
		n.leaf = true
		n.scalar = v
		return nil
	}
	if n.leaf {
		return &PathConflictError{Path: full}
	}
	if n.children == nil {
		n.children = make(map[string]*node)
	}
	child, ok := n.children[parts[0]]
	if !ok {
		child = &node{}
		n.children[parts[0]] = child
		n.keys = append(n.keys, parts[0])
	}
	return child.insert(parts[1:], v, full)
}

func (n *node) value() Value {
	if n.leaf {
		return Scalar(n.scalar)
	}
	fields := make([]Field, 0, len(n.keys))
	for _, k := range n.keys {
		fields = append(fields, Field{Key: k, Value: n.children[k].value()})
	}
	return Object(fields...)
}

// ScalarText renders a scalar as text: strings verbatim, numbers in their
// shortest decimal form, booleans as true/false.
func ScalarText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
