// Package jsontree models decoded JSON as a tagged union with one shared
// visitor. Call sites that need to descend into payloads of unknown shape
// (state snapshots, tool responses, audit records) walk a Value instead of
// re-implementing type switches over map[string]any.
package jsontree

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Kind tags the variant stored in a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is one node of a decoded JSON document. Exactly the field selected
// by Kind is meaningful; the zero Value is null.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Items  []Value
	Fields map[string]Value
}

// Decode parses raw JSON into a Value tree.
func Decode(data []byte) (Value, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Value{}, err
	}
	return FromAny(raw), nil
}

// FromAny converts a value produced by encoding/json (or assembled by hand
// from the same primitive set) into a Value tree. Unknown Go types are
// stringified through a JSON roundtrip; if that fails they become null.
func FromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case float64:
		return Value{Kind: KindNumber, Number: t}
	case float32:
		return Value{Kind: KindNumber, Number: float64(t)}
	case int:
		return Value{Kind: KindNumber, Number: float64(t)}
	case int64:
		return Value{Kind: KindNumber, Number: float64(t)}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{Kind: KindString, Str: t.String()}
		}
		return Value{Kind: KindNumber, Number: f}
	case string:
		return Value{Kind: KindString, Str: t}
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = FromAny(item)
		}
		return Value{Kind: KindArray, Items: items}
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, fv := range t {
			fields[k] = FromAny(fv)
		}
		return Value{Kind: KindObject, Fields: fields}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return Value{Kind: KindNull}
		}
		val, err := Decode(b)
		if err != nil {
			return Value{Kind: KindNull}
		}
		return val
	}
}

// Interface converts the tree back into the plain encoding/json shape.
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindString:
		return v.Str
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.Fields))
		for k, fv := range v.Fields {
			out[k] = fv.Interface()
		}
		return out
	default:
		return nil
	}
}

// Walk visits v and its descendants depth first. Object fields are visited
// in sorted key order so traversal is deterministic. The visitor receives
// the path from the root (object keys and array indices); returning false
// prunes descent below the current node.
func Walk(v Value, visit func(path []string, v Value) bool) {
	walk(nil, v, visit)
}

func walk(path []string, v Value, visit func(path []string, v Value) bool) {
	if !visit(path, v) {
		return
	}

	switch v.Kind {
	case KindArray:
		for i, item := range v.Items {
			walk(childPath(path, strconv.Itoa(i)), item, visit)
		}
	case KindObject:
		keys := make([]string, 0, len(v.Fields))
		for k := range v.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(childPath(path, k), v.Fields[k], visit)
		}
	}
}

// childPath copies before appending so visitors may retain path slices.
func childPath(path []string, seg string) []string {
	child := make([]string, len(path)+1)
	copy(child, path)
	child[len(path)] = seg
	return child
}

// Strings collects every string leaf in walk order.
func (v Value) Strings() []string {
	var out []string
	Walk(v, func(_ []string, node Value) bool {
		if node.Kind == KindString {
			out = append(out, node.Str)
		}
		return true
	})
	return out
}

// Flatten maps dotted leaf paths to their plain Go values. Arrays contribute
// index segments. The root must be an object or array; scalars flatten to a
// single entry under the empty key.
func Flatten(v Value) map[string]any {
	out := map[string]any{}
	Walk(v, func(path []string, node Value) bool {
		switch node.Kind {
		case KindArray, KindObject:
			return true
		default:
			key := ""
			for i, seg := range path {
				if i > 0 {
					key += "."
				}
				key += seg
			}
			out[key] = node.Interface()
			return true
		}
	})
	return out
}
