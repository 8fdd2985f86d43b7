package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// ValueKind discriminates the variants a sparse record field can hold.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindBool
	KindTime
	KindArray
)

// Value is a tagged union over the shapes customer record fields take.
// Exactly one payload field is meaningful, selected by Kind.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
	Arr  []Value
}

// Null is the absent/null value.
var Null = Value{Kind: KindNull}

// String wraps s as a string value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number wraps n as a numeric value.
func Number(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// Boolean wraps b as a boolean value.
func Boolean(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Timestamp wraps t as a time value.
func Timestamp(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// Array wraps elems as an array value.
func Array(elems ...Value) Value { return Value{Kind: KindArray, Arr: elems} }

// IsUsable reports whether v carries data worth sampling: not null and not
// the empty string.
func (v Value) IsUsable() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindString:
		return v.Str != ""
	default:
		return true
	}
}

// MarshalJSON renders the value as its native JSON shape (string, number,
// boolean, array or null). Times serialize as RFC 3339 strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindTime:
		return json.Marshal(v.Time.UTC().Format(time.RFC3339))
	case KindArray:
		if v.Arr == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Arr)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.Kind)
	}
}

// UnmarshalJSON maps a native JSON token back onto the union. JSON has no
// time type, so times round-trip as strings; date detection is left to the
// inference layer.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = FromNative(raw)
	return nil
}

// FromNative converts a decoded JSON value or SQL driver scalar into a
// Value. Unrecognized shapes (e.g. nested objects) collapse to their
// string rendering so no sample is silently lost.
func FromNative(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case string:
		return String(t)
	case float64:
		return Number(t)
	case float32:
		return Number(float64(t))
	case int:
		return Number(float64(t))
	case int32:
		return Number(float64(t))
	case int64:
		return Number(float64(t))
	case bool:
		return Boolean(t)
	case time.Time:
		return Timestamp(t)
	case []any:
		elems := make([]Value, 0, len(t))
		for _, e := range t {
			elems = append(elems, FromNative(e))
		}
		return Value{Kind: KindArray, Arr: elems}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return String(t.String())
		}
		return Number(f)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Native converts the value back to the shape encoding/json produces.
func (v Value) Native() any {
	switch v.Kind {
	case KindNull:
		return nil
	case KindString:
		return v.Str
	case KindNumber:
		return v.Num
	case KindBool:
		return v.Bool
	case KindTime:
		return v.Time.UTC().Format(time.RFC3339)
	case KindArray:
		out := make([]any, len(v.Arr))
		for i, e := range v.Arr {
			out[i] = e.Native()
		}
		return out
	default:
		return nil
	}
}

// FieldMap is the sparse field container of a customer record, keyed by
// field name. Absent keys and KindNull entries are equivalent to callers.
type FieldMap map[string]Value

// Merge copies every field from src into m, overwriting existing keys.
// Keys listed in skip are left untouched.
func (m FieldMap) Merge(src FieldMap, skip ...string) {
	skipSet := make(map[string]struct{}, len(skip))
	for _, k := range skip {
		skipSet[k] = struct{}{}
	}
	for k, v := range src {
		if _, excluded := skipSet[k]; excluded {
			continue
		}
		m[k] = v
	}
}
