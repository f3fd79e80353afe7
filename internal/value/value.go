// Package value implements self-describing snapshots of Go values.
// Snapshots survive JSON round-trips without losing numeric precision:
// integers and floats are stored as canonical decimal strings, so a
// baseline written today compares bit-for-bit against a candidate run
// months later.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Tag discriminates the snapshot payload. The string values are part of
// the persisted baseline format; do not rename.
type Tag string

const (
	TagNil    Tag = "nil"
	TagBool   Tag = "bool"
	TagInt    Tag = "int"
	TagUint   Tag = "uint"
	TagFloat  Tag = "float"
	TagString Tag = "string"
	TagList   Tag = "list"
	TagMap    Tag = "map"
	// TagOpaque covers values with no structural encoding (funcs,
	// channels, complex numbers). Compared by exact repr equality only.
	TagOpaque Tag = "opaque"
)

// Value is one snapshotted Go value. Scalars keep their payload in
// canonical text form (see scalar formatting in encode.go); lists and
// maps nest recursively. Map entries are sorted by key so the encoded
// form is deterministic.
type Value struct {
	Tag     Tag     `json:"t"`
	Scalar  string  `json:"v,omitempty"`
	Type    string  `json:"type,omitempty"`
	Elems   []Value `json:"elems,omitempty"`
	Entries []Entry `json:"entries,omitempty"`
}

// Entry is one map entry. Key is the canonical scalar text of the map
// key (or a struct field name).
type Entry struct {
	Key string `json:"k"`
	Val Value  `json:"val"`
}

// Nil returns the nil snapshot.
func Nil() Value { return Value{Tag: TagNil} }

// Bool returns a bool snapshot.
func Bool(b bool) Value { return Value{Tag: TagBool, Scalar: strconv.FormatBool(b)} }

// Int returns a signed integer snapshot.
func Int(n int64) Value { return Value{Tag: TagInt, Scalar: strconv.FormatInt(n, 10)} }

// Uint returns an unsigned integer snapshot.
func Uint(n uint64) Value { return Value{Tag: TagUint, Scalar: strconv.FormatUint(n, 10)} }

// Float returns a float snapshot. The 'g'/-1 form round-trips exactly
// through strconv.ParseFloat.
func Float(f float64) Value {
	return Value{Tag: TagFloat, Scalar: strconv.FormatFloat(f, 'g', -1, 64)}
}

// Str returns a string snapshot.
func Str(s string) Value { return Value{Tag: TagString, Scalar: s} }

// List returns a list snapshot of the given elements.
func List(elems ...Value) Value { return Value{Tag: TagList, Elems: elems} }

// Map returns a map snapshot. Entries are copied and sorted by key.
func Map(entries ...Entry) Value {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })
	return Value{Tag: TagMap, Entries: sorted}
}

// AsBool reports the payload of a bool snapshot.
func (v Value) AsBool() (bool, bool) {
	if v.Tag != TagBool {
		return false, false
	}
	b, err := strconv.ParseBool(v.Scalar)
	return b, err == nil
}

// AsInt reports the payload of a signed integer snapshot.
func (v Value) AsInt() (int64, bool) {
	if v.Tag != TagInt {
		return 0, false
	}
	n, err := strconv.ParseInt(v.Scalar, 10, 64)
	return n, err == nil
}

// AsUint reports the payload of an unsigned integer snapshot.
func (v Value) AsUint() (uint64, bool) {
	if v.Tag != TagUint {
		return 0, false
	}
	n, err := strconv.ParseUint(v.Scalar, 10, 64)
	return n, err == nil
}

// AsFloat reports any numeric snapshot widened to float64. Used by the
// comparator so an int on one side tolerates a float on the other.
func (v Value) AsFloat() (float64, bool) {
	switch v.Tag {
	case TagFloat:
		f, err := strconv.ParseFloat(v.Scalar, 64)
		return f, err == nil
	case TagInt:
		n, ok := v.AsInt()
		return float64(n), ok
	case TagUint:
		n, ok := v.AsUint()
		return float64(n), ok
	}
	return 0, false
}

// IsNumeric reports whether the snapshot carries a number.
func (v Value) IsNumeric() bool {
	return v.Tag == TagInt || v.Tag == TagUint || v.Tag == TagFloat
}

const maxRender = 160

// String renders a compact single-line form for report details. Long
// renderings are truncated; the full payload stays in the baseline.
func (v Value) String() string {
	s := v.render()
	if len(s) > maxRender {
		return s[:maxRender] + "..."
	}
	return s
}

func (v Value) render() string {
	switch v.Tag {
	case TagNil:
		return "nil"
	case TagBool, TagInt, TagUint, TagFloat:
		return v.Scalar
	case TagString:
		return strconv.Quote(v.Scalar)
	case TagList:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.render()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case TagMap:
		parts := make([]string, len(v.Entries))
		for i, e := range v.Entries {
			parts[i] = e.Key + ": " + e.Val.render()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case TagOpaque:
		if v.Type != "" {
			return fmt.Sprintf("%s(%s)", v.Type, v.Scalar)
		}
		return v.Scalar
	}
	return string(v.Tag)
}

// Lookup returns the entry value for key in a map snapshot.
func (v Value) Lookup(key string) (Value, bool) {
	for _, e := range v.Entries {
		if e.Key == key {
			return e.Val, true
		}
	}
	return Value{}, false
}

// Ctx returns the placeholder snapshot stored for context-typed
// parameters. Call harnesses replace it with the live context at
// invocation time; it never carries data of its own.
func Ctx() Value {
	return Value{Tag: TagOpaque, Type: "context.Context", Scalar: "ctx"}
}

// IsCtx reports whether the snapshot is the context placeholder.
func (v Value) IsCtx() bool {
	return v.Tag == TagOpaque && v.Type == "context.Context"
}
