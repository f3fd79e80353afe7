package value

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// encodeDepth caps recursion through nested containers. Cyclic values
// (a slice containing itself) bottom out as opaque instead of hanging.
const encodeDepth = 32

// Encode snapshots a live Go value. Pointers and interfaces are
// dereferenced; nil of any kind becomes the nil snapshot. Structs
// encode as maps keyed by exported field name. Anything without a
// structural form (funcs, channels, complex numbers) becomes opaque.
func Encode(rv reflect.Value) Value {
	return encode(rv, encodeDepth)
}

// EncodeAny snapshots an interface value as returned by an interpreter.
func EncodeAny(v any) Value {
	if v == nil {
		return Nil()
	}
	return Encode(reflect.ValueOf(v))
}

func encode(rv reflect.Value, depth int) Value {
	if !rv.IsValid() {
		return Nil()
	}
	if depth <= 0 {
		return Value{Tag: TagOpaque, Type: rv.Type().String(), Scalar: "depth limit"}
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Nil()
		}
		return encode(rv.Elem(), depth-1)

	case reflect.Bool:
		return Bool(rv.Bool())

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint())

	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())

	case reflect.String:
		return Str(rv.String())

	case reflect.Slice:
		if rv.IsNil() {
			// nil and empty slices snapshot identically; a refactor
			// swapping one for the other is behavior-preserving.
			return List()
		}
		return encodeSeq(rv, depth)

	case reflect.Array:
		return encodeSeq(rv, depth)

	case reflect.Map:
		if rv.IsNil() {
			return Map()
		}
		entries := make([]Entry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, Entry{
				Key: keyText(iter.Key()),
				Val: encode(iter.Value(), depth-1),
			})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return Value{Tag: TagMap, Entries: entries}

	case reflect.Struct:
		t := rv.Type()
		entries := make([]Entry, 0, t.NumField())
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			entries = append(entries, Entry{Key: f.Name, Val: encode(rv.Field(i), depth-1)})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
		return Value{Tag: TagMap, Entries: entries}

	case reflect.Complex64, reflect.Complex128:
		return Value{
			Tag:    TagOpaque,
			Type:   rv.Type().String(),
			Scalar: strconv.FormatComplex(rv.Complex(), 'g', -1, 128),
		}

	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if rv.IsNil() {
			return Nil()
		}
		return Value{Tag: TagOpaque, Type: rv.Type().String(), Scalar: rv.Kind().String()}
	}

	return Value{Tag: TagOpaque, Type: rv.Type().String(), Scalar: fmt.Sprintf("%v", rv)}
}

func encodeSeq(rv reflect.Value, depth int) Value {
	elems := make([]Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elems[i] = encode(rv.Index(i), depth-1)
	}
	return Value{Tag: TagList, Elems: elems}
}

// keyText renders a map key in its canonical scalar text. Non-scalar
// keys (structs, arrays) fall back to their fmt form, which is stable
// for comparable types.
func keyText(rv reflect.Value) string {
	k := encode(rv, 4)
	switch k.Tag {
	case TagBool, TagInt, TagUint, TagFloat, TagString:
		return k.Scalar
	case TagNil:
		return "nil"
	}
	return fmt.Sprintf("%v", rv)
}
