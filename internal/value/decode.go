package value

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Decode reconstructs a live Go value of type t from a snapshot. It is
// the inverse of Encode for the types synthesis produces; opaque
// snapshots and shape mismatches return an error so the caller can
// record the case as untestable rather than guess.
func Decode(v Value, t reflect.Type) (reflect.Value, error) {
	switch v.Tag {
	case TagNil:
		switch t.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Map, reflect.Interface, reflect.Chan, reflect.Func:
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not assignable to %s", t)

	case TagBool:
		b, ok := v.AsBool()
		if !ok {
			return reflect.Value{}, fmt.Errorf("malformed bool payload %q", v.Scalar)
		}
		if t.Kind() == reflect.Interface {
			return reflect.ValueOf(b), nil
		}
		if t.Kind() != reflect.Bool {
			return reflect.Value{}, fmt.Errorf("bool is not assignable to %s", t)
		}
		out := reflect.New(t).Elem()
		out.SetBool(b)
		return out, nil

	case TagInt:
		n, ok := v.AsInt()
		if !ok {
			return reflect.Value{}, fmt.Errorf("malformed int payload %q", v.Scalar)
		}
		return decodeInt(n, t)

	case TagUint:
		n, ok := v.AsUint()
		if !ok {
			return reflect.Value{}, fmt.Errorf("malformed uint payload %q", v.Scalar)
		}
		if n <= math.MaxInt64 {
			return decodeInt(int64(n), t)
		}
		if t.Kind() == reflect.Interface {
			return reflect.ValueOf(n), nil
		}
		out := reflect.New(t).Elem()
		switch t.Kind() {
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
			if out.OverflowUint(n) {
				return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
			}
			out.SetUint(n)
			return out, nil
		}
		return reflect.Value{}, fmt.Errorf("uint is not assignable to %s", t)

	case TagFloat:
		f, err := strconv.ParseFloat(v.Scalar, 64)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("malformed float payload %q", v.Scalar)
		}
		if t.Kind() == reflect.Interface {
			return reflect.ValueOf(f), nil
		}
		switch t.Kind() {
		case reflect.Float32, reflect.Float64:
			out := reflect.New(t).Elem()
			out.SetFloat(f)
			return out, nil
		}
		return reflect.Value{}, fmt.Errorf("float is not assignable to %s", t)

	case TagString:
		if t.Kind() == reflect.Interface {
			return reflect.ValueOf(v.Scalar), nil
		}
		if t.Kind() != reflect.String {
			return reflect.Value{}, fmt.Errorf("string is not assignable to %s", t)
		}
		out := reflect.New(t).Elem()
		out.SetString(v.Scalar)
		return out, nil

	case TagList:
		return decodeList(v, t)

	case TagMap:
		return decodeMap(v, t)
	}

	return reflect.Value{}, fmt.Errorf("cannot reconstruct %s snapshot", v.Tag)
}

func decodeInt(n int64, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Interface {
		return reflect.ValueOf(n), nil
	}
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if out.OverflowInt(n) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetInt(n)
		return out, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, fmt.Errorf("%d overflows %s", n, t)
		}
		out.SetUint(uint64(n))
		return out, nil
	case reflect.Float32, reflect.Float64:
		// Widening an int input to a float parameter is exact within
		// the synthesis range.
		out.SetFloat(float64(n))
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("int is not assignable to %s", t)
}

func decodeList(v Value, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Interface {
		elems := make([]any, len(v.Elems))
		for i, e := range v.Elems {
			ev, err := Decode(e, t)
			if err != nil {
				return reflect.Value{}, err
			}
			elems[i] = ev.Interface()
		}
		return reflect.ValueOf(elems), nil
	}
	switch t.Kind() {
	case reflect.Slice:
		out := reflect.MakeSlice(t, len(v.Elems), len(v.Elems))
		for i, e := range v.Elems {
			ev, err := Decode(e, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	case reflect.Array:
		if t.Len() != len(v.Elems) {
			return reflect.Value{}, fmt.Errorf("list of %d elements is not assignable to %s", len(v.Elems), t)
		}
		out := reflect.New(t).Elem()
		for i, e := range v.Elems {
			ev, err := Decode(e, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(ev)
		}
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("list is not assignable to %s", t)
}

func decodeMap(v Value, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Interface {
		out := make(map[string]any, len(v.Entries))
		for _, e := range v.Entries {
			ev, err := Decode(e.Val, t)
			if err != nil {
				return reflect.Value{}, err
			}
			out[e.Key] = ev.Interface()
		}
		return reflect.ValueOf(out), nil
	}
	switch t.Kind() {
	case reflect.Map:
		out := reflect.MakeMapWithSize(t, len(v.Entries))
		for _, e := range v.Entries {
			kv, err := decodeKey(e.Key, t.Key())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("key %q: %w", e.Key, err)
			}
			ev, err := Decode(e.Val, t.Elem())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("entry %q: %w", e.Key, err)
			}
			out.SetMapIndex(kv, ev)
		}
		return out, nil
	case reflect.Struct:
		out := reflect.New(t).Elem()
		for _, e := range v.Entries {
			f := out.FieldByName(e.Key)
			if !f.IsValid() || !f.CanSet() {
				return reflect.Value{}, fmt.Errorf("%s has no settable field %s", t, e.Key)
			}
			ev, err := Decode(e.Val, f.Type())
			if err != nil {
				return reflect.Value{}, fmt.Errorf("field %s: %w", e.Key, err)
			}
			f.Set(ev)
		}
		return out, nil
	case reflect.Ptr:
		inner, err := decodeMap(v, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t.Elem())
		out.Elem().Set(inner)
		return out, nil
	}
	return reflect.Value{}, fmt.Errorf("map is not assignable to %s", t)
}

// decodeKey parses a canonical key string back into a map key value.
func decodeKey(key string, t reflect.Type) (reflect.Value, error) {
	switch t.Kind() {
	case reflect.String:
		out := reflect.New(t).Elem()
		out.SetString(key)
		return out, nil
	case reflect.Bool:
		b, err := strconv.ParseBool(key)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		out.SetBool(b)
		return out, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		return decodeInt(n, t)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(key, 10, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		out.SetUint(n)
		return out, nil
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(key, 64)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(t).Elem()
		out.SetFloat(f)
		return out, nil
	case reflect.Interface:
		return reflect.ValueOf(key), nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported key type %s", t)
}
