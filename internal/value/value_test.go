package value

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestEncodeScalars(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"bool", true, Bool(true)},
		{"int", 42, Int(42)},
		{"negative int", -7, Int(-7)},
		{"uint", uint(9), Uint(9)},
		{"float", 1.5, Float(1.5)},
		{"string", "abc", Str("abc")},
		{"nil", nil, Nil()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeAny(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EncodeAny(%v) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeDerefsPointers(t *testing.T) {
	n := 12
	got := EncodeAny(&n)
	if !reflect.DeepEqual(got, Int(12)) {
		t.Errorf("pointer snapshot = %+v, want int 12", got)
	}

	var p *int
	if got := EncodeAny(p); got.Tag != TagNil {
		t.Errorf("nil pointer snapshot = %+v, want nil", got)
	}
}

func TestEncodeContainers(t *testing.T) {
	got := EncodeAny([]int{1, 2, 3})
	want := List(Int(1), Int(2), Int(3))
	if !reflect.DeepEqual(got, want) {
		t.Errorf("slice snapshot = %+v, want %+v", got, want)
	}

	got = EncodeAny(map[string]int{"b": 2, "a": 1})
	want = Map(Entry{Key: "a", Val: Int(1)}, Entry{Key: "b", Val: Int(2)})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("map snapshot = %+v, want sorted entries %+v", got, want)
	}
}

func TestEncodeStructUsesExportedFields(t *testing.T) {
	type point struct {
		X, Y int
		tag  string
	}
	_ = point{tag: "hidden"}

	got := EncodeAny(point{X: 3, Y: 4, tag: "x"})
	want := Map(Entry{Key: "X", Val: Int(3)}, Entry{Key: "Y", Val: Int(4)})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("struct snapshot = %+v, want %+v", got, want)
	}
}

func TestEncodeNilSliceEqualsEmpty(t *testing.T) {
	var s []string
	if got := EncodeAny(s); !reflect.DeepEqual(got, List()) {
		t.Errorf("nil slice snapshot = %+v, want empty list", got)
	}
}

func TestFloatRoundTripKeepsPrecision(t *testing.T) {
	f := 0.1 + 0.2
	v := Float(f)

	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Value
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	got, ok := back.AsFloat()
	if !ok {
		t.Fatalf("AsFloat failed on %+v", back)
	}
	if got != f {
		t.Errorf("round-trip changed %v to %v", f, got)
	}
	if back.Scalar != "0.30000000000000004" {
		t.Errorf("canonical form = %q", back.Scalar)
	}
}

func TestFloatSpecials(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		v := Float(f)
		got, ok := v.AsFloat()
		if !ok {
			t.Fatalf("AsFloat failed for %v (scalar %q)", f, v.Scalar)
		}
		if math.IsNaN(f) {
			if !math.IsNaN(got) {
				t.Errorf("NaN round-trip = %v", got)
			}
		} else if got != f {
			t.Errorf("round-trip changed %v to %v", f, got)
		}
	}
}

func TestAsFloatWidensIntegers(t *testing.T) {
	if f, ok := Int(-3).AsFloat(); !ok || f != -3.0 {
		t.Errorf("Int(-3).AsFloat() = %v, %v", f, ok)
	}
	if f, ok := Uint(8).AsFloat(); !ok || f != 8.0 {
		t.Errorf("Uint(8).AsFloat() = %v, %v", f, ok)
	}
	if _, ok := Str("3").AsFloat(); ok {
		t.Error("string snapshot should not widen to float")
	}
}

func TestStringRendering(t *testing.T) {
	tests := []struct {
		in   Value
		want string
	}{
		{Nil(), "nil"},
		{Int(45), "45"},
		{Str("abc"), `"abc"`},
		{List(Int(1), Str("x")), `[1, "x"]`},
		{Map(Entry{Key: "a", Val: Bool(true)}), "{a: true}"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDecodeRebuildsInputs(t *testing.T) {
	rv, err := Decode(Float(1.5), reflect.TypeOf(float64(0)))
	if err != nil {
		t.Fatalf("decode float: %v", err)
	}
	if rv.Float() != 1.5 {
		t.Errorf("decoded float = %v", rv.Float())
	}

	rv, err = Decode(Int(100), reflect.TypeOf(float64(0)))
	if err != nil {
		t.Fatalf("decode int into float: %v", err)
	}
	if rv.Float() != 100.0 {
		t.Errorf("widened int = %v", rv.Float())
	}

	rv, err = Decode(List(Str("a"), Str("b")), reflect.TypeOf([]string(nil)))
	if err != nil {
		t.Fatalf("decode slice: %v", err)
	}
	if got := rv.Interface().([]string); len(got) != 2 || got[0] != "a" {
		t.Errorf("decoded slice = %v", got)
	}
}

func TestDecodeRejectsShapeMismatch(t *testing.T) {
	if _, err := Decode(Str("x"), reflect.TypeOf(0)); err == nil {
		t.Error("string into int should fail")
	}
	if _, err := Decode(Int(-1), reflect.TypeOf(uint8(0))); err == nil {
		t.Error("negative into uint8 should fail")
	}
	if _, err := Decode(Int(300), reflect.TypeOf(int8(0))); err == nil {
		t.Error("overflow into int8 should fail")
	}
}

func TestDecodeStruct(t *testing.T) {
	type config struct {
		Name  string
		Count int
	}
	snap := Map(
		Entry{Key: "Count", Val: Int(3)},
		Entry{Key: "Name", Val: Str("run")},
	)
	rv, err := Decode(snap, reflect.TypeOf(config{}))
	if err != nil {
		t.Fatalf("decode struct: %v", err)
	}
	got := rv.Interface().(config)
	if got.Name != "run" || got.Count != 3 {
		t.Errorf("decoded struct = %+v", got)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	inputs := []any{
		true,
		int64(-42),
		3.14159,
		"hello",
		[]float64{0, 1.5, 3.0},
		map[string]int{"a": 1, "b": 2},
	}
	for _, in := range inputs {
		snap := EncodeAny(in)
		rv, err := Decode(snap, reflect.TypeOf(in))
		if err != nil {
			t.Fatalf("decode %T: %v", in, err)
		}
		if !reflect.DeepEqual(rv.Interface(), in) {
			t.Errorf("round trip %T: got %v, want %v", in, rv.Interface(), in)
		}
	}
}
