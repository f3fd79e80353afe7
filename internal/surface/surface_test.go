package surface

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestSurfaceOrdersSymbolsByName(t *testing.T) {
	s := New("m", []Symbol{
		{Name: "Zeta", Kind: KindConstant},
		{Name: "Alpha", Kind: KindFunction},
		{Name: "Mid", Kind: KindConstant},
	})

	syms := s.Symbols()
	if len(syms) != 3 {
		t.Fatalf("got %d symbols", len(syms))
	}
	for i, want := range []string{"Alpha", "Mid", "Zeta"} {
		if syms[i].Name != want {
			t.Errorf("symbol %d = %q, want %q", i, syms[i].Name, want)
		}
	}
}

func TestSurfaceLookupAndFilters(t *testing.T) {
	s := New("m", []Symbol{
		{Name: "Rate", Kind: KindConstant},
		{Name: "Run", Kind: KindFunction},
	})

	if _, ok := s.Lookup("Rate"); !ok {
		t.Error("Lookup(Rate) missed")
	}
	if _, ok := s.Lookup("Absent"); ok {
		t.Error("Lookup(Absent) hit")
	}
	if got := len(s.Functions()); got != 1 {
		t.Errorf("Functions() = %d entries", got)
	}
	if got := len(s.Constants()); got != 1 {
		t.Errorf("Constants() = %d entries", got)
	}
}

func TestCallable(t *testing.T) {
	fn := Symbol{Name: "F", Kind: KindFunction, Value: reflect.ValueOf(func() {})}
	if !fn.Callable() {
		t.Error("live function not callable")
	}

	degraded := Symbol{Name: "G", Kind: KindFunction}
	if degraded.Callable() {
		t.Error("symbol without value reported callable")
	}

	konst := Symbol{Name: "C", Kind: KindConstant, Value: reflect.ValueOf(1)}
	if konst.Callable() {
		t.Error("constant reported callable")
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	err := r.AddFunc("calc", "Add", func(a, b int) int { return a + b },
		ParamSpec{Name: "a"}, ParamSpec{Name: "b", Default: DefaultValue(10)})
	if err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	if err := r.AddConst("calc", "Base", 16); err != nil {
		t.Fatalf("AddConst: %v", err)
	}

	s, err := r.Load(context.Background(), "calc")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	add, ok := s.Lookup("Add")
	if !ok || !add.Callable() {
		t.Fatalf("Add not loaded as callable: %+v", add)
	}
	if len(add.Spec) != 2 {
		t.Fatalf("Add has %d param specs", len(add.Spec))
	}
	if add.Spec[0].Name != "a" || add.Spec[0].Type.Kind() != reflect.Int {
		t.Errorf("spec[0] = %+v", add.Spec[0])
	}
	if add.Spec[1].Default == nil {
		t.Error("spec[1] default lost")
	}

	base, ok := s.Lookup("Base")
	if !ok || base.Kind != KindConstant {
		t.Fatalf("Base not loaded as constant: %+v", base)
	}
}

func TestRegistryPositionalNames(t *testing.T) {
	r := NewRegistry()
	if err := r.AddFunc("m", "F", func(string, int) {}); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	s, _ := r.Load(context.Background(), "m")
	f, _ := s.Lookup("F")
	if f.Spec[0].Name != "arg0" || f.Spec[1].Name != "arg1" {
		t.Errorf("positional names = %q, %q", f.Spec[0].Name, f.Spec[1].Name)
	}
}

func TestRegistryRejectsBadRegistrations(t *testing.T) {
	r := NewRegistry()
	if err := r.AddFunc("m", "NotFunc", 42); err == nil {
		t.Error("non-function accepted")
	}
	if err := r.AddFunc("m", "F", func(int) {}, ParamSpec{Name: "a"}, ParamSpec{Name: "b"}); err == nil {
		t.Error("spec count mismatch accepted")
	}
	if err := r.AddFunc("m", "G", func() {}); err != nil {
		t.Fatalf("AddFunc: %v", err)
	}
	if err := r.AddConst("m", "G", 1); err == nil {
		t.Error("duplicate name accepted")
	}
}

func TestRegistryUnknownModuleIsImportFailure(t *testing.T) {
	r := NewRegistry()
	_, err := r.Load(context.Background(), "ghost")
	if !errors.Is(err, ErrImport) {
		t.Errorf("err = %v, want ErrImport", err)
	}
}
