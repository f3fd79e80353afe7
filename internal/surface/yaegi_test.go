package surface

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeModule(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func TestYaegiLoadBasicModule(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"geometry.go": `package geometry

const FrameRate = 30

var MaxFrames = 10000

func GetFrameFromTime(seconds float64) int {
	return int(seconds * FrameRate)
}

func Join(parts ...string) string {
	out := ""
	for _, p := range parts {
		out += p
	}
	return out
}
`,
	})

	s, err := NewYaegiLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	frame, ok := s.Lookup("GetFrameFromTime")
	if !ok || !frame.Callable() {
		t.Fatalf("GetFrameFromTime not callable: %+v", frame)
	}
	if frame.Decl == nil || len(frame.Decl.ParamNames) != 1 || frame.Decl.ParamNames[0] != "seconds" {
		t.Errorf("param names = %+v", frame.Decl)
	}
	out := frame.Value.Call([]reflect.Value{reflect.ValueOf(3.0)})
	if got := out[0].Int(); got != 90 {
		t.Errorf("GetFrameFromTime(3.0) = %d, want 90", got)
	}

	rate, ok := s.Lookup("FrameRate")
	if !ok || rate.Kind != KindConstant {
		t.Fatalf("FrameRate not a constant: %+v", rate)
	}
	if !rate.Value.CanInt() || rate.Value.Int() != 30 {
		t.Errorf("FrameRate value = %v", rate.Value)
	}

	if _, ok := s.Lookup("MaxFrames"); !ok {
		t.Error("exported var missing from surface")
	}

	join, _ := s.Lookup("Join")
	if join.Decl == nil || !join.Decl.Variadic {
		t.Error("variadic marker lost")
	}
}

func TestYaegiLoadMultiFileOutOfOrder(t *testing.T) {
	// a.go sorts first but depends on the helper declared in z.go, so
	// the first evaluation pass fails and the retry must resolve it.
	dir := writeModule(t, map[string]string{
		"a.go": `package calc

func Scaled(x float64) float64 {
	return x * scale
}
`,
		"z.go": `package calc

var scale = 2.5
`,
	})

	s, err := NewYaegiLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sym, ok := s.Lookup("Scaled")
	if !ok || !sym.Callable() {
		t.Fatalf("Scaled not callable: %+v", sym)
	}
	out := sym.Value.Call([]reflect.Value{reflect.ValueOf(4.0)})
	if got := out[0].Float(); got != 10.0 {
		t.Errorf("Scaled(4.0) = %v, want 10.0", got)
	}
}

func TestYaegiLoadClassifiesClosureVarAsFunction(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"mod.go": `package mod

var Double = func(x int) int { return x * 2 }
`,
	})

	s, err := NewYaegiLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d, ok := s.Lookup("Double")
	if !ok || d.Kind != KindFunction || !d.Callable() {
		t.Fatalf("Double = %+v, want callable function", d)
	}
}

func TestYaegiLoadSkipsTestFilesAndUnexported(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"mod.go": `package mod

const visible = 1

func hidden() int { return visible }

func Shown() int { return hidden() }
`,
		"mod_test.go": `package mod

func TestNothing() {}
`,
	})

	s, err := NewYaegiLoader().Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(s.Symbols()); got != 1 {
		t.Fatalf("surface has %d symbols, want only Shown", got)
	}
	if _, ok := s.Lookup("Shown"); !ok {
		t.Error("Shown missing")
	}
}

func TestYaegiLoadRejectsForbiddenImports(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"mod.go": `package mod

import "os/exec"

func Run() { _ = exec.Command }
`,
	})

	_, err := NewYaegiLoader().Load(context.Background(), dir)
	if !errors.Is(err, ErrImport) {
		t.Fatalf("err = %v, want ErrImport", err)
	}
	if !strings.Contains(err.Error(), "forbidden imports") {
		t.Errorf("error does not name forbidden imports: %v", err)
	}
}

func TestYaegiLoadFailsOnEmptyOrMissingDir(t *testing.T) {
	if _, err := NewYaegiLoader().Load(context.Background(), t.TempDir()); !errors.Is(err, ErrImport) {
		t.Errorf("empty dir err = %v, want ErrImport", err)
	}
	if _, err := NewYaegiLoader().Load(context.Background(), "/nowhere/at/all"); !errors.Is(err, ErrImport) {
		t.Errorf("missing dir err = %v, want ErrImport", err)
	}
}

func TestYaegiLoadRejectsConflictingPackages(t *testing.T) {
	dir := writeModule(t, map[string]string{
		"a.go": "package one\n",
		"b.go": "package two\n",
	})
	_, err := NewYaegiLoader().Load(context.Background(), dir)
	if !errors.Is(err, ErrImport) {
		t.Errorf("err = %v, want ErrImport", err)
	}
}
