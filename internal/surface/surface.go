// Package surface loads the observable surface of a module: its exported
// functions and constants, with live values and declared signatures.
// Interpreted modules come through YaegiLoader; compiled-in collaborators
// register through Registry with explicit parameter metadata.
package surface

import (
	"context"
	"errors"
	"reflect"
	"sort"

	"paritycheck/internal/value"
)

// ErrImport marks a module that could not be loaded at all. It is the
// only condition that aborts a run; everything narrower degrades into
// the report.
var ErrImport = errors.New("module import failed")

// Kind classifies an exported symbol.
type Kind string

const (
	KindFunction Kind = "function"
	// KindConstant covers exported const and package-level var
	// declarations; both are snapshotted values.
	KindConstant Kind = "constant"
)

// ParamSpec is explicit parameter metadata for registry-backed modules.
// Default, when set, is a declared fallback input the synthesizer may
// use when no canonical value set resolves.
type ParamSpec struct {
	Name    string
	Type    reflect.Type
	Default *value.Value
}

// FuncDecl carries what the source declaration knows and reflection
// does not: parameter names and the variadic marker.
type FuncDecl struct {
	ParamNames []string
	Variadic   bool
}

// Symbol is one exported member of a module. Value may be invalid when
// the symbol was declared but could not be evaluated; such symbols
// degrade to existence-only checks downstream.
type Symbol struct {
	Name  string
	Kind  Kind
	Value reflect.Value
	Decl  *FuncDecl   // set for interpreted functions
	Spec  []ParamSpec // set for registry functions
}

// Callable reports whether the symbol holds a live function value.
func (s Symbol) Callable() bool {
	return s.Kind == KindFunction && s.Value.IsValid() && s.Value.Kind() == reflect.Func
}

// Surface is the symbol table of one loaded module, ordered by name.
// It is immutable after construction.
type Surface struct {
	moduleID string
	symbols  []Symbol
	index    map[string]int
}

// New builds a surface from a symbol list. Symbols are sorted by name
// so iteration order never depends on load order.
func New(moduleID string, symbols []Symbol) *Surface {
	sorted := make([]Symbol, len(symbols))
	copy(sorted, symbols)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	index := make(map[string]int, len(sorted))
	for i, sym := range sorted {
		index[sym.Name] = i
	}
	return &Surface{moduleID: moduleID, symbols: sorted, index: index}
}

// ModuleID returns the identifier the surface was loaded from.
func (s *Surface) ModuleID() string { return s.moduleID }

// Symbols returns all symbols in name order. Callers must not modify
// the returned slice.
func (s *Surface) Symbols() []Symbol { return s.symbols }

// Lookup finds a symbol by name.
func (s *Surface) Lookup(name string) (Symbol, bool) {
	i, ok := s.index[name]
	if !ok {
		return Symbol{}, false
	}
	return s.symbols[i], true
}

// Functions returns the function symbols in name order.
func (s *Surface) Functions() []Symbol { return s.byKind(KindFunction) }

// Constants returns the constant symbols in name order.
func (s *Surface) Constants() []Symbol { return s.byKind(KindConstant) }

func (s *Surface) byKind(k Kind) []Symbol {
	var out []Symbol
	for _, sym := range s.symbols {
		if sym.Kind == k {
			out = append(out, sym)
		}
	}
	return out
}

// Loader resolves a module ID to its surface. For interpreted modules
// the ID is a directory path; for registry modules it is the registered
// name.
type Loader interface {
	Load(ctx context.Context, moduleID string) (*Surface, error)
}
