// Package introspect turns a loaded function symbol into parameter
// descriptors. Reflection is authoritative for parameter count and
// types; declaration metadata (AST names, registry specs) contributes
// the names and defaults reflection cannot see.
package introspect

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"paritycheck/internal/surface"
	"paritycheck/internal/value"
)

// ErrIntrospect marks a symbol whose signature could not be read. The
// symbol degrades to an existence-only check; the run continues.
var ErrIntrospect = errors.New("signature introspection failed")

// ErrVariadic marks a variadic function. Input synthesis cannot cover
// open-ended argument lists, so the function degrades the same way.
var ErrVariadic = errors.New("variadic parameters unsupported")

// Strategy records how inputs for a parameter were chosen. Filled in
// by the synthesizer; persisted with the baseline so reports can say
// where a case came from.
type Strategy string

const (
	StrategyUnset      Strategy = ""
	StrategyByType     Strategy = "by-type"
	StrategyByName     Strategy = "by-name"
	StrategyByDefault  Strategy = "by-default"
	StrategyContext    Strategy = "context"
	StrategyUnresolved Strategy = "unresolved"
)

// Param describes one parameter of a function under validation.
type Param struct {
	Name       string
	Type       reflect.Type
	IsContext  bool
	HasDefault bool
	Default    value.Value
	Strategy   Strategy
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()

// Describe builds parameter descriptors for a function symbol.
// Context-typed parameters are marked rather than synthesized; the
// invoker injects the live call context for those positions.
func Describe(sym surface.Symbol) ([]Param, error) {
	if sym.Kind != surface.KindFunction {
		return nil, fmt.Errorf("%w: %s is not a function", ErrIntrospect, sym.Name)
	}
	if !sym.Callable() {
		return nil, fmt.Errorf("%w: %s has no live value", ErrIntrospect, sym.Name)
	}

	t := sym.Value.Type()
	if t.IsVariadic() || (sym.Decl != nil && sym.Decl.Variadic) {
		return nil, fmt.Errorf("%w: %s", ErrVariadic, sym.Name)
	}

	params := make([]Param, t.NumIn())
	for i := range params {
		pt := t.In(i)
		params[i] = Param{
			Name:      paramName(sym, i),
			Type:      pt,
			IsContext: pt == contextType,
		}
		if i < len(sym.Spec) && sym.Spec[i].Default != nil {
			params[i].HasDefault = true
			params[i].Default = *sym.Spec[i].Default
		}
	}
	return params, nil
}

func paramName(sym surface.Symbol, i int) string {
	if i < len(sym.Spec) && sym.Spec[i].Name != "" {
		return sym.Spec[i].Name
	}
	if sym.Decl != nil && i < len(sym.Decl.ParamNames) && sym.Decl.ParamNames[i] != "" {
		return sym.Decl.ParamNames[i]
	}
	return fmt.Sprintf("arg%d", i)
}
