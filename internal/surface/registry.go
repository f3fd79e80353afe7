package surface

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"paritycheck/internal/value"
)

// Registry is a Loader over compiled-in modules registered with
// explicit parameter metadata. It serves callables that cannot be
// interpreted and test fixtures. Registered defaults give the
// synthesizer a declared fallback input that Go syntax itself has no
// spelling for.
type Registry struct {
	mu      sync.RWMutex
	modules map[string][]Symbol
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string][]Symbol)}
}

// AddFunc registers a function under a module. When param specs are
// given there must be one per parameter; reflection stays authoritative
// for the types either way. Omitted names become positional.
func (r *Registry) AddFunc(moduleID, name string, fn any, params ...ParamSpec) error {
	rv := reflect.ValueOf(fn)
	if !rv.IsValid() || rv.Kind() != reflect.Func {
		return fmt.Errorf("register %s.%s: not a function", moduleID, name)
	}
	t := rv.Type()
	if len(params) > 0 && len(params) != t.NumIn() {
		return fmt.Errorf("register %s.%s: %d param specs for %d parameters",
			moduleID, name, len(params), t.NumIn())
	}

	specs := make([]ParamSpec, t.NumIn())
	for i := range specs {
		if len(params) > 0 {
			specs[i] = params[i]
		}
		if specs[i].Name == "" {
			specs[i].Name = fmt.Sprintf("arg%d", i)
		}
		specs[i].Type = t.In(i)
	}
	return r.add(moduleID, Symbol{Name: name, Kind: KindFunction, Value: rv, Spec: specs})
}

// AddConst registers a constant value under a module.
func (r *Registry) AddConst(moduleID, name string, v any) error {
	return r.add(moduleID, Symbol{Name: name, Kind: KindConstant, Value: reflect.ValueOf(v)})
}

func (r *Registry) add(moduleID string, sym Symbol) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.modules[moduleID] {
		if existing.Name == sym.Name {
			return fmt.Errorf("register %s.%s: already registered", moduleID, sym.Name)
		}
	}
	r.modules[moduleID] = append(r.modules[moduleID], sym)
	return nil
}

// Load returns the surface of a registered module.
func (r *Registry) Load(_ context.Context, moduleID string) (*Surface, error) {
	r.mu.RLock()
	syms, ok := r.modules[moduleID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: module %q not registered", ErrImport, moduleID)
	}
	return New(moduleID, syms), nil
}

// DefaultValue snapshots v for use as a ParamSpec default.
func DefaultValue(v any) *value.Value {
	snap := value.EncodeAny(v)
	return &snap
}
