package expr

import (
	"maps"
	"slices"
)

// Func is a registered generator function.
type Func struct {
	Returns Type
	Params  []Type
	// MinArgs is the number of required leading parameters.
	MinArgs int
	// Variadic repeats the last parameter type.
	Variadic bool
	Impl     func(env *Env, args []any) (any, error)
}

func (f Func) paramType(i int) Type {
	if i < len(f.Params) {
		return f.Params[i]
	}
	if f.Variadic && len(f.Params) > 0 {
		return f.Params[len(f.Params)-1]
	}
	return TypeAny
}

func (f Func) acceptsArgs(n int) bool {
	if n < f.MinArgs {
		return false
	}
	return f.Variadic || n <= len(f.Params)
}

type Registry struct {
	funcs map[string]Func
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

func (r *Registry) Register(name string, f Func) {
	r.funcs[name] = f
}

func (r *Registry) Lookup(name string) (Func, bool) {
	f, ok := r.funcs[name]
	return f, ok
}

// With returns a copy of r with name bound to f. The receiver is unchanged.
func (r *Registry) With(name string, f Func) *Registry {
	out := &Registry{funcs: maps.Clone(r.funcs)}
	out.funcs[name] = f
	return out
}

func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.funcs))
}
