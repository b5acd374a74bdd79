package module

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/wippyai/archive-runtime/archive"
	"github.com/wippyai/archive-runtime/errors"
)

// Namespace is the host-side table a Registry installs its functions into.
type Namespace interface {
	Set(name string, fn any)
}

// Table is a Namespace backed by a plain map.
type Table map[string]any

func (t Table) Set(name string, fn any) { t[name] = fn }

// Registry holds named host functions.
type Registry struct {
	funcs map[string]*Func
	mu    sync.RWMutex
}

// Func is one registered host function.
type Func struct {
	Handler any
	value   reflect.Value
}

// ExplicitRegistrar lets a host object provide exact function names when
// the automatic PascalCase to snake_case conversion does not apply
// (e.g. "_read_ref_count").
type ExplicitRegistrar interface {
	Register() map[string]any
}

func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]*Func)}
}

// Register adds fn under name, replacing any previous function of that name.
func (r *Registry) Register(name string, fn any) error {
	if name == "" {
		return errors.New(errors.PhaseModule, errors.KindConfiguration).
			Detail("function name cannot be empty").
			Build()
	}

	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return errors.New(errors.PhaseModule, errors.KindConfiguration).
			Op(name).
			Value(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = &Func{Handler: fn, value: rv}
	return nil
}

// RegisterMethods registers the functions of a host object. Objects that
// implement ExplicitRegistrar contribute exactly the functions they list;
// otherwise every exported method is registered under its snake_case name.
func (r *Registry) RegisterMethods(h any) error {
	if er, ok := h.(ExplicitRegistrar); ok {
		for name, fn := range er.Register() {
			if err := r.Register(name, fn); err != nil {
				return err
			}
		}
		return nil
	}

	rv := reflect.ValueOf(h)
	if !rv.IsValid() {
		return errors.New(errors.PhaseModule, errors.KindConfiguration).
			Detail("host object cannot be nil").
			Build()
	}
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() {
			continue
		}
		if err := r.Register(toSnakeCase(method.Name), rv.Method(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the function registered under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.funcs[name]
	if !ok {
		return nil, false
	}
	return f.Handler, true
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Install sets every registered function on ns.
func (r *Registry) Install(ns Namespace) {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		ns.Set(name, r.funcs[name].Handler)
	}
	archive.Logger().Debug("namespace installed", zap.Strings("functions", names))
}

// Call invokes the function registered under name with dynamically typed
// arguments, the way an embedding interpreter would. Arguments are
// converted to the parameter types where Go allows it; nil becomes the zero
// value. A non-nil trailing error result is returned as the error, and a
// panic in the function is reported as a host error.
func (r *Registry) Call(name string, args ...any) (results []any, err error) {
	r.mu.RLock()
	f, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.New(errors.PhaseModule, errors.KindConfiguration).
			Op(name).
			Detail("no such function").
			Build()
	}

	in, err := convertArgs(name, f.value.Type(), args)
	if err != nil {
		return nil, err
	}

	defer func() {
		if p := recover(); p != nil {
			results = nil
			err = errors.New(errors.PhaseModule, errors.KindHost).
				Op(name).
				Detail("panicked: %v", p).
				Build()
		}
	}()

	out := f.value.Call(in)
	return splitResults(f.value.Type(), out)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func convertArgs(name string, ft reflect.Type, args []any) ([]reflect.Value, error) {
	n := ft.NumIn()
	if ft.IsVariadic() {
		if len(args) < n-1 {
			return nil, arity(name, fmt.Sprintf("at least %d", n-1), len(args))
		}
	} else if len(args) != n {
		return nil, arity(name, fmt.Sprint(n), len(args))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		var pt reflect.Type
		if ft.IsVariadic() && i >= n-1 {
			pt = ft.In(n - 1).Elem()
		} else {
			pt = ft.In(i)
		}
		v, ok := convert(arg, pt)
		if !ok {
			return nil, errors.New(errors.PhaseModule, errors.KindConfiguration).
				Op(name).
				Path(fmt.Sprintf("arg%d", i+1)).
				Value(arg).
				Detail("cannot use %T as %s", arg, pt).
				Build()
		}
		in[i] = v
	}
	return in, nil
}

func arity(name, want string, got int) error {
	return errors.New(errors.PhaseModule, errors.KindConfiguration).
		Op(name).
		Detail("expected %s arguments, got %d", want, got).
		Build()
}

func convert(arg any, pt reflect.Type) (reflect.Value, bool) {
	if arg == nil {
		return reflect.Zero(pt), true
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(pt) {
		return v, true
	}
	if isNumeric(v.Kind()) && isNumeric(pt.Kind()) {
		return v.Convert(pt), true
	}
	return reflect.Value{}, false
}

func isNumeric(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func splitResults(ft reflect.Type, out []reflect.Value) ([]any, error) {
	if n := len(out); n > 0 && ft.Out(n-1) == errorType {
		last := out[n-1]
		out = out[:n-1]
		if !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	results := make([]any, len(out))
	for i, v := range out {
		results[i] = v.Interface()
	}
	return results, nil
}

// toSnakeCase converts PascalCase to snake_case.
// An acronym ends where a lowercase letter begins a new word, so
// HTTPServer becomes http_server. Adjacent acronyms stay joined:
// ReadHTTPURL becomes read_httpurl.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var result strings.Builder

	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if unicode.IsUpper(r) {
			acronymEnd := i + 1
			for acronymEnd < len(runes) && unicode.IsUpper(runes[acronymEnd]) {
				acronymEnd++
			}

			if acronymEnd > i+1 {
				// Last uppercase before lowercase starts next word, not part of acronym
				if acronymEnd < len(runes) && unicode.IsLower(runes[acronymEnd]) {
					acronymEnd--
				}
			}

			if i > 0 {
				result.WriteByte('_')
			}

			for j := i; j < acronymEnd; j++ {
				result.WriteRune(unicode.ToLower(runes[j]))
			}
			i = acronymEnd - 1
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
