package native

import (
	"reflect"
	"sort"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/zap"

	"github.com/wippyai/wordcall/errors"
)

// Host is the interface for struct-based native modules.
// All exported methods (except Namespace) are registered as functions,
// named in snake_case: CreateObject becomes create_object.
type Host interface {
	// Namespace returns the module name the functions are grouped under.
	Namespace() string
}

// Registry groups native functions by namespace.
type Registry struct {
	funcs map[string]map[string]Func
	mu    sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]map[string]Func),
	}
}

// Register adds a Func under namespace. A later registration of the same
// name replaces the earlier one.
func (r *Registry) Register(namespace string, f Func) error {
	if namespace == "" {
		return errors.InvalidInput(errors.PhaseRegister, "namespace cannot be empty")
	}
	if f == nil || f.Name() == "" {
		return errors.InvalidInput(errors.PhaseRegister, "function name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.funcs[namespace] == nil {
		r.funcs[namespace] = make(map[string]Func)
	}
	r.funcs[namespace][f.Name()] = f
	Logger().Debug("native registered",
		zap.String("namespace", namespace),
		zap.String("name", f.Name()),
		zap.Int("arity", f.Arity()))
	return nil
}

// RegisterFunc adapts fn with Go and registers it.
func (r *Registry) RegisterFunc(namespace, name string, fn any) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "function name cannot be empty")
	}
	f, err := Go(name, fn)
	if err != nil {
		return err
	}
	return r.Register(namespace, f)
}

// RegisterHost registers every exported method of h.
func (r *Registry) RegisterHost(h Host) error {
	ns := h.Namespace()
	if ns == "" {
		return errors.InvalidInput(errors.PhaseRegister, "namespace cannot be empty")
	}

	rv := reflect.ValueOf(h)
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		method := rt.Method(i)
		if !method.IsExported() || method.Name == "Namespace" {
			continue
		}
		f, err := Go(toSnakeCase(method.Name), rv.Method(i).Interface())
		if err != nil {
			return err
		}
		if err := r.Register(ns, f); err != nil {
			return err
		}
	}
	return nil
}

// RegisterModule registers every word-typed export of a wasm module under
// namespace.
func (r *Registry) RegisterModule(namespace string, m *Module) error {
	for _, name := range m.Exports() {
		if name == MallocExport || name == FreeExport {
			continue
		}
		f, err := m.Func(name)
		if err != nil {
			return err
		}
		if err := r.Register(namespace, &renamed{Func: f, name: name}); err != nil {
			return err
		}
	}
	return nil
}

// Lookup finds a function by "namespace.name".
func (r *Registry) Lookup(qualified string) (Func, bool) {
	ns, name, ok := strings.Cut(qualified, ".")
	if !ok {
		return nil, false
	}
	return r.Get(ns, name)
}

// Get finds a function by namespace and name.
func (r *Registry) Get(namespace, name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funcs[namespace][name]
	return f, ok
}

// Namespaces lists registered namespaces, sorted.
func (r *Registry) Namespaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.funcs))
	for ns := range r.funcs {
		names = append(names, ns)
	}
	sort.Strings(names)
	return names
}

// Funcs returns the functions of a namespace sorted by name.
func (r *Registry) Funcs(namespace string) []Func {
	r.mu.RLock()
	defer r.mu.RUnlock()

	funcs := make([]Func, 0, len(r.funcs[namespace]))
	for _, f := range r.funcs[namespace] {
		funcs = append(funcs, f)
	}
	sort.Slice(funcs, func(i, j int) bool { return funcs[i].Name() < funcs[j].Name() })
	return funcs
}

// renamed registers a module export under its bare export name.
type renamed struct {
	Func
	name string
}

func (r *renamed) Name() string { return r.name }

// toSnakeCase converts PascalCase to snake_case.
// Handles acronyms: GetHTTPURL -> get_http_url
func toSnakeCase(s string) string {
	if len(s) == 0 {
		return ""
	}

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
