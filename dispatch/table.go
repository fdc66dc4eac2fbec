package dispatch

import (
	"context"
	"sort"

	"github.com/wippyai/wordcall/errors"
	"github.com/wippyai/wordcall/interp"
)

// Table is a set of bindings sorted by name, the usual way a native module
// exposes its functions.
type Table struct {
	bindings []*Binding
}

// NewTable sorts bindings by name. Duplicate names are an error.
func NewTable(bindings ...*Binding) (*Table, error) {
	sorted := make([]*Binding, 0, len(bindings))
	for _, b := range bindings {
		if b == nil || b.Func == nil {
			return nil, errors.InvalidInput(errors.PhaseRegister, "binding without native function")
		}
		sorted = append(sorted, b)
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].name() < sorted[j].name() })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].name() == sorted[i-1].name() {
			return nil, errors.InvalidInput(errors.PhaseRegister, "duplicate binding "+sorted[i].name())
		}
	}
	return &Table{bindings: sorted}, nil
}

// Lookup finds a binding by binary search.
func (t *Table) Lookup(name string) (*Binding, bool) {
	i := sort.Search(len(t.bindings), func(i int) bool { return t.bindings[i].name() >= name })
	if i < len(t.bindings) && t.bindings[i].name() == name {
		return t.bindings[i], true
	}
	return nil, false
}

// Len returns the number of bindings.
func (t *Table) Len() int { return len(t.bindings) }

// Names returns the binding names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.bindings))
	for i, b := range t.bindings {
		names[i] = b.name()
	}
	return names
}

// Install hands every binding to set as a callable, typically to add it to
// an interpreter module or class.
func (t *Table) Install(ctx context.Context, d *Dispatcher, set func(name string, fn func(args []interp.Value) (interp.Value, error))) {
	for _, b := range t.bindings {
		set(b.name(), d.Func(ctx, b))
	}
}
