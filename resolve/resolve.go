// Package resolve finds globals and module members by dotted name.
package resolve

import (
	"strings"

	"github.com/wippyai/wordcall/interp"
)

// Status tells what a lookup found.
type Status uint8

const (
	NotFound Status = iota
	Found
	FoundMethod
)

func (s Status) String() string {
	switch s {
	case Found:
		return "found"
	case FoundMethod:
		return "found method"
	}
	return "not found"
}

// Result of a name lookup. For FoundMethod, Value is the member and
// Receiver the instance it was read from.
type Result struct {
	Value    interp.Value
	Receiver interp.Value
	Status   Status
}

// Ok reports whether anything was found.
func (r Result) Ok() bool { return r.Status != NotFound }

// Call invokes the found value, passing the receiver first for methods.
func (r Result) Call(vm interp.VM, args ...interp.Value) (interp.Value, error) {
	if r.Status == FoundMethod {
		full := make([]interp.Value, 0, len(args)+1)
		full = append(full, r.Receiver)
		full = append(full, args...)
		return vm.Call(r.Value, full...)
	}
	return vm.Call(r.Value, args...)
}

// Resolve looks up name as a global, or as "module.member".
//
// Only one level of nesting is supported. Empty names, empty segments and
// names with more than one dot are not found. A failed lookup is never an
// error; callers decide whether absence is fatal.
func Resolve(vm interp.VM, name string) Result {
	if name == "" {
		return Result{}
	}
	prefix, suffix, dotted := strings.Cut(name, ".")
	if prefix == "" {
		return Result{}
	}
	if !dotted {
		v, ok := vm.Global(prefix)
		if !ok {
			return Result{}
		}
		return Result{Status: Found, Value: v}
	}
	if suffix == "" || strings.Contains(suffix, ".") {
		return Result{}
	}

	container, ok := vm.Global(prefix)
	if !ok {
		return Result{}
	}
	member, ok := vm.Member(container, suffix)
	if !ok {
		return Result{}
	}
	if vm.Kind(container) == interp.KindInstance {
		return Result{Status: FoundMethod, Value: member, Receiver: container}
	}
	return Result{Status: Found, Value: member}
}
