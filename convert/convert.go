// Package convert turns interpreter values into machine words according to
// a descriptor tag.
package convert

import (
	"context"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/descriptor"
	"github.com/wippyai/wordcall/errors"
	"github.com/wippyai/wordcall/interp"
	"github.com/wippyai/wordcall/resolve"
)

// DefaultCallbackGenerator is the name resolved to turn closures into
// native callback addresses.
const DefaultCallbackGenerator = "_callbacks.gen_cb"

// MaxDepth bounds recursion through pointer members. Wrapped object graphs
// are not checked for cycles, so a cyclic _p chain stops here.
const MaxDepth = 64

// Converter converts values for one interpreter.
type Converter struct {
	vm        interp.VM
	generator string
}

// New creates a converter. An empty generator name selects
// DefaultCallbackGenerator.
func New(vm interp.VM, generator string) *Converter {
	if generator == "" {
		generator = DefaultCallbackGenerator
	}
	return &Converter{vm: vm, generator: generator}
}

// VM returns the interpreter the converter works on.
func (c *Converter) VM() interp.VM { return c.vm }

// Call is the call-local state of one conversion pass: the heap strings are
// placed in, the context value handed to callback generators, and the
// strings to release once the native call returns.
type Call struct {
	Ctx     context.Context
	Heap    wordcall.Heap
	Context interp.Value
	strings []wordcall.Word
	// callbacks outlive the call, their owner releases them
	callbacks []wordcall.Word
}

// NewCall starts a conversion pass.
func NewCall(ctx context.Context, heap wordcall.Heap, ctxValue interp.Value) *Call {
	return &Call{Ctx: ctx, Heap: heap, Context: ctxValue}
}

// Release frees every string placed on the heap during the pass.
func (c *Call) Release() {
	for _, w := range c.strings {
		c.Heap.Release(c.Ctx, w)
	}
	c.strings = nil
}

// Callbacks returns the callback addresses generated during the pass.
func (c *Call) Callbacks() []wordcall.Word { return c.callbacks }

// Convert validates v against tag and returns its word encoding.
func (c *Converter) Convert(call *Call, v interp.Value, tag descriptor.Tag, path ...string) (wordcall.Word, error) {
	return c.convert(call, v, tag, path, 0)
}

func (c *Converter) convert(call *Call, v interp.Value, tag descriptor.Tag, path []string, depth int) (wordcall.Word, error) {
	if depth > MaxDepth {
		return 0, errors.New(errors.PhaseConvert, errors.KindValue).
			Path(path...).
			Detail("pointer member nesting deeper than %d", MaxDepth).
			Build()
	}

	// callbacks first, a wrong value here would crash native code later
	if tag.Kind == descriptor.Callback {
		return c.callback(call, v, tag, path)
	}

	kind := c.vm.Kind(v)
	switch kind {
	case interp.KindNil, interp.KindInt, interp.KindBool, interp.KindString, interp.KindPtr:
		// strings are never null, so they are checked before heap placement
		if kind == interp.KindString && !accepts(tag, 's', false) {
			return 0, errors.TypeMismatch(errors.PhaseConvert, path, "s", tag.String())
		}
		w, err := c.simple(call, v, kind, path)
		if err != nil {
			return 0, err
		}
		if !accepts(tag, kind.Letter(), w == 0) {
			return 0, errors.TypeMismatch(errors.PhaseConvert, path, string(kind.Letter()), tag.String())
		}
		return w, nil
	case interp.KindInstance:
		return c.instance(call, v, tag, path, depth)
	case interp.KindClosure, interp.KindClass, interp.KindModule, interp.KindOther:
		return 0, errors.UnexpectedValue(path, kind.String())
	}
	return 0, errors.UnexpectedValue(path, kind.String())
}

// accepts implements the simple-value rule: a wildcard or same letter
// matches, and a null word is acceptable for any class-typed slot.
func accepts(tag descriptor.Tag, provided byte, null bool) bool {
	switch tag.Kind {
	case descriptor.Wildcard:
		return true
	case descriptor.NamedClass:
		return null
	case descriptor.Skip:
		return true
	}
	return tag.Char == provided
}

func (c *Converter) simple(call *Call, v interp.Value, kind interp.Kind, path []string) (wordcall.Word, error) {
	switch kind {
	case interp.KindInt:
		return wordcall.Word(c.vm.ToInt(v)), nil
	case interp.KindBool:
		if c.vm.ToBool(v) {
			return 1, nil
		}
		return 0, nil
	case interp.KindString:
		if call.Heap == nil {
			return 0, errors.New(errors.PhaseConvert, errors.KindInternal).
				Path(path...).
				Detail("no heap to place string argument").
				Build()
		}
		w, err := call.Heap.PutString(call.Ctx, c.vm.ToString(v))
		if err != nil {
			return 0, errors.New(errors.PhaseConvert, errors.KindAllocation).
				Path(path...).
				Cause(err).
				Detail("place string argument").
				Build()
		}
		call.strings = append(call.strings, w)
		return w, nil
	case interp.KindPtr:
		return c.vm.ToPtr(v), nil
	}
	return 0, nil
}

func (c *Converter) instance(call *Call, v interp.Value, tag descriptor.Tag, path []string, depth int) (wordcall.Word, error) {
	if bytesClass, ok := c.vm.Builtin("bytes"); ok && c.vm.IsDerived(c.vm.ClassOf(v), bytesClass) {
		return c.buffer(v, path)
	}

	member, ok := c.vm.Member(v, wordcall.PtrMember)
	if !ok {
		member, ok = c.vm.Member(v, wordcall.LegacyPtrMember)
	}
	if !ok {
		return 0, errors.UnexpectedValue(path, interp.TypeName(c.vm, v))
	}

	w, err := c.convert(call, member, descriptor.TagWildcard, path, depth+1)
	if err != nil {
		return 0, err
	}

	switch tag.Kind {
	case descriptor.NamedClass:
		if err := c.checkClass(v, tag.Name, path); err != nil {
			return 0, err
		}
	case descriptor.Wildcard, descriptor.Skip:
	default:
		return 0, errors.New(errors.PhaseConvert, errors.KindValue).
			Path(path...).
			Provided(interp.TypeName(c.vm, v)).
			Expected(tag.String()).
			Detail("unexpected instance type").
			Build()
	}
	return w, nil
}

func (c *Converter) buffer(v interp.Value, path []string) (wordcall.Word, error) {
	accessor, ok := c.vm.Member(v, "_buffer")
	if !ok {
		return 0, errors.New(errors.PhaseConvert, errors.KindAttribute).
			Path(path...).
			Provided(interp.TypeName(c.vm, v)).
			Detail("bytes instance without _buffer").
			Build()
	}
	res, err := c.vm.Call(accessor, v)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseConvert, errors.KindValue, err, "read bytes buffer")
	}
	if k := c.vm.Kind(res); k != interp.KindPtr && k != interp.KindNil {
		return 0, errors.TypeMismatch(errors.PhaseConvert, path, k.String(), "c")
	}
	return c.vm.ToPtr(res), nil
}

func (c *Converter) checkClass(v interp.Value, name string, path []string) error {
	found := resolve.Resolve(c.vm, name)
	if !found.Ok() {
		return errors.ClassNotFound(errors.PhaseConvert, path, name)
	}
	if !c.vm.IsDerived(c.vm.ClassOf(v), found.Value) {
		return errors.ClassMismatch(path, c.vm.ClassName(v), name)
	}
	return nil
}

// callback asks the generator for a native trampoline around a closure.
func (c *Converter) callback(call *Call, v interp.Value, tag descriptor.Tag, path []string) (wordcall.Word, error) {
	if k := c.vm.Kind(v); k != interp.KindClosure {
		return 0, errors.New(errors.PhaseCallback, errors.KindType).
			Path(path...).
			Provided(k.String()).
			Expected(tag.String()).
			Detail("closure expected for callback type").
			Build()
	}

	gen := resolve.Resolve(c.vm, c.generator)
	if !gen.Ok() {
		return 0, errors.New(errors.PhaseCallback, errors.KindType).
			Path(path...).
			Expected(c.generator).
			Detail("callback generator not found").
			Build()
	}

	ctxValue := call.Context
	if ctxValue == nil {
		ctxValue = c.vm.Nil()
	}
	res, err := gen.Call(c.vm, v, ctxValue, c.vm.String(tag.Name))
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCallback, errors.KindType, err, "generate callback "+tag.Name)
	}
	if k := c.vm.Kind(res); k != interp.KindPtr {
		return 0, errors.New(errors.PhaseCallback, errors.KindType).
			Path(path...).
			Provided(k.String()).
			Expected("c").
			Detail("callback generator must return a pointer").
			Build()
	}
	w := c.vm.ToPtr(res)
	call.callbacks = append(call.callbacks, w)
	return w, nil
}
