// Package trampoline turns interpreter closures into addresses native code
// can call back through.
//
// A Table plays the part of the interpreter's callback module: its Generator
// is installed as the callback generator (by default "_callbacks.gen_cb"),
// and native code later calls Invoke with the address it was handed.
package trampoline

import (
	"context"
	"reflect"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/convert"
	"github.com/wippyai/wordcall/descriptor"
	"github.com/wippyai/wordcall/errors"
	"github.com/wippyai/wordcall/interp"
	"github.com/wippyai/wordcall/native"
	"github.com/wippyai/wordcall/resource"
)

// Signature describes how native words become closure arguments and how the
// closure result goes back. Args uses the single-letter descriptor tags;
// Return is a return descriptor. The zero Signature passes every word as an
// int and returns an int.
type Signature struct {
	Args   string
	Return string
}

// Config holds trampoline table options.
type Config struct {
	// Table stores the trampolines. Share it with a native.GoHeap so both
	// hand out addresses from one space. Nil creates a private table.
	Table *resource.Table

	// Heap reads string arguments and places string results.
	Heap wordcall.Heap
}

// Table holds the live trampolines of one interpreter.
type Table struct {
	vm    interp.VM
	conv  *convert.Converter
	table *resource.Table
	heap  wordcall.Heap
	sigs  map[string]signature
	mu    sync.RWMutex
}

type signature struct {
	args []descriptor.Tag
	ret  descriptor.Return
	// generic signatures accept any number of words
	generic bool
}

type entry struct {
	closure interp.Value
	context interp.Value
	name    string
}

// New creates a trampoline table for vm. cfg may be nil.
func New(vm interp.VM, cfg *Config) *Table {
	t := &Table{
		vm:   vm,
		conv: convert.New(vm, ""),
		sigs: make(map[string]signature),
	}
	if cfg != nil {
		t.table = cfg.Table
		t.heap = cfg.Heap
	}
	if t.table == nil {
		t.table = resource.NewTable()
	}
	return t
}

// Declare registers the signature of a callback type.
func (t *Table) Declare(name string, sig Signature) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseRegister, "callback type name cannot be empty")
	}
	n, err := descriptor.Count(sig.Args)
	if err != nil {
		return err
	}
	if n > wordcall.MaxArgs {
		return errors.TooManyArguments(errors.PhaseRegister, n, wordcall.MaxArgs)
	}
	args, err := descriptor.Parse(sig.Args, n)
	if err != nil {
		return err
	}
	for i, tag := range args {
		if !liftable(tag) {
			return errors.New(errors.PhaseRegister, errors.KindValue).
				Path(name, errors.Arg(i)).
				Provided(tag.String()).
				Detail("callback arguments must be single-letter tags").
				Build()
		}
	}
	ret, err := descriptor.ParseReturn(sig.Return)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.sigs[name] = signature{args: args, ret: ret}
	return nil
}

func liftable(tag descriptor.Tag) bool {
	switch tag.Kind {
	case descriptor.Wildcard, descriptor.Int, descriptor.Bool, descriptor.String, descriptor.Pointer:
		return true
	}
	return false
}

func (t *Table) signature(name string) signature {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if sig, ok := t.sigs[name]; ok {
		return sig
	}
	return signature{generic: true, ret: descriptor.Return{Kind: descriptor.ReturnInt}}
}

// Generate stores closure and returns the address native code calls it by.
// ctxValue ties the trampoline to an owner for ReleaseContext.
func (t *Table) Generate(closure, ctxValue interp.Value, name string) (wordcall.Word, error) {
	if k := t.vm.Kind(closure); k != interp.KindClosure {
		return 0, errors.New(errors.PhaseCallback, errors.KindType).
			Path(name).
			Provided(k.String()).
			Expected("function").
			Build()
	}
	h, err := t.table.Insert(resource.TypeTrampoline, &entry{closure: closure, context: ctxValue, name: name})
	if err != nil {
		return 0, errors.New(errors.PhaseCallback, errors.KindAllocation).
			Cause(err).
			Detail("store trampoline %s", name).
			Build()
	}
	Logger().Debug("trampoline generated", zap.String("type", name), zap.Uint32("addr", uint32(h)))
	return wordcall.Word(h), nil
}

// Generator returns the interpreter-facing generator. It is called as
// gen(closure, context, type_name) and returns a pointer value.
func (t *Table) Generator() func(args []interp.Value) (interp.Value, error) {
	return func(args []interp.Value) (interp.Value, error) {
		if len(args) != 3 {
			return nil, errors.New(errors.PhaseCallback, errors.KindType).
				Detail("generator takes 3 arguments, got %d", len(args)).
				Build()
		}
		if t.vm.Kind(args[2]) != interp.KindString {
			return nil, errors.TypeMismatch(errors.PhaseCallback, []string{errors.Arg(2)}, t.vm.Kind(args[2]).String(), "s")
		}
		addr, err := t.Generate(args[0], args[1], t.vm.ToString(args[2]))
		if err != nil {
			return nil, err
		}
		return t.vm.Ptr(addr), nil
	}
}

func (t *Table) lookup(addr wordcall.Word) (*entry, error) {
	var v any
	handle, ok := resource.FromAddr(uintptr(addr))
	if ok {
		v, ok = t.table.GetTyped(handle, resource.TypeTrampoline)
	}
	if !ok {
		return nil, errors.New(errors.PhaseCallback, errors.KindValue).
			Value(addr).
			Detail("no trampoline at address %#x", uintptr(addr)).
			Build()
	}
	return v.(*entry), nil
}

// Invoke calls the closure behind addr with native words and returns the
// lowered result.
func (t *Table) Invoke(ctx context.Context, addr wordcall.Word, words ...wordcall.Word) (wordcall.Word, error) {
	e, err := t.lookup(addr)
	if err != nil {
		return 0, err
	}
	sig := t.signature(e.name)
	if !sig.generic && len(words) != len(sig.args) {
		return 0, errors.New(errors.PhaseCallback, errors.KindValue).
			Path(e.name).
			Detail("callback takes %d words, got %d", len(sig.args), len(words)).
			Build()
	}

	args := make([]interp.Value, len(words))
	for i, w := range words {
		tag := descriptor.TagInt
		if !sig.generic {
			tag = sig.args[i]
		}
		v, err := t.lift(ctx, w, tag)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}

	res, err := t.vm.Call(e.closure, args...)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseCallback, errors.KindNative, err, "callback "+e.name)
	}
	return t.lower(ctx, res, sig.ret)
}

func (t *Table) lift(ctx context.Context, w wordcall.Word, tag descriptor.Tag) (interp.Value, error) {
	switch tag.Kind {
	case descriptor.Bool:
		return t.vm.Bool(w != 0), nil
	case descriptor.Pointer:
		return t.vm.Ptr(w), nil
	case descriptor.String:
		if w == 0 {
			return t.vm.Nil(), nil
		}
		if t.heap == nil {
			return nil, errors.New(errors.PhaseCallback, errors.KindInternal).
				Detail("no heap to read string argument").
				Build()
		}
		s, err := t.heap.String(ctx, w)
		if err != nil {
			return nil, err
		}
		return t.vm.String(s), nil
	}
	return t.vm.Int(int64(w)), nil
}

// lower converts the closure result. Strings placed on the heap are handed
// to native code, which owns them from then on.
func (t *Table) lower(ctx context.Context, v interp.Value, ret descriptor.Return) (wordcall.Word, error) {
	var tag descriptor.Tag
	switch ret.Kind {
	case descriptor.ReturnNone:
		return 0, nil
	case descriptor.ReturnBool:
		tag = descriptor.TagBool
	case descriptor.ReturnString:
		tag = descriptor.TagString
	case descriptor.ReturnClass:
		tag = descriptor.Class(ret.Class)
	default:
		tag = descriptor.TagWildcard
	}
	call := convert.NewCall(ctx, t.heap, nil)
	return t.conv.Convert(call, v, tag, "result")
}

// Release drops the trampoline at addr.
func (t *Table) Release(addr wordcall.Word) bool {
	if _, err := t.lookup(addr); err != nil {
		return false
	}
	_, ok := t.table.Remove(resource.Handle(addr))
	return ok
}

// ReleaseContext drops every trampoline generated with ctxValue and returns
// how many were released.
func (t *Table) ReleaseContext(ctxValue interp.Value) int {
	var handles []resource.Handle
	t.table.Each(func(h resource.Handle, typeID uint32, v any) bool {
		if typeID == resource.TypeTrampoline && sameContext(v.(*entry).context, ctxValue) {
			handles = append(handles, h)
		}
		return true
	})
	for _, h := range handles {
		t.table.Remove(h)
	}
	return len(handles)
}

// sameContext compares context values by identity. Maps, slices and funcs
// match when they share backing storage; other uncomparable values never match.
func sameContext(a, b interp.Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	case reflect.Slice:
		va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	}
	return false
}

// Len returns the number of live trampolines.
func (t *Table) Len() int {
	n := 0
	t.table.Each(func(_ resource.Handle, typeID uint32, _ any) bool {
		if typeID == resource.TypeTrampoline {
			n++
		}
		return true
	})
	return n
}

// Func exposes the trampoline at addr as a native function, so Go natives
// can call back with plain words. Only declared callback types have a fixed
// arity.
func (t *Table) Func(addr wordcall.Word) (native.Func, error) {
	e, err := t.lookup(addr)
	if err != nil {
		return nil, err
	}
	sig := t.signature(e.name)
	if sig.generic {
		return nil, errors.New(errors.PhaseCallback, errors.KindValue).
			Path(e.name).
			Detail("undeclared callback type has no arity").
			Build()
	}
	return native.Raw(e.name, len(sig.args), func(ctx context.Context, args []wordcall.Word) (wordcall.Word, error) {
		return t.Invoke(ctx, addr, args...)
	})
}
