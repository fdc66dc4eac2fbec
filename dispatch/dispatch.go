// Package dispatch calls native functions with interpreter arguments.
//
// A Binding pairs a native.Func with its argument and return descriptors and
// a call Mode. Dispatcher.Call converts every argument before the native
// function runs; any failure aborts the call and the native function is not
// invoked.
package dispatch

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/convert"
	"github.com/wippyai/wordcall/descriptor"
	"github.com/wippyai/wordcall/errors"
	"github.com/wippyai/wordcall/interp"
	"github.com/wippyai/wordcall/native"
	"github.com/wippyai/wordcall/resolve"
)

// Binding describes one callable native function.
type Binding struct {
	Func native.Func
	Mode Mode
	// Name is the interpreter-facing name. Empty means Func.Name().
	Name string
	// Return is the return descriptor. Ignored in constructor mode.
	Return string
	// Args is the argument descriptor.
	Args string
	// Unchecked disables argument type checking, every argument is
	// converted as a wildcard.
	Unchecked bool
}

func (b *Binding) name() string {
	if b.Name != "" {
		return b.Name
	}
	return b.Func.Name()
}

// Config holds dispatcher options.
type Config struct {
	// CallbackGenerator is the name resolved for callback arguments.
	// Empty means convert.DefaultCallbackGenerator.
	CallbackGenerator string

	// Heap places string arguments and reads string results.
	Heap wordcall.Heap

	// Callbacks releases trampolines generated for a call that fails
	// before the native function runs. Nil leaves them to their owner.
	Callbacks CallbackReleaser
}

// CallbackReleaser drops a generated callback. trampoline.Table implements it.
type CallbackReleaser interface {
	Release(addr wordcall.Word) bool
}

// Dispatcher calls native functions on behalf of one interpreter.
type Dispatcher struct {
	vm        interp.VM
	conv      *convert.Converter
	heap      wordcall.Heap
	callbacks CallbackReleaser
}

// New creates a dispatcher. cfg may be nil.
func New(vm interp.VM, cfg *Config) *Dispatcher {
	d := &Dispatcher{vm: vm}
	var gen string
	if cfg != nil {
		gen = cfg.CallbackGenerator
		d.heap = cfg.Heap
		d.callbacks = cfg.Callbacks
	}
	d.conv = convert.New(vm, gen)
	return d
}

// Call runs b with the interpreter arguments args.
func (d *Dispatcher) Call(ctx context.Context, b *Binding, args []interp.Value) (interp.Value, error) {
	if b == nil || b.Func == nil {
		return nil, errors.InvalidInput(errors.PhaseInvoke, "binding without native function")
	}
	name := b.name()

	var ret descriptor.Return
	var err error
	if !b.Mode.IsConstructor() {
		if ret, err = descriptor.ParseReturn(b.Return); err != nil {
			return nil, err
		}
	}

	window := args
	if b.Mode.IsConstructor() {
		if len(args) == 0 || d.vm.Kind(args[0]) != interp.KindInstance {
			return nil, errors.New(errors.PhaseConstruct, errors.KindValue).
				Path(name).
				Detail("constructor called without an instance").
				Build()
		}
		if len(args) > 1 && d.vm.Kind(args[1]) == interp.KindPtr {
			Logger().Debug("adopting pointer", zap.String("func", name), zap.String("member", b.Mode.Member()))
			return nil, d.store(args[0], b.Mode.Member(), args[1])
		}
		window = args[1:]
	}

	var tags []descriptor.Tag
	if b.Unchecked {
		tags = descriptor.Unchecked(len(window))
	} else if tags, err = descriptor.Parse(b.Args, len(window)); err != nil {
		return nil, err
	}

	var ctxValue interp.Value
	if len(args) > 0 {
		ctxValue = args[0]
	}
	call := convert.NewCall(ctx, d.heap, ctxValue)
	defer call.Release()

	words, err := d.convertArgs(call, window, tags)
	if err != nil {
		d.dropCallbacks(call)
		return nil, err
	}

	arity := b.Func.Arity()
	if len(words) > arity {
		d.dropCallbacks(call)
		return nil, errors.New(errors.PhaseInvoke, errors.KindValue).
			Path(name).
			Detail("%d arguments for native of arity %d", len(words), arity).
			Build()
	}
	for len(words) < arity {
		words = append(words, 0)
	}

	Logger().Debug("native call",
		zap.String("func", name),
		zap.Int("arity", arity),
		zap.Stringer("mode", b.Mode))
	res, err := b.Func.Call(ctx, words)
	if err != nil {
		return nil, errors.Native(name, err)
	}

	if b.Mode.IsConstructor() {
		return nil, d.store(args[0], b.Mode.Member(), d.vm.Ptr(res))
	}
	return d.result(ctx, res, ret)
}

func (d *Dispatcher) convertArgs(call *convert.Call, window []interp.Value, tags []descriptor.Tag) ([]wordcall.Word, error) {
	words := make([]wordcall.Word, 0, wordcall.MaxArgs)
	for i, v := range window {
		if tags[i].Kind == descriptor.Skip {
			continue
		}
		if len(words) == wordcall.MaxArgs {
			return nil, errors.TooManyArguments(errors.PhaseConvert, len(window), wordcall.MaxArgs)
		}
		w, err := d.conv.Convert(call, v, tags[i], errors.Arg(i))
		if err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, nil
}

func (d *Dispatcher) dropCallbacks(call *convert.Call) {
	if d.callbacks == nil {
		return
	}
	for _, w := range call.Callbacks() {
		if !d.callbacks.Release(w) {
			Logger().Warn("release of unknown callback", zap.Uintptr("addr", uintptr(w)))
		}
	}
}

func (d *Dispatcher) store(inst interp.Value, member string, ptr interp.Value) error {
	if !d.vm.SetMember(inst, member, ptr) {
		return errors.MissingMember(errors.PhaseConstruct, member)
	}
	return nil
}

func (d *Dispatcher) result(ctx context.Context, w wordcall.Word, ret descriptor.Return) (interp.Value, error) {
	switch ret.Kind {
	case descriptor.ReturnNone:
		return d.vm.Nil(), nil
	case descriptor.ReturnInt, descriptor.ReturnPointerAsInt:
		return d.vm.Int(int64(w)), nil
	case descriptor.ReturnBool:
		return d.vm.Bool(w != 0), nil
	case descriptor.ReturnString:
		if w == 0 {
			return d.vm.Nil(), nil
		}
		if d.heap == nil {
			return nil, errors.New(errors.PhaseReturn, errors.KindInternal).
				Detail("no heap to read string result").
				Build()
		}
		s, err := d.heap.String(ctx, w)
		if err != nil {
			return nil, err
		}
		return d.vm.String(s), nil
	case descriptor.ReturnClass:
		return d.construct(ret.Class, w)
	}
	return nil, errors.UnsupportedReturn(ret.Class)
}

// construct wraps a returned pointer as class(ptr, AdoptMarker).
func (d *Dispatcher) construct(className string, w wordcall.Word) (interp.Value, error) {
	class := resolve.Resolve(d.vm, className)
	if !class.Ok() {
		return nil, errors.ClassNotFound(errors.PhaseReturn, nil, className)
	}
	inst, err := class.Call(d.vm, d.vm.Ptr(w), d.vm.Ptr(wordcall.AdoptMarker))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseReturn, errors.KindValue, err, "construct "+className)
	}
	return inst, nil
}

// Func adapts b into a plain function for installation in an interpreter.
func (d *Dispatcher) Func(ctx context.Context, b *Binding) func(args []interp.Value) (interp.Value, error) {
	return func(args []interp.Value) (interp.Value, error) {
		return d.Call(ctx, b, args)
	}
}

// Wrap creates an instance of className around ptr, for natives that hand
// out resources outside of a dispatched call. A null ptr is an allocation
// failure.
func Wrap(vm interp.VM, className string, ptr wordcall.Word) (interp.Value, error) {
	if ptr == 0 {
		return nil, errors.NullPointer(errors.PhaseConstruct, className)
	}
	class := resolve.Resolve(vm, className)
	if !class.Ok() {
		return nil, errors.ClassNotFound(errors.PhaseConstruct, nil, className)
	}
	inst, err := class.Call(vm, vm.Ptr(ptr))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConstruct, errors.KindValue, err, "construct "+className)
	}
	return inst, nil
}
