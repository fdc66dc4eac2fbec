// Package wordcall lets a dynamically-typed interpreter call native functions
// that take up to eight word-sized arguments, without a hand-written wrapper
// per function.
//
// # Architecture Overview
//
//	wordcall/        Word, borrowed Ptr, Heap interface
//	├── descriptor/  Argument and return descriptor parsing
//	├── convert/     Dynamic value to machine word conversion
//	├── resolve/     Dotted global/module-member name lookup
//	├── dispatch/    Full native call orchestration and binding tables
//	├── native/      Native function ABI: Go shims, wazero-backed wasm functions
//	├── trampoline/  Closures exposed as native callback addresses
//	├── resource/    Handle table backing Go-side addresses
//	├── interp/      Interpreter primitives consumed by the layer
//	├── minivm/      Small reference interpreter
//	└── errors/      Structured error types
//
// # Descriptors
//
// A descriptor lists one token per dynamic argument:
//
//	.          any simple value
//	i b s c    int, bool, string, opaque pointer
//	-          consume the argument but do not pass it
//	(name)     instance of class name, or a subclass, or nil
//	^name^     closure turned into a native callback address
//
// Example: "(widget)ii-s" takes a widget, two ints, an ignored value and a
// string, and fills four argument slots.
//
// # Quick Start
//
//	d := dispatch.New(vm, nil)
//	fn, _ := native.Go("add", func(a, b wordcall.Word) wordcall.Word { return a + b })
//	res, err := d.Call(ctx, &dispatch.Binding{Func: fn, Return: "i", Args: "ii"}, args)
//
// # Pointer Lifetime
//
// Opaque pointers crossing the boundary are borrowed. A wrapped object stores
// the pointer in its _p member and never frees it; the native resource and the
// wrapper have independent lifetimes that callers must reason about.
//
// # Thread Safety
//
// A single call is synchronous and uses only call-local buffers. Registries
// and handle tables are safe for concurrent use; interpreter instances
// generally are not.
package wordcall
