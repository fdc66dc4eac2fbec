// Package interp declares the interpreter primitives the marshaling layer
// consumes. The interpreter's object model stays on the other side of this
// interface; see package minivm for a small implementation.
package interp

import "github.com/wippyai/wordcall"

// Value is an interpreter value. Only the VM that produced it can inspect it.
type Value = any

// Kind is the closed set of runtime value kinds the layer distinguishes.
type Kind uint8

const (
	KindNil Kind = iota
	KindInt
	KindBool
	KindString
	KindPtr
	KindClosure
	KindInstance
	KindClass
	KindModule
	KindOther
)

var kindNames = [...]string{
	KindNil:      "nil",
	KindInt:      "int",
	KindBool:     "bool",
	KindString:   "string",
	KindPtr:      "comptr",
	KindClosure:  "function",
	KindInstance: "instance",
	KindClass:    "class",
	KindModule:   "module",
	KindOther:    "other",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Letter returns the descriptor letter a simple kind provides, or 0 for
// composite kinds. Nil provides 'c' because it converts to a null pointer.
func (k Kind) Letter() byte {
	switch k {
	case KindInt:
		return 'i'
	case KindBool:
		return 'b'
	case KindString:
		return 's'
	case KindPtr, KindNil:
		return 'c'
	}
	return 0
}

// VM is the narrow set of interpreter primitives used by the layer.
type VM interface {
	// Kind classifies a value.
	Kind(v Value) Kind

	// ToInt, ToBool, ToString and ToPtr read a value of the matching kind.
	ToInt(v Value) int64
	ToBool(v Value) bool
	ToString(v Value) string
	ToPtr(v Value) wordcall.Word

	// Nil, Int, Bool, String and Ptr build values.
	Nil() Value
	Int(i int64) Value
	Bool(b bool) Value
	String(s string) Value
	Ptr(addr wordcall.Word) Value

	// Global looks up a global binding.
	Global(name string) (Value, bool)

	// Builtin looks up a built-in class such as "bytes".
	Builtin(name string) (Value, bool)

	// Member reads a member of an instance, class or module.
	Member(obj Value, name string) (Value, bool)

	// SetMember writes an existing member. It reports false when the
	// object has no such member.
	SetMember(obj Value, name string, v Value) bool

	// Call invokes a closure or instantiates a class.
	Call(fn Value, args ...Value) (Value, error)

	// ClassOf returns the class of an instance, or nil.
	ClassOf(v Value) Value

	// ClassName returns the class name of an instance or class.
	ClassName(v Value) string

	// IsDerived reports whether class is base or one of its subclasses.
	IsDerived(class, base Value) bool
}

// TypeName describes v for error messages: the class name for instances,
// the kind name otherwise.
func TypeName(vm VM, v Value) string {
	k := vm.Kind(v)
	if k == KindInstance {
		if name := vm.ClassName(v); name != "" {
			return name
		}
	}
	return k.String()
}
