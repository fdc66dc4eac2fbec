// Package minivm is a small interpreter object model implementing
// interp.VM. It backs the tests and examples and shows what an embedding
// interpreter has to provide.
//
// Values are nil, int64, bool, string, wordcall.Ptr, *Closure, *Instance,
// *Class and *Module.
package minivm

import (
	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/errors"
	"github.com/wippyai/wordcall/interp"
)

// Value is any minivm value.
type Value = interp.Value

// Closure is a callable value.
type Closure struct {
	Fn   func(args []Value) (Value, error)
	Name string
}

// Func creates a closure.
func Func(name string, fn func(args []Value) (Value, error)) *Closure {
	return &Closure{Name: name, Fn: fn}
}

// Class describes instances. Calling a class creates an instance with every
// declared field set to nil and then calls its init method, if any, with the
// instance followed by the call arguments.
type Class struct {
	Super   *Class
	Methods map[string]Value
	Name    string
	Fields  []string
}

// NewClass creates a class. super may be nil.
func NewClass(name string, super *Class, fields ...string) *Class {
	return &Class{Name: name, Super: super, Fields: fields, Methods: make(map[string]Value)}
}

// Method adds a method and returns the class for chaining. Methods receive
// the instance as their first argument.
func (c *Class) Method(name string, fn func(args []Value) (Value, error)) *Class {
	c.Methods[name] = Func(c.Name+"."+name, fn)
	return c
}

func (c *Class) method(name string) (Value, bool) {
	for k := c; k != nil; k = k.Super {
		if m, ok := k.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// Instance is an object of a Class.
type Instance struct {
	class  *Class
	fields map[string]Value
	// Payload holds host data, such as the contents of a bytes object.
	Payload any
}

// NewInstance creates an instance without running init.
func NewInstance(c *Class) *Instance {
	inst := &Instance{class: c, fields: make(map[string]Value)}
	for k := c; k != nil; k = k.Super {
		for _, f := range k.Fields {
			if _, ok := inst.fields[f]; !ok {
				inst.fields[f] = nil
			}
		}
	}
	return inst
}

// Class returns the instance's class.
func (i *Instance) Class() *Class { return i.class }

// Field reads a declared field.
func (i *Instance) Field(name string) (Value, bool) {
	v, ok := i.fields[name]
	return v, ok
}

// Set writes a field, declaring it if needed.
func (i *Instance) Set(name string, v Value) {
	i.fields[name] = v
}

// Module is a named collection of members.
type Module struct {
	members map[string]Value
	Name    string
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{Name: name, members: make(map[string]Value)}
}

// Set adds or replaces a member.
func (m *Module) Set(name string, v Value) {
	m.members[name] = v
}

// Get reads a member.
func (m *Module) Get(name string) (Value, bool) {
	v, ok := m.members[name]
	return v, ok
}

// Pinner keeps byte buffers addressable by native code.
type Pinner interface {
	PinBytes(b []byte) (wordcall.Word, error)
}

// VM is the interpreter state: globals and built-in classes.
type VM struct {
	globals  map[string]Value
	builtins map[string]*Class
	pinner   Pinner
}

var _ interp.VM = (*VM)(nil)

// New creates a VM. pinner backs the bytes built-in and may be nil when no
// bytes objects reach native code.
func New(pinner Pinner) *VM {
	vm := &VM{
		globals:  make(map[string]Value),
		builtins: make(map[string]*Class),
		pinner:   pinner,
	}
	vm.builtins["bytes"] = vm.bytesClass()
	return vm
}

// SetGlobal binds a global name.
func (vm *VM) SetGlobal(name string, v Value) {
	vm.globals[name] = v
}

func (vm *VM) Kind(v Value) interp.Kind {
	switch v.(type) {
	case nil:
		return interp.KindNil
	case int64, int:
		return interp.KindInt
	case bool:
		return interp.KindBool
	case string:
		return interp.KindString
	case wordcall.Ptr:
		return interp.KindPtr
	case *Closure:
		return interp.KindClosure
	case *Instance:
		return interp.KindInstance
	case *Class:
		return interp.KindClass
	case *Module:
		return interp.KindModule
	}
	return interp.KindOther
}

func (vm *VM) ToInt(v Value) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func (vm *VM) ToBool(v Value) bool {
	b, _ := v.(bool)
	return b
}

func (vm *VM) ToString(v Value) string {
	s, _ := v.(string)
	return s
}

func (vm *VM) ToPtr(v Value) wordcall.Word {
	p, _ := v.(wordcall.Ptr)
	return p.Addr()
}

func (vm *VM) Nil() Value                   { return nil }
func (vm *VM) Int(i int64) Value            { return i }
func (vm *VM) Bool(b bool) Value            { return b }
func (vm *VM) String(s string) Value        { return s }
func (vm *VM) Ptr(addr wordcall.Word) Value { return wordcall.Borrow(addr) }
func (vm *VM) Global(name string) (Value, bool) {
	v, ok := vm.globals[name]
	return v, ok
}

func (vm *VM) Builtin(name string) (Value, bool) {
	c, ok := vm.builtins[name]
	if !ok {
		return nil, false
	}
	return c, true
}

func (vm *VM) Member(obj Value, name string) (Value, bool) {
	switch o := obj.(type) {
	case *Instance:
		if v, ok := o.fields[name]; ok {
			return v, true
		}
		return o.class.method(name)
	case *Class:
		return o.method(name)
	case *Module:
		return o.Get(name)
	}
	return nil, false
}

func (vm *VM) SetMember(obj Value, name string, v Value) bool {
	switch o := obj.(type) {
	case *Instance:
		if _, ok := o.fields[name]; !ok {
			return false
		}
		o.fields[name] = v
		return true
	case *Module:
		if _, ok := o.members[name]; !ok {
			return false
		}
		o.members[name] = v
		return true
	}
	return false
}

func (vm *VM) Call(fn Value, args ...Value) (Value, error) {
	switch f := fn.(type) {
	case *Closure:
		return f.Fn(args)
	case *Class:
		inst := NewInstance(f)
		ctor, ok := f.method("init")
		if !ok {
			if len(args) > 0 {
				return nil, errors.New(errors.PhaseConstruct, errors.KindType).
					Path(f.Name).
					Detail("class without init takes no arguments, got %d", len(args)).
					Build()
			}
			return inst, nil
		}
		full := make([]Value, 0, len(args)+1)
		full = append(full, inst)
		full = append(full, args...)
		if _, err := vm.Call(ctor, full...); err != nil {
			return nil, err
		}
		return inst, nil
	}
	return nil, errors.New(errors.PhaseInvoke, errors.KindType).
		Provided(interp.TypeName(vm, fn)).
		Detail("value is not callable").
		Build()
}

func (vm *VM) ClassOf(v Value) Value {
	if inst, ok := v.(*Instance); ok {
		return inst.class
	}
	return nil
}

func (vm *VM) ClassName(v Value) string {
	switch o := v.(type) {
	case *Instance:
		return o.class.Name
	case *Class:
		return o.Name
	}
	return ""
}

func (vm *VM) IsDerived(class, base Value) bool {
	c, ok := class.(*Class)
	if !ok {
		return false
	}
	b, ok := base.(*Class)
	if !ok {
		return false
	}
	for k := c; k != nil; k = k.Super {
		if k == b {
			return true
		}
	}
	return false
}
