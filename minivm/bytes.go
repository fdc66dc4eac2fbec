package minivm

import (
	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/errors"
)

type bytesPayload struct {
	data []byte
	addr wordcall.Word
}

// bytesClass builds the bytes built-in. Its _buffer method pins the contents
// once and returns the same address on every later call.
func (vm *VM) bytesClass() *Class {
	c := NewClass("bytes", nil)
	c.Method("_buffer", func(args []Value) (Value, error) {
		inst, ok := args[0].(*Instance)
		if !ok {
			return nil, errors.InvalidInput(errors.PhaseConvert, "_buffer needs a bytes instance")
		}
		p, ok := inst.Payload.(*bytesPayload)
		if !ok {
			p = &bytesPayload{}
			inst.Payload = p
		}
		if p.addr != 0 {
			return wordcall.Borrow(p.addr), nil
		}
		if vm.pinner == nil {
			return nil, errors.New(errors.PhaseConvert, errors.KindInternal).
				Detail("no pinner for bytes buffers").
				Build()
		}
		addr, err := vm.pinner.PinBytes(p.data)
		if err != nil {
			return nil, err
		}
		p.addr = addr
		return wordcall.Borrow(addr), nil
	})
	return c
}

// NewBytes creates a bytes instance holding b. Subclasses of the bytes
// built-in may be passed as class.
func (vm *VM) NewBytes(class *Class, b []byte) *Instance {
	if class == nil {
		class = vm.builtins["bytes"]
	}
	inst := NewInstance(class)
	inst.Payload = &bytesPayload{data: b}
	return inst
}

// BytesOf returns the contents of a bytes instance.
func BytesOf(v Value) ([]byte, bool) {
	inst, ok := v.(*Instance)
	if !ok {
		return nil, false
	}
	p, ok := inst.Payload.(*bytesPayload)
	if !ok {
		return nil, false
	}
	return p.data, true
}
