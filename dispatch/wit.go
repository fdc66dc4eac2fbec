package dispatch

import (
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wordcall/descriptor"
	"github.com/wippyai/wordcall/native"
)

// BindWIT builds a binding whose descriptors are derived from a WIT
// function signature. A WIT constructor should use ConstructorStore instead;
// its result is then ignored.
func BindWIT(f native.Func, mode Mode, params []wit.Type, result wit.Type) (*Binding, error) {
	args, err := descriptor.FromWIT(params)
	if err != nil {
		return nil, err
	}
	ret := ""
	if !mode.IsConstructor() {
		if ret, err = descriptor.ReturnFromWIT(result); err != nil {
			return nil, err
		}
	}
	return &Binding{Func: f, Mode: mode, Args: args, Return: ret}, nil
}
