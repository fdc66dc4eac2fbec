package dispatch

import (
	"strings"

	"github.com/wippyai/wordcall"
)

// Mode selects what a call does with its first argument and its result.
type Mode struct {
	member string
	store  bool
}

// Regular passes every argument to the native function and converts the
// result by the return descriptor.
var Regular = Mode{}

// ConstructorStore is the mode of a native bound as a class init method.
// The first argument is the instance under construction and is not passed
// to the native function; the result is stored into member instead of being
// returned. An empty member selects wordcall.PtrMember.
func ConstructorStore(member string) Mode {
	if member == "" {
		member = wordcall.PtrMember
	}
	return Mode{store: true, member: member}
}

// IsConstructor reports whether m is a ConstructorStore mode.
func (m Mode) IsConstructor() bool { return m.store }

// Member returns the member a constructor stores into.
func (m Mode) Member() string { return m.member }

func (m Mode) String() string {
	if m.store {
		return "ctor(" + m.member + ")"
	}
	return "regular"
}

// ParseLegacyReturn splits a return descriptor that may carry the "+member"
// constructor prefix into a mode and a plain return descriptor.
func ParseLegacyReturn(ret string) (Mode, string) {
	if member, ok := strings.CutPrefix(ret, "+"); ok {
		return ConstructorStore(member), ""
	}
	return Regular, ret
}
