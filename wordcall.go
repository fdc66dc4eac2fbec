package wordcall

import (
	"context"
	"fmt"
)

// Word is one machine-word argument slot or return value.
type Word uintptr

// MaxArgs is the maximum number of populated argument slots per native call.
const MaxArgs = 8

// Pointer member names on wrapped objects.
const (
	PtrMember       = "_p"
	LegacyPtrMember = ".p"
)

// AdoptMarker is passed next to the pointer when a returned word is wrapped
// into a class instance. It tells the constructor to adopt the pointer
// without taking ownership.
const AdoptMarker = ^Word(0)

// Ptr is a borrowed native address.
//
// Nothing in this module frees the pointee. Whoever created the native
// resource owns it and must keep it alive for as long as any wrapper holds
// the Ptr.
type Ptr struct {
	addr Word
}

// Borrow wraps a raw address without taking ownership.
func Borrow(addr Word) Ptr {
	return Ptr{addr: addr}
}

// Addr returns the raw address.
func (p Ptr) Addr() Word { return p.addr }

// IsNull reports whether the pointer is the zero address.
func (p Ptr) IsNull() bool { return p.addr == 0 }

func (p Ptr) String() string { return fmt.Sprintf("comptr(%#x)", uintptr(p.addr)) }

// Heap places values where native code can address them.
type Heap interface {
	// PutString copies s into native memory as a NUL-terminated string.
	PutString(ctx context.Context, s string) (Word, error)

	// String reads the NUL-terminated string at addr.
	String(ctx context.Context, addr Word) (string, error)

	// Release frees memory obtained from PutString.
	Release(ctx context.Context, addr Word)
}
