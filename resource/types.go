package resource

import "math"

// Handle is an opaque reference to a value in a table.
// Handle 0 is reserved and always invalid, so it can double as a null address.
type Handle uint32

// FromAddr returns the handle an address encodes. Addresses wider than a
// handle are rejected rather than truncated.
func FromAddr(addr uintptr) (Handle, bool) {
	if uint64(addr) > math.MaxUint32 {
		return 0, false
	}
	return Handle(addr), true
}

// Type IDs for values addressed by Go-side native code.
const (
	TypeString uint32 = iota + 1
	TypeBytes
	TypeObject
	TypeTrampoline
)

// Dropper is optionally implemented by values that need cleanup when their
// handle is removed.
type Dropper interface {
	Drop()
}
