package native

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/errors"
	"github.com/wippyai/wordcall/resource"
)

// GoHeap addresses Go values by resource handle. It serves Go-implemented
// natives, which receive handles where C code would receive pointers.
type GoHeap struct {
	table *resource.Table
}

var _ wordcall.Heap = (*GoHeap)(nil)

// NewGoHeap creates a heap over table. A nil table gets a fresh one.
func NewGoHeap(table *resource.Table) *GoHeap {
	if table == nil {
		table = resource.NewTable()
	}
	return &GoHeap{table: table}
}

// Table returns the backing handle table.
func (h *GoHeap) Table() *resource.Table { return h.table }

func (h *GoHeap) put(typeID uint32, v any) (wordcall.Word, error) {
	handle, err := h.table.Insert(typeID, v)
	if err != nil {
		return 0, errors.New(errors.PhaseConvert, errors.KindAllocation).
			Cause(err).
			Detail("heap insert").
			Build()
	}
	return wordcall.Word(handle), nil
}

func (h *GoHeap) get(addr wordcall.Word, typeID uint32) (any, bool) {
	handle, ok := resource.FromAddr(uintptr(addr))
	if !ok {
		return nil, false
	}
	return h.table.GetTyped(handle, typeID)
}

// PutString stores s and returns its address.
func (h *GoHeap) PutString(_ context.Context, s string) (wordcall.Word, error) {
	return h.put(resource.TypeString, s)
}

// String returns the string stored at addr.
func (h *GoHeap) String(_ context.Context, addr wordcall.Word) (string, error) {
	v, ok := h.get(addr, resource.TypeString)
	if !ok {
		return "", errors.New(errors.PhaseReturn, errors.KindValue).
			Value(addr).
			Detail("no string at address %#x", uintptr(addr)).
			Build()
	}
	return v.(string), nil
}

// Release frees whatever is stored at addr.
func (h *GoHeap) Release(_ context.Context, addr wordcall.Word) {
	handle, ok := resource.FromAddr(uintptr(addr))
	if ok {
		_, ok = h.table.Remove(handle)
	}
	if !ok {
		Logger().Warn("release of unknown address", zap.Uintptr("addr", uintptr(addr)))
	}
}

// PinBytes keeps b addressable until released. Natives see the same
// backing array, so writes through Bytes are visible to the owner.
func (h *GoHeap) PinBytes(b []byte) (wordcall.Word, error) {
	return h.put(resource.TypeBytes, b)
}

// Bytes returns the buffer pinned at addr.
func (h *GoHeap) Bytes(addr wordcall.Word) ([]byte, bool) {
	v, ok := h.get(addr, resource.TypeBytes)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// PutObject stores an arbitrary Go value, typically the state behind a
// native "class".
func (h *GoHeap) PutObject(v any) (wordcall.Word, error) {
	return h.put(resource.TypeObject, v)
}

// Object returns the Go value stored at addr.
func (h *GoHeap) Object(addr wordcall.Word) (any, bool) {
	return h.get(addr, resource.TypeObject)
}

// Close releases every stored value.
func (h *GoHeap) Close() error {
	return h.table.Close()
}
