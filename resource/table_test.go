package resource

import (
	"math/bits"
	"testing"
)

type dropCounter struct {
	drops *int
}

func (d dropCounter) Drop() { *d.drops++ }

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h, err := table.Insert(TypeString, "test")
	if err != nil {
		t.Fatal(err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if _, ok := table.GetTyped(h, TypeString); !ok {
		t.Fatal("GetTyped with correct type failed")
	}
	if _, ok := table.GetTyped(h, TypeBytes); ok {
		t.Fatal("GetTyped with wrong type should fail")
	}

	val, ok = table.Remove(h)
	if !ok || val != "test" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
	if _, ok := table.Get(h); ok {
		t.Fatal("Get after Remove should fail")
	}
}

func TestTable_ZeroHandleInvalid(t *testing.T) {
	table := NewTable()
	if _, ok := table.Get(0); ok {
		t.Fatal("handle 0 must be invalid")
	}
	if _, ok := table.Remove(0); ok {
		t.Fatal("Remove(0) must fail")
	}
	if _, ok := table.Get(99); ok {
		t.Fatal("out of range handle must be invalid")
	}
}

func TestTable_ReusesFreedHandles(t *testing.T) {
	table := NewTable()
	h1, _ := table.Insert(TypeObject, 1)
	h2, _ := table.Insert(TypeObject, 2)
	table.Remove(h1)

	h3, _ := table.Insert(TypeObject, 3)
	if h3 != h1 {
		t.Fatalf("expected freed handle %d to be reused, got %d", h1, h3)
	}
	if v, _ := table.Get(h2); v != 2 {
		t.Fatalf("h2 = %v, want 2", v)
	}
	if table.Len() != 2 {
		t.Fatalf("Len = %d, want 2", table.Len())
	}
}

func TestTable_Each(t *testing.T) {
	table := NewTable()
	table.Insert(TypeString, "a")
	table.Insert(TypeBytes, []byte("b"))
	table.Insert(TypeObject, 3)

	seen := 0
	table.Each(func(h Handle, typeID uint32, v any) bool {
		seen++
		return seen < 2
	})
	if seen != 2 {
		t.Fatalf("Each visited %d entries after stop, want 2", seen)
	}
}

func TestTable_DropperInterface(t *testing.T) {
	table := NewTable()
	drops := 0

	h, _ := table.Insert(TypeObject, dropCounter{drops: &drops})
	table.Insert(TypeObject, dropCounter{drops: &drops})

	table.Remove(h)
	if drops != 1 {
		t.Fatalf("drops after Remove = %d, want 1", drops)
	}

	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if drops != 2 {
		t.Fatalf("drops after Close = %d, want 2", drops)
	}

	if _, err := table.Insert(TypeObject, 1); err != ErrClosed {
		t.Fatalf("Insert after Close = %v, want ErrClosed", err)
	}
	if err := table.Close(); err != nil {
		t.Fatal("second Close should be a no-op")
	}
}

func TestFromAddr(t *testing.T) {
	if h, ok := FromAddr(7); !ok || h != 7 {
		t.Fatalf("FromAddr(7) = %d, %v", h, ok)
	}
	if bits.UintSize < 64 {
		t.Skip("addresses cannot exceed a handle")
	}
	shift := 32
	if h, ok := FromAddr(uintptr(1)<<shift | 1); ok {
		t.Fatalf("wide address resolved to handle %d", h)
	}
}
