package minivm

import (
	"testing"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/interp"
)

type fakePinner struct{ pins int }

func (p *fakePinner) PinBytes(b []byte) (wordcall.Word, error) {
	p.pins++
	return wordcall.Word(0x1000 + len(b)), nil
}

func TestKind(t *testing.T) {
	vm := New(nil)
	tests := []struct {
		v    Value
		want interp.Kind
	}{
		{nil, interp.KindNil},
		{int64(1), interp.KindInt},
		{1, interp.KindInt},
		{true, interp.KindBool},
		{"s", interp.KindString},
		{wordcall.Borrow(1), interp.KindPtr},
		{Func("f", nil), interp.KindClosure},
		{NewInstance(NewClass("c", nil)), interp.KindInstance},
		{NewClass("c", nil), interp.KindClass},
		{NewModule("m"), interp.KindModule},
		{3.5, interp.KindOther},
	}
	for _, tt := range tests {
		if got := vm.Kind(tt.v); got != tt.want {
			t.Errorf("Kind(%#v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestClassConstruction(t *testing.T) {
	vm := New(nil)
	base := NewClass("base", nil, "_p")
	derived := NewClass("derived", base, "extra")
	derived.Method("init", func(args []Value) (Value, error) {
		args[0].(*Instance).Set("extra", args[1])
		return nil, nil
	})

	v, err := vm.Call(derived, int64(5))
	if err != nil {
		t.Fatal(err)
	}
	inst := v.(*Instance)
	if extra, _ := inst.Field("extra"); extra != int64(5) {
		t.Fatalf("extra = %v", extra)
	}
	if p, ok := inst.Field("_p"); !ok || p != nil {
		t.Fatalf("inherited field _p = %v, %v", p, ok)
	}
	if !vm.IsDerived(vm.ClassOf(inst), base) {
		t.Fatal("derived should derive from base")
	}
	if vm.IsDerived(base, derived) {
		t.Fatal("base must not derive from derived")
	}
	if vm.ClassName(inst) != "derived" {
		t.Fatalf("ClassName = %q", vm.ClassName(inst))
	}
}

func TestClassWithoutInitRejectsArguments(t *testing.T) {
	vm := New(nil)
	if _, err := vm.Call(NewClass("plain", nil), int64(1)); err == nil {
		t.Fatal("expected error")
	}
	if _, err := vm.Call(int64(1)); err == nil {
		t.Fatal("calling an int should fail")
	}
}

func TestSetMemberRequiresDeclaredField(t *testing.T) {
	vm := New(nil)
	inst := NewInstance(NewClass("c", nil, "_p"))
	if !vm.SetMember(inst, "_p", wordcall.Borrow(7)) {
		t.Fatal("SetMember on declared field failed")
	}
	if vm.SetMember(inst, "missing", int64(1)) {
		t.Fatal("SetMember on undeclared field should fail")
	}

	mod := NewModule("m")
	mod.Set("x", int64(1))
	if !vm.SetMember(mod, "x", int64(2)) || vm.SetMember(mod, "y", int64(2)) {
		t.Fatal("module SetMember should only update existing members")
	}
}

func TestMemberLookup(t *testing.T) {
	vm := New(nil)
	c := NewClass("c", nil, "f").Method("m", func([]Value) (Value, error) { return int64(1), nil })
	inst := NewInstance(c)

	if _, ok := vm.Member(inst, "m"); !ok {
		t.Fatal("method lookup through instance failed")
	}
	if _, ok := vm.Member(c, "m"); !ok {
		t.Fatal("method lookup through class failed")
	}
	if _, ok := vm.Member(int64(1), "m"); ok {
		t.Fatal("ints have no members")
	}
}

func TestBytesBufferPinsOnce(t *testing.T) {
	pinner := &fakePinner{}
	vm := New(pinner)
	b := vm.NewBytes(nil, []byte("abcd"))

	buffer, _ := vm.Member(b, "_buffer")
	first, err := vm.Call(buffer, b)
	if err != nil {
		t.Fatal(err)
	}
	second, _ := vm.Call(buffer, b)
	if first != second {
		t.Fatalf("addresses differ: %v %v", first, second)
	}
	if pinner.pins != 1 {
		t.Fatalf("pinned %d times, want 1", pinner.pins)
	}
	if data, ok := BytesOf(b); !ok || string(data) != "abcd" {
		t.Fatalf("BytesOf = %q, %v", data, ok)
	}
}

func TestBytesWithoutPinner(t *testing.T) {
	vm := New(nil)
	b := vm.NewBytes(nil, nil)
	buffer, _ := vm.Member(b, "_buffer")
	if _, err := vm.Call(buffer, b); err == nil {
		t.Fatal("expected error without pinner")
	}
}
