package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/convert"
	"github.com/wippyai/wordcall/descriptor"
	"github.com/wippyai/wordcall/errors"
	"github.com/wippyai/wordcall/interp"
	"github.com/wippyai/wordcall/minivm"
	"github.com/wippyai/wordcall/native"
)

// recorder is a native function that records its calls.
type recorder struct {
	result wordcall.Word
	err    error
	name   string
	got    []wordcall.Word
	arity  int
	calls  int
}

func (r *recorder) Name() string { return r.name }
func (r *recorder) Arity() int   { return r.arity }

func (r *recorder) Call(_ context.Context, args []wordcall.Word) (wordcall.Word, error) {
	r.calls++
	r.got = append([]wordcall.Word(nil), args...)
	return r.result, r.err
}

func newRecorder(arity int, result wordcall.Word) *recorder {
	return &recorder{name: "rec", arity: arity, result: result}
}

type env struct {
	vm   *minivm.VM
	heap *native.GoHeap
	d    *Dispatcher
	obj  *minivm.Class
}

// newEnv sets up lv_obj, a class whose init adopts pointers through a
// ConstructorStore binding.
func newEnv(t *testing.T) *env {
	t.Helper()
	SetLogger(zaptest.NewLogger(t))
	t.Cleanup(func() { SetLogger(zap.NewNop()) })
	heap := native.NewGoHeap(nil)
	vm := minivm.New(heap)
	d := New(vm, &Config{Heap: heap})

	obj := minivm.NewClass("lv_obj", nil, wordcall.PtrMember)
	ctor := &Binding{Func: newRecorder(0, 0), Mode: ConstructorStore("")}
	obj.Methods["init"] = minivm.Func("lv_obj.init", d.Func(context.Background(), ctor))
	vm.SetGlobal("lv_obj", obj)

	return &env{vm: vm, heap: heap, d: d, obj: obj}
}

func requireKind(t *testing.T, err error, want errors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if kind, _ := errors.KindOf(err); kind != want {
		t.Fatalf("kind = %v, want %v (err: %v)", kind, want, err)
	}
}

func TestCall_Regular(t *testing.T) {
	e := newEnv(t)
	add := native.MustGo("add", func(a, b wordcall.Word) wordcall.Word { return a + b })

	v, err := e.d.Call(context.Background(), &Binding{Func: add, Return: "i", Args: "ii"}, []interp.Value{int64(2), int64(3)})
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(5) {
		t.Fatalf("add = %v, want 5", v)
	}
}

func TestCall_TypeMismatchNeverInvokes(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(1, 0)

	_, err := e.d.Call(context.Background(), &Binding{Func: rec, Return: "i", Args: "i"}, []interp.Value{"hello"})
	requireKind(t, err, errors.KindType)
	if !strings.Contains(err.Error(), "provided 's'") || !strings.Contains(err.Error(), "expected 'i'") {
		t.Fatalf("message %q", err)
	}
	if rec.calls != 0 {
		t.Fatalf("native invoked %d times", rec.calls)
	}
}

func TestCall_LaterArgumentFailureNeverInvokes(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(3, 0)

	_, err := e.d.Call(context.Background(), &Binding{Func: rec, Args: "isi"}, []interp.Value{int64(1), "ok", true})
	requireKind(t, err, errors.KindType)
	if rec.calls != 0 {
		t.Fatal("native must not run after a failed conversion")
	}
	if e.heap.Table().Len() != 0 {
		t.Fatal("strings placed before the failure must be released")
	}
}

func TestCall_ConstructorAdoptsPointer(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(1, 0)
	inst := minivm.NewInstance(e.obj)

	v, err := e.d.Call(context.Background(),
		&Binding{Func: rec, Mode: ConstructorStore("_p"), Args: "i"},
		[]interp.Value{inst, wordcall.Borrow(0xabc)})
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("constructor returned %v", v)
	}
	if rec.calls != 0 {
		t.Fatal("adopting a pointer must not call the native")
	}
	p, _ := inst.Field("_p")
	if p != wordcall.Borrow(0xabc) {
		t.Fatalf("_p = %v", p)
	}
}

func TestCall_ConstructorStoresResult(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(2, 0x500)
	inst := minivm.NewInstance(e.obj)

	_, err := e.d.Call(context.Background(),
		&Binding{Func: rec, Mode: ConstructorStore("_p"), Args: "i"},
		[]interp.Value{inst, int64(9)})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]wordcall.Word{9, 0}, rec.got); diff != "" {
		t.Fatalf("native words (-want +got):\n%s", diff)
	}
	if p, _ := inst.Field("_p"); p != wordcall.Borrow(0x500) {
		t.Fatalf("_p = %v", p)
	}
}

func TestCall_ConstructorRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	inst := minivm.NewInstance(e.obj)

	_, err := e.d.Call(ctx, &Binding{Func: newRecorder(0, 0), Mode: ConstructorStore("")},
		[]interp.Value{inst, wordcall.Borrow(0x77)})
	if err != nil {
		t.Fatal(err)
	}

	conv := convert.New(e.vm, "")
	w, err := conv.Convert(convert.NewCall(ctx, e.heap, nil), inst, descriptor.TagWildcard)
	if err != nil {
		t.Fatal(err)
	}
	if w != 0x77 {
		t.Fatalf("round trip = %#x, want 0x77", w)
	}
}

func TestCall_ConstructorErrors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := newRecorder(0, 1)

	bare := minivm.NewInstance(minivm.NewClass("bare", nil))
	_, err := e.d.Call(ctx, &Binding{Func: rec, Mode: ConstructorStore("_p")}, []interp.Value{bare, wordcall.Borrow(1)})
	requireKind(t, err, errors.KindAttribute)
	if !strings.Contains(err.Error(), "missing member '_p'") {
		t.Fatalf("message %q", err)
	}

	_, err = e.d.Call(ctx, &Binding{Func: rec, Mode: ConstructorStore("_p")}, nil)
	requireKind(t, err, errors.KindValue)

	_, err = e.d.Call(ctx, &Binding{Func: rec, Mode: ConstructorStore("_p")}, []interp.Value{int64(1)})
	requireKind(t, err, errors.KindValue)
}

func TestCall_ExactArity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec := newRecorder(3, 0)
	if _, err := e.d.Call(ctx, &Binding{Func: rec, Args: "i"}, []interp.Value{int64(4)}); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]wordcall.Word{4, 0, 0}, rec.got); diff != "" {
		t.Fatalf("zero padding (-want +got):\n%s", diff)
	}

	small := newRecorder(1, 0)
	_, err := e.d.Call(ctx, &Binding{Func: small, Args: "ii"}, []interp.Value{int64(1), int64(2)})
	requireKind(t, err, errors.KindValue)
	if small.calls != 0 {
		t.Fatal("native must not run with more words than its arity")
	}
}

func TestCall_SkipToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	var seen string
	rec := native.MustGo("skip", func(a, b, s wordcall.Word) wordcall.Word {
		seen, _ = e.heap.String(ctx, s)
		return a + b
	})

	v, err := e.d.Call(ctx, &Binding{Func: rec, Args: "ii-s", Return: "i"},
		[]interp.Value{int64(1), int64(2), "ignored", "third"})
	if err != nil {
		t.Fatal(err)
	}
	if v != int64(3) || seen != "third" {
		t.Fatalf("result %v, string %q", v, seen)
	}
	if e.heap.Table().Len() != 0 {
		t.Fatal("string argument should be released after the call")
	}
}

func TestCall_TooManySlots(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(8, 0)
	args := make([]interp.Value, 9)
	for i := range args {
		args[i] = int64(i)
	}
	_, err := e.d.Call(context.Background(), &Binding{Func: rec, Unchecked: true}, args)
	requireKind(t, err, errors.KindValue)
	if rec.calls != 0 {
		t.Fatal("native must not run")
	}
}

func TestCall_DescriptorArgumentCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	rec := newRecorder(3, 0)

	_, err := e.d.Call(ctx, &Binding{Func: rec, Args: "iis"}, []interp.Value{int64(1)})
	requireKind(t, err, errors.KindValue)
	if !strings.Contains(err.Error(), "remaining type 'is'") {
		t.Fatalf("message %q", err)
	}

	_, err = e.d.Call(ctx, &Binding{Func: rec, Args: "i"}, []interp.Value{int64(1), int64(2)})
	requireKind(t, err, errors.KindValue)

	if rec.calls != 0 {
		t.Fatal("native must not run")
	}
}

func TestCall_Returns(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	hello, _ := e.heap.PutString(ctx, "hello")

	tests := []struct {
		ret    string
		result wordcall.Word
		want   interp.Value
	}{
		{"", 42, nil},
		{"i", 42, int64(42)},
		{".", 42, int64(42)},
		{"b", 2, true},
		{"b", 0, false},
		{"c", 0x1000, int64(0x1000)},
		{"s", hello, "hello"},
		{"s", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.ret, func(t *testing.T) {
			rec := newRecorder(0, tt.result)
			v, err := e.d.Call(ctx, &Binding{Func: rec, Return: tt.ret}, nil)
			if err != nil {
				t.Fatal(err)
			}
			if v != tt.want {
				t.Fatalf("Call = %#v, want %#v", v, tt.want)
			}
		})
	}
}

func TestCall_UnsupportedReturn(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(0, 0)
	_, err := e.d.Call(context.Background(), &Binding{Func: rec, Return: "x"}, nil)
	requireKind(t, err, errors.KindInternal)
	if rec.calls != 0 {
		t.Fatal("native must not run with a bad return descriptor")
	}
}

func TestCall_ClassReturn(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(0, 0xdead)

	v, err := e.d.Call(context.Background(), &Binding{Func: rec, Return: "lv_obj"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	inst, ok := v.(*minivm.Instance)
	if !ok || inst.Class() != e.obj {
		t.Fatalf("Call = %#v, want lv_obj instance", v)
	}
	if p, _ := inst.Field("_p"); p != wordcall.Borrow(0xdead) {
		t.Fatalf("_p = %v", p)
	}

	_, err = e.d.Call(context.Background(), &Binding{Func: rec, Return: "missing_class"}, nil)
	requireKind(t, err, errors.KindValue)
}

func TestCall_ClassReturnPassesAdoptMarker(t *testing.T) {
	e := newEnv(t)
	var got []interp.Value
	widget := minivm.NewClass("widget", nil).Method("init", func(args []interp.Value) (interp.Value, error) {
		got = args
		return nil, nil
	})
	e.vm.SetGlobal("widget", widget)

	if _, err := e.d.Call(context.Background(), &Binding{Func: newRecorder(0, 5), Return: "widget"}, nil); err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[1] != wordcall.Borrow(5) || got[2] != wordcall.Borrow(wordcall.AdoptMarker) {
		t.Fatalf("init args = %#v", got)
	}
}

func TestCall_NativeError(t *testing.T) {
	e := newEnv(t)
	rec := newRecorder(0, 0)
	rec.err = errors.InvalidInput(errors.PhaseInvoke, "device busy")

	_, err := e.d.Call(context.Background(), &Binding{Func: rec}, nil)
	requireKind(t, err, errors.KindNative)
	if !strings.Contains(err.Error(), "device busy") {
		t.Fatalf("message %q", err)
	}
}

func TestCall_InvalidBinding(t *testing.T) {
	e := newEnv(t)
	if _, err := e.d.Call(context.Background(), nil, nil); err == nil {
		t.Fatal("nil binding should fail")
	}
	if _, err := e.d.Call(context.Background(), &Binding{}, nil); err == nil {
		t.Fatal("binding without func should fail")
	}
}

func TestWrap(t *testing.T) {
	e := newEnv(t)

	_, err := Wrap(e.vm, "lv_obj", 0)
	requireKind(t, err, errors.KindAllocation)

	v, err := Wrap(e.vm, "lv_obj", 0x44)
	if err != nil {
		t.Fatal(err)
	}
	if p, _ := v.(*minivm.Instance).Field("_p"); p != wordcall.Borrow(0x44) {
		t.Fatalf("_p = %v", p)
	}

	_, err = Wrap(e.vm, "nope", 1)
	requireKind(t, err, errors.KindValue)
}

func TestParseLegacyReturn(t *testing.T) {
	tests := []struct {
		in   string
		mode Mode
		ret  string
	}{
		{"+_p", ConstructorStore("_p"), ""},
		{"+", ConstructorStore("_p"), ""},
		{"+.p", ConstructorStore(".p"), ""},
		{"i", Regular, "i"},
		{"lv_obj", Regular, "lv_obj"},
		{"", Regular, ""},
	}
	for _, tt := range tests {
		mode, ret := ParseLegacyReturn(tt.in)
		if mode != tt.mode || ret != tt.ret {
			t.Errorf("ParseLegacyReturn(%q) = %v, %q; want %v, %q", tt.in, mode, ret, tt.mode, tt.ret)
		}
	}
	if Regular.IsConstructor() || Regular.String() != "regular" {
		t.Fatal("Regular mode")
	}
}
