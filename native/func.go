package native

import (
	"context"
	"fmt"
	"reflect"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/errors"
)

// Func is a native function taking a fixed number of word arguments and
// returning one word. Call always receives exactly Arity words.
type Func interface {
	Name() string
	Arity() int
	Call(ctx context.Context, args []wordcall.Word) (wordcall.Word, error)
}

// Arity shims. Functions of these exact types are called without reflection.
type (
	Func0 = func() wordcall.Word
	Func1 = func(wordcall.Word) wordcall.Word
	Func2 = func(wordcall.Word, wordcall.Word) wordcall.Word
	Func3 = func(wordcall.Word, wordcall.Word, wordcall.Word) wordcall.Word
	Func4 = func(wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word) wordcall.Word
	Func5 = func(wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word) wordcall.Word
	Func6 = func(wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word) wordcall.Word
	Func7 = func(wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word) wordcall.Word
	Func8 = func(wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word, wordcall.Word) wordcall.Word
)

// RawFunc receives the argument words as a slice.
type RawFunc func(ctx context.Context, args []wordcall.Word) (wordcall.Word, error)

type goFunc struct {
	name  string
	arity int
	call  RawFunc
}

func (f *goFunc) Name() string { return f.name }
func (f *goFunc) Arity() int   { return f.arity }

func (f *goFunc) Call(ctx context.Context, args []wordcall.Word) (wordcall.Word, error) {
	if len(args) != f.arity {
		return 0, errors.New(errors.PhaseInvoke, errors.KindInternal).
			Path(f.name).
			Detail("called with %d words, arity is %d", len(args), f.arity).
			Build()
	}
	return f.call(ctx, args)
}

// Raw wraps a slice-style implementation with a declared arity.
func Raw(name string, arity int, fn RawFunc) (Func, error) {
	if arity < 0 || arity > wordcall.MaxArgs {
		return nil, errors.TooManyArguments(errors.PhaseRegister, arity, wordcall.MaxArgs)
	}
	if fn == nil {
		return nil, errors.InvalidInput(errors.PhaseRegister, "nil function "+name)
	}
	return &goFunc{name: name, arity: arity, call: fn}, nil
}

// Go adapts a Go function into a Func.
//
// The arity shims Func0 through Func8 are called directly. Any other
// function whose parameters and single result are integer, uintptr or bool
// kinds is called through reflection; it may also return a trailing error.
func Go(name string, fn any) (Func, error) {
	f := &goFunc{name: name}
	switch fn := fn.(type) {
	case Func0:
		f.arity, f.call = 0, func(_ context.Context, _ []wordcall.Word) (wordcall.Word, error) {
			return fn(), nil
		}
	case Func1:
		f.arity, f.call = 1, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0]), nil
		}
	case Func2:
		f.arity, f.call = 2, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0], a[1]), nil
		}
	case Func3:
		f.arity, f.call = 3, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0], a[1], a[2]), nil
		}
	case Func4:
		f.arity, f.call = 4, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0], a[1], a[2], a[3]), nil
		}
	case Func5:
		f.arity, f.call = 5, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0], a[1], a[2], a[3], a[4]), nil
		}
	case Func6:
		f.arity, f.call = 6, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0], a[1], a[2], a[3], a[4], a[5]), nil
		}
	case Func7:
		f.arity, f.call = 7, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0], a[1], a[2], a[3], a[4], a[5], a[6]), nil
		}
	case Func8:
		f.arity, f.call = 8, func(_ context.Context, a []wordcall.Word) (wordcall.Word, error) {
			return fn(a[0], a[1], a[2], a[3], a[4], a[5], a[6], a[7]), nil
		}
	case RawFunc:
		return nil, errors.InvalidInput(errors.PhaseRegister, "raw function "+name+" needs an arity, use Raw")
	default:
		return reflectFunc(name, fn)
	}
	return f, nil
}

// MustGo is like Go but panics on error. Intended for static tables.
func MustGo(name string, fn any) Func {
	f, err := Go(name, fn)
	if err != nil {
		panic(err)
	}
	return f
}

var (
	errorType = reflect.TypeOf((*error)(nil)).Elem()
	ctxType   = reflect.TypeOf((*context.Context)(nil)).Elem()
)

func wordKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Uintptr, reflect.Bool:
		return true
	}
	return false
}

func reflectFunc(name string, fn any) (Func, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, errors.New(errors.PhaseRegister, errors.KindType).
			Path(name).
			Provided(fmt.Sprintf("%T", fn)).
			Expected("func").
			Build()
	}
	t := v.Type()
	if t.IsVariadic() {
		return nil, errors.InvalidInput(errors.PhaseRegister, "variadic function "+name)
	}

	first := 0
	if t.NumIn() > 0 && t.In(0) == ctxType {
		first = 1
	}
	arity := t.NumIn() - first
	if arity > wordcall.MaxArgs {
		return nil, errors.TooManyArguments(errors.PhaseRegister, arity, wordcall.MaxArgs)
	}
	for i := first; i < t.NumIn(); i++ {
		if !wordKind(t.In(i).Kind()) {
			return nil, errors.New(errors.PhaseRegister, errors.KindType).
				Path(name, errors.Arg(i-first)).
				Provided(t.In(i).String()).
				Expected("word-sized integer or bool").
				Build()
		}
	}

	hasErr := t.NumOut() > 0 && t.Out(t.NumOut()-1) == errorType
	results := t.NumOut()
	if hasErr {
		results--
	}
	if results > 1 || (results == 1 && !wordKind(t.Out(0).Kind())) {
		return nil, errors.New(errors.PhaseRegister, errors.KindType).
			Path(name, "result").
			Provided(t.String()).
			Expected("at most one word-sized result").
			Build()
	}

	call := func(ctx context.Context, args []wordcall.Word) (wordcall.Word, error) {
		in := make([]reflect.Value, 0, t.NumIn())
		if first == 1 {
			in = append(in, reflect.ValueOf(ctx))
		}
		for i, w := range args {
			in = append(in, fromWord(w, t.In(i+first)))
		}
		out := v.Call(in)
		if hasErr {
			if e := out[len(out)-1]; !e.IsNil() {
				return 0, e.Interface().(error)
			}
		}
		if results == 0 {
			return 0, nil
		}
		return toWord(out[0]), nil
	}
	return &goFunc{name: name, arity: arity, call: call}, nil
}

func fromWord(w wordcall.Word, t reflect.Type) reflect.Value {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		v.SetBool(w != 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(int64(w))
	default:
		v.SetUint(uint64(w))
	}
	return v
}

func toWord(v reflect.Value) wordcall.Word {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return wordcall.Word(v.Int())
	}
	return wordcall.Word(v.Uint())
}
