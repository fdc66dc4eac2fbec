package descriptor

import (
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/wordcall/errors"
)

// FromWIT derives an argument descriptor from WIT parameter types.
//
// Only word-sized types map: bool, 8/16/32-bit integers and char become
// scalar tags, string becomes a NUL-terminated string pointer, and own/borrow
// handles become a NamedClass of the resource name. 64-bit integers, floats
// and compound types have no single-word representation and are rejected.
func FromWIT(params []wit.Type) (string, error) {
	var b strings.Builder
	for i, p := range params {
		tok, err := witToken(p, []string{errors.Arg(i)})
		if err != nil {
			return "", err
		}
		b.WriteString(tok)
	}
	return b.String(), nil
}

// ReturnFromWIT derives a return descriptor from a WIT result type.
// A nil result means the function returns nothing.
func ReturnFromWIT(result wit.Type) (string, error) {
	if result == nil {
		return "", nil
	}
	tok, err := witToken(result, []string{"result"})
	if err != nil {
		return "", err
	}
	if len(tok) > 1 {
		// class names are bare in return descriptors
		tok = strings.TrimSuffix(strings.TrimPrefix(tok, "("), ")")
	}
	return tok, nil
}

func witToken(t wit.Type, path []string) (string, error) {
	switch v := t.(type) {
	case wit.Bool:
		return "b", nil
	case wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return "i", nil
	case wit.String:
		return "s", nil
	case *wit.TypeDef:
		return witTypeDefToken(v, path)
	}
	return "", errors.New(errors.PhaseParse, errors.KindType).
		Path(path...).
		Provided(witTypeName(t)).
		Detail("no word-sized mapping").
		Build()
}

func witTypeDefToken(td *wit.TypeDef, path []string) (string, error) {
	switch k := td.Kind.(type) {
	case *wit.Own:
		return handleToken(k.Type, path)
	case *wit.Borrow:
		return handleToken(k.Type, path)
	case wit.Type:
		return witToken(k, path)
	}
	return "", errors.New(errors.PhaseParse, errors.KindType).
		Path(path...).
		Provided(witTypeName(td)).
		Detail("no word-sized mapping").
		Build()
}

func handleToken(res *wit.TypeDef, path []string) (string, error) {
	if res == nil || res.Name == nil || *res.Name == "" {
		return "", errors.New(errors.PhaseParse, errors.KindValue).
			Path(path...).
			Detail("handle to anonymous resource").
			Build()
	}
	return "(" + *res.Name + ")", nil
}

func witTypeName(t wit.Type) string {
	if td, ok := t.(*wit.TypeDef); ok {
		if td.Name != nil {
			return *td.Name
		}
		return "anonymous type"
	}
	return typeString(t)
}

func typeString(t wit.Type) string {
	switch t.(type) {
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	}
	return "unsupported"
}
