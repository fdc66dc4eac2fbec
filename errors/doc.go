// Package errors provides structured error types for native call marshaling.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Kinds mirror the interpreter's error names: type_error,
// value_error, attribute_error, internal_error and malloc_error, plus
// native_error for failures raised by the native side.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseConvert, errors.KindType).
//		Path(errors.Arg(1)).
//		Provided("s").
//		Expected("i").
//		Detail("unexpected argument type").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseConvert, path, "s", "i")
//	err := errors.ClassNotFound(errors.PhaseConvert, path, "lv.obj")
//
// Kind checks that ignore the phase use the sentinels:
//
//	if errors.Is(err, wcerrors.ErrType) { ... }
package errors
