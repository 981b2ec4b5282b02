// Package errors provides structured error types for the metadata pipeline.
//
// Errors are categorized by Phase (which stage failed) and Kind (error
// category). Each pipeline stage has a sentinel that errors.Is matches on
// Phase and Kind alone:
//
//	out, err := metadata.AddCustomSections(data, sections)
//	switch {
//	case errors.Is(err, errors.ErrInputFormat):   // not wasm, not gzip
//	case errors.Is(err, errors.ErrDecompression): // corrupt gzip
//	case errors.Is(err, errors.ErrParse):         // malformed module
//	}
//
// Marshalling errors from host values carry the offending path:
//
//	err := errors.New(errors.PhaseMarshal, errors.KindTypeMismatch).
//		Path("sections", "0", "data").
//		GoType("float64").
//		Expected("string").
//		Build()
//
// Use IsPhase to match every kind of a phase.
package errors
