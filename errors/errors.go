package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates which pipeline stage produced the error
type Phase string

const (
	PhaseDetect     Phase = "detect"     // encoding sniffing
	PhaseDecompress Phase = "decompress" // gzip inflation
	PhaseParse      Phase = "parse"      // wasm decoding
	PhaseEncode     Phase = "encode"     // wasm emission
	PhaseMarshal    Phase = "marshal"    // host value to sections
	PhaseCandid     Phase = "candid"     // interface comparison
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput Kind = "invalid_input"
	KindCorrupt      Kind = "corrupt"
	KindInvalidData  Kind = "invalid_data"
	KindTypeMismatch Kind = "type_mismatch"
	KindFieldMissing Kind = "field_missing"
	KindFieldUnknown Kind = "field_unknown"
	KindInvalidUTF8  Kind = "invalid_utf8"
	KindNotFound     Kind = "not_found"
	KindIncompatible Kind = "incompatible"
)

// Sentinels for errors.Is. Matching compares Phase and Kind only.
var (
	ErrInputFormat   = &Error{Phase: PhaseDetect, Kind: KindInvalidInput}
	ErrDecompression = &Error{Phase: PhaseDecompress, Kind: KindCorrupt}
	ErrParse         = &Error{Phase: PhaseParse, Kind: KindInvalidData}
	ErrEncode        = &Error{Phase: PhaseEncode, Kind: KindInvalidData}
	ErrIncompatible  = &Error{Phase: PhaseCandid, Kind: KindIncompatible}
)

// Error is the structured error type used throughout the module
type Error struct {
	Value    any
	Cause    error
	Phase    Phase
	Kind     Kind
	GoType   string
	Expected string
	Detail   string
	Path     []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	hasTypes := e.GoType != "" || e.Expected != ""
	if hasTypes {
		b.WriteString(": ")
		switch {
		case e.GoType != "" && e.Expected != "":
			b.WriteString("got ")
			b.WriteString(e.GoType)
			b.WriteString(", expected ")
			b.WriteString(e.Expected)
		case e.GoType != "":
			b.WriteString("got ")
			b.WriteString(e.GoType)
		default:
			b.WriteString("expected ")
			b.WriteString(e.Expected)
		}
	}

	if e.Detail != "" {
		if hasTypes {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Is is errors.Is from the standard library.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As from the standard library.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsPhase reports whether err is an *Error from phase.
func IsPhase(err error, phase Phase) bool {
	var e *Error
	return errors.As(err, &e) && e.Phase == phase
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name of the offending value
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Expected sets the name of the type that was required
func (b *Builder) Expected(t string) *Builder {
	b.err.Expected = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Pipeline constructors

// InputFormat reports input that is neither a raw nor a gzip module.
func InputFormat(prefix []byte) *Error {
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return &Error{
		Phase:  PhaseDetect,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("input is neither a wasm module nor gzip data (leading bytes %x)", prefix),
		Value:  prefix,
	}
}

// Decompression wraps a gzip decoder failure.
func Decompression(cause error) *Error {
	return &Error{
		Phase:  PhaseDecompress,
		Kind:   KindCorrupt,
		Detail: "inflate gzip stream",
		Cause:  cause,
	}
}

// Parse wraps a wasm decoding failure.
func Parse(cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: "parse wasm module",
		Cause:  cause,
	}
}

// Encode wraps a wasm emission failure.
func Encode(cause error) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindInvalidData,
		Detail: "encode wasm module",
		Cause:  cause,
	}
}

// Marshalling constructors

// TypeMismatch creates a type mismatch error
func TypeMismatch(path []string, goType, expected string) *Error {
	return &Error{
		Phase:    PhaseMarshal,
		Kind:     KindTypeMismatch,
		Path:     path,
		GoType:   goType,
		Expected: expected,
	}
}

// FieldMissing creates a missing field error
func FieldMissing(path []string, fieldName string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(path []string, fieldName string) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidData creates a marshalling error for values that cannot be
// decoded at all.
func InvalidData(path []string, detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseMarshal,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
		Cause:  cause,
	}
}

// Candid constructors

// NotFound creates a not-found error
func NotFound(what, name string) *Error {
	return &Error{
		Phase:  PhaseCandid,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s not found: %s", what, name),
		Value:  name,
	}
}

// Incompatible reports a failed interface comparison.
func Incompatible(cause error) *Error {
	return &Error{
		Phase:  PhaseCandid,
		Kind:   KindIncompatible,
		Detail: "new interface is not a subtype of the original",
		Cause:  cause,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
