package wasm

import "fmt"

// Module is a fully decoded WebAssembly module. Code bodies keep their
// instruction stream as raw bytes; everything else is structured.
type Module struct {
	Types     []TypeDef
	Imports   []Import
	Funcs     []uint32 // type index of each defined function
	Tables    []Table
	Memories  []Memory
	Tags      []Tag
	Globals   []Global
	Exports   []Export
	Start     *uint32
	Elements  []Element
	DataCount *uint32
	Code      []FuncBody
	Data      []DataSegment

	// Customs holds every retained custom section in binary order.
	Customs Customs

	config ParseConfig
}

// Config returns the configuration the module was parsed with.
func (m *Module) Config() ParseConfig {
	return m.config
}

// SetConfig replaces the emission-relevant configuration.
func (m *Module) SetConfig(c ParseConfig) {
	m.config = c
}

// ValType is a value type. HeapType is only meaningful for the typed
// reference forms ValRef and ValRefNull.
type ValType struct {
	Code     byte
	HeapType int64
}

// Common value types.
var (
	I32       = ValType{Code: ValI32}
	I64       = ValType{Code: ValI64}
	F32       = ValType{Code: ValF32}
	F64       = ValType{Code: ValF64}
	V128      = ValType{Code: ValV128}
	FuncRef   = ValType{Code: ValFuncRef}
	ExternRef = ValType{Code: ValExtern}
)

// HasHeapType reports whether the type is encoded with a heap type immediate.
func (v ValType) HasHeapType() bool {
	return v.Code == ValRef || v.Code == ValRefNull
}

func (v ValType) String() string {
	switch v.Code {
	case ValI32:
		return "i32"
	case ValI64:
		return "i64"
	case ValF32:
		return "f32"
	case ValF64:
		return "f64"
	case ValV128:
		return "v128"
	case ValFuncRef:
		return "funcref"
	case ValExtern:
		return "externref"
	case ValRef:
		return fmt.Sprintf("(ref %d)", v.HeapType)
	case ValRefNull:
		return fmt.Sprintf("(ref null %d)", v.HeapType)
	default:
		return fmt.Sprintf("valtype(0x%02x)", v.Code)
	}
}

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// StorageType is a GC field storage type: a packed integer when Packed is
// non-zero, otherwise Val.
type StorageType struct {
	Val    ValType
	Packed byte
}

// FieldType is a GC struct field or array element.
type FieldType struct {
	Type    StorageType
	Mutable bool
}

// CompType is a composite type. Form is FuncTypeByte, StructTypeByte or
// ArrayTypeByte; arrays hold their element as the single entry of Fields.
type CompType struct {
	Func   *FuncType
	Fields []FieldType
	Form   byte
}

// SubType wraps a composite type. Explicit records whether the binary used
// the sub/sub final prefix, so shorthand forms re-encode identically.
type SubType struct {
	Comp     CompType
	Parents  []uint32
	Final    bool
	Explicit bool
}

// TypeDef is one entry of the type section: a single subtype, or a
// recursive group when Rec is set.
type TypeDef struct {
	Types []SubType
	Rec   bool
}

// Func returns the function type of a plain function definition, or nil.
func (t TypeDef) Func() *FuncType {
	if t.Rec || len(t.Types) != 1 || t.Types[0].Comp.Form != FuncTypeByte {
		return nil
	}
	return t.Types[0].Comp.Func
}

// FuncTypeDef builds the shorthand type section entry for ft.
func FuncTypeDef(ft FuncType) TypeDef {
	return TypeDef{Types: []SubType{{Final: true, Comp: CompType{Form: FuncTypeByte, Func: &ft}}}}
}

// Limits are the size bounds of a table or memory. Flags keeps the
// encoded flag byte; Max is meaningful only when HasMax reports true.
type Limits struct {
	Min   uint64
	Max   uint64
	Flags byte
}

// HasMax reports whether an upper bound is present.
func (l Limits) HasMax() bool { return l.Flags&LimitsHasMax != 0 }

// Shared reports whether the memory is shared.
func (l Limits) Shared() bool { return l.Flags&LimitsShared != 0 }

// Is64 reports whether bounds use 64-bit encoding.
func (l Limits) Is64() bool { return l.Flags&LimitsMemory64 != 0 }

// Table is a table definition. Init is set for tables declared with an
// initializer expression.
type Table struct {
	Init   []byte
	Limits Limits
	Elem   ValType
}

// Memory is a linear memory definition.
type Memory struct {
	Limits Limits
}

// GlobalType describes a global's value type and mutability.
type GlobalType struct {
	Val     ValType
	Mutable bool
}

// Global is a defined global with its constant initializer.
type Global struct {
	Init []byte
	Type GlobalType
}

// Tag is an exception tag.
type Tag struct {
	TypeIdx   uint32
	Attribute byte
}

// ExternType describes what an import provides. Exactly one of the
// fields matching Kind is set.
type ExternType struct {
	Table   *Table
	Memory  *Memory
	Global  *GlobalType
	Tag     *Tag
	TypeIdx uint32
	Kind    byte
}

// Import is an imported definition.
type Import struct {
	Module string
	Name   string
	Desc   ExternType
}

// Export is an exported definition.
type Export struct {
	Name  string
	Index uint32
	Kind  byte
}

// Element is an element segment. Flags selects among the eight binary
// encodings; the remaining fields are populated as that encoding requires.
type Element struct {
	Offset   []byte
	Funcs    []uint32
	Exprs    [][]byte
	RefType  ValType
	Flags    uint32
	Table    uint32
	ElemKind byte
}

// Passive reports whether the segment is passive or declarative.
func (e Element) Passive() bool { return e.Flags&0x01 != 0 }

// Local is a run of identically typed locals.
type Local struct {
	Type  ValType
	Count uint32
}

// FuncBody is a function body: decoded locals and the raw instruction
// stream including the final end opcode.
type FuncBody struct {
	Locals []Local
	Code   []byte
}

// DataSegment is a data segment. Flags 0 is active in memory 0, 1 is
// passive and 2 is active in Memory.
type DataSegment struct {
	Offset []byte
	Init   []byte
	Flags  uint32
	Memory uint32
}

// CustomSection is a named opaque section.
type CustomSection struct {
	Name string
	Data []byte
}
