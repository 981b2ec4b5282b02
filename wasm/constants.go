package wasm

// WebAssembly binary format magic number and version.
const (
	// Magic is the WebAssembly binary magic number ("\0asm" in little-endian).
	Magic uint32 = 0x6D736100

	// Version is the supported WebAssembly binary format version.
	Version uint32 = 0x01
)

// Section IDs. Known sections appear at most once and in canonical
// order; custom sections may appear anywhere.
const (
	SectionCustom    byte = 0
	SectionType      byte = 1
	SectionImport    byte = 2
	SectionFunction  byte = 3
	SectionTable     byte = 4
	SectionMemory    byte = 5
	SectionGlobal    byte = 6
	SectionExport    byte = 7
	SectionStart     byte = 8
	SectionElement   byte = 9
	SectionCode      byte = 10
	SectionData      byte = 11
	SectionDataCount byte = 12
	SectionTag       byte = 13
)

// Well-known custom section names.
const (
	NameSectionName      = "name"
	ProducersSectionName = "producers"
)

// Import/export descriptor kinds.
const (
	KindFunc   byte = 0
	KindTable  byte = 1
	KindMemory byte = 2
	KindGlobal byte = 3
	KindTag    byte = 4
)

// Value type encodings.
const (
	ValI32     byte = 0x7F
	ValI64     byte = 0x7E
	ValF32     byte = 0x7D
	ValF64     byte = 0x7C
	ValV128    byte = 0x7B
	ValFuncRef byte = 0x70
	ValExtern  byte = 0x6F

	// ValRefNull and ValRef carry an s33 heap type immediate.
	ValRefNull byte = 0x63
	ValRef     byte = 0x64
)

// Packed storage types for GC struct and array fields.
const (
	PackedI8  byte = 0x78
	PackedI16 byte = 0x77
)

// Type section forms.
const (
	FuncTypeByte   byte = 0x60
	StructTypeByte byte = 0x5F
	ArrayTypeByte  byte = 0x5E
	SubTypeByte    byte = 0x50
	SubFinalByte   byte = 0x4F
	RecTypeByte    byte = 0x4E
)

// Limits flags.
const (
	LimitsHasMax   byte = 0x01
	LimitsShared   byte = 0x02
	LimitsMemory64 byte = 0x04
)

// Opcodes allowed in constant expressions.
const (
	OpEnd       byte = 0x0B
	OpGlobalGet byte = 0x23
	OpI32Const  byte = 0x41
	OpI64Const  byte = 0x42
	OpF32Const  byte = 0x43
	OpF64Const  byte = 0x44
	OpI32Add    byte = 0x6A
	OpI32Sub    byte = 0x6B
	OpI32Mul    byte = 0x6C
	OpI64Add    byte = 0x7C
	OpI64Sub    byte = 0x7D
	OpI64Mul    byte = 0x7E
	OpRefNull   byte = 0xD0
	OpRefFunc   byte = 0xD2

	OpPrefixGC   byte = 0xFB
	OpPrefixSIMD byte = 0xFD
)

// GC prefixed sub-opcodes allowed in constant expressions.
const (
	GCStructNew        uint32 = 0x00
	GCStructNewDefault uint32 = 0x01
	GCArrayNew         uint32 = 0x06
	GCArrayNewDefault  uint32 = 0x07
	GCArrayNewFixed    uint32 = 0x08
	GCArrayNewData     uint32 = 0x09
	GCArrayNewElem     uint32 = 0x0A
	GCAnyConvertExtern uint32 = 0x1A
	GCExternConvertAny uint32 = 0x1B
	GCRefI31           uint32 = 0x1C
)

// SimdV128Const is the SIMD sub-opcode of v128.const.
const SimdV128Const uint32 = 0x0C
