package wasm

import (
	"errors"
	"fmt"
)

// Parsing errors wrapped in ParseError.
var (
	ErrInvalidMagic   = errors.New("invalid wasm magic number")
	ErrInvalidVersion = errors.New("unsupported wasm version")
	ErrSectionOrder   = errors.New("section out of order")
	ErrSectionSize    = errors.New("section size mismatch")
	ErrUnknownSection = errors.New("unknown section id")
)

// ParseError reports where decoding a module failed.
type ParseError struct {
	Err     error
	Section string
	Offset  int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("wasm: %s at offset %d: %v", e.Section, e.Offset, e.Err)
	}
	return fmt.Sprintf("wasm: at offset %d: %v", e.Offset, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func sectionName(id byte) string {
	switch id {
	case SectionCustom:
		return "custom section"
	case SectionType:
		return "type section"
	case SectionImport:
		return "import section"
	case SectionFunction:
		return "function section"
	case SectionTable:
		return "table section"
	case SectionMemory:
		return "memory section"
	case SectionGlobal:
		return "global section"
	case SectionExport:
		return "export section"
	case SectionStart:
		return "start section"
	case SectionElement:
		return "element section"
	case SectionCode:
		return "code section"
	case SectionData:
		return "data section"
	case SectionDataCount:
		return "data count section"
	case SectionTag:
		return "tag section"
	default:
		return fmt.Sprintf("section 0x%02x", id)
	}
}
