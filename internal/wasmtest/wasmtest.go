// Package wasmtest builds small WebAssembly binaries for tests.
package wasmtest

import "bytes"

// Header is the wasm magic number followed by version 1.
var Header = []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

// GzipMagic is the leading bytes of a deflate-compressed gzip stream.
var GzipMagic = []byte{0x1F, 0x8B, 0x08}

// Section frames payload as a section with the given id. Payloads must
// be shorter than 128 bytes.
func Section(id byte, payload ...byte) []byte {
	if len(payload) > 0x7F {
		panic("wasmtest: payload too long for single byte size")
	}
	return append([]byte{id, byte(len(payload))}, payload...)
}

// Custom frames a custom section.
func Custom(name string, data []byte) []byte {
	payload := append([]byte{byte(len(name))}, name...)
	return Section(0, append(payload, data...)...)
}

// Module joins the header and sections.
func Module(sections ...[]byte) []byte {
	return bytes.Join(append([][]byte{Header}, sections...), nil)
}

// Empty returns a module with no sections.
func Empty() []byte {
	return Module()
}

// Simple sections: one function returning 42 exported as "run", one page
// of memory and a data segment. The module is valid for any runtime.
var (
	SimpleType     = Section(0x01, 0x01, 0x60, 0x00, 0x01, 0x7F)
	SimpleFunction = Section(0x03, 0x01, 0x00)
	SimpleMemory   = Section(0x05, 0x01, 0x00, 0x01)
	SimpleExport   = Section(0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x00)
	SimpleCode     = Section(0x0A, 0x01, 0x04, 0x00, 0x41, 0x2A, 0x0B)
	SimpleData     = Section(0x0B, 0x01, 0x00, 0x41, 0x00, 0x0B, 0x02, 'h', 'i')
)

// Simple returns a valid module with no custom sections followed by
// extra, which is usually a list of custom sections.
func Simple(extra ...[]byte) []byte {
	sections := [][]byte{SimpleType, SimpleFunction, SimpleMemory, SimpleExport, SimpleCode, SimpleData}
	return Module(append(sections, extra...)...)
}

// KitchenSink sections exercise every known section id, GC types,
// element and data segment variants. The module is structurally well
// formed but not meant to be instantiated.
var (
	KitchenType = Section(0x01,
		0x02,
		0x4E, 0x02,
		0x50, 0x00, 0x5F, 0x02, 0x7F, 0x01, 0x78, 0x00,
		0x4F, 0x01, 0x00, 0x5E, 0x63, 0x00, 0x00,
		0x60, 0x01, 0x64, 0x70, 0x00,
	)
	KitchenImport    = Section(0x02, 0x01, 0x03, 'e', 'n', 'v', 0x01, 'f', 0x00, 0x02)
	KitchenFunction  = Section(0x03, 0x01, 0x02)
	KitchenTable     = Section(0x04, 0x01, 0x70, 0x00, 0x01)
	KitchenMemory    = Section(0x05, 0x01, 0x01, 0x01, 0x02)
	KitchenTag       = Section(0x0D, 0x01, 0x00, 0x02)
	KitchenGlobal    = Section(0x06, 0x01, 0x7F, 0x01, 0x41, 0x2A, 0x0B)
	KitchenExport    = Section(0x07, 0x01, 0x01, 'g', 0x03, 0x00)
	KitchenStart     = Section(0x08, 0x01)
	KitchenElement   = Section(0x09, 0x02, 0x00, 0x41, 0x00, 0x0B, 0x01, 0x01, 0x05, 0x70, 0x01, 0xD2, 0x01, 0x0B)
	KitchenDataCount = Section(0x0C, 0x02)
	KitchenCode      = Section(0x0A, 0x01, 0x04, 0x01, 0x01, 0x7F, 0x0B)
	KitchenData      = Section(0x0B, 0x02, 0x00, 0x41, 0x00, 0x0B, 0x02, 'h', 'i', 0x01, 0x01, 0x21)
)

// KitchenSections returns the known kitchen sink sections in canonical
// order.
func KitchenSections() [][]byte {
	return [][]byte{
		KitchenType, KitchenImport, KitchenFunction, KitchenTable, KitchenMemory,
		KitchenTag, KitchenGlobal, KitchenExport, KitchenStart, KitchenElement,
		KitchenDataCount, KitchenCode, KitchenData,
	}
}
