// Package wasm parses and re-encodes WebAssembly binary modules.
//
// The decoder understands every section of the core binary format plus
// the GC, exception handling, memory64 and multi-memory extensions at
// the structural level. Function bodies are kept as raw instruction
// bytes, so a module survives a parse/encode cycle without the package
// having to understand every opcode.
//
// # Parsing
//
//	cfg := wasm.NewParseConfig(false) // drop the name section
//	m, err := cfg.Parse(data)
//	if err != nil {
//	    var perr *wasm.ParseError
//	    errors.As(err, &perr) // section and offset of the failure
//	}
//
// The parser rejects bad magic or version, unknown or out-of-order
// sections, section sizes that overrun the input or are not fully
// consumed, overlong LEB128 values and names that are not UTF-8.
//
// # Custom sections
//
// Custom sections are collected in binary order in Module.Customs:
//
//	m.Customs.Remove("icp:public candid:service")
//	m.Customs.Add(wasm.CustomSection{Name: "icp:public candid:service", Data: did})
//
// # Encoding
//
// Encode writes known sections in canonical order and then every custom
// section in collection order:
//
//	out, err := m.Encode()
//
// When the parse configuration sets GenerateProducersSection, the
// configured Processor is merged into the "processed-by" field of the
// producers section.
package wasm
