// Package metadata rewrites the custom sections of WebAssembly modules.
//
// The pipeline sniffs the input encoding, inflates gzip input, parses the
// module without its name section, replaces the requested custom sections
// and emits an uncompressed module:
//
//	sections := metadata.CandidSections(metadata.Public, didText, "")
//	out, err := metadata.AddCustomSections(wasmBytes, sections)
//
// Replacement is idempotent. Every existing section carrying a requested
// name is removed before the new sections are appended, and when a name
// is requested more than once the last request wins.
package metadata
