// Package wasmmeta stamps canister metadata into WebAssembly modules.
//
// The library takes a raw or gzip compressed module, replaces a set of
// named custom sections and returns the uncompressed result. It also
// compares Candid service interfaces by delegating to didc.
//
// # Packages
//
//	wasmmeta/            Entry points for host callers
//	├── metadata/        Sniff, inflate, parse, edit and emit pipeline
//	├── wasm/            Core WASM binary model, decoder and encoder
//	├── compression/     Encoding detection and gzip handling
//	├── binding/         Host values to custom section lists
//	├── candid/          Candid interface compatibility
//	├── verify/          Independent validation of emitted modules
//	└── errors/          Structured error types for debugging
//
// # Quick Start
//
// Publish a service interface:
//
//	out, err := wasmmeta.AddCustomSections(wasmBytes, []map[string]string{
//	    {"name": "icp:public candid:service", "data": didText},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Check an upgrade:
//
//	if !wasmmeta.IsCandidCompatible(ctx, newDid, oldDid) {
//	    log.Fatal("breaking interface change")
//	}
//
// # Errors
//
// Failures are *errors.Error values. Match a stage with the sentinels:
//
//	if errors.Is(err, errors.ErrParse) {
//	    // input inflated but is not a valid module
//	}
package wasmmeta
