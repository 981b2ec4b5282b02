package wasmmeta

import (
	"context"

	"github.com/wippyai/wasm-metadata/binding"
	"github.com/wippyai/wasm-metadata/candid"
	"github.com/wippyai/wasm-metadata/metadata"
)

// CustomSection is a named custom section payload.
type CustomSection = metadata.CustomSection

// AddCustomSections replaces the custom sections named in sections and
// returns the uncompressed module. sections is any value binding accepts:
// a []CustomSection, a slice of name/data maps or structs, or JSON text.
// The result is nil whenever the error is not.
func AddCustomSections(data []byte, sections any) ([]byte, error) {
	list, err := binding.DecodeSections(sections)
	if err != nil {
		return nil, err
	}
	return metadata.AddCustomSections(data, list)
}

// IsCandidCompatible reports whether newInterface can replace
// originalInterface, using didc from PATH. Failing to run didc counts as
// incompatible.
func IsCandidCompatible(ctx context.Context, newInterface, originalInterface string) bool {
	return candid.IsCompatible(ctx, candid.Didc{}, newInterface, originalInterface)
}
