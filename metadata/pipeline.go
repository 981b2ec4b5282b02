package metadata

import (
	"go.uber.org/zap"

	"github.com/wippyai/wasm-metadata/compression"
	"github.com/wippyai/wasm-metadata/errors"
	"github.com/wippyai/wasm-metadata/wasm"
)

// Options tune the pipeline. The zero value matches AddCustomSections:
// the name section is dropped and decompression is unbounded.
type Options struct {
	// KeepNameSection retains the "name" debug section.
	KeepNameSection bool

	// MaxDecompressedSize caps the inflated size of gzip input in bytes.
	// Zero means no cap.
	MaxDecompressedSize int64
}

// Load sniffs data, inflates it when gzip compressed and parses it.
func Load(data []byte, keepNameSection bool) (*wasm.Module, error) {
	return Options{KeepNameSection: keepNameSection}.Load(data)
}

// AddCustomSections replaces the named custom sections of a raw or gzip
// compressed module and returns the uncompressed result.
func AddCustomSections(data []byte, sections []CustomSection) ([]byte, error) {
	return Options{}.AddCustomSections(data, sections)
}

// Load sniffs data, inflates it when gzip compressed and parses it with
// producers generation disabled.
func (o Options) Load(data []byte) (*wasm.Module, error) {
	raw, err := o.unwrap(data)
	if err != nil {
		return nil, err
	}

	m, err := wasm.NewParseConfig(o.KeepNameSection).Parse(raw)
	if err != nil {
		return nil, errors.Parse(err)
	}
	Logger().Debug("parsed module",
		zap.Int("bytes", len(raw)),
		zap.Int("custom_sections", m.Customs.Len()),
		zap.Bool("keep_name_section", o.KeepNameSection))
	return m, nil
}

// AddCustomSections runs the full pipeline: load, apply, emit.
func (o Options) AddCustomSections(data []byte, sections []CustomSection) ([]byte, error) {
	m, err := o.Load(data)
	if err != nil {
		return nil, err
	}
	Apply(m, sections)
	return Emit(m)
}

// Emit encodes m, reporting failures as encode phase errors.
func Emit(m *wasm.Module) ([]byte, error) {
	out, err := m.Encode()
	if err != nil {
		return nil, errors.Encode(err)
	}
	Logger().Debug("emitted module", zap.Int("bytes", len(out)))
	return out, nil
}

func (o Options) unwrap(data []byte) ([]byte, error) {
	enc := compression.Detect(data)
	Logger().Debug("detected input encoding", zap.Stringer("encoding", enc), zap.Int("bytes", len(data)))

	switch enc {
	case compression.Raw:
		return data, nil
	case compression.Gzip:
		raw, err := compression.DecompressLimit(data, o.MaxDecompressedSize)
		if err != nil {
			return nil, errors.Decompression(err)
		}
		return raw, nil
	default:
		return nil, errors.InputFormat(data)
	}
}
