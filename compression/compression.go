// Package compression detects and inflates the encodings a wasm module
// may arrive in.
package compression

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// Encoding is the detected container format of an input buffer.
type Encoding int

const (
	Invalid Encoding = iota
	Raw
	Gzip
)

var (
	wasmMagic = []byte{0x00, 0x61, 0x73, 0x6D}
	gzipMagic = []byte{0x1F, 0x8B, 0x08}
)

// Compression levels accepted by Compress.
const (
	DefaultLevel = gzip.DefaultCompression
	BestSpeed    = gzip.BestSpeed
	BestSize     = gzip.BestCompression
)

// ErrTooLarge is returned by DecompressLimit when the inflated payload
// exceeds the limit.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

func (e Encoding) String() string {
	switch e {
	case Raw:
		return "raw"
	case Gzip:
		return "gzip"
	default:
		return "invalid"
	}
}

// Detect classifies data by its leading bytes. Short or empty input is
// Invalid.
func Detect(data []byte) Encoding {
	switch {
	case bytes.HasPrefix(data, wasmMagic):
		return Raw
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	default:
		return Invalid
	}
}

// Decompress inflates a complete gzip stream, including concatenated
// members. The output size is not bounded.
func Decompress(data []byte) ([]byte, error) {
	return DecompressLimit(data, 0)
}

// DecompressLimit is Decompress with an upper bound on the output size.
// A limit of zero or less means no bound.
func DecompressLimit(data []byte, limit int64) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("gzip header: %w", err)
	}
	defer zr.Close()

	var r io.Reader = zr
	if limit > 0 {
		r = io.LimitReader(zr, limit+1)
	}

	var out bytes.Buffer
	if _, err := out.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("gzip stream: %w", err)
	}
	if limit > 0 && int64(out.Len()) > limit {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrTooLarge, limit)
	}
	return out.Bytes(), nil
}

// Compress gzips data at level, from BestSpeed to BestSize, or
// DefaultLevel.
func Compress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
