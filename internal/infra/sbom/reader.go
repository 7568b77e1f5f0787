// Package sbom obtains CycloneDX documents: generated by syft or read from
// an existing, optionally compressed, file.
package sbom

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/openctemio/ossreview/pkg/domain/shared"
)

// DefaultMaxSize bounds the decompressed size of an SBOM file.
const DefaultMaxSize int64 = 256 * 1024 * 1024

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Encoding is the compression of an SBOM file.
type Encoding string

const (
	EncodingNone Encoding = "none"
	EncodingGzip Encoding = "gzip"
	EncodingZstd Encoding = "zstd"
)

// ReadFile reads an SBOM file, decompressing gzip or zstd content. The
// encoding is taken from the magic bytes, falling back to the extension.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: sbom file %s", shared.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: failed to open sbom file %s: %v", shared.ErrDependency, path, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(4)

	data, err := decode(br, DetectEncoding(path, head), maxSize)
	if err != nil {
		return nil, fmt.Errorf("%w: sbom file %s: %v", shared.ErrDependency, path, err)
	}
	return data, nil
}

// DetectEncoding picks the compression from the leading bytes, else from the
// file extension.
func DetectEncoding(path string, head []byte) Encoding {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return EncodingGzip
	case bytes.HasPrefix(head, zstdMagic):
		return EncodingZstd
	}
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		return EncodingGzip
	case strings.HasSuffix(lower, ".zst"), strings.HasSuffix(lower, ".zstd"):
		return EncodingZstd
	default:
		return EncodingNone
	}
}

func decode(r io.Reader, enc Encoding, maxSize int64) ([]byte, error) {
	var reader io.Reader

	switch enc {
	case EncodingGzip:
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip reader error: %w", err)
		}
		defer gr.Close()
		reader = gr

	case EncodingZstd:
		//nolint:gosec // G115: maxSize is positive
		zr, err := zstd.NewReader(r,
			zstd.WithDecoderMaxMemory(uint64(maxSize)),
			zstd.WithDecoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd reader error: %w", err)
		}
		defer zr.Close()
		reader = zr

	default:
		reader = r
	}

	data, err := io.ReadAll(io.LimitReader(reader, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("decompression error: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("size exceeds limit of %d bytes", maxSize)
	}
	return data, nil
}
