package compression

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/pierrec/lz4"
)

// ErrCorrupt reports a blob that cannot be decompressed.
var ErrCorrupt = errors.New("corrupt compressed data")

// NoCompressor stores data as is.
type NoCompressor struct{}

func (c *NoCompressor) Name() string { return "none" }

// Compress returns a copy of data.
func (c *NoCompressor) Compress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// Decompress returns a copy of data.
func (c *NoCompressor) Decompress(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}

// LZ4Compressor stores LZ4 blocks prefixed with the uncompressed length
// and a mode byte. Data that does not shrink is kept raw.
type LZ4Compressor struct{}

const (
	modeRaw   byte = 0
	modeBlock byte = 1

	minCompressSize = 64
)

func (c *LZ4Compressor) Name() string { return "lz4" }

func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	header := make([]byte, 1+binary.MaxVarintLen64)
	n := 1 + binary.PutUvarint(header[1:], uint64(len(data)))

	if len(data) < minCompressSize {
		header[0] = modeRaw
		return append(header[:n], data...), nil
	}

	block := make([]byte, lz4.CompressBlockBound(len(data)))
	size, err := lz4.CompressBlock(data, block, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compression failed: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if size == 0 || size >= len(data) {
		header[0] = modeRaw
		return append(header[:n], data...), nil
	}
	header[0] = modeBlock
	return append(header[:n], block[:size]...), nil
}

func (c *LZ4Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrCorrupt)
	}
	length, n := binary.Uvarint(data[1:])
	if n <= 0 {
		return nil, fmt.Errorf("%w: bad length", ErrCorrupt)
	}
	payload := data[1+n:]

	switch data[0] {
	case modeRaw:
		if uint64(len(payload)) != length {
			return nil, fmt.Errorf("%w: raw length %d, want %d", ErrCorrupt, len(payload), length)
		}
		return append([]byte(nil), payload...), nil
	case modeBlock:
		out := make([]byte, length)
		size, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(size) != length {
			return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrCorrupt, size, length)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown mode %d", ErrCorrupt, data[0])
	}
}
