package compressors

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	lz4 "github.com/pierrec/lz4/v4"

	"github.com/INLOpen/nexusstate/core"
)

// maxLZ4BlockSize bounds the decoded size a block header may claim.
const maxLZ4BlockSize = 1 << 30

// Block layout: uvarint decoded length, one marker byte, then either the
// LZ4 block or, for input LZ4 cannot shrink, the raw bytes.
const (
	lz4MarkerStored     byte = 0
	lz4MarkerCompressed byte = 1
)

var errLZ4Corrupt = errors.New("lz4: corrupt block header")

// LZ4Compressor implements the Compressor interface using size-prefixed LZ4
// blocks.
type LZ4Compressor struct{}

var _ core.Compressor = (*LZ4Compressor)(nil)

func NewLz4Compressor() *LZ4Compressor { return &LZ4Compressor{} }

func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.CompressTo(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *LZ4Compressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	dst.Reset()

	var hdr [binary.MaxVarintLen64 + 1]byte
	n := binary.PutUvarint(hdr[:], uint64(len(src)))

	block := make([]byte, lz4.CompressBlockBound(len(src)))
	var compressor lz4.Compressor
	written, err := compressor.CompressBlock(src, block)
	if err != nil {
		return fmt.Errorf("lz4 compress error: %w", err)
	}

	if written == 0 || written >= len(src) {
		hdr[n] = lz4MarkerStored
		dst.Write(hdr[:n+1])
		dst.Write(src)
		return nil
	}
	hdr[n] = lz4MarkerCompressed
	dst.Write(hdr[:n+1])
	dst.Write(block[:written])
	return nil
}

func (c *LZ4Compressor) Decompress(data []byte) (io.ReadCloser, error) {
	if len(data) == 0 {
		return newMemReadCloser(nil), nil
	}
	size, n := binary.Uvarint(data)
	if n <= 0 || n >= len(data) || size > maxLZ4BlockSize {
		return nil, errLZ4Corrupt
	}
	marker, body := data[n], data[n+1:]

	switch marker {
	case lz4MarkerStored:
		if uint64(len(body)) != size {
			return nil, errLZ4Corrupt
		}
		return newMemReadCloser(body), nil
	case lz4MarkerCompressed:
		out := make([]byte, size)
		written, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress error: %w", err)
		}
		if uint64(written) != size {
			return nil, fmt.Errorf("lz4 decompress error: decoded %d bytes, header says %d", written, size)
		}
		return newMemReadCloser(out), nil
	default:
		return nil, errLZ4Corrupt
	}
}

func (c *LZ4Compressor) Type() core.CompressionType { return core.CompressionLZ4 }
