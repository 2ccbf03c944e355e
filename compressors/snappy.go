package compressors

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"

	"github.com/INLOpen/nexusstate/core"
)

// SnappyCompressor uses the Snappy block format, which records the decoded
// length itself.
type SnappyCompressor struct{}

var _ core.Compressor = (*SnappyCompressor)(nil)

func NewSnappyCompressor() *SnappyCompressor { return &SnappyCompressor{} }

func (c *SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (c *SnappyCompressor) Decompress(data []byte) (io.ReadCloser, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress error: %w", err)
	}
	decoded, err := snappy.Decode(make([]byte, n), data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompress error: %w", err)
	}
	return newMemReadCloser(decoded), nil
}

func (c *SnappyCompressor) Type() core.CompressionType { return core.CompressionSnappy }

func (c *SnappyCompressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	dst.Reset()
	dst.Write(snappy.Encode(nil, src))
	return nil
}
