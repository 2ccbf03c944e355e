package compressors

import (
	"bytes"
	"io"

	"github.com/INLOpen/nexusstate/core"
)

// NoCompressionCompressor passes data through unchanged.
type NoCompressionCompressor struct{}

var _ core.Compressor = (*NoCompressionCompressor)(nil)

func (c *NoCompressionCompressor) Compress(data []byte) ([]byte, error) { return data, nil }

func (c *NoCompressionCompressor) Decompress(data []byte) (io.ReadCloser, error) {
	return newMemReadCloser(data), nil
}

func (c *NoCompressionCompressor) Type() core.CompressionType { return core.CompressionNone }

func (c *NoCompressionCompressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	dst.Reset()
	_, err := dst.Write(src)
	return err
}
