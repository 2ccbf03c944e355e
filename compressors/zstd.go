package compressors

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/INLOpen/nexusstate/core"
)

// ZstdCompressor implements the Compressor interface using zstd. Encoders and
// decoders are pooled because they are expensive to construct.
type ZstdCompressor struct {
	encoderPool sync.Pool
	decoderPool sync.Pool
}

type zstdReadCloser struct {
	*zstd.Decoder
	pool *sync.Pool
}

// Close returns the decoder to the pool. Decoder.Close is not called because
// it makes the decoder unusable.
func (zrc *zstdReadCloser) Close() error {
	zrc.pool.Put(zrc.Decoder)
	return nil
}

var _ core.Compressor = (*ZstdCompressor)(nil)
var _ io.ReadCloser = (*zstdReadCloser)(nil)

func NewZstdCompressor() *ZstdCompressor {
	return &ZstdCompressor{
		encoderPool: sync.Pool{
			New: func() interface{} {
				enc, err := zstd.NewWriter(nil)
				if err != nil {
					slog.Error("Error creating zstd encoder", "error", err)
					return nil
				}
				return enc
			},
		},
		decoderPool: sync.Pool{
			New: func() interface{} {
				dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(256*1024*1024))
				if err != nil {
					slog.Error("Error creating zstd decoder", "error", err)
					return nil
				}
				return dec
			},
		},
	}
}

func (c *ZstdCompressor) encoder() (*zstd.Encoder, error) {
	enc, ok := c.encoderPool.Get().(*zstd.Encoder)
	if !ok || enc == nil {
		return nil, fmt.Errorf("zstd encoder unavailable")
	}
	return enc, nil
}

func (c *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	buf := core.BufferPool.Get()
	defer core.BufferPool.Put(buf)

	if err := c.CompressTo(buf, data); err != nil {
		return nil, err
	}
	// The pooled buffer is reused after return.
	compressed := make([]byte, buf.Len())
	copy(compressed, buf.Bytes())
	return compressed, nil
}

// Decompress treats an empty block as empty input; the encoder writes no
// frame for it.
func (c *ZstdCompressor) Decompress(data []byte) (io.ReadCloser, error) {
	if len(data) == 0 {
		return newMemReadCloser(nil), nil
	}
	dec, ok := c.decoderPool.Get().(*zstd.Decoder)
	if !ok || dec == nil {
		return nil, fmt.Errorf("zstd decoder unavailable")
	}
	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		c.decoderPool.Put(dec)
		return nil, fmt.Errorf("zstd decoder reset error: %w", err)
	}
	return &zstdReadCloser{Decoder: dec, pool: &c.decoderPool}, nil
}

func (c *ZstdCompressor) Type() core.CompressionType {
	return core.CompressionZSTD
}

func (c *ZstdCompressor) CompressTo(dst *bytes.Buffer, src []byte) error {
	enc, err := c.encoder()
	if err != nil {
		return err
	}
	defer c.encoderPool.Put(enc)

	dst.Reset()
	enc.Reset(dst)
	if _, err := enc.Write(src); err != nil {
		// Close must still run so the encoder can be reused.
		_ = enc.Close()
		return fmt.Errorf("zstd compress write error: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd compress close error: %w", err)
	}
	return nil
}
