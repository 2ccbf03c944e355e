package compressors

import (
	"fmt"

	"github.com/INLOpen/nexusstate/core"
)

// ForType returns a ready compressor for the given compression type.
func ForType(ct core.CompressionType) (core.Compressor, error) {
	switch ct {
	case core.CompressionNone:
		return &NoCompressionCompressor{}, nil
	case core.CompressionSnappy:
		return NewSnappyCompressor(), nil
	case core.CompressionLZ4:
		return NewLz4Compressor(), nil
	case core.CompressionZSTD:
		return NewZstdCompressor(), nil
	default:
		return nil, fmt.Errorf("no compressor registered for compression type %d", ct)
	}
}

// Parse resolves a configuration name ("none", "snappy", "lz4", "zstd") to a compressor.
func Parse(name string) (core.Compressor, error) {
	ct, err := core.ParseCompressionType(name)
	if err != nil {
		return nil, err
	}
	return ForType(ct)
}
