// Package compressors implements the block codecs used for column family
// blocks and checkpoint streams.
package compressors

import (
	"bytes"
	"io"
)

// memReadCloser serves a fully decoded block from memory.
type memReadCloser struct {
	*bytes.Reader
}

func (m *memReadCloser) Close() error { return nil }

func newMemReadCloser(b []byte) io.ReadCloser {
	return &memReadCloser{Reader: bytes.NewReader(b)}
}
