package checkpoint

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/INLOpen/nexusstate/compressors"
	"github.com/INLOpen/nexusstate/core"
	"github.com/INLOpen/nexusstate/sys"
)

// StreamMagicNumber opens every persisted stream file.
const StreamMagicNumber uint32 = 0x4E53434B // "NSCK"

// header: magic, compression type, raw length
const streamHeaderSize = 4 + 1 + 8

// ErrStreamClosed is returned when writing to a closed stream.
var ErrStreamClosed = errors.New("checkpoint stream is closed")

type streamFactory struct {
	root       string
	operatorID string
	compressor core.Compressor
	logger     *slog.Logger

	mu     sync.Mutex
	closed bool
}

func (f *streamFactory) CreateCheckpointStream(checkpointID int64) (core.CheckpointOutputStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, errors.New("checkpoint stream factory is closed")
	}

	dir := filepath.Join(f.root, "chk-"+strconv.FormatInt(checkpointID, 10))
	if err := sys.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory %s: %w", dir, err)
	}
	name := f.operatorID + "-" + uuid.NewString()
	return &outputStream{
		path:       filepath.Join(dir, name),
		compressor: f.compressor,
		logger:     f.logger,
		buf:        core.BufferPool.Get(),
	}, nil
}

func (f *streamFactory) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

type outputStream struct {
	path       string
	compressor core.Compressor
	logger     *slog.Logger

	buf    *bytes.Buffer
	closed bool
}

func (s *outputStream) Write(p []byte) (int, error) {
	if s.closed {
		return 0, ErrStreamClosed
	}
	return s.buf.Write(p)
}

// CloseAndGetHandle compresses the buffered bytes and persists them with
// write-and-rename.
func (s *outputStream) CloseAndGetHandle() (core.StreamHandle, error) {
	if s.closed {
		return core.StreamHandle{}, ErrStreamClosed
	}
	s.closed = true
	defer s.release()

	payload := core.BufferPool.Get()
	defer core.BufferPool.Put(payload)
	if err := s.compressor.CompressTo(payload, s.buf.Bytes()); err != nil {
		return core.StreamHandle{}, fmt.Errorf("compress checkpoint stream: %w", err)
	}

	rawSize := int64(s.buf.Len())
	if err := writeStream(s.path, s.compressor.Type(), rawSize, payload.Bytes()); err != nil {
		return core.StreamHandle{}, err
	}

	handle := core.StreamHandle{
		Path:        s.path,
		Size:        int64(streamHeaderSize + payload.Len()),
		RawSize:     rawSize,
		Compression: s.compressor.Type(),
	}
	s.logger.Debug("Checkpoint stream persisted.", "path", handle.Path, "size", handle.Size, "raw_size", handle.RawSize)
	return handle, nil
}

// Close discards the stream without persisting anything.
func (s *outputStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	return nil
}

func (s *outputStream) release() {
	if s.buf != nil {
		core.BufferPool.Put(s.buf)
		s.buf = nil
	}
}

func writeStream(path string, ct core.CompressionType, rawSize int64, payload []byte) error {
	tempPath := path + ".tmp"
	file, err := sys.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temp stream file: %w", err)
	}

	if err := writeStreamFile(file, ct, rawSize, payload); err != nil {
		file.Close()
		_ = sys.SafeRemove(tempPath)
		return err
	}

	// close before rename for Windows
	if err := file.Close(); err != nil {
		_ = sys.SafeRemove(tempPath)
		return fmt.Errorf("failed to close temp stream file before rename: %w", err)
	}

	if err := sys.Rename(tempPath, path); err != nil {
		_ = sys.SafeRemove(tempPath)
		return fmt.Errorf("failed to rename temp stream file to final name: %w", err)
	}
	return nil
}

type syncWriter interface {
	io.Writer
	Sync() error
}

func writeStreamFile(w syncWriter, ct core.CompressionType, rawSize int64, payload []byte) error {
	if err := binary.Write(w, binary.LittleEndian, StreamMagicNumber); err != nil {
		return fmt.Errorf("failed to write stream magic number: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(ct)); err != nil {
		return fmt.Errorf("failed to write stream compression type: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint64(rawSize)); err != nil {
		return fmt.Errorf("failed to write stream raw size: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("failed to write stream payload: %w", err)
	}
	if err := w.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp stream file: %w", err)
	}
	return nil
}

func readStream(path string) (io.ReadCloser, error) {
	file, err := sys.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var (
		magic   uint32
		ct      uint8
		rawSize uint64
	)
	if err := binary.Read(file, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("failed to read stream magic number: %w", err)
	}
	if magic != StreamMagicNumber {
		return nil, fmt.Errorf("invalid stream magic number: got %x, want %x", magic, StreamMagicNumber)
	}
	if err := binary.Read(file, binary.LittleEndian, &ct); err != nil {
		return nil, fmt.Errorf("failed to read stream compression type: %w", err)
	}
	if err := binary.Read(file, binary.LittleEndian, &rawSize); err != nil {
		return nil, fmt.Errorf("failed to read stream raw size: %w", err)
	}

	payload, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream payload: %w", err)
	}

	c, err := compressors.ForType(core.CompressionType(ct))
	if err != nil {
		return nil, err
	}
	if rawSize == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	rc, err := c.Decompress(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress stream payload: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, int64(rawSize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress stream payload: %w", err)
	}
	if uint64(len(data)) != rawSize {
		return nil, fmt.Errorf("stream payload is %d bytes after decompression, header records %d", len(data), rawSize)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
