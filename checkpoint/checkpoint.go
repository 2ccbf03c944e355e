// Package checkpoint persists snapshot streams on the local filesystem.
package checkpoint

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/INLOpen/nexusstate/compressors"
	"github.com/INLOpen/nexusstate/core"
)

// FsOptions configures an FsBackend.
type FsOptions struct {
	// Compression applied to every stream. Zero value is CompressionNone.
	Compression core.CompressionType
	Logger      *slog.Logger
}

// FsBackend is a core.CheckpointStreamBackend writing to a local directory.
// Checkpoint streams live under `<base>/<job id>`, savepoints under the
// target location given by the caller.
type FsBackend struct {
	base       string
	compressor core.Compressor
	logger     *slog.Logger
}

var _ core.CheckpointStreamBackend = (*FsBackend)(nil)

// NewFsBackend accepts a `file://` URI or a plain path.
func NewFsBackend(uri string, opts FsOptions) (*FsBackend, error) {
	base, err := core.LocalPath("checkpoint_data_uri", uri)
	if err != nil {
		return nil, err
	}
	c, err := compressors.ForType(opts.Compression)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FsBackend{
		base:       base,
		compressor: c,
		logger:     logger.With("component", "FsCheckpointBackend"),
	}, nil
}

// BasePath returns the resolved checkpoint directory.
func (b *FsBackend) BasePath() string { return b.base }

func (b *FsBackend) CreateStreamFactory(jobID core.JobID, operatorID string) (core.CheckpointStreamFactory, error) {
	return b.newFactory(filepath.Join(b.base, jobID.String()), operatorID), nil
}

func (b *FsBackend) CreateSavepointStreamFactory(jobID core.JobID, operatorID string, targetLocation string) (core.CheckpointStreamFactory, error) {
	root, err := core.LocalPath("savepoint_target", targetLocation)
	if err != nil {
		return nil, err
	}
	return b.newFactory(root, operatorID), nil
}

func (b *FsBackend) newFactory(root, operatorID string) *streamFactory {
	op := core.SanitizeOperatorID(operatorID)
	return &streamFactory{
		root:       root,
		operatorID: op,
		compressor: b.compressor,
		logger:     b.logger.With("root", root, "operator_id", op),
	}
}

// OpenStream returns the decompressed contents of a persisted stream.
func (b *FsBackend) OpenStream(handle core.StreamHandle) (io.ReadCloser, error) {
	rc, err := readStream(handle.Path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint stream %s: %w", handle.Path, err)
	}
	return rc, nil
}
