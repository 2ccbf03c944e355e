package core

import "io"

// Environment is what the task runtime hands to the provisioner for one
// operator instance.
type Environment interface {
	JobID() JobID
	// TempDirectories lists the task manager temp directories. The first entry
	// is used as the staging root for the native engine runtime.
	TempDirectories() []string
	// SpillingDirectories are the default local storage directories, used when
	// no custom storage paths were configured.
	SpillingDirectories() []string
}

// StreamHandle points at a persisted checkpoint stream.
type StreamHandle struct {
	Path        string
	Size        int64 // bytes on disk, after compression
	RawSize     int64
	Compression CompressionType
}

// CheckpointOutputStream buffers the bytes of one snapshot artifact.
// CloseAndGetHandle persists it; Close discards it.
type CheckpointOutputStream interface {
	io.Writer
	CloseAndGetHandle() (StreamHandle, error)
	Close() error
}

// CheckpointStreamFactory creates output streams for checkpoints of one
// operator.
type CheckpointStreamFactory interface {
	CreateCheckpointStream(checkpointID int64) (CheckpointOutputStream, error)
	Close() error
}

// CheckpointStreamBackend is the durable storage target for snapshots. The
// provisioner forwards calls to it without interpreting the result.
type CheckpointStreamBackend interface {
	CreateStreamFactory(jobID JobID, operatorID string) (CheckpointStreamFactory, error)
	CreateSavepointStreamFactory(jobID JobID, operatorID string, targetLocation string) (CheckpointStreamFactory, error)
}
