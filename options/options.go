// Package options holds the engine-level and column-family-level option sets
// of an embedded engine instance, the predefined tuning profiles they start
// from, and the composition of a profile with a user override factory.
//
// Option sets are plain values. Every With* method returns a modified copy,
// so a set handed to a caller cannot be changed behind its back.
package options

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"

	"github.com/INLOpen/nexusstate/compressors"
	"github.com/INLOpen/nexusstate/core"
)

// CompactionStyle selects the engine's compaction strategy.
type CompactionStyle int

const (
	CompactionStyleLevel CompactionStyle = iota
	CompactionStyleUniversal
	CompactionStyleFIFO
)

func (s CompactionStyle) String() string {
	switch s {
	case CompactionStyleLevel:
		return "level"
	case CompactionStyleUniversal:
		return "universal"
	case CompactionStyleFIFO:
		return "fifo"
	default:
		return fmt.Sprintf("CompactionStyle(%d)", int(s))
	}
}

// ParseCompactionStyle is the inverse of CompactionStyle.String.
func ParseCompactionStyle(name string) (CompactionStyle, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "level":
		return CompactionStyleLevel, nil
	case "universal":
		return CompactionStyleUniversal, nil
	case "fifo":
		return CompactionStyleFIFO, nil
	default:
		return 0, &core.ConfigurationError{Field: "compaction_style", Value: name, Message: "expected level, universal or fifo"}
	}
}

// DBOptions are the engine-level options of one instance.
type DBOptions struct {
	CreateIfMissing          bool
	UseFsync                 bool
	DisableDataSync          bool
	MaxOpenFiles             int // -1 keeps every table file open
	BackgroundThreads        int
	MaxBackgroundCompactions int
	MaxBackgroundFlushes     int
}

// DefaultDBOptions mirrors the engine's built-in defaults.
func DefaultDBOptions() DBOptions {
	return DBOptions{
		CreateIfMissing:          false,
		UseFsync:                 false,
		DisableDataSync:          false,
		MaxOpenFiles:             -1,
		BackgroundThreads:        1,
		MaxBackgroundCompactions: 1,
		MaxBackgroundFlushes:     1,
	}
}

func (o DBOptions) WithCreateIfMissing(v bool) DBOptions {
	o.CreateIfMissing = v
	return o
}

func (o DBOptions) WithUseFsync(v bool) DBOptions {
	o.UseFsync = v
	return o
}

func (o DBOptions) WithDisableDataSync(v bool) DBOptions {
	o.DisableDataSync = v
	return o
}

func (o DBOptions) WithMaxOpenFiles(n int) DBOptions {
	o.MaxOpenFiles = n
	return o
}

func (o DBOptions) WithMaxBackgroundCompactions(n int) DBOptions {
	o.MaxBackgroundCompactions = n
	return o
}

func (o DBOptions) WithMaxBackgroundFlushes(n int) DBOptions {
	o.MaxBackgroundFlushes = n
	return o
}

// WithIncreaseParallelism sizes the background pool to totalThreads: one
// thread is reserved for flushes, the rest run compactions.
func (o DBOptions) WithIncreaseParallelism(totalThreads int) DBOptions {
	if totalThreads < 1 {
		totalThreads = 1
	}
	o.BackgroundThreads = totalThreads
	o.MaxBackgroundFlushes = 1
	o.MaxBackgroundCompactions = totalThreads - 1
	if o.MaxBackgroundCompactions < 1 {
		o.MaxBackgroundCompactions = 1
	}
	return o
}

func (o DBOptions) String() string {
	return fmt.Sprintf("DBOptions{createIfMissing=%t, useFsync=%t, disableDataSync=%t, maxOpenFiles=%d, backgroundThreads=%d, maxBackgroundCompactions=%d, maxBackgroundFlushes=%d}",
		o.CreateIfMissing, o.UseFsync, o.DisableDataSync, o.MaxOpenFiles, o.BackgroundThreads, o.MaxBackgroundCompactions, o.MaxBackgroundFlushes)
}

// ColumnFamilyOptions are the per-column-family options of one instance.
type ColumnFamilyOptions struct {
	CompactionStyle                  CompactionStyle
	LevelCompactionDynamicLevelBytes bool
	TargetFileSizeBase               int64
	MaxBytesForLevelBase             int64
	WriteBufferSize                  int64
	MaxWriteBufferNumber             int
	MinWriteBufferNumberToMerge      int
	BlockCacheSize                   int64
	BlockSize                        int64
	Compression                      core.CompressionType
}

// DefaultColumnOptions mirrors the engine's built-in defaults.
func DefaultColumnOptions() ColumnFamilyOptions {
	return ColumnFamilyOptions{
		CompactionStyle:                  CompactionStyleLevel,
		LevelCompactionDynamicLevelBytes: false,
		TargetFileSizeBase:               64 * units.MiB,
		MaxBytesForLevelBase:             256 * units.MiB,
		WriteBufferSize:                  64 * units.MiB,
		MaxWriteBufferNumber:             2,
		MinWriteBufferNumberToMerge:      1,
		BlockCacheSize:                   8 * units.MiB,
		BlockSize:                        4 * units.KiB,
		Compression:                      core.CompressionSnappy,
	}
}

func (o ColumnFamilyOptions) WithCompactionStyle(s CompactionStyle) ColumnFamilyOptions {
	o.CompactionStyle = s
	return o
}

func (o ColumnFamilyOptions) WithLevelCompactionDynamicLevelBytes(v bool) ColumnFamilyOptions {
	o.LevelCompactionDynamicLevelBytes = v
	return o
}

func (o ColumnFamilyOptions) WithTargetFileSizeBase(n int64) ColumnFamilyOptions {
	o.TargetFileSizeBase = n
	return o
}

func (o ColumnFamilyOptions) WithMaxBytesForLevelBase(n int64) ColumnFamilyOptions {
	o.MaxBytesForLevelBase = n
	return o
}

func (o ColumnFamilyOptions) WithWriteBufferSize(n int64) ColumnFamilyOptions {
	o.WriteBufferSize = n
	return o
}

func (o ColumnFamilyOptions) WithMaxWriteBufferNumber(n int) ColumnFamilyOptions {
	o.MaxWriteBufferNumber = n
	return o
}

func (o ColumnFamilyOptions) WithMinWriteBufferNumberToMerge(n int) ColumnFamilyOptions {
	o.MinWriteBufferNumberToMerge = n
	return o
}

func (o ColumnFamilyOptions) WithBlockCacheSize(n int64) ColumnFamilyOptions {
	o.BlockCacheSize = n
	return o
}

func (o ColumnFamilyOptions) WithBlockSize(n int64) ColumnFamilyOptions {
	o.BlockSize = n
	return o
}

func (o ColumnFamilyOptions) WithCompression(ct core.CompressionType) ColumnFamilyOptions {
	o.Compression = ct
	return o
}

// Compressor returns the block compressor matching o.Compression.
func (o ColumnFamilyOptions) Compressor() (core.Compressor, error) {
	return compressors.ForType(o.Compression)
}

func (o ColumnFamilyOptions) String() string {
	return fmt.Sprintf("ColumnFamilyOptions{compactionStyle=%s, dynamicLevelBytes=%t, targetFileSizeBase=%s, maxBytesForLevelBase=%s, writeBufferSize=%s, maxWriteBufferNumber=%d, minWriteBufferNumberToMerge=%d, blockCacheSize=%s, blockSize=%s, compression=%s}",
		o.CompactionStyle, o.LevelCompactionDynamicLevelBytes,
		units.BytesSize(float64(o.TargetFileSizeBase)), units.BytesSize(float64(o.MaxBytesForLevelBase)),
		units.BytesSize(float64(o.WriteBufferSize)), o.MaxWriteBufferNumber, o.MinWriteBufferNumberToMerge,
		units.BytesSize(float64(o.BlockCacheSize)), units.BytesSize(float64(o.BlockSize)), o.Compression)
}
