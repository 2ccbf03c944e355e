package options

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"

	"github.com/INLOpen/nexusstate/core"
)

// PredefinedOptions is a named, built-in tuning profile. A user options
// factory is applied on top of the profile's baselines.
type PredefinedOptions int

const (
	// Default applies the engine's built-in defaults unchanged.
	Default PredefinedOptions = iota

	// SpinningDiskOptimized targets regular spinning disks: more background
	// threads, no fsync, unbounded open files, dynamic level sizing.
	SpinningDiskOptimized

	// SpinningDiskOptimizedHighMem is SpinningDiskOptimized with large write
	// buffers, a 256 MiB block cache and 128 KiB blocks. It trades a lot of
	// memory for fewer disk reads.
	SpinningDiskOptimizedHighMem

	// FlashSSDOptimized targets flash storage.
	FlashSSDOptimized
)

var predefinedNames = map[PredefinedOptions]string{
	Default:                      "DEFAULT",
	SpinningDiskOptimized:        "SPINNING_DISK_OPTIMIZED",
	SpinningDiskOptimizedHighMem: "SPINNING_DISK_OPTIMIZED_HIGH_MEM",
	FlashSSDOptimized:            "FLASH_SSD_OPTIMIZED",
}

func (p PredefinedOptions) String() string {
	if name, ok := predefinedNames[p]; ok {
		return name
	}
	return fmt.Sprintf("PredefinedOptions(%d)", int(p))
}

// Valid reports whether p is one of the declared profiles.
func (p PredefinedOptions) Valid() bool {
	_, ok := predefinedNames[p]
	return ok
}

// ParsePredefinedOptions resolves a profile by name, case-insensitively. An
// empty name selects Default.
func ParsePredefinedOptions(name string) (PredefinedOptions, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(name))
	if trimmed == "" {
		return Default, nil
	}
	for p, n := range predefinedNames {
		if n == trimmed {
			return p, nil
		}
	}
	return Default, &core.ConfigurationError{
		Field:   "predefined_options",
		Value:   name,
		Message: "unknown predefined options profile",
	}
}

// DBOptions returns the profile's engine-level baseline.
func (p PredefinedOptions) DBOptions() DBOptions {
	base := DefaultDBOptions()
	switch p {
	case SpinningDiskOptimized, SpinningDiskOptimizedHighMem, FlashSSDOptimized:
		return base.
			WithIncreaseParallelism(4).
			WithUseFsync(false).
			WithMaxOpenFiles(-1).
			WithDisableDataSync(true)
	default:
		return base
	}
}

// ColumnOptions returns the profile's column-family baseline.
func (p PredefinedOptions) ColumnOptions() ColumnFamilyOptions {
	base := DefaultColumnOptions()
	switch p {
	case SpinningDiskOptimized:
		return base.
			WithCompactionStyle(CompactionStyleLevel).
			WithLevelCompactionDynamicLevelBytes(true)
	case SpinningDiskOptimizedHighMem:
		return base.
			WithCompactionStyle(CompactionStyleLevel).
			WithLevelCompactionDynamicLevelBytes(true).
			WithTargetFileSizeBase(256 * units.MiB).
			WithMaxBytesForLevelBase(1 * units.GiB).
			WithWriteBufferSize(64 * units.MiB).
			WithMaxWriteBufferNumber(4).
			WithMinWriteBufferNumberToMerge(3).
			WithBlockCacheSize(256 * units.MiB).
			WithBlockSize(128 * units.KiB)
	default:
		return base
	}
}
