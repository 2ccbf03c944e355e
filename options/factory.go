package options

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/docker/go-units"

	"github.com/INLOpen/nexusstate/core"
)

// OptionsFactory lets users adjust the options of every engine instance. It
// receives the profile baseline and returns the options to use; it may
// return the argument unchanged or a completely different set.
//
// A factory is an in-process capability. It is not part of the serialized
// backend configuration and has to be supplied wherever the backend runs.
type OptionsFactory interface {
	CreateDBOptions(current DBOptions) DBOptions
	CreateColumnOptions(current ColumnFamilyOptions) ColumnFamilyOptions
}

// FactoryFuncs adapts plain functions to OptionsFactory. A nil function
// leaves the corresponding option set untouched.
type FactoryFuncs struct {
	DB     func(DBOptions) DBOptions
	Column func(ColumnFamilyOptions) ColumnFamilyOptions
}

var _ OptionsFactory = FactoryFuncs{}

func (f FactoryFuncs) CreateDBOptions(current DBOptions) DBOptions {
	if f.DB == nil {
		return current
	}
	return f.DB(current)
}

func (f FactoryFuncs) CreateColumnOptions(current ColumnFamilyOptions) ColumnFamilyOptions {
	if f.Column == nil {
		return current
	}
	return f.Column(current)
}

// Chain applies factories in order, each receiving the previous result.
// Nil entries are skipped; Chain of nothing returns nil.
func Chain(factories ...OptionsFactory) OptionsFactory {
	var chain chainedFactory
	for _, f := range factories {
		if f != nil {
			chain = append(chain, f)
		}
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	default:
		return chain
	}
}

type chainedFactory []OptionsFactory

func (c chainedFactory) CreateDBOptions(current DBOptions) DBOptions {
	for _, f := range c {
		current = f.CreateDBOptions(current)
	}
	return current
}

func (c chainedFactory) CreateColumnOptions(current ColumnFamilyOptions) ColumnFamilyOptions {
	for _, f := range c {
		current = f.CreateColumnOptions(current)
	}
	return current
}

type (
	dbSetter     func(DBOptions) DBOptions
	columnSetter func(ColumnFamilyOptions) ColumnFamilyOptions
)

// ConfigurableFactory is an OptionsFactory driven by string key/value pairs,
// typically the `options` map of the state backend configuration. Sizes
// accept human-readable values such as "64MB" or "128KB".
type ConfigurableFactory struct {
	settings map[string]string
	db       []dbSetter
	column   []columnSetter
}

var _ OptionsFactory = (*ConfigurableFactory)(nil)

// NewConfigurableFactory validates every setting up front; an unknown key or
// an unparsable value is a ConfigurationError.
func NewConfigurableFactory(settings map[string]string) (*ConfigurableFactory, error) {
	f := &ConfigurableFactory{settings: make(map[string]string, len(settings))}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, rawKey := range keys {
		key := strings.ToLower(strings.TrimSpace(rawKey))
		value := strings.TrimSpace(settings[rawKey])
		f.settings[key] = value
		if err := f.add(key, value); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Settings returns a copy of the normalized settings.
func (f *ConfigurableFactory) Settings() map[string]string {
	out := make(map[string]string, len(f.settings))
	for k, v := range f.settings {
		out[k] = v
	}
	return out
}

func (f *ConfigurableFactory) CreateDBOptions(current DBOptions) DBOptions {
	for _, set := range f.db {
		current = set(current)
	}
	return current
}

func (f *ConfigurableFactory) CreateColumnOptions(current ColumnFamilyOptions) ColumnFamilyOptions {
	for _, set := range f.column {
		current = set(current)
	}
	return current
}

func (f *ConfigurableFactory) add(key, value string) error {
	invalid := func(msg string) error {
		return &core.ConfigurationError{Field: "options." + key, Value: value, Message: msg}
	}

	switch key {
	// engine-level
	case "use_fsync", "disable_data_sync":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid("expected a boolean")
		}
		if key == "use_fsync" {
			f.db = append(f.db, func(o DBOptions) DBOptions { return o.WithUseFsync(b) })
		} else {
			f.db = append(f.db, func(o DBOptions) DBOptions { return o.WithDisableDataSync(b) })
		}
	case "max_open_files":
		n, err := strconv.Atoi(value)
		if err != nil || n < -1 {
			return invalid("expected an integer >= -1")
		}
		f.db = append(f.db, func(o DBOptions) DBOptions { return o.WithMaxOpenFiles(n) })
	case "increase_parallelism", "max_background_compactions", "max_background_flushes":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return invalid("expected a positive integer")
		}
		switch key {
		case "increase_parallelism":
			f.db = append(f.db, func(o DBOptions) DBOptions { return o.WithIncreaseParallelism(n) })
		case "max_background_compactions":
			f.db = append(f.db, func(o DBOptions) DBOptions { return o.WithMaxBackgroundCompactions(n) })
		default:
			f.db = append(f.db, func(o DBOptions) DBOptions { return o.WithMaxBackgroundFlushes(n) })
		}

	// column-family
	case "compaction_style":
		s, err := ParseCompactionStyle(value)
		if err != nil {
			return err
		}
		f.column = append(f.column, func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithCompactionStyle(s) })
	case "level_compaction_dynamic_level_bytes":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return invalid("expected a boolean")
		}
		f.column = append(f.column, func(o ColumnFamilyOptions) ColumnFamilyOptions {
			return o.WithLevelCompactionDynamicLevelBytes(b)
		})
	case "target_file_size_base", "max_bytes_for_level_base", "write_buffer_size", "block_cache_size", "block_size":
		n, err := units.RAMInBytes(value)
		if err != nil || n <= 0 {
			return invalid("expected a positive size such as 64MB")
		}
		f.column = append(f.column, sizeSetter(key, n))
	case "max_write_buffer_number", "min_write_buffer_number_to_merge":
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return invalid("expected a positive integer")
		}
		if key == "max_write_buffer_number" {
			f.column = append(f.column, func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithMaxWriteBufferNumber(n) })
		} else {
			f.column = append(f.column, func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithMinWriteBufferNumberToMerge(n) })
		}
	case "compression":
		ct, err := core.ParseCompressionType(value)
		if err != nil {
			return err
		}
		f.column = append(f.column, func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithCompression(ct) })
	default:
		return invalid("unknown option")
	}
	return nil
}

func sizeSetter(key string, n int64) columnSetter {
	switch key {
	case "target_file_size_base":
		return func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithTargetFileSizeBase(n) }
	case "max_bytes_for_level_base":
		return func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithMaxBytesForLevelBase(n) }
	case "write_buffer_size":
		return func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithWriteBufferSize(n) }
	case "block_cache_size":
		return func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithBlockCacheSize(n) }
	case "block_size":
		return func(o ColumnFamilyOptions) ColumnFamilyOptions { return o.WithBlockSize(n) }
	default:
		panic(fmt.Sprintf("options: no size setter for %q", key))
	}
}
