package options

import (
	"testing"

	"github.com/docker/go-units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INLOpen/nexusstate/core"
)

func TestConfigurableFactory_Apply(t *testing.T) {
	factory, err := NewConfigurableFactory(map[string]string{
		"Max_Open_Files":          "512",
		"increase_parallelism":    "8",
		"use_fsync":               "true",
		"write_buffer_size":       "128MB",
		"block_size":              "32KB",
		"max_write_buffer_number": "6",
		"compaction_style":        "universal",
		"compression":             "lz4",
	})
	require.NoError(t, err)

	db := factory.CreateDBOptions(DefaultDBOptions())
	assert.Equal(t, 512, db.MaxOpenFiles)
	assert.Equal(t, 8, db.BackgroundThreads)
	assert.Equal(t, 7, db.MaxBackgroundCompactions)
	assert.True(t, db.UseFsync)

	cf := factory.CreateColumnOptions(DefaultColumnOptions())
	assert.Equal(t, int64(128*units.MiB), cf.WriteBufferSize)
	assert.Equal(t, int64(32*units.KiB), cf.BlockSize)
	assert.Equal(t, 6, cf.MaxWriteBufferNumber)
	assert.Equal(t, CompactionStyleUniversal, cf.CompactionStyle)
	assert.Equal(t, core.CompressionLZ4, cf.Compression)

	// untouched fields keep the baseline
	assert.Equal(t, DefaultColumnOptions().TargetFileSizeBase, cf.TargetFileSizeBase)
	assert.Equal(t, "512", factory.Settings()["max_open_files"])
}

func TestConfigurableFactory_Rejects(t *testing.T) {
	testCases := []struct {
		name     string
		settings map[string]string
	}{
		{"UnknownKey", map[string]string{"turbo_mode": "on"}},
		{"BadBool", map[string]string{"use_fsync": "sometimes"}},
		{"BadSize", map[string]string{"write_buffer_size": "lots"}},
		{"ZeroSize", map[string]string{"block_size": "0"}},
		{"NegativeThreads", map[string]string{"increase_parallelism": "-2"}},
		{"BadStyle", map[string]string{"compaction_style": "tiered"}},
		{"BadCompression", map[string]string{"compression": "brotli"}},
		{"MaxOpenFilesTooLow", map[string]string{"max_open_files": "-5"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfigurableFactory(tc.settings)
			require.Error(t, err)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

func TestConfigurableFactory_Empty(t *testing.T) {
	factory, err := NewConfigurableFactory(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDBOptions(), factory.CreateDBOptions(DefaultDBOptions()))
	assert.Equal(t, DefaultColumnOptions(), factory.CreateColumnOptions(DefaultColumnOptions()))
}

func TestChain(t *testing.T) {
	assert.Nil(t, Chain())
	assert.Nil(t, Chain(nil, nil))

	single := FactoryFuncs{}
	assert.Equal(t, OptionsFactory(single), Chain(nil, single))

	fromConfig, err := NewConfigurableFactory(map[string]string{"max_open_files": "100", "block_size": "8KB"})
	require.NoError(t, err)
	local := FactoryFuncs{
		DB: func(o DBOptions) DBOptions { return o.WithMaxOpenFiles(o.MaxOpenFiles * 2) },
	}

	chained := Chain(fromConfig, local)
	assert.Equal(t, 200, chained.CreateDBOptions(DefaultDBOptions()).MaxOpenFiles)
	assert.Equal(t, int64(8*units.KiB), chained.CreateColumnOptions(DefaultColumnOptions()).BlockSize)
}
