package checkpoint

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INLOpen/nexusstate/core"
	"github.com/INLOpen/nexusstate/internal/testutil"
)

func readAll(t *testing.T, b *FsBackend, h core.StreamHandle) []byte {
	t.Helper()
	rc, err := b.OpenStream(h)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func TestNewFsBackend(t *testing.T) {
	dir := t.TempDir()

	b, err := NewFsBackend("file://"+filepath.ToSlash(dir), FsOptions{})
	require.NoError(t, err)
	assert.Equal(t, dir, b.BasePath())

	b, err = NewFsBackend(dir, FsOptions{Compression: core.CompressionZSTD})
	require.NoError(t, err)
	assert.Equal(t, dir, b.BasePath())

	_, err = NewFsBackend("s3://bucket/checkpoints", FsOptions{})
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))

	_, err = NewFsBackend(dir, FsOptions{Compression: core.CompressionType(42)})
	require.Error(t, err)
}

func TestStream_RoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("state-entry:0123456789;"), 512)

	for _, ct := range []core.CompressionType{core.CompressionNone, core.CompressionSnappy, core.CompressionLZ4, core.CompressionZSTD} {
		t.Run(ct.String(), func(t *testing.T) {
			base := t.TempDir()
			b, err := NewFsBackend(base, FsOptions{Compression: ct})
			require.NoError(t, err)

			jobID := core.NewJobID()
			factory, err := b.CreateStreamFactory(jobID, "window op")
			require.NoError(t, err)

			out, err := factory.CreateCheckpointStream(7)
			require.NoError(t, err)
			_, err = out.Write(payload[:100])
			require.NoError(t, err)
			_, err = out.Write(payload[100:])
			require.NoError(t, err)

			h, err := out.CloseAndGetHandle()
			require.NoError(t, err)
			assert.Equal(t, ct, h.Compression)
			assert.Equal(t, int64(len(payload)), h.RawSize)

			assert.Equal(t, filepath.Join(base, jobID.String(), "chk-7"), filepath.Dir(h.Path))
			assert.True(t, strings.HasPrefix(filepath.Base(h.Path), "windowop-"))

			info, err := os.Stat(h.Path)
			require.NoError(t, err)
			assert.Equal(t, h.Size, info.Size())
			_, err = os.Stat(h.Path + ".tmp")
			assert.True(t, os.IsNotExist(err), "temp file must be renamed away")

			assert.Equal(t, payload, readAll(t, b, h))
		})
	}
}

func TestStream_Empty(t *testing.T) {
	b, err := NewFsBackend(t.TempDir(), FsOptions{Compression: core.CompressionSnappy})
	require.NoError(t, err)
	factory, err := b.CreateStreamFactory(core.NewJobID(), "op")
	require.NoError(t, err)

	out, err := factory.CreateCheckpointStream(1)
	require.NoError(t, err)
	h, err := out.CloseAndGetHandle()
	require.NoError(t, err)
	assert.Zero(t, h.RawSize)
	assert.Empty(t, readAll(t, b, h))
}

func TestStream_UniqueNames(t *testing.T) {
	b, err := NewFsBackend(t.TempDir(), FsOptions{})
	require.NoError(t, err)
	factory, err := b.CreateStreamFactory(core.NewJobID(), "op")
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 10; i++ {
		out, err := factory.CreateCheckpointStream(3)
		require.NoError(t, err)
		_, err = out.Write([]byte{byte(i)})
		require.NoError(t, err)
		h, err := out.CloseAndGetHandle()
		require.NoError(t, err)
		assert.False(t, seen[h.Path])
		seen[h.Path] = true
	}
}

func TestStream_CloseDiscards(t *testing.T) {
	base := t.TempDir()
	b, err := NewFsBackend(base, FsOptions{})
	require.NoError(t, err)
	jobID := core.NewJobID()
	factory, err := b.CreateStreamFactory(jobID, "op")
	require.NoError(t, err)

	out, err := factory.CreateCheckpointStream(2)
	require.NoError(t, err)
	_, err = out.Write([]byte("never persisted"))
	require.NoError(t, err)
	require.NoError(t, out.Close())
	require.NoError(t, out.Close())

	_, err = out.Write([]byte("more"))
	assert.ErrorIs(t, err, ErrStreamClosed)
	_, err = out.CloseAndGetHandle()
	assert.ErrorIs(t, err, ErrStreamClosed)

	entries, err := os.ReadDir(filepath.Join(base, jobID.String(), "chk-2"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStreamFactory_Closed(t *testing.T) {
	b, err := NewFsBackend(t.TempDir(), FsOptions{})
	require.NoError(t, err)
	factory, err := b.CreateStreamFactory(core.NewJobID(), "op")
	require.NoError(t, err)

	require.NoError(t, factory.Close())
	_, err = factory.CreateCheckpointStream(1)
	require.Error(t, err)
}

func TestSavepointStreamFactory(t *testing.T) {
	b, err := NewFsBackend(t.TempDir(), FsOptions{Compression: core.CompressionLZ4})
	require.NoError(t, err)
	target := t.TempDir()

	factory, err := b.CreateSavepointStreamFactory(core.NewJobID(), "op", "file://"+filepath.ToSlash(target))
	require.NoError(t, err)
	out, err := factory.CreateCheckpointStream(11)
	require.NoError(t, err)
	_, err = out.Write([]byte("savepoint"))
	require.NoError(t, err)
	h, err := out.CloseAndGetHandle()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(target, "chk-11"), filepath.Dir(h.Path))
	assert.Equal(t, []byte("savepoint"), readAll(t, b, h))

	_, err = b.CreateSavepointStreamFactory(core.NewJobID(), "op", "s3://bucket/sp")
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
}

func TestStream_WriteFailureLeavesNoFile(t *testing.T) {
	base := t.TempDir()
	b, err := NewFsBackend(base, FsOptions{})
	require.NoError(t, err)
	jobID := core.NewJobID()
	factory, err := b.CreateStreamFactory(jobID, "op")
	require.NoError(t, err)
	out, err := factory.CreateCheckpointStream(5)
	require.NoError(t, err)

	chkDir := filepath.Join(base, jobID.String(), "chk-5")
	testutil.InstallFaultyFile(t, chkDir)

	_, err = out.Write([]byte("data"))
	require.NoError(t, err)
	_, err = out.CloseAndGetHandle()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)

	entries, err := os.ReadDir(chkDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestOpenStream_Corrupt(t *testing.T) {
	b, err := NewFsBackend(t.TempDir(), FsOptions{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "garbage")
	require.NoError(t, os.WriteFile(path, []byte("not a stream file"), 0o644))
	_, err = b.OpenStream(core.StreamHandle{Path: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid stream magic number")

	_, err = b.OpenStream(core.StreamHandle{Path: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpenStream_SizeMismatch(t *testing.T) {
	testCases := []struct {
		name   string
		mangle func(data []byte) []byte
	}{
		{"Truncated", func(data []byte) []byte { return data[:len(data)-10] }},
		{"Extended", func(data []byte) []byte { return append(data, "trailing"...) }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := NewFsBackend(t.TempDir(), FsOptions{Compression: core.CompressionNone})
			require.NoError(t, err)
			factory, err := b.CreateStreamFactory(core.NewJobID(), "op")
			require.NoError(t, err)

			out, err := factory.CreateCheckpointStream(3)
			require.NoError(t, err)
			_, err = out.Write(bytes.Repeat([]byte("x"), 256))
			require.NoError(t, err)
			h, err := out.CloseAndGetHandle()
			require.NoError(t, err)

			data, err := os.ReadFile(h.Path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(h.Path, tc.mangle(data), 0o644))

			_, err = b.OpenStream(h)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "header records 256")
		})
	}
}
