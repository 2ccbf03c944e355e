// Package nativelib loads an embedded engine's native runtime exactly once
// per process.
package nativelib

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/INLOpen/nexusstate/core"
	"github.com/INLOpen/nexusstate/sys"
)

// LoadAttempts is the number of tries EnsureLoaded makes before giving up.
const LoadAttempts = 3

const stagingPrefix = "engine-lib-"

// Bootstrapper serializes native runtime loading. Once a load succeeds the
// bootstrapper stays loaded for its lifetime.
type Bootstrapper struct {
	mu     sync.Mutex
	loaded bool
	logger *slog.Logger
}

// NewBootstrapper returns an unloaded bootstrapper. A nil logger discards
// output.
func NewBootstrapper(logger *slog.Logger) *Bootstrapper {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Bootstrapper{logger: logger.With("component", "NativeBootstrapper")}
}

var process = NewBootstrapper(slog.Default())

// Process returns the process-wide bootstrapper.
func Process() *Bootstrapper { return process }

// EnsureLoaded loads the runtime through the process-wide bootstrapper.
func EnsureLoaded(tempDir string, loader Loader) error {
	return process.EnsureLoaded(tempDir, loader)
}

// Loaded reports whether a load has succeeded.
func (b *Bootstrapper) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

// EnsureLoaded makes sure the runtime is loaded. Concurrent callers block
// while one of them attempts the load; they then observe its outcome. Each
// attempt stages the runtime in a fresh directory under tempDir.
func (b *Bootstrapper) EnsureLoaded(tempDir string, loader Loader) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.loaded {
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= LoadAttempts; attempt++ {
		stagingDir := filepath.Join(tempDir, stagingPrefix+strings.ReplaceAll(uuid.NewString(), "-", ""))

		err := b.attempt(stagingDir, loader)
		if err == nil {
			b.loaded = true
			b.logger.Info("Native runtime loaded.", "staging_dir", stagingDir, "attempt", attempt)
			return nil
		}

		lastErr = err
		b.logger.Warn("Native runtime load attempt failed.", "attempt", attempt, "max_attempts", LoadAttempts, "staging_dir", stagingDir, "error", err)

		if rerr := loader.ResetAttempted(); rerr != nil {
			b.logger.Debug("Failed to reset native loader state.", "error", rerr)
		}
	}

	return &core.NativeBootstrapError{Attempts: LoadAttempts, StagingRoot: tempDir, Err: lastErr}
}

func (b *Bootstrapper) attempt(stagingDir string, loader Loader) error {
	if err := sys.MkdirAll(stagingDir, 0o755); err != nil {
		return fmt.Errorf("create staging directory %s: %w", stagingDir, err)
	}
	if err := loader.LoadLibrary(stagingDir); err != nil {
		return err
	}
	return loader.Validate()
}
