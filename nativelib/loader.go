package nativelib

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"plugin"
	"sync"

	"github.com/INLOpen/nexusstate/sys"
)

// Loader stages and initializes an engine's native runtime.
type Loader interface {
	// LoadLibrary stages the runtime into stagingDir and loads it.
	LoadLibrary(stagingDir string) error
	// Validate forces the loaded runtime to fully initialize.
	Validate() error
	// ResetAttempted clears any internal "already attempted" latch so the
	// next LoadLibrary is not short-circuited.
	ResetAttempted() error
}

// NoRuntime is the Loader for engines with no native component. Every step
// succeeds immediately.
type NoRuntime struct{}

var _ Loader = NoRuntime{}

func (NoRuntime) LoadLibrary(string) error { return nil }
func (NoRuntime) Validate() error          { return nil }
func (NoRuntime) ResetAttempted() error    { return nil }

// ErrNotLoaded is returned by PluginLoader.Validate before a successful
// LoadLibrary.
var ErrNotLoaded = errors.New("native runtime not loaded")

// PluginLoader loads the engine runtime from a Go plugin shared object. The
// object is copied into the staging directory before being opened so that
// every attempt works on its own file.
type PluginLoader struct {
	// Source is the path of the shared object to stage.
	Source string
	// InitSymbol names an exported `func() error` that initializes the runtime.
	InitSymbol string

	mu     sync.Mutex
	handle *plugin.Plugin
	staged string
}

var _ Loader = (*PluginLoader)(nil)

func (l *PluginLoader) LoadLibrary(stagingDir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handle != nil {
		return nil
	}
	if l.Source == "" {
		return errors.New("plugin loader: no source library configured")
	}

	staged := filepath.Join(stagingDir, filepath.Base(l.Source))
	if err := copyFile(l.Source, staged); err != nil {
		return fmt.Errorf("stage native library %s: %w", l.Source, err)
	}
	p, err := plugin.Open(staged)
	if err != nil {
		return fmt.Errorf("open native library %s: %w", staged, err)
	}
	l.handle = p
	l.staged = staged
	return nil
}

func (l *PluginLoader) Validate() error {
	l.mu.Lock()
	p := l.handle
	l.mu.Unlock()

	if p == nil {
		return ErrNotLoaded
	}
	sym, err := p.Lookup(l.InitSymbol)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", l.InitSymbol, err)
	}
	var initFn func() error
	switch fn := sym.(type) {
	case func() error:
		initFn = fn
	case *func() error:
		initFn = *fn
	default:
		return fmt.Errorf("symbol %s has type %T, want func() error", l.InitSymbol, sym)
	}
	if err := initFn(); err != nil {
		return fmt.Errorf("initialize native runtime: %w", err)
	}
	return nil
}

// ResetAttempted drops the cached handle. A Go plugin cannot be unloaded, so
// the staged copy is left in place.
func (l *PluginLoader) ResetAttempted() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handle = nil
	l.staged = ""
	return nil
}

// Staged returns the path of the currently loaded copy, if any.
func (l *PluginLoader) Staged() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.staged
}

func copyFile(src, dst string) (err error) {
	in, err := sys.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := sys.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
