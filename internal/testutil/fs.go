package testutil

import (
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/INLOpen/nexusstate/sys"
)

// FaultyFile wraps the platform sys.File and fails MkdirAll and Create for
// any path under one of the configured prefixes.
type FaultyFile struct {
	sys.File

	mu       sync.Mutex
	prefixes []string
}

// InstallFaultyFile swaps in a FaultyFile for the duration of the test.
func InstallFaultyFile(t testing.TB, prefixes ...string) *FaultyFile {
	t.Helper()
	f := &FaultyFile{File: sys.NewFile(), prefixes: prefixes}
	prev := sys.SetDefaultFile(f)
	t.Cleanup(func() { sys.SetDefaultFile(prev) })
	return f
}

func (f *FaultyFile) blocked(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func (f *FaultyFile) MkdirAll(path string, perm os.FileMode) error {
	if f.blocked(path) {
		return &os.PathError{Op: "mkdir", Path: path, Err: os.ErrPermission}
	}
	return f.File.MkdirAll(path, perm)
}

func (f *FaultyFile) Create(name string) (*os.File, error) {
	if f.blocked(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.File.Create(name)
}
