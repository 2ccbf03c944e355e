package sys

import (
	"os"
	"sync/atomic"
	"time"
)

// fileWrapper is a stable concrete type used to store the File interface
// inside an atomic.Value, which requires every stored value to share one
// concrete type.
type fileWrapper struct {
	f File
}

var defaultFile atomic.Value // stores fileWrapper

// File abstracts the filesystem calls used for directory probing and
// checkpoint persistence, so platform quirks (Windows sharing modes, rename
// over an existing file) and test fault injection live in one place.
type File interface {
	Create(name string) (*os.File, error)
	Open(name string) (*os.File, error)
	MkdirAll(path string, perm os.FileMode) error
	// Rename replaces newpath atomically where the platform allows it.
	Rename(oldpath, newpath string) error
	// SafeRemove retries removal; a missing file is not an error.
	SafeRemove(name string) error
	RemoveAll(path string) error
}

// removeRetries and removeInterval bound SafeRemove.
const (
	removeRetries  = 5
	removeInterval = 20 * time.Millisecond
)

func init() {
	defaultFile.Store(fileWrapper{f: NewFile()})
}

// SetDefaultFile swaps the process-wide File implementation and returns the
// previous one so tests can restore it.
func SetDefaultFile(file File) File {
	prev := current()
	defaultFile.Store(fileWrapper{f: file})
	return prev
}

func current() File {
	fw, _ := defaultFile.Load().(fileWrapper)
	if fw.f == nil {
		return NewFile()
	}
	return fw.f
}

func Create(name string) (*os.File, error) { return current().Create(name) }

func Open(name string) (*os.File, error) { return current().Open(name) }

func MkdirAll(path string, perm os.FileMode) error { return current().MkdirAll(path, perm) }

func Rename(oldpath, newpath string) error { return current().Rename(oldpath, newpath) }

func SafeRemove(name string) error { return current().SafeRemove(name) }

func RemoveAll(path string) error { return current().RemoveAll(path) }

func safeRemove(name string) error {
	var err error
	for i := 0; i < removeRetries; i++ {
		err = os.Remove(name)
		if err == nil || os.IsNotExist(err) {
			return nil
		}
		time.Sleep(removeInterval * time.Duration(1<<i))
	}
	return err
}
