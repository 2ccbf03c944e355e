//go:build unix

package sys

import (
	"os"
)

type unixFile struct{}

// NewFile returns the platform-specific File.
func NewFile() File {
	return &unixFile{}
}

func (ufo *unixFile) Create(name string) (*os.File, error) {
	return os.Create(name)
}

func (ufo *unixFile) Open(name string) (*os.File, error) {
	return os.Open(name)
}

func (ufo *unixFile) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Rename is atomic on POSIX filesystems, including when newpath exists.
func (ufo *unixFile) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (ufo *unixFile) SafeRemove(name string) error {
	return safeRemove(name)
}

func (ufo *unixFile) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
