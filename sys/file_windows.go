//go:build windows

package sys

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/windows"
)

type windowsFile struct{}

// NewFile returns the platform-specific File.
func NewFile() File {
	return &windowsFile{}
}

func (wfo *windowsFile) Create(name string) (*os.File, error) {
	return wfo.openShared(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC)
}

func (wfo *windowsFile) Open(name string) (*os.File, error) {
	return wfo.openShared(name, os.O_RDONLY)
}

// openShared opens with FILE_SHARE_DELETE so a checkpoint file can be renamed
// or removed while another handle still reads it.
func (wfo *windowsFile) openShared(name string, flag int) (*os.File, error) {
	var access uint32 = windows.GENERIC_READ
	if flag&os.O_RDWR != 0 {
		access = windows.GENERIC_READ | windows.GENERIC_WRITE
	}
	var disposition uint32 = windows.OPEN_EXISTING
	if flag&os.O_CREATE != 0 {
		disposition = windows.CREATE_ALWAYS
	}
	pathp, err := syscall.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		pathp,
		access,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil,
		disposition,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		if errno, ok := err.(syscall.Errno); ok && errno == windows.ERROR_FILE_NOT_FOUND {
			return nil, os.ErrNotExist
		}
		return nil, fmt.Errorf("windows CreateFile failed for %s: %w", name, err)
	}
	return os.NewFile(uintptr(handle), name), nil
}

func (wfo *windowsFile) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Rename uses MoveFileEx so an existing destination is replaced and the
// move is flushed before returning.
func (wfo *windowsFile) Rename(oldpath, newpath string) error {
	from, err := syscall.UTF16PtrFromString(oldpath)
	if err != nil {
		return err
	}
	to, err := syscall.UTF16PtrFromString(newpath)
	if err != nil {
		return err
	}
	if err := windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH); err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}
	return nil
}

func (wfo *windowsFile) SafeRemove(name string) error {
	return safeRemove(name)
}

func (wfo *windowsFile) RemoveAll(path string) error {
	return os.RemoveAll(path)
}
