package testutil

import (
	"fmt"
	"sync"
)

// FlakyLoader is a nativelib.Loader whose LoadLibrary fails a fixed number
// of times before succeeding. It records every staging directory it saw.
type FlakyLoader struct {
	// Failures is the number of LoadLibrary calls that fail. A negative value
	// fails forever.
	Failures int
	// ValidateErr, if set, is returned by every Validate call.
	ValidateErr error
	// ResetErr, if set, is returned by every ResetAttempted call.
	ResetErr error

	mu          sync.Mutex
	loadCalls   int
	resetCalls  int
	stagingDirs []string
}

func (l *FlakyLoader) LoadLibrary(stagingDir string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loadCalls++
	l.stagingDirs = append(l.stagingDirs, stagingDir)
	if l.Failures < 0 || l.loadCalls <= l.Failures {
		return fmt.Errorf("simulated load failure %d", l.loadCalls)
	}
	return nil
}

func (l *FlakyLoader) Validate() error { return l.ValidateErr }

func (l *FlakyLoader) ResetAttempted() error {
	l.mu.Lock()
	l.resetCalls++
	l.mu.Unlock()
	return l.ResetErr
}

func (l *FlakyLoader) LoadCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadCalls
}

func (l *FlakyLoader) ResetCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resetCalls
}

func (l *FlakyLoader) StagingDirs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.stagingDirs...)
}
