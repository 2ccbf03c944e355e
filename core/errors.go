package core

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError is returned synchronously by configuration setters when
// a value is rejected (non-local storage path, empty path list, unknown
// profile name, ...). Only the offending call fails.
type ConfigurationError struct {
	Field   string // e.g., "storage_paths", "predefined_options"
	Value   string // The rejected value
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid configuration for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid configuration for %s '%s': %s", e.Field, e.Value, e.Message)
}

// DirectoryInitializationError reports that none of the requested local
// storage directories could be used. Err aggregates one failure per path.
type DirectoryInitializationError struct {
	Paths []string
	Err   error
}

func (e *DirectoryInitializationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no local storage directories available (requested: %s)", strings.Join(e.Paths, ", "))
	}
	return fmt.Sprintf("no local storage directories available: %v", e.Err)
}

func (e *DirectoryInitializationError) Unwrap() error { return e.Err }

// NativeBootstrapError is returned once every attempt to load the engine's
// native runtime has failed. The failure is process-wide: every later
// provisioning request in the same process sees it again.
type NativeBootstrapError struct {
	Attempts    int
	StagingRoot string
	Err         error // last underlying cause
}

func (e *NativeBootstrapError) Error() string {
	return fmt.Sprintf("could not load the native engine runtime under '%s' after %d attempts: %v", e.StagingRoot, e.Attempts, e.Err)
}

func (e *NativeBootstrapError) Unwrap() error { return e.Err }

// ProvisionStage names the provisioning step that failed.
type ProvisionStage string

const (
	StageBootstrap   ProvisionStage = "bootstrap"
	StageDirectories ProvisionStage = "directories"
	StageHooks       ProvisionStage = "hooks"
	StageInstance    ProvisionStage = "instance-path"
)

// ProvisionError is the umbrella error surfaced by the provisioner. The typed
// cause (NativeBootstrapError, DirectoryInitializationError, I/O error) is
// reachable through errors.As.
type ProvisionError struct {
	Stage      ProvisionStage
	OperatorID string
	Err        error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning engine instance for operator '%s' failed at %s: %v", e.OperatorID, e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

// IsConfigurationError checks if an error is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// IsDirectoryInitializationError checks if err (or its chain) is a DirectoryInitializationError.
func IsDirectoryInitializationError(err error) bool {
	var target *DirectoryInitializationError
	return errors.As(err, &target)
}

// IsNativeBootstrapError checks if err (or its chain) is a NativeBootstrapError.
func IsNativeBootstrapError(err error) bool {
	var target *NativeBootstrapError
	return errors.As(err, &target)
}

func IsProvisionError(err error) bool {
	var target *ProvisionError
	return errors.As(err, &target)
}
