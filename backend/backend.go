// Package backend provisions embedded engine instances for stateful
// operators: it loads the native runtime, places each instance in a local
// storage directory and composes its options.
package backend

import (
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/INLOpen/nexusstate/checkpoint"
	"github.com/INLOpen/nexusstate/config"
	"github.com/INLOpen/nexusstate/core"
	"github.com/INLOpen/nexusstate/hooks"
	"github.com/INLOpen/nexusstate/nativelib"
	"github.com/INLOpen/nexusstate/options"
	"github.com/INLOpen/nexusstate/placement"
	"github.com/INLOpen/nexusstate/telemetry"
)

// Options carries the in-process collaborators of a Backend. None of them
// is part of the serializable configuration.
type Options struct {
	Logger         *slog.Logger
	TracerProvider trace.TracerProvider
	// Bootstrapper defaults to the process-wide nativelib.Process().
	Bootstrapper *nativelib.Bootstrapper
	// Loader defaults to nativelib.NoRuntime.
	Loader      nativelib.Loader
	HookManager hooks.HookManager
	// OptionsFactory is applied on top of the predefined profile.
	OptionsFactory options.OptionsFactory
	// StagingDir overrides the environment's temp directory as the native
	// runtime staging root.
	StagingDir string
}

// Phase is the provisioning state of a Backend.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseBootstrapping
	PhaseDirectoriesResolving
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "Uninitialized"
	case PhaseBootstrapping:
		return "Bootstrapping"
	case PhaseDirectoriesResolving:
		return "DirectoriesResolving"
	case PhaseReady:
		return "Ready"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Backend provisions engine instances and forwards checkpoint stream
// requests to its checkpoint backend.
//
// A Backend is driven by the goroutine that owns the operator's startup:
// Provision and the setters must not be called concurrently on the same
// Backend. Distinct Backends may provision concurrently.
type Backend struct {
	checkpoints core.CheckpointStreamBackend

	storagePaths []string // nil selects the environment's spilling directories
	profile      options.PredefinedOptions
	factory      options.OptionsFactory
	stagingDir   string

	logger       *slog.Logger
	tracer       trace.Tracer
	bootstrapper *nativelib.Bootstrapper
	loader       nativelib.Loader
	hookManager  hooks.HookManager

	dirs  *placement.Manager
	phase Phase
}

// New wraps checkpoints, which receives every stream factory request as is.
func New(checkpoints core.CheckpointStreamBackend, opts Options) (*Backend, error) {
	if checkpoints == nil {
		return nil, &core.ConfigurationError{Field: "checkpoint_backend", Message: "must not be nil"}
	}

	base := opts.Logger
	if base == nil {
		base = telemetry.DiscardLogger()
	}
	logger := base.With("component", "StateBackend")

	tp := opts.TracerProvider
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	bootstrapper := opts.Bootstrapper
	if bootstrapper == nil {
		bootstrapper = nativelib.Process()
	}
	loader := opts.Loader
	if loader == nil {
		loader = nativelib.NoRuntime{}
	}
	hookManager := opts.HookManager
	if hookManager == nil {
		hookManager = hooks.NewHookManager(base.With("component", "HookManager"))
	}

	return &Backend{
		checkpoints:  checkpoints,
		profile:      options.Default,
		factory:      opts.OptionsFactory,
		stagingDir:   opts.StagingDir,
		logger:       logger,
		tracer:       tp.Tracer("github.com/INLOpen/nexusstate/backend"),
		bootstrapper: bootstrapper,
		loader:       loader,
		hookManager:  hookManager,
		dirs:         placement.NewManager(base),
	}, nil
}

// NewFromURI creates a Backend checkpointing to a local filesystem location
// given as a `file://` URI or plain path.
func NewFromURI(checkpointURI string, opts Options) (*Backend, error) {
	fs, err := checkpoint.NewFsBackend(checkpointURI, checkpoint.FsOptions{
		Compression: core.CompressionSnappy,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return New(fs, opts)
}

// NewFromConfig builds a Backend from its serializable configuration. The
// `options` map becomes a ConfigurableFactory applied before
// opts.OptionsFactory; a configured native library is loaded with a
// PluginLoader unless opts.Loader is set.
func NewFromConfig(cfg config.StateBackendConfig, opts Options) (*Backend, error) {
	compression, err := core.ParseCompressionType(cfg.CheckpointCompression)
	if err != nil {
		return nil, err
	}
	fs, err := checkpoint.NewFsBackend(cfg.CheckpointDataURI, checkpoint.FsOptions{
		Compression: compression,
		Logger:      opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	profile, err := options.ParsePredefinedOptions(cfg.PredefinedOptions)
	if err != nil {
		return nil, err
	}

	if len(cfg.Options) > 0 {
		fromConfig, err := options.NewConfigurableFactory(cfg.Options)
		if err != nil {
			return nil, err
		}
		opts.OptionsFactory = options.Chain(fromConfig, opts.OptionsFactory)
	}

	if opts.Loader == nil && cfg.NativeLibrary.Source != "" {
		opts.Loader = &nativelib.PluginLoader{
			Source:     cfg.NativeLibrary.Source,
			InitSymbol: cfg.NativeLibrary.InitSymbol,
		}
	}
	if opts.StagingDir == "" {
		opts.StagingDir = cfg.NativeLibrary.StagingDir
	}

	b, err := New(fs, opts)
	if err != nil {
		return nil, err
	}
	if cfg.StoragePaths != nil {
		if err := b.SetDBStoragePaths(cfg.StoragePaths); err != nil {
			return nil, err
		}
	}
	if err := b.SetPredefinedOptions(profile); err != nil {
		return nil, err
	}
	return b, nil
}

// SetDBStoragePath is SetDBStoragePaths with a single path.
func (b *Backend) SetDBStoragePath(path string) error {
	return b.SetDBStoragePaths([]string{path})
}

// SetDBStoragePaths sets the local directories engine instances are placed
// in. Every entry must be a local `file://` URI or plain path. Passing nil
// reverts to the environment's default directories. The paths are resolved
// on the first Provision; later changes do not affect a Ready backend.
func (b *Backend) SetDBStoragePaths(paths []string) error {
	if paths == nil {
		b.storagePaths = nil
		return nil
	}
	if len(paths) == 0 {
		return &core.ConfigurationError{Field: "storage_paths", Message: "at least one path is required"}
	}

	resolved := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))
	for _, raw := range paths {
		p, err := core.LocalPath("storage_paths", raw)
		if err != nil {
			return err
		}
		if _, dup := seen[p]; dup {
			return &core.ConfigurationError{Field: "storage_paths", Value: raw, Message: "duplicate path"}
		}
		seen[p] = struct{}{}
		resolved = append(resolved, p)
	}
	b.storagePaths = resolved
	return nil
}

// DBStoragePaths returns the configured local paths, or nil when the
// environment's default directories are used.
func (b *Backend) DBStoragePaths() []string {
	if b.storagePaths == nil {
		return nil
	}
	return append([]string(nil), b.storagePaths...)
}

// SetPredefinedOptions selects the tuning profile. Values outside the
// predefined set are rejected.
func (b *Backend) SetPredefinedOptions(profile options.PredefinedOptions) error {
	if !profile.Valid() {
		return &core.ConfigurationError{Field: "predefined_options", Value: profile.String(), Message: "unknown predefined options profile"}
	}
	b.profile = profile
	return nil
}

func (b *Backend) PredefinedOptions() options.PredefinedOptions { return b.profile }

func (b *Backend) SetOptionsFactory(factory options.OptionsFactory) { b.factory = factory }

func (b *Backend) OptionsFactory() options.OptionsFactory { return b.factory }

// DBOptions returns the composed engine-level options.
func (b *Backend) DBOptions() options.DBOptions {
	return options.ComposeDBOptions(b.profile, b.factory)
}

// ColumnOptions returns the composed column-family options.
func (b *Backend) ColumnOptions() options.ColumnFamilyOptions {
	return options.ComposeColumnOptions(b.profile, b.factory)
}

// Phase returns the provisioning phase.
func (b *Backend) Phase() Phase { return b.phase }

// ResolvedDirectories returns the directories instances are placed in, once
// resolved.
func (b *Backend) ResolvedDirectories() []string {
	if !b.dirs.Initialized() {
		return nil
	}
	return b.dirs.Directories()
}

// CheckpointBackend returns the wrapped checkpoint stream backend.
func (b *Backend) CheckpointBackend() core.CheckpointStreamBackend { return b.checkpoints }

func (b *Backend) CreateStreamFactory(jobID core.JobID, operatorID string) (core.CheckpointStreamFactory, error) {
	return b.checkpoints.CreateStreamFactory(jobID, operatorID)
}

func (b *Backend) CreateSavepointStreamFactory(jobID core.JobID, operatorID string, targetLocation string) (core.CheckpointStreamFactory, error) {
	return b.checkpoints.CreateSavepointStreamFactory(jobID, operatorID, targetLocation)
}

func (b *Backend) String() string {
	configured := "<default>"
	if b.storagePaths != nil {
		configured = "[" + strings.Join(b.storagePaths, ", ") + "]"
	}
	resolved := "<unresolved>"
	if b.dirs.Initialized() {
		resolved = "[" + strings.Join(b.dirs.Directories(), ", ") + "]"
	}
	return fmt.Sprintf("StateBackend{phase=%s, checkpoints=%T, storagePaths=%s, resolvedPaths=%s, profile=%s}",
		b.phase, b.checkpoints, configured, resolved, b.profile)
}
