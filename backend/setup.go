package backend

import (
	"fmt"

	"github.com/docker/go-units"

	"github.com/INLOpen/nexusstate/config"
	"github.com/INLOpen/nexusstate/core"
	"github.com/INLOpen/nexusstate/hooks"
	"github.com/INLOpen/nexusstate/hooks/listeners"
	"github.com/INLOpen/nexusstate/telemetry"
)

// Setup loads the configuration file at path (a missing file yields the
// defaults) and builds a Backend with the logging and tracing it describes.
// Collaborators already set in opts take precedence. Without a HookManager
// in opts, one is created with the placement audit, provisioning metrics
// and, when min_free_disk is set, disk space guard listeners. The returned
// function waits for async listeners, flushes traces and closes the log
// file; call it once the backend is no longer used.
func Setup(path string, opts Options) (*Backend, func(), error) {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}

	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	if opts.Logger == nil {
		logger, closer, err := telemetry.NewLogger(cfg.Logging)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create logger: %w", err)
		}
		if closer != nil {
			cleanups = append(cleanups, func() { _ = closer.Close() })
		}
		opts.Logger = logger
	}

	if opts.TracerProvider == nil {
		tp, shutdown, err := telemetry.InitTracerProvider(cfg.Tracing, opts.Logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		cleanups = append(cleanups, shutdown)
		opts.TracerProvider = tp
	}

	if opts.HookManager == nil {
		manager, err := newHookManager(cfg.StateBackend, opts)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, manager.Stop)
		opts.HookManager = manager
	}

	b, err := NewFromConfig(cfg.StateBackend, opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	opts.Logger.Info("State backend configured.", "config", path, "backend", b.String())
	return b, cleanup, nil
}

func newHookManager(cfg config.StateBackendConfig, opts Options) (hooks.HookManager, error) {
	manager := hooks.NewHookManager(opts.Logger.With("component", "HookManager"))

	audit := listeners.NewPlacementAuditListener(opts.Logger)
	manager.Register(hooks.EventPostProvision, audit)

	metrics := listeners.NewProvisionMetricsListener(opts.Logger)
	manager.Register(hooks.EventPostBootstrap, metrics)
	manager.Register(hooks.EventPostProvision, metrics)

	if cfg.MinFreeDisk != "" {
		minFree, err := units.RAMInBytes(cfg.MinFreeDisk)
		if err != nil || minFree <= 0 {
			return nil, &core.ConfigurationError{Field: "min_free_disk", Value: cfg.MinFreeDisk, Message: "expected a positive size such as 10GB"}
		}
		manager.Register(hooks.EventPreProvision, listeners.NewDiskSpaceGuardListener(opts.Logger, uint64(minFree)))
	}
	return manager, nil
}
