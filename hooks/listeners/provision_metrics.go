package listeners

import (
	"context"
	"expvar"
	"io"
	"log/slog"
	"sync"

	"github.com/INLOpen/nexusstate/hooks"
)

// expvars are process-global; register them once.
var (
	provisionMetricsOnce sync.Once
	provisionTotal       *expvar.Int
	provisionFailures    *expvar.Int
	bootstrapMillis      *expvar.Int
	instancesPerDir      *expvar.Map
)

func initProvisionMetrics() {
	provisionMetricsOnce.Do(func() {
		provisionTotal = expvar.NewInt("nexusstate_provision_total")
		provisionFailures = expvar.NewInt("nexusstate_provision_failures_total")
		bootstrapMillis = expvar.NewInt("nexusstate_native_bootstrap_ms")
		instancesPerDir = expvar.NewMap("nexusstate_instances_by_dir")
		expvar.Publish("nexusstate_provision_failure_ratio", expvar.Func(func() interface{} {
			total := provisionTotal.Value()
			if total == 0 {
				return 0.0
			}
			return float64(provisionFailures.Value()) / float64(total)
		}))
	})
}

// ProvisionMetricsListener exports provisioning counters through expvar.
// Register it for EventPostBootstrap and EventPostProvision.
type ProvisionMetricsListener struct {
	logger *slog.Logger

	provisionTotal    *expvar.Int
	provisionFailures *expvar.Int
	bootstrapMillis   *expvar.Int
	instancesPerDir   *expvar.Map
}

// NewProvisionMetricsListener creates a new listener. Every instance shares
// the same process-wide counters.
func NewProvisionMetricsListener(logger *slog.Logger) *ProvisionMetricsListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	initProvisionMetrics()
	return &ProvisionMetricsListener{
		logger:            logger.With("component", "ProvisionMetricsListener"),
		provisionTotal:    provisionTotal,
		provisionFailures: provisionFailures,
		bootstrapMillis:   bootstrapMillis,
		instancesPerDir:   instancesPerDir,
	}
}

func (l *ProvisionMetricsListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	switch payload := event.Payload().(type) {
	case hooks.PostBootstrapPayload:
		l.bootstrapMillis.Set(payload.Duration.Milliseconds())
		l.logger.Debug("Native bootstrap recorded", "staging_root", payload.StagingRoot, "duration", payload.Duration)
	case hooks.PostProvisionPayload:
		l.provisionTotal.Add(1)
		if payload.Error != nil {
			l.provisionFailures.Add(1)
			return nil
		}
		l.instancesPerDir.Add(payload.BaseDir, 1)
	}
	return nil
}

// Priority defines the execution order. Lower numbers run first.
func (l *ProvisionMetricsListener) Priority() int { return 100 }

// IsAsync is false so the counters are current when Trigger returns.
func (l *ProvisionMetricsListener) IsAsync() bool { return false }
