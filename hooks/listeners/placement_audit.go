package listeners

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/INLOpen/nexusstate/hooks"
)

// PlacementAuditListener logs where every engine instance was placed, and
// every provisioning failure.
type PlacementAuditListener struct {
	logger *slog.Logger
}

// NewPlacementAuditListener creates a new listener for PostProvision events.
func NewPlacementAuditListener(logger *slog.Logger) *PlacementAuditListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &PlacementAuditListener{
		logger: logger.With("component", "PlacementAuditListener"),
	}
}

// OnEvent handles the PostProvision event.
func (l *PlacementAuditListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	if event.Type() != hooks.EventPostProvision {
		return nil
	}

	payload, ok := event.Payload().(hooks.PostProvisionPayload)
	if !ok {
		l.logger.Error("Received PostProvision event with incorrect payload type", "payload_type", fmt.Sprintf("%T", event.Payload()))
		return nil
	}

	if payload.Error != nil {
		l.logger.Warn("Engine instance provisioning failed",
			"job_id", payload.JobID.String(),
			"operator_id", payload.OperatorID,
			"duration", payload.Duration,
			"error", payload.Error,
		)
		return nil
	}

	l.logger.Info("Engine instance placed",
		"job_id", payload.JobID.String(),
		"operator_id", payload.OperatorID,
		"base_dir", payload.BaseDir,
		"instance_path", payload.InstancePath,
		"duration", payload.Duration,
	)
	return nil
}

// Priority defines the execution order.
func (l *PlacementAuditListener) Priority() int { return 100 }

// IsAsync indicates this listener can run in the background.
func (l *PlacementAuditListener) IsAsync() bool { return true }
