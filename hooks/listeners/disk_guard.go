package listeners

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/go-units"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/INLOpen/nexusstate/hooks"
)

// DiskSpaceGuardListener rejects provisioning when none of the configured
// storage paths has at least MinFree bytes available. Paths whose usage
// cannot be read are skipped; an unconfigured backend (default directories)
// is never rejected.
type DiskSpaceGuardListener struct {
	logger  *slog.Logger
	minFree uint64
	usage   func(path string) (*disk.UsageStat, error)
}

// NewDiskSpaceGuardListener creates a guard requiring minFree bytes.
func NewDiskSpaceGuardListener(logger *slog.Logger, minFree uint64) *DiskSpaceGuardListener {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DiskSpaceGuardListener{
		logger:  logger.With("component", "DiskSpaceGuardListener"),
		minFree: minFree,
		usage:   disk.Usage,
	}
}

// OnEvent handles PreProvision events.
func (l *DiskSpaceGuardListener) OnEvent(ctx context.Context, event hooks.HookEvent) error {
	if event.Type() != hooks.EventPreProvision {
		return nil
	}
	payload, ok := event.Payload().(hooks.PreProvisionPayload)
	if !ok || len(payload.StoragePaths) == 0 {
		return nil
	}

	checked := 0
	for _, path := range payload.StoragePaths {
		stat, err := l.usage(path)
		if err != nil {
			l.logger.Debug("Skipping path, disk usage unavailable", "path", path, "error", err)
			continue
		}
		checked++
		if stat.Free >= l.minFree {
			return nil
		}
		l.logger.Warn("Storage path below free space threshold",
			"path", path,
			"free", units.BytesSize(float64(stat.Free)),
			"required", units.BytesSize(float64(l.minFree)),
		)
	}
	if checked == 0 {
		return nil
	}
	return fmt.Errorf("no storage path has %s free for operator '%s'", units.BytesSize(float64(l.minFree)), payload.OperatorID)
}

// Priority runs the guard before other PreProvision listeners.
func (l *DiskSpaceGuardListener) Priority() int { return 10 }

func (l *DiskSpaceGuardListener) IsAsync() bool { return false }
