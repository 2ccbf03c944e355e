package backend

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/INLOpen/nexusstate/core"
	"github.com/INLOpen/nexusstate/hooks"
	"github.com/INLOpen/nexusstate/options"
)

// InstanceHandle is everything an engine instance needs to open: its
// private directory and its composed options. The directory is not created;
// the engine creates it on open.
type InstanceHandle struct {
	Path          string
	BaseDir       string
	JobID         core.JobID
	OperatorID    string
	DBOptions     options.DBOptions
	ColumnOptions options.ColumnFamilyOptions
}

// InstanceDirName is the directory name of an instance. Path separators in
// the operator ID are replaced so the name stays a single path element.
func InstanceDirName(jobID core.JobID, operatorID string, id uuid.UUID) string {
	op := strings.Map(func(r rune) rune {
		if r == '/' || r == filepath.Separator {
			return '_'
		}
		return r
	}, core.SanitizeOperatorID(operatorID))
	return fmt.Sprintf("job-%s_op-%s_uuid-%s", jobID, op, id)
}

// Provision prepares one engine instance. The first call on a backend loads
// the native runtime (once per process) and resolves the storage
// directories; every call allocates the next directory round-robin and
// returns a fresh, unique instance path. ctx carries tracing and hook
// context only; a running native load is not interrupted.
func (b *Backend) Provision(ctx context.Context, env core.Environment, jobID core.JobID, operatorID string) (handle *InstanceHandle, err error) {
	start := time.Now()
	op := core.SanitizeOperatorID(operatorID)

	ctx, span := b.tracer.Start(ctx, "StateBackend.Provision")
	span.SetAttributes(
		attribute.String("job.id", jobID.String()),
		attribute.String("operator.id", op),
	)
	defer func() {
		payload := hooks.PostProvisionPayload{JobID: jobID, OperatorID: op, Duration: time.Since(start), Error: err}
		if handle != nil {
			payload.BaseDir = handle.BaseDir
			payload.InstancePath = handle.Path
			span.SetAttributes(attribute.String("instance.path", handle.Path))
		}
		_ = b.hookManager.Trigger(ctx, hooks.NewPostProvisionEvent(payload))
		span.End()
	}()

	fail := func(stage core.ProvisionStage, cause error) (*InstanceHandle, error) {
		span.RecordError(cause)
		span.SetStatus(codes.Error, string(stage))
		b.logger.Error("Provisioning failed.", "stage", stage, "job_id", jobID.String(), "operator_id", op, "error", cause)
		return nil, &core.ProvisionError{Stage: stage, OperatorID: op, Err: cause}
	}

	preHook := hooks.NewPreProvisionEvent(hooks.PreProvisionPayload{JobID: jobID, OperatorID: op, StoragePaths: b.DBStoragePaths()})
	if err := b.hookManager.Trigger(ctx, preHook); err != nil {
		return fail(core.StageHooks, err)
	}

	if err := b.bootstrap(ctx, env); err != nil {
		return fail(core.StageBootstrap, err)
	}

	if err := b.resolveDirectories(ctx, env, jobID, op); err != nil {
		return fail(core.StageDirectories, err)
	}

	baseDir := b.dirs.AllocateNext()
	path, err := filepath.Abs(filepath.Join(baseDir, InstanceDirName(jobID, op, uuid.New())))
	if err != nil {
		return fail(core.StageInstance, err)
	}

	handle = &InstanceHandle{
		Path:          path,
		BaseDir:       baseDir,
		JobID:         jobID,
		OperatorID:    op,
		DBOptions:     b.DBOptions(),
		ColumnOptions: b.ColumnOptions(),
	}
	b.logger.Info("Engine instance provisioned.", "job_id", jobID.String(), "operator_id", op, "path", path, "profile", b.profile.String())
	return handle, nil
}

func (b *Backend) bootstrap(ctx context.Context, env core.Environment) error {
	stagingRoot := b.stagingDir
	if stagingRoot == "" {
		temp := env.TempDirectories()
		if len(temp) == 0 {
			return errors.New("environment provides no temp directory for the native runtime")
		}
		stagingRoot = temp[0]
	}

	if b.phase == PhaseUninitialized {
		b.phase = PhaseBootstrapping
	}
	start := time.Now()
	if err := b.bootstrapper.EnsureLoaded(stagingRoot, b.loader); err != nil {
		if b.phase == PhaseBootstrapping {
			b.phase = PhaseUninitialized
		}
		return err
	}

	if b.phase == PhaseBootstrapping {
		b.phase = PhaseDirectoriesResolving
		_ = b.hookManager.Trigger(ctx, hooks.NewPostBootstrapEvent(hooks.PostBootstrapPayload{
			StagingRoot: stagingRoot,
			Duration:    time.Since(start),
		}))
	}
	return nil
}

func (b *Backend) resolveDirectories(ctx context.Context, env core.Environment, jobID core.JobID, op string) error {
	if b.dirs.Initialized() {
		return nil
	}
	if err := b.dirs.Initialize(b.storagePaths, env.SpillingDirectories(), op, jobID); err != nil {
		return err
	}
	b.phase = PhaseReady
	_ = b.hookManager.Trigger(ctx, hooks.NewPostDirectoriesResolvedEvent(hooks.PostDirectoriesResolvedPayload{
		JobID:       jobID,
		OperatorID:  op,
		Directories: b.dirs.Directories(),
	}))
	return nil
}
