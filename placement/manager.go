// Package placement resolves the local storage directories of a state
// backend and hands them out round-robin to engine instances.
package placement

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"runtime"

	"github.com/docker/go-units"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sync/errgroup"

	"github.com/INLOpen/nexusstate/core"
	"github.com/INLOpen/nexusstate/sys"
)

// Manager owns the resolved directories of one backend. It is not safe for
// concurrent use; the owning backend drives it from one goroutine.
type Manager struct {
	logger *slog.Logger

	initialized bool
	operatorID  string
	jobID       core.JobID
	dirs        []string
	cursor      int
}

// NewManager returns an uninitialized manager. A nil logger discards output.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{logger: logger.With("component", "StorageDirectoryManager")}
}

// Initialize resolves the directories. A nil requested list adopts defaults
// as is; otherwise each requested path is probed for writability and only
// the survivors are kept, in order. Calls after the first successful one are
// no-ops.
func (m *Manager) Initialize(requested, defaults []string, operatorID string, jobID core.JobID) error {
	if m.initialized {
		return nil
	}

	var dirs []string
	if requested == nil {
		dirs = append(dirs, defaults...)
	} else {
		var err error
		if dirs, err = probeAll(requested); err != nil {
			return err
		}
	}
	if len(dirs) == 0 {
		return &core.DirectoryInitializationError{Paths: requested}
	}

	m.operatorID = core.SanitizeOperatorID(operatorID)
	m.jobID = jobID
	m.dirs = dirs
	m.cursor = rand.Intn(len(dirs))
	m.initialized = true

	m.logCapacity()
	return nil
}

// AllocateNext advances the cursor and returns the directory it lands on.
// The first allocation therefore never returns the randomly chosen start.
func (m *Manager) AllocateNext() string {
	if !m.initialized {
		panic("placement: AllocateNext called before Initialize")
	}
	m.cursor++
	if m.cursor >= len(m.dirs) {
		m.cursor = 0
	}
	return m.dirs[m.cursor]
}

func (m *Manager) Initialized() bool { return m.initialized }

// Directories returns a copy of the resolved directories.
func (m *Manager) Directories() []string { return append([]string(nil), m.dirs...) }

func (m *Manager) OperatorID() string { return m.operatorID }

func (m *Manager) JobID() core.JobID { return m.jobID }

func probeAll(candidates []string) ([]string, error) {
	results := make([]error, len(candidates))

	g, _ := errgroup.WithContext(context.Background())
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			results[i] = probe(candidate)
			return nil
		})
	}
	_ = g.Wait()

	var (
		survivors []string
		merr      *multierror.Error
	)
	for i, candidate := range candidates {
		if results[i] != nil {
			merr = multierror.Append(merr, results[i])
			continue
		}
		survivors = append(survivors, candidate)
	}
	if len(survivors) == 0 {
		return nil, &core.DirectoryInitializationError{Paths: candidates, Err: merr.ErrorOrNil()}
	}
	return survivors, nil
}

// probe creates and removes a uniquely named subdirectory. Cleanup is best
// effort.
func probe(dir string) error {
	p := filepath.Join(dir, uuid.NewString())
	err := sys.MkdirAll(p, 0o755)
	_ = sys.RemoveAll(p)
	if err != nil {
		return fmt.Errorf("local DB files directory '%s' does not exist and cannot be created: %w", dir, err)
	}
	return nil
}

func (m *Manager) logCapacity() {
	for _, dir := range m.dirs {
		usage, err := disk.Usage(dir)
		if err != nil {
			m.logger.Debug("Could not read disk usage.", "dir", dir, "error", err)
			continue
		}
		m.logger.Info("Local storage directory resolved.",
			"dir", dir,
			"free", units.HumanSize(float64(usage.Free)),
			"total", units.HumanSize(float64(usage.Total)),
			"operator_id", m.operatorID,
			"job_id", m.jobID.String())
	}
}
