package testutil

import (
	"path/filepath"
	"testing"

	"github.com/INLOpen/nexusstate/core"
)

// Environment is a static core.Environment.
type Environment struct {
	Job      core.JobID
	Temp     []string
	Spilling []string
}

var _ core.Environment = (*Environment)(nil)

func (e *Environment) JobID() core.JobID             { return e.Job }
func (e *Environment) TempDirectories() []string     { return e.Temp }
func (e *Environment) SpillingDirectories() []string { return e.Spilling }

// NewEnvironment returns an Environment with a fresh job ID, one temp
// directory and the given number of spilling directories, all under
// t.TempDir().
func NewEnvironment(t testing.TB, spilling int) *Environment {
	t.Helper()
	root := t.TempDir()
	env := &Environment{
		Job:  core.NewJobID(),
		Temp: []string{filepath.Join(root, "tmp")},
	}
	for i := 0; i < spilling; i++ {
		env.Spilling = append(env.Spilling, filepath.Join(root, "spill", string(rune('a'+i))))
	}
	return env
}
