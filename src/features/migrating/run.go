package migrating

import (
	"context"
	"time"
)

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusApplied   RunStatus = "applied"
	RunStatusFailed    RunStatus = "failed"
	RunStatusNoChanges RunStatus = "no_changes"
)

// RunStage names the step a failed run was in when it failed.
type RunStage string

const (
	StageGenerate RunStage = "generate"
	StageApply    RunStage = "apply"
)

// MigrationRun is the record of one generate+apply cycle. A run is created
// when a debounce window fires, becomes terminal when the cycle completes or
// fails, and is never mutated afterwards. Runs that end in no_changes carry
// no revision id because no script was generated.
type MigrationRun struct {
	ID         string    `json:"id"`
	Revision   string    `json:"revision,omitempty"`
	Message    string    `json:"message"`
	Status     RunStatus `json:"status"`
	Stage      RunStage  `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// History is the append-only store of migration runs.
type History interface {
	Add(ctx context.Context, run *MigrationRun) error
	Finish(ctx context.Context, run *MigrationRun) error
	List(ctx context.Context) ([]*MigrationRun, error)
	Get(ctx context.Context, id string) (*MigrationRun, error)
}
