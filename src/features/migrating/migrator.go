package migrating

import (
	"context"
	"errors"
)

// ErrNoChanges is returned by Generate when the schema diff is empty. It is
// a normal no-op outcome, not a failure: the orchestrator returns to idle
// without an apply step.
var ErrNoChanges = errors.New("no schema changes detected")

// Revision identifies a generated migration script.
type Revision struct {
	ID      string
	Message string
}

// Migrator is the narrow interface over the external migration tool: one
// operation generates a revision from the current schema diff, the other
// advances the database to the latest revision. The orchestrator is written
// against this interface so it can be exercised with a fake, independent of
// any real database or diff tool.
type Migrator interface {
	Generate(ctx context.Context, message string) (Revision, error)
	Apply(ctx context.Context) error
}
