package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"schemawatch/src/features/migrating"
)

// SqliteHistory is a SQLite implementation of the migrating.History interface.
// The run log is append-only: a row is inserted when a run starts and
// finalized exactly once when it reaches a terminal status.
type SqliteHistory struct {
	db *sql.DB
}

// NewSqliteHistory creates a new SqliteHistory.
func NewSqliteHistory(path string) (*SqliteHistory, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &SqliteHistory{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migration_runs (
			id TEXT PRIMARY KEY,
			revision TEXT,
			message TEXT NOT NULL,
			status TEXT NOT NULL,
			stage TEXT,
			error TEXT,
			created_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		);
	`)
	return err
}

// Add records a newly started run.
func (h *SqliteHistory) Add(ctx context.Context, run *migrating.MigrationRun) error {
	_, err := h.db.ExecContext(ctx, `
		INSERT INTO migration_runs (id, revision, message, status, stage, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Revision, run.Message, string(run.Status), string(run.Stage), run.Error, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record migration run: %w", err)
	}
	return nil
}

// Finish finalizes a run. Only a run still marked running can be finalized;
// terminal rows are never touched again.
func (h *SqliteHistory) Finish(ctx context.Context, run *migrating.MigrationRun) error {
	res, err := h.db.ExecContext(ctx, `
		UPDATE migration_runs
		SET revision = ?, status = ?, stage = ?, error = ?, finished_at = ?
		WHERE id = ? AND status = ?`,
		run.Revision, string(run.Status), string(run.Stage), run.Error, run.FinishedAt,
		run.ID, string(migrating.RunStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to finalize migration run: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("migration run %s is not running or does not exist", run.ID)
	}
	return nil
}

// List returns all recorded runs.
func (h *SqliteHistory) List(ctx context.Context) ([]*migrating.MigrationRun, error) {
	rows, err := h.db.QueryContext(ctx, `
		SELECT id, revision, message, status, stage, error, created_at, finished_at
		FROM migration_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*migrating.MigrationRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns a single run by id.
func (h *SqliteHistory) Get(ctx context.Context, id string) (*migrating.MigrationRun, error) {
	row := h.db.QueryRowContext(ctx, `
		SELECT id, revision, message, status, stage, error, created_at, finished_at
		FROM migration_runs WHERE id = ?`, id)
	return scanRun(row)
}

// Close closes the underlying database.
func (h *SqliteHistory) Close() error {
	return h.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*migrating.MigrationRun, error) {
	var run migrating.MigrationRun
	var revision, stage, errText sql.NullString
	var finishedAt sql.NullTime

	err := row.Scan(&run.ID, &revision, &run.Message, &run.Status, &stage, &errText, &run.CreatedAt, &finishedAt)
	if err != nil {
		return nil, err
	}

	run.Revision = revision.String
	run.Stage = migrating.RunStage(stage.String)
	run.Error = errText.String
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	return &run, nil
}
