package migrating

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"schemawatch/src/features/config"
	"schemawatch/src/features/metrics"
)

// State is the orchestrator's current position in the migration cycle.
type State string

const (
	StateIdle       State = "idle"
	StateGenerating State = "generating"
	StateApplying   State = "applying"
)

// Notifier is told about every finished run. Implementations must not block
// the orchestrator for long; delivery is best effort.
type Notifier interface {
	NotifyRun(run *MigrationRun)
}

// Service is the migration orchestrator. It owns the single logical worker
// that runs migration cycles: concurrent schema migrations against the same
// database are unsafe, so at most one run is ever in flight. Requests that
// arrive while a run is active are coalesced into at most one queued request,
// since the next generate-from-diff pass captures all accumulated changes.
type Service struct {
	migrator Migrator
	history  History
	config   *config.Manager

	mu      sync.RWMutex
	state   State
	current *MigrationRun

	// requests has capacity 1: a non-blocking send either queues the single
	// pending request or coalesces into the one already waiting.
	requests chan string
	stopChan chan struct{}
	done     chan struct{}
	running  bool

	notifier Notifier
}

// NewService creates a new migration orchestrator.
func NewService(migrator Migrator, history History, cfg *config.Manager) *Service {
	return &Service{
		migrator: migrator,
		history:  history,
		config:   cfg,
		state:    StateIdle,
		requests: make(chan string, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// SetNotifier attaches an operator notifier. Must be called before Start.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Start launches the orchestrator worker.
func (s *Service) Start(ctx context.Context) {
	s.running = true
	go s.loop(ctx)
	slog.Info("Migration orchestrator started")
}

// Stop shuts the worker down. An in-flight generate or apply step is not
// cancelled; it runs to completion, matching the external tool's own
// transactional guarantees.
func (s *Service) Stop() {
	if !s.running {
		return
	}
	s.running = false
	close(s.stopChan)
	<-s.done
	slog.Info("Migration orchestrator stopped")
}

// Request asks for a migration cycle. It never blocks. Returns true when the
// request was queued, false when it was coalesced into one already pending.
func (s *Service) Request(reason string) bool {
	select {
	case s.requests <- reason:
		return true
	default:
		return false
	}
}

// State returns the orchestrator's current state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Current returns the in-flight run, if any.
func (s *Service) Current() *MigrationRun {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Runs returns the recorded run history.
func (s *Service) Runs(ctx context.Context) ([]*MigrationRun, error) {
	return s.history.List(ctx)
}

// Run returns a single recorded run by id.
func (s *Service) Run(ctx context.Context, id string) (*MigrationRun, error) {
	return s.history.Get(ctx, id)
}

func (s *Service) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case reason := <-s.requests:
			s.runOnce(ctx, reason)

		case <-s.stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// runOnce drives one full cycle: Idle -> Generating -> Applying -> Idle.
func (s *Service) runOnce(ctx context.Context, reason string) {
	run := &MigrationRun{
		ID:        uuid.New().String(),
		Message:   s.runMessage(reason),
		Status:    RunStatusRunning,
		CreatedAt: time.Now(),
	}

	s.setState(StateGenerating, run)
	metrics.OrchestratorBusy.Set(1)
	defer func() {
		s.setState(StateIdle, nil)
		metrics.OrchestratorBusy.Set(0)
	}()

	if err := s.history.Add(ctx, run); err != nil {
		slog.Error("Failed to record migration run", "run", run.ID, "error", err)
	}

	slog.Info("Generating migration revision", "run", run.ID, "reason", reason)
	rev, err := s.migrator.Generate(ctx, run.Message)
	switch {
	case errors.Is(err, ErrNoChanges):
		run.Status = RunStatusNoChanges
		s.finish(ctx, run)
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeNoChanges).Inc()
		slog.Info("No schema changes detected, nothing to apply", "run", run.ID)
		return

	case err != nil:
		run.Status = RunStatusFailed
		run.Stage = StageGenerate
		run.Error = err.Error()
		s.finish(ctx, run)
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.Error("Migration generation failed", "run", run.ID, "error", err)
		return
	}

	run.Revision = rev.ID
	s.setState(StateApplying, run)
	slog.Info("Applying migration revision", "run", run.ID, "revision", rev.ID)

	if err := s.migrator.Apply(ctx); err != nil {
		run.Status = RunStatusFailed
		run.Stage = StageApply
		run.Error = err.Error()
		s.finish(ctx, run)
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		// Apply failures get full detail: the schema may now be in a state
		// that needs operator intervention. No automatic retry or rollback.
		slog.Error("Migration apply failed, operator intervention may be required",
			"run", run.ID, "revision", rev.ID, "error", err)
		return
	}

	run.Status = RunStatusApplied
	s.finish(ctx, run)
	metrics.RunsTotal.WithLabelValues(metrics.OutcomeApplied).Inc()
	slog.Info("Migration applied", "run", run.ID, "revision", rev.ID,
		"duration", time.Since(run.CreatedAt).Round(time.Millisecond).String())
}

func (s *Service) runMessage(reason string) string {
	msg := s.config.Get().Migrations.Message
	if msg == "" {
		msg = "schemawatch autogenerate"
	}
	return fmt.Sprintf("%s (%s)", msg, reason)
}

func (s *Service) setState(state State, run *MigrationRun) {
	s.mu.Lock()
	s.state = state
	s.current = run
	s.mu.Unlock()
}

func (s *Service) finish(ctx context.Context, run *MigrationRun) {
	run.FinishedAt = time.Now()
	if err := s.history.Finish(ctx, run); err != nil {
		slog.Error("Failed to finalize migration run", "run", run.ID, "error", err)
	}
	if s.notifier != nil {
		s.notifier.NotifyRun(run)
	}
}
