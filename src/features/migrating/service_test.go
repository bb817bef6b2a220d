package migrating

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"schemawatch/src/features/config"
)

// MockMigrator scripts the external tool's behavior per call.
type MockMigrator struct {
	mu        sync.Mutex
	generates int
	applies   int

	generateErr error
	applyErr    error
	revision    string

	// When set, Generate blocks until released. Lets tests queue requests
	// while a run is in flight.
	block chan struct{}
}

func (m *MockMigrator) Generate(ctx context.Context, message string) (Revision, error) {
	m.mu.Lock()
	m.generates++
	block := m.block
	m.mu.Unlock()

	if block != nil {
		<-block
	}
	if m.generateErr != nil {
		return Revision{}, m.generateErr
	}
	rev := m.revision
	if rev == "" {
		rev = "ab12cd34ef56"
	}
	return Revision{ID: rev, Message: message}, nil
}

func (m *MockMigrator) Apply(ctx context.Context) error {
	m.mu.Lock()
	m.applies++
	m.mu.Unlock()
	return m.applyErr
}

func (m *MockMigrator) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generates, m.applies
}

// MockHistory is an in-memory History.
type MockHistory struct {
	mu   sync.Mutex
	runs []*MigrationRun
}

func (h *MockHistory) Add(ctx context.Context, run *MigrationRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	cp := *run
	h.runs = append(h.runs, &cp)
	return nil
}

func (h *MockHistory) Finish(ctx context.Context, run *MigrationRun) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.runs {
		if r.ID == run.ID {
			cp := *run
			h.runs[i] = &cp
			return nil
		}
	}
	return errors.New("run not found")
}

func (h *MockHistory) List(ctx context.Context) ([]*MigrationRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*MigrationRun, len(h.runs))
	copy(out, h.runs)
	return out, nil
}

func (h *MockHistory) Get(ctx context.Context, id string) (*MigrationRun, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, errors.New("run not found")
}

func (h *MockHistory) byStatus(status RunStatus) []*MigrationRun {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*MigrationRun
	for _, r := range h.runs {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

func newTestService(m Migrator, h History) *Service {
	cfg := config.NewManager(&config.Config{
		Migrations: config.Migrations{Message: "test autogenerate"},
	})
	return NewService(m, h, cfg)
}

func waitIdle(t *testing.T, s *Service) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if s.State() == StateIdle {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("orchestrator stuck in state %s", s.State())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func waitRuns(t *testing.T, m *MockMigrator, generates int) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		g, _ := m.counts()
		if g >= generates {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("expected %d generate calls, got %d", generates, g)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestService_SuccessfulRunIsApplied(t *testing.T) {
	migrator := &MockMigrator{revision: "deadbeef1234"}
	history := &MockHistory{}
	service := newTestService(migrator, history)

	service.Start(context.Background())
	defer service.Stop()

	if !service.Request("test") {
		t.Fatal("expected request to be queued")
	}
	waitRuns(t, migrator, 1)
	waitIdle(t, service)

	applied := history.byStatus(RunStatusApplied)
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied run, got %d", len(applied))
	}
	if applied[0].Revision != "deadbeef1234" {
		t.Errorf("expected revision deadbeef1234, got %q", applied[0].Revision)
	}
	if applied[0].FinishedAt.IsZero() {
		t.Error("applied run has no finish timestamp")
	}
	if _, applies := migrator.counts(); applies != 1 {
		t.Errorf("expected 1 apply call, got %d", applies)
	}
}

func TestService_NoChangesSkipsApply(t *testing.T) {
	migrator := &MockMigrator{generateErr: ErrNoChanges}
	history := &MockHistory{}
	service := newTestService(migrator, history)

	service.Start(context.Background())
	defer service.Stop()

	service.Request("test")
	waitRuns(t, migrator, 1)
	waitIdle(t, service)

	if _, applies := migrator.counts(); applies != 0 {
		t.Errorf("no-changes outcome must not trigger an apply, got %d applies", applies)
	}
	if applied := history.byStatus(RunStatusApplied); len(applied) != 0 {
		t.Errorf("expected zero applied runs, got %d", len(applied))
	}
	noChanges := history.byStatus(RunStatusNoChanges)
	if len(noChanges) != 1 {
		t.Fatalf("expected 1 no-changes run, got %d", len(noChanges))
	}
	if noChanges[0].Revision != "" {
		t.Errorf("no-changes run must not carry a revision id, got %q", noChanges[0].Revision)
	}
}

func TestService_GenerateFailureReturnsToIdle(t *testing.T) {
	migrator := &MockMigrator{generateErr: errors.New("unresolvable schema conflict")}
	history := &MockHistory{}
	service := newTestService(migrator, history)

	service.Start(context.Background())
	defer service.Stop()

	service.Request("test")
	waitRuns(t, migrator, 1)
	waitIdle(t, service)

	failed := history.byStatus(RunStatusFailed)
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed run, got %d", len(failed))
	}
	if failed[0].Stage != StageGenerate {
		t.Errorf("expected failure stage generate, got %q", failed[0].Stage)
	}
	if _, applies := migrator.counts(); applies != 0 {
		t.Errorf("generation failure must not trigger an apply, got %d applies", applies)
	}
}

func TestService_ApplyFailureReturnsToIdle(t *testing.T) {
	migrator := &MockMigrator{applyErr: errors.New("database unreachable")}
	history := &MockHistory{}
	service := newTestService(migrator, history)

	service.Start(context.Background())
	defer service.Stop()

	service.Request("test")
	waitRuns(t, migrator, 1)
	waitIdle(t, service)

	if service.State() != StateIdle {
		t.Errorf("expected state idle after apply failure, got %s", service.State())
	}
	failed := history.byStatus(RunStatusFailed)
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed run, got %d", len(failed))
	}
	if failed[0].Stage != StageApply {
		t.Errorf("expected failure stage apply, got %q", failed[0].Stage)
	}
	if failed[0].Error == "" {
		t.Error("failed run must record the error")
	}
}

func TestService_RequestsDuringRunCoalesce(t *testing.T) {
	migrator := &MockMigrator{block: make(chan struct{})}
	history := &MockHistory{}
	service := newTestService(migrator, history)

	service.Start(context.Background())
	defer service.Stop()

	service.Request("first")
	waitRuns(t, migrator, 1) // first run is now blocked inside Generate

	// Several flushes arrive while the run is in flight. Exactly one may
	// queue; the rest coalesce.
	queued := 0
	for i := 0; i < 3; i++ {
		if service.Request("while busy") {
			queued++
		}
	}
	if queued != 1 {
		t.Errorf("expected exactly 1 queued request while busy, got %d", queued)
	}

	close(migrator.block)
	migrator.mu.Lock()
	migrator.block = nil
	migrator.mu.Unlock()

	waitRuns(t, migrator, 2)
	waitIdle(t, service)

	// Give a wrongly queued third run a chance to start before asserting
	time.Sleep(50 * time.Millisecond)
	if generates, _ := migrator.counts(); generates != 2 {
		t.Errorf("expected exactly 2 runs (first + one coalesced), got %d", generates)
	}
}

func TestService_NotifierSeesTerminalRuns(t *testing.T) {
	migrator := &MockMigrator{}
	history := &MockHistory{}
	service := newTestService(migrator, history)

	var mu sync.Mutex
	var notified []*MigrationRun
	service.SetNotifier(notifierFunc(func(run *MigrationRun) {
		mu.Lock()
		notified = append(notified, run)
		mu.Unlock()
	}))

	service.Start(context.Background())
	defer service.Stop()

	service.Request("test")
	waitRuns(t, migrator, 1)
	waitIdle(t, service)

	mu.Lock()
	defer mu.Unlock()
	if len(notified) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notified))
	}
	if notified[0].Status != RunStatusApplied {
		t.Errorf("expected applied notification, got %s", notified[0].Status)
	}
}

type notifierFunc func(run *MigrationRun)

func (f notifierFunc) NotifyRun(run *MigrationRun) { f(run) }
