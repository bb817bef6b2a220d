// Package migratecli implements migrating.Migrator by shelling out to an
// external migration tool. The generate and apply invocations are plain
// shell command templates from configuration, so any tool with an
// "autogenerate a revision" and an "upgrade to head" command fits; the
// defaults target alembic.
package migratecli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"text/template"

	"schemawatch/src/features/config"
	"schemawatch/src/features/migrating"
)

// Runner invokes the configured migration tool commands.
type Runner struct {
	config *config.Manager
}

// New creates a new Runner.
func New(cfg *config.Manager) *Runner {
	return &Runner{config: cfg}
}

// Generate runs the configured generate command and parses a revision id
// out of its output. Output matching a configured no-change marker maps to
// migrating.ErrNoChanges regardless of the tool's exit status.
func (r *Runner) Generate(ctx context.Context, message string) (migrating.Revision, error) {
	cfg := r.config.Get()

	command, err := renderCommand(cfg.Migrations.GenerateCommand, message)
	if err != nil {
		return migrating.Revision{}, fmt.Errorf("bad generate command template: %w", err)
	}

	out, runErr := r.runCommand(ctx, command)

	for _, marker := range cfg.Migrations.NoChangeMarkers {
		if marker != "" && strings.Contains(out, marker) {
			return migrating.Revision{}, migrating.ErrNoChanges
		}
	}

	if runErr != nil {
		return migrating.Revision{}, fmt.Errorf("generate command failed: %w: %s", runErr, r.sanitize(out))
	}

	rev, err := parseRevision(cfg.Migrations.RevisionPattern, out)
	if err != nil {
		return migrating.Revision{}, fmt.Errorf("generate succeeded but %w: %s", err, r.sanitize(out))
	}

	return migrating.Revision{ID: rev, Message: message}, nil
}

// Apply runs the configured apply command.
func (r *Runner) Apply(ctx context.Context) error {
	cfg := r.config.Get()

	out, err := r.runCommand(ctx, cfg.Migrations.ApplyCommand)
	if err != nil {
		return fmt.Errorf("apply command failed: %w: %s", err, r.sanitize(out))
	}
	return nil
}

// runCommand executes a shell command in the migrations working directory
// with DATABASE_URL exported for the child process.
func (r *Runner) runCommand(ctx context.Context, command string) (string, error) {
	cfg := r.config.Get()

	ctx, cancel := context.WithTimeout(ctx, cfg.Migrations.Timeout())
	defer cancel()

	// Use shell to properly handle quoted strings and complex commands
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	cmd.Dir = cfg.Migrations.WorkDir
	cmd.Env = append(os.Environ(), "DATABASE_URL="+cfg.Database.URL)

	slog.Debug("Running migration tool", "command", command, "dir", cmd.Dir)
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// sanitize strips the database URL out of tool output before it reaches
// logs or error messages.
func (r *Runner) sanitize(out string) string {
	url := r.config.Get().Database.URL
	out = strings.TrimSpace(out)
	if url == "" {
		return out
	}
	return strings.ReplaceAll(out, url, "<redacted>")
}

// renderCommand substitutes {{.Message}} into a command template.
func renderCommand(tmplText, message string) (string, error) {
	tmpl, err := template.New("command").Parse(tmplText)
	if err != nil {
		return "", err
	}
	var command strings.Builder
	err = tmpl.Execute(&command, struct{ Message string }{Message: message})
	if err != nil {
		return "", err
	}
	return command.String(), nil
}

// parseRevision extracts the revision id from generator output using the
// configured pattern. The first capture group is the id.
func parseRevision(pattern, out string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("revision pattern is invalid: %w", err)
	}
	match := re.FindStringSubmatch(out)
	if len(match) < 2 || match[1] == "" {
		return "", fmt.Errorf("no revision id found in output")
	}
	return match[1], nil
}
