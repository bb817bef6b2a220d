package config

import "time"

// Config holds the application configuration.
type Config struct {
	Watch      Watch      `yaml:"watch" validate:"required"`
	Database   Database   `yaml:"database"`
	Migrations Migrations `yaml:"migrations" validate:"required"`
	Logger     Logger     `yaml:"logger"`
	Server     Server     `yaml:"server"`
	History    History    `yaml:"history"`
	Telegram   Telegram   `yaml:"telegram"`
	Debug      bool       `yaml:"debug"`
}

// Watch holds the configuration for the filesystem observer and debouncer.
type Watch struct {
	Paths          []string `yaml:"paths" validate:"required,min=1"`
	Extensions     []string `yaml:"extensions" validate:"required,min=1"`
	QuietPeriodMs  int      `yaml:"quiet_period_ms" validate:"required,min=1"`
	Backend        string   `yaml:"backend" validate:"omitempty,oneof=fsnotify poll"`
	PollIntervalMs int      `yaml:"poll_interval_ms"`
}

// QuietPeriod returns the debounce quiet period as a duration.
func (w Watch) QuietPeriod() time.Duration {
	return time.Duration(w.QuietPeriodMs) * time.Millisecond
}

// PollInterval returns the polling backend scan interval as a duration.
func (w Watch) PollInterval() time.Duration {
	if w.PollIntervalMs <= 0 {
		return 2 * time.Second
	}
	return time.Duration(w.PollIntervalMs) * time.Millisecond
}

// Database holds the target database connection settings. The URL is
// usually supplied via the DATABASE_URL environment variable and is
// treated as a secret everywhere it could be printed.
type Database struct {
	URL string `yaml:"url"`
}

// Migrations holds the external migration tool invocations.
type Migrations struct {
	WorkDir         string   `yaml:"work_dir"`
	GenerateCommand string   `yaml:"generate_command" validate:"required"`
	ApplyCommand    string   `yaml:"apply_command" validate:"required"`
	Message         string   `yaml:"message"`
	RevisionPattern string   `yaml:"revision_pattern" validate:"required"`
	NoChangeMarkers []string `yaml:"no_change_markers"`
	TimeoutSecs     int      `yaml:"timeout_secs"`
}

// Timeout returns the per-command timeout for the migration tool.
func (m Migrations) Timeout() time.Duration {
	if m.TimeoutSecs <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(m.TimeoutSecs) * time.Second
}

// History holds the configuration for the migration run history store.
type History struct {
	Path string `yaml:"path" validate:"required"`
}

// Server holds the configuration for the Fiber server.
type Server struct {
	PrintRoutes bool   `yaml:"show_routes"`
	Port        uint32 `yaml:"port"`
}

// Logger holds the configuration for the app logging.
type Logger struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	Format  string `yaml:"format"`
}

// Telegram holds the operator notification settings.
type Telegram struct {
	Enabled bool    `yaml:"enabled"`
	Token   string  `yaml:"token"`
	ChatIDs []int64 `yaml:"chat_ids"`
}
