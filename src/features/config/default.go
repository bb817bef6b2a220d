package config

// createDefaultConfig creates a new Config with sensible default values.
// The defaults target an alembic-managed schema living under ./app/models,
// which is the layout schemawatch is most often pointed at.
func createDefaultConfig() *Config {
	return &Config{
		Watch: Watch{
			Paths:          []string{"./app/models"},
			Extensions:     []string{".py"},
			QuietPeriodMs:  1500,
			Backend:        "fsnotify",
			PollIntervalMs: 2000,
		},
		Database: Database{
			URL: "", // Supplied via DATABASE_URL
		},
		Migrations: Migrations{
			WorkDir:         ".",
			GenerateCommand: `alembic revision --autogenerate -m "{{.Message}}"`,
			ApplyCommand:    "alembic upgrade head",
			Message:         "schemawatch autogenerate",
			RevisionPattern: `Generating .*[/\\]([0-9a-fA-F]+)_.*\.py`,
			NoChangeMarkers: []string{
				"No changes in schema detected",
				"no changes detected",
			},
			TimeoutSecs: 120,
		},
		Logger: Logger{
			Enabled: true,
			Level:   "info",
			Format:  "text",
		},
		Server: Server{
			PrintRoutes: false,
			Port:        3636,
		},
		History: History{
			Path: "./schemawatch.db",
		},
		Telegram: Telegram{
			Enabled: false,
			Token:   "", // Can be obtained with https://t.me/BotFather
			ChatIDs: []int64{},
		},
	}
}
