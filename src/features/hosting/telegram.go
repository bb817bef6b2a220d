package hosting

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"schemawatch/src/features/config"
	"schemawatch/src/features/migrating"
)

// TelegramNotifier pushes the outcome of every migration run to the
// configured operator chats. It implements migrating.Notifier.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	config *config.Manager
}

// NewTelegramNotifier creates a new Telegram notifier instance.
func NewTelegramNotifier(cfg *config.Manager) (*TelegramNotifier, error) {
	telegramConfig := cfg.Get().Telegram

	if !telegramConfig.Enabled {
		return nil, fmt.Errorf("telegram notifications are disabled in configuration")
	}

	if telegramConfig.Token == "" {
		return nil, fmt.Errorf("telegram bot token is not configured")
	}

	if len(telegramConfig.ChatIDs) == 0 {
		return nil, fmt.Errorf("no telegram chat ids configured")
	}

	bot, err := tgbotapi.NewBotAPI(telegramConfig.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	slog.Info("Telegram notifier initialized", "username", bot.Self.UserName)

	return &TelegramNotifier{bot: bot, config: cfg}, nil
}

// NotifyRun sends a summary of a finished run to every configured chat.
// Delivery is best effort; failures are logged and dropped.
func (t *TelegramNotifier) NotifyRun(run *migrating.MigrationRun) {
	text := formatRun(run)
	for _, chatID := range t.config.Get().Telegram.ChatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := t.bot.Send(msg); err != nil {
			slog.Error("Failed to send telegram notification", "chat_id", chatID, "error", err)
		}
	}
}

func formatRun(run *migrating.MigrationRun) string {
	switch run.Status {
	case migrating.RunStatusApplied:
		return fmt.Sprintf("✅ Migration applied\nRevision: %s\nMessage: %s", run.Revision, run.Message)
	case migrating.RunStatusNoChanges:
		return fmt.Sprintf("ℹ️ No schema changes detected\nMessage: %s", run.Message)
	case migrating.RunStatusFailed:
		return fmt.Sprintf("❌ Migration failed during %s\nMessage: %s\nError: %s", run.Stage, run.Message, run.Error)
	default:
		return fmt.Sprintf("Migration run %s: %s", run.ID, run.Status)
	}
}
