// Package chat delivers the daily digest to chat platforms (LINE broadcast,
// Telegram bot).
package chat

import (
	"fmt"
	"strings"

	"AIToolNews/internal/config"
	"AIToolNews/internal/ports"
)

// New selects the notifier for the configured provider.
func New(cfg config.ChatConfig) (ports.Notifier, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "line":
		if cfg.Line.AccessToken == "" {
			return nil, fmt.Errorf("line notifier misconfigured")
		}
		return NewLineNotifier(cfg.Line.Endpoint, cfg.Line.AccessToken), nil
	case "telegram":
		if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == "" {
			return nil, fmt.Errorf("telegram notifier misconfigured")
		}
		return NewTelegramNotifier(cfg.Telegram.Endpoint, cfg.Telegram.BotToken, cfg.Telegram.ChatID), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}
