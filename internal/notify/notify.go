// Package notify pushes sync summaries to Telegram so staff hear about
// new inventory and failing vendors without watching the dashboard.
package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"dealersync/server/internal/models"
)

type Config struct {
	BotToken  string
	ChatID    string
	IsEnabled bool
}

type Service struct {
	logger *logrus.Logger
	client *http.Client
	config Config
}

func NewService(config Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	return &Service{
		logger: logger,
		config: config,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SendMessage sends a message to the configured Telegram chat.
func (s *Service) SendMessage(message string) error {
	if !s.config.IsEnabled {
		return nil
	}

	if s.config.BotToken == "" {
		return errors.New("Telegram bot token is not configured")
	}

	if s.config.ChatID == "" {
		return errors.New("Telegram chat ID is not configured")
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", s.config.BotToken)
	payload := map[string]interface{}{
		"chat_id":    s.config.ChatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// NotifySyncRun sends a summary for a run worth attention: new vehicles
// arrived or errors occurred.
func (s *Service) NotifySyncRun(run *models.SyncRun) error {
	if !s.config.IsEnabled {
		return nil
	}

	var icon string
	switch run.Status {
	case models.RunSuccess:
		icon = "✅"
	case models.RunPartial:
		icon = "⚠️"
	default:
		icon = "❌"
	}

	message := fmt.Sprintf(
		"%s <b>%s</b> sync %s\n\n"+
			"Found: %d\nNew: %d\nUpdated: %d\nUnlisted: %d\nRemoved: %d\n"+
			"Duration: %s",
		icon, run.VendorName, run.Status,
		run.Found, run.New, run.Updated, run.Unlisted, run.Removed,
		run.Duration.Round(time.Second),
	)
	if run.ErrorText != "" {
		text := run.ErrorText
		if len(text) > 500 {
			text = text[:500] + "…"
		}
		message += fmt.Sprintf("\n\nErrors:\n<code>%s</code>", text)
	}

	return s.SendMessage(message)
}
