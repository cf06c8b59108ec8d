package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"odds-picks/internal/picker"
)

// Notification summarises one batch run for the operator.
type Notification struct {
	RunAt     time.Time
	Events    int
	Rows      int
	Accuracy  float64
	Threshold float64
	Picks     []picker.Pick
	// TotalPicks counts every pick, including those trimmed from Picks.
	TotalPicks int
}

// Notifier delivers run summaries.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier posts summaries through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier builds a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered summary.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    RenderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false")
	}

	n.logger.Info().Time("run_at", note.RunAt).Int("picks", note.TotalPicks).Msg("run summary sent (telegram)")
	return nil
}

// RenderMessage formats a plain-text run summary.
func RenderMessage(note Notification) string {
	var b strings.Builder
	b.WriteString("[Odds Picks]\n")
	b.WriteString(fmt.Sprintf("Run: %s UTC\n", note.RunAt.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("Events: %d, rows: %d\n", note.Events, note.Rows))
	b.WriteString(fmt.Sprintf("Test accuracy: %.3f\n", note.Accuracy))
	b.WriteString(fmt.Sprintf("Picks above %.2f: %d\n", note.Threshold, note.TotalPicks))
	for _, p := range note.Picks {
		b.WriteString(fmt.Sprintf("- %s %s: %s (%.3f)\n", p.SportKey, p.MarketKey, p.Pick, p.Confidence))
	}
	if hidden := note.TotalPicks - len(note.Picks); hidden > 0 {
		b.WriteString(fmt.Sprintf("... and %d more\n", hidden))
	}
	return b.String()
}

var _ Notifier = (*TelegramNotifier)(nil)
