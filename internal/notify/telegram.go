package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const telegramAPIBase = "https://api.telegram.org"

// Notifier delivers a text alert to the operator.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Logger is the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Telegram sends alerts through the Telegram Bot API.
//
// With an empty bot token or chat ID the notifier is a logged no-op, so a
// development deployment without credentials still actuates normally.
type Telegram struct {
	botToken string
	chatID   string
	client   *http.Client
	baseURL  string
	logger   Logger
}

// NewTelegram creates a Telegram notifier.
//
// Parameters:
//   - botToken: Bot API token (empty disables delivery)
//   - chatID: Target chat identifier (empty disables delivery)
//   - timeout: Per-request HTTP timeout
//   - logger: Logger instance (nil for no logging)
func NewTelegram(botToken, chatID string, timeout time.Duration, logger Logger) *Telegram {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: timeout},
		baseURL:  telegramAPIBase,
		logger:   logger,
	}
}

// Send delivers a single message to the configured chat.
//
// Parameters:
//   - ctx: Context for request cancellation
//   - text: Message body, HTML parse mode
//
// Returns:
//   - error: ErrSendFailed (wrapped) if delivery fails; nil when disabled
func (t *Telegram) Send(ctx context.Context, text string) error {
	if t.botToken == "" || t.chatID == "" {
		t.logger.Info("telegram credentials not configured, skipping notification",
			"text", text,
		)
		return nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	form := url.Values{
		"chat_id":    {t.chatID},
		"text":       {text},
		"parse_mode": {"HTML"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: building request: %w", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrSendFailed, resp.StatusCode, body)
	}

	t.logger.Debug("telegram notification delivered")
	return nil
}
