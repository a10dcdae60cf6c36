package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const telegramAPI = "https://api.telegram.org"

// maxMessageLen is the Bot API limit for one message.
const maxMessageLen = 4096

// TelegramNotifier talks to the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	BaseURL  string
	Client   *http.Client

	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  telegramAPI,
		// long polls hold the connection for up to 30s
		Client: &http.Client{Timeout: 40 * time.Second, Transport: transport},
		logger: log.With().Str("component", "telegram").Logger(),
	}
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	Result      json.RawMessage `json:"result"`
}

// call posts params as JSON to a Bot API method and returns the result field.
func (t *TelegramNotifier) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", method, err)
	}
	base := t.BaseURL
	if base == "" {
		base = telegramAPI
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/bot%s/%s", base, t.BotToken, method), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var out apiResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: status %d: %s", method, resp.StatusCode, out.Description)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s decode: %w", method, decodeErr)
	}
	if !out.OK {
		return nil, fmt.Errorf("%s: %s", method, out.Description)
	}
	return out.Result, nil
}

// Send sends an HTML message to the configured chat. Text over the API
// limit is truncated.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if len(text) > maxMessageLen {
		text = truncate(text, maxMessageLen)
	}
	_, err := t.call(ctx, "sendMessage", map[string]any{
		"chat_id":                  t.ChatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	})
	return err
}

// SendWithRetry retries Send with exponential backoff starting at one second.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = t.Send(ctx, text); err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return fmt.Errorf("send failed after %d attempts: %w", attempt+1, err)
		}
		backoff := time.Second << attempt
		t.logger.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("send failed, retrying")
		if !sleepCtx(ctx, backoff) {
			return ctx.Err()
		}
	}
}

// truncate cuts text to at most n bytes, on a line boundary when there is
// one and never inside a UTF-8 sequence.
func truncate(text string, n int) string {
	const marker = "\n…"
	end := n - len(marker)
	for end > 0 && !utf8.RuneStart(text[end]) {
		end--
	}
	cut := text[:end]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		cut = cut[:i]
	}
	return cut + marker
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
