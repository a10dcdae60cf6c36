package notifier

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// CommandHandler is called with a command and its arguments and returns a
// reply; an empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string, args []string) string

type update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
	} `json:"message"`
}

// ParseCommand splits "/zones@bot AAPL" into ("/zones", ["AAPL"]).
func ParseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	return cmd, fields[1:]
}

// Poll fetches one batch of updates after offset and dispatches each
// message to handler. It returns the next offset.
func (t *TelegramNotifier) Poll(ctx context.Context, offset int, handler CommandHandler) (int, error) {
	raw, err := t.call(ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"timeout":         30,
		"allowed_updates": []string{"message"},
	})
	if err != nil {
		return offset, err
	}
	var updates []update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return offset, err
	}

	for _, u := range updates {
		offset = u.UpdateID + 1
		if u.Message == nil || u.Message.Text == "" {
			continue
		}
		cmd, args := ParseCommand(u.Message.Text)
		t.logger.Info().Str("command", cmd).Strs("args", args).Msg("received command")
		reply := handler(ctx, cmd, args)
		if reply == "" {
			continue
		}
		if err := t.Send(ctx, reply); err != nil {
			t.logger.Error().Err(err).Str("command", cmd).Msg("send reply")
		}
	}
	return offset, nil
}

// StartPolling long-polls for commands until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for ctx.Err() == nil {
		next, err := t.Poll(ctx, offset, handler)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.logger.Warn().Err(err).Msg("poll updates failed")
			sleepCtx(ctx, 5*time.Second)
			continue
		}
		offset = next
	}
	t.logger.Info().Msg("polling stopped")
}
