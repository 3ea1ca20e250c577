package notifier

import (
	"context"
	"strings"
	"time"
)

// CommandHandler answers one chat command. An empty reply sends nothing.
type CommandHandler func(ctx context.Context, command string) string

type update struct {
	UpdateID int `json:"update_id"`
	Message  *struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

const pollErrorDelay = 5 * time.Second

// StartPolling long-polls getUpdates and dispatches commands to handler.
// It blocks until ctx is cancelled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	offset := 0
	for ctx.Err() == nil {
		var updates []update
		err := t.call(ctx, "getUpdates", map[string]int{"offset": offset, "timeout": 30}, &updates)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			t.log.Warn().Err(err).Msg("poll updates")
			_ = sleepCtx(ctx, pollErrorDelay)
			continue
		}
		offset = t.dispatch(ctx, updates, offset, handler)
	}
	t.log.Info().Msg("telegram polling stopped")
}

// dispatch handles a batch and returns the next offset.
func (t *TelegramNotifier) dispatch(ctx context.Context, updates []update, offset int, handler CommandHandler) int {
	for _, u := range updates {
		offset = max(offset, u.UpdateID+1)
		if u.Message == nil {
			continue
		}
		text := strings.TrimSpace(u.Message.Text)
		if text == "" {
			continue
		}
		t.log.Info().Str("command", text).Int64("chat", u.Message.Chat.ID).Msg("received command")
		if reply := handler(ctx, text); reply != "" {
			if err := t.Send(ctx, reply); err != nil {
				t.log.Error().Err(err).Msg("send reply")
			}
		}
	}
	return offset
}
