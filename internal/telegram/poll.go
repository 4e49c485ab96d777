package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Updater is the long-polling part of *tgbotapi.BotAPI.
type Updater interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

// Poll fetches updates until ctx is cancelled and hands each to the router,
// then drains pending analyses within DrainTimeout.  Errors back off
// exponentially up to 15s.
func (r *Router) Poll(ctx context.Context, bot Updater, timeoutSec int) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second
	delay := baseDelay

	for {
		select {
		case <-ctx.Done():
			r.Log.Info("polling stopped")
			r.Drain(r.DrainTimeout)
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = timeoutSec

		updates, err := bot.GetUpdates(u)
		if err != nil {
			r.Log.Warn("polling error", zap.Error(err), zap.Duration("retry_in", delay))
			if !sleep(ctx, delay) {
				continue
			}
			delay = min(delay*2, maxDelay)
			continue
		}
		delay = baseDelay

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			r.HandleUpdate(ctx, upd)
		}

		if len(updates) == 0 {
			sleep(ctx, 200*time.Millisecond)
		}
	}
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
