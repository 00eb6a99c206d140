package notify

import (
	"context"
	"errors"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"github.com/tnagatomi/octonotify/internal/log"
	"github.com/tnagatomi/octonotify/internal/model"
)

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	Token      string
	ChatIDs    []int64
	RatePerSec int // 0 disables send throttling
}

// Telegram delivers digests to a set of Telegram chats.
type Telegram struct {
	bot     *tele.Bot
	chats   []int64
	limiter *rate.Limiter
}

// NewTelegram creates a Telegram notifier. Constructing the bot verifies the
// token against the Telegram API.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.Token == "" {
		return nil, errors.New("Telegram token not provided. Set the OCTONOTIFY_TELEGRAM_TOKEN environment variable")
	}
	if len(cfg.ChatIDs) == 0 {
		return nil, errors.New("no Telegram chat IDs configured")
	}

	bot, err := tele.NewBot(tele.Settings{Token: cfg.Token})
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1)
	}

	return &Telegram{
		bot:     bot,
		chats:   cfg.ChatIDs,
		limiter: limiter,
	}, nil
}

// Deliver sends the digest to every configured chat. Failures for
// individual chats do not stop the remaining sends; they are aggregated
// into a DeliveryError that exposes only a count.
func (t *Telegram) Deliver(ctx context.Context, events []model.Event) error {
	chunks := Digest(events)
	if len(chunks) == 0 {
		return nil
	}

	failed := 0
	for _, chat := range t.chats {
		if err := t.sendAll(ctx, chat, chunks); err != nil {
			failed++
			log.Warn("digest send failed", "error", err)
		}
	}

	log.Info("digest delivered", "events", len(events), "chunks", len(chunks), "recipients", len(t.chats), "failed", failed)
	if failed > 0 {
		return &DeliveryError{Failed: failed}
	}
	return nil
}

func (t *Telegram) sendAll(ctx context.Context, chat int64, chunks []string) error {
	for _, chunk := range chunks {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		_, err := t.bot.Send(tele.ChatID(chat), chunk, &tele.SendOptions{
			ParseMode:             tele.ModeHTML,
			DisableWebPagePreview: true,
		})
		if err != nil {
			return err
		}
	}
	return nil
}
