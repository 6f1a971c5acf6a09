package notifier

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/semmidev/rdsbackup/internal/domain"
)

const maxMessageLength = 4096

// Telegram sends the outcome to a chat. The bot is created on first use so
// that a bad token surfaces as a notification failure, not a startup one.
type Telegram struct {
	token    string
	chatID   int64
	endpoint string

	once sync.Once
	bot  *tgbotapi.BotAPI
	err  error
}

func NewTelegram(token, chatID string) (*Telegram, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid telegram chat id %q: %w", chatID, err)
	}
	return &Telegram{token: token, chatID: id, endpoint: tgbotapi.APIEndpoint}, nil
}

func (t *Telegram) Publish(ctx context.Context, msg domain.Message) error {
	bot, err := t.client(ctx)
	if err != nil {
		return err
	}

	text := truncate(msg.Subject+"\n\n"+msg.Body, maxMessageLength)

	if _, err := bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) client(ctx context.Context) (*tgbotapi.BotAPI, error) {
	t.once.Do(func() {
		timeout := 30 * time.Second
		if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) > 0 {
			timeout = time.Until(deadline)
		}
		t.bot, t.err = tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, &http.Client{Timeout: timeout})
		if t.err != nil {
			t.err = fmt.Errorf("failed to create telegram bot: %w", t.err)
		}
	})
	return t.bot, t.err
}
