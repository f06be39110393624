package notify

import (
	"errors"
	"fmt"
	"time"

	"bbot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const sendRetries = 3

// Notifier — исходящие уведомления о сделках. Строго best-effort:
// провал доставки логируется и никогда не влияет на торговлю.
type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram шлёт сообщения в один чат. До трёх попыток на сообщение;
// при 429 спим столько, сколько велел Telegram, и пробуем снова.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	send   func(tgbot.Chattable) (tgbot.Message, error)
	sleep  func(time.Duration)
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chatID: chatID, send: b.Send, sleep: time.Sleep}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.send == nil || t.chatID == 0 {
		return
	}
	for attempt := 1; attempt <= sendRetries; attempt++ {
		_, err := t.send(tgbot.NewMessage(t.chatID, msg))
		if err == nil {
			return
		}
		var apiErr *tgbot.Error
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			logger.Warn("telegram rate limit, retry in %ds", apiErr.RetryAfter)
			t.sleep(time.Duration(apiErr.RetryAfter) * time.Second)
			continue
		}
		logger.Error("telegram send attempt %d/%d: %v", attempt, sendRetries, err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Stdout — заглушка без Telegram: всё уходит в лог.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { logger.Info("%s", msg) }
func (s *Stdout) Sendf(format string, args ...any) { logger.Info(format, args...) }
