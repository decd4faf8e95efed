package logger

import (
	"fmt"

	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender — то, что умеет отправлять сообщения в Telegram (*tgbotapi.BotAPI)
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier рассылает критические уведомления администраторам
type Notifier struct {
	bot    Sender
	admins []int64
	log    *zap.Logger
}

func NewNotifier(bot Sender, admins []int64, log *zap.Logger) *Notifier {
	return &Notifier{bot: bot, admins: admins, log: log}
}

// NotifyAdmin отправляет уведомление всем админам
func (n *Notifier) NotifyAdmin(msg string) {
	if n == nil || n.bot == nil {
		return
	}
	for _, id := range n.admins {
		if _, err := n.bot.Send(tgbotapi.NewMessage(id, "[ALERT] "+msg)); err != nil {
			n.log.Error("admin alert failed", zap.Int64("admin_id", id), zap.Error(err))
		}
	}
}

// NotifyOnPanic ловит панику, логирует и уведомляет. Вызывать через defer.
func (n *Notifier) NotifyOnPanic(context string) {
	if r := recover(); r != nil {
		n.log.Error("panic recovered", zap.String("context", context), zap.Any("panic", r), zap.Stack("stack"))
		n.NotifyAdmin("Panic in " + context + ": " + toString(r))
	}
}

func toString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case error:
		return t.Error()
	default:
		return fmt.Sprintf("%v", t)
	}
}
