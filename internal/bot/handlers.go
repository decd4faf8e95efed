package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"PayPal-Telegram-bot/config"
	"PayPal-Telegram-bot/internal/db"
	"PayPal-Telegram-bot/internal/services"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

var errNoSession = errors.New("database session is not attached to the update")

// Handlers — пользовательские команды бота
type Handlers struct {
	cfg       *config.Config
	payments  PaymentSender
	messenger *services.Messenger
	log       *zap.Logger
}

func NewHandlers(cfg *config.Config, payments PaymentSender, messenger *services.Messenger, log *zap.Logger) *Handlers {
	return &Handlers{cfg: cfg, payments: payments, messenger: messenger, log: log}
}

// Register вешает команды на диспетчер
func (h *Handlers) Register(d *Dispatcher) {
	d.Command("start", h.Start)
	d.Command("test_payment", h.TestPayment)
}

func fullName(u *tgbotapi.User) string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func displayName(u *tgbotapi.User) string {
	if u.UserName != "" {
		return u.UserName
	}
	return fullName(u)
}

func (h *Handlers) Start(ctx context.Context, update tgbotapi.Update) error {
	from := update.Message.From
	if from == nil {
		return nil
	}
	text := fmt.Sprintf("👋 Hello, %s!\nUse /test_payment to try a PayPal payment.", html.EscapeString(displayName(from)))
	h.messenger.SendMessage(ctx, from.ID, text, services.MessageOptions{ReplyMarkup: GetReplyKeyboard(h.cfg.IsAdmin(from.ID))})
	return nil
}

// TestPayment сохраняет пользователя и отправляет ему ссылку на тестовую оплату
func (h *Handlers) TestPayment(ctx context.Context, update tgbotapi.Update) error {
	from := update.Message.From
	if from == nil {
		return nil
	}
	session, ok := db.DistributorFrom(ctx)
	if !ok {
		return errNoSession
	}
	var username *string
	if from.UserName != "" {
		username = &from.UserName
	}
	if _, err := session.Users().CreateUser(from.ID, fullName(from), username); err != nil {
		return err
	}

	text := fmt.Sprintf("👋 Hello, %s\nThis is a test payment for a test.\n\nUse button below to process a test payment ⬇️",
		html.EscapeString(displayName(from)))
	sent, err := h.payments.SendPayment(ctx, from.ID, demoPaymentRequest(h.cfg.Webhook.BaseURL, from.ID), text)
	if err != nil {
		h.messenger.SendMessage(ctx, from.ID, "⚠️ Couldn't create a payment right now. Please try again later.", services.MessageOptions{})
		return fmt.Errorf("send payment to %d: %w", from.ID, err)
	}
	if !sent {
		h.log.Warn("payment link was not delivered", zap.Int64("user_id", from.ID))
	}
	return nil
}
