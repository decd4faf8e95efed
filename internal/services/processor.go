package services

import (
	"context"
	"errors"
	"fmt"

	"PayPal-Telegram-bot/config"
	"PayPal-Telegram-bot/internal/db"
	"PayPal-Telegram-bot/internal/logger"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// ErrNoApprovalURL — PayPal создал платёж, но не вернул ссылку approval_url
var ErrNoApprovalURL = errors.New("paypal response has no approval_url link")

// Processor создаёт платежи PayPal и обрабатывает возврат пользователя после оплаты
type Processor struct {
	cfg       config.PayPalConfig
	gateway   Gateway
	store     *db.Store
	messenger *Messenger
	lock      PaymentLock
	notifier  *logger.Notifier
	log       *zap.Logger
}

func NewProcessor(cfg config.PayPalConfig, gateway Gateway, store *db.Store, messenger *Messenger, lock PaymentLock, notifier *logger.Notifier, log *zap.Logger) *Processor {
	return &Processor{
		cfg:       cfg,
		gateway:   gateway,
		store:     store,
		messenger: messenger,
		lock:      lock,
		notifier:  notifier,
		log:       log,
	}
}

// Configuration применяет настройки PayPal. false — конфигурация невалидна.
func (p *Processor) Configuration() bool {
	if err := p.gateway.Configure(p.cfg); err != nil {
		p.log.Error("couldn't configure paypal", zap.Error(err))
		return false
	}
	return true
}

// SendPayment создаёт платёж и отправляет пользователю кнопку со ссылкой на оплату.
// Возвращает результат отправки сообщения.
func (p *Processor) SendPayment(ctx context.Context, userID int64, req PaymentRequest, text string) (bool, error) {
	if err := req.Validate(); err != nil {
		return false, fmt.Errorf("invalid payment request: %w", err)
	}
	payment, err := p.gateway.CreatePayment(ctx, req)
	if err != nil {
		return false, err
	}
	approvalURL, ok := payment.ApprovalURL()
	if !ok {
		p.log.Error("payment created without approval link", zap.String("payment_id", payment.ID))
		return false, fmt.Errorf("payment %s: %w", payment.ID, ErrNoApprovalURL)
	}
	p.log.Info("payment created", zap.String("payment_id", payment.ID), zap.Int64("user_id", userID))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL(payButtonText(req.Total, req.Currency), approvalURL),
		),
	)
	return p.messenger.SendMessage(ctx, userID, text, MessageOptions{ReplyMarkup: keyboard}), nil
}

func payButtonText(total float64, currency string) string {
	return fmt.Sprintf("Pay $%s %s", formatAmount(total), currency)
}
