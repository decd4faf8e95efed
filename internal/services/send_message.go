package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	// MaxSendAttempts ограничивает повторы при flood-limit
	MaxSendAttempts = 5
	// BroadcastDelay — 20 сообщений в секунду (лимит Telegram — 30)
	BroadcastDelay = 50 * time.Millisecond
)

// Sender — *tgbotapi.BotAPI или подмена в тестах
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type MessageOptions struct {
	DisableNotification bool
	ReplyMarkup         interface{}
}

type failureKind int

const (
	failureBadRequest failureKind = iota
	failureForbidden
	failureRetryAfter
	failureAPI
)

func classifySendError(err error) (failureKind, time.Duration) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		var v tgbotapi.Error
		if !errors.As(err, &v) {
			return failureAPI, 0
		}
		apiErr = &v
	}
	switch {
	case apiErr.RetryAfter > 0 || apiErr.Code == 429:
		return failureRetryAfter, time.Duration(apiErr.RetryAfter) * time.Second
	case apiErr.Code == 400:
		return failureBadRequest, 0
	case apiErr.Code == 403:
		return failureForbidden, 0
	default:
		return failureAPI, 0
	}
}

// Messenger — безопасная отправка сообщений с обработкой ошибок Telegram
type Messenger struct {
	bot         Sender
	log         *zap.Logger
	maxAttempts int
	delay       time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewMessenger(bot Sender, log *zap.Logger) *Messenger {
	return &Messenger{
		bot:         bot,
		log:         log,
		maxAttempts: MaxSendAttempts,
		delay:       BroadcastDelay,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SendMessage отправляет одно HTML-сообщение. true — только при подтверждённой отправке.
func (m *Messenger) SendMessage(ctx context.Context, userID int64, text string, opts MessageOptions) bool {
	log := m.log.With(zap.Int64("user_id", userID))
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableNotification = opts.DisableNotification
	msg.ReplyMarkup = opts.ReplyMarkup

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		_, err := m.bot.Send(msg)
		if err == nil {
			log.Info("message sent")
			return true
		}
		kind, retryAfter := classifySendError(err)
		switch kind {
		case failureBadRequest:
			log.Error("telegram bad request", zap.Error(err))
			return false
		case failureForbidden:
			log.Error("bot is blocked by the user", zap.Error(err))
			return false
		case failureRetryAfter:
			log.Warn("flood limit exceeded", zap.Duration("retry_after", retryAfter), zap.Int("attempt", attempt))
			if attempt == m.maxAttempts {
				break
			}
			if err := m.sleep(ctx, retryAfter); err != nil {
				log.Error("retry wait aborted", zap.Error(err))
				return false
			}
		default:
			log.Error("message send failed", zap.Error(err))
			return false
		}
	}
	log.Error("giving up after flood limit retries", zap.Int("attempts", m.maxAttempts))
	return false
}
