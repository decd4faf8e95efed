package bot

import (
	"context"
	"fmt"

	"PayPal-Telegram-bot/internal/db"
	"PayPal-Telegram-bot/internal/logger"
	"PayPal-Telegram-bot/internal/services"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// LoggingMiddleware пишет каждый входящий апдейт
func LoggingMiddleware(log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, update tgbotapi.Update) error {
			fields := []zap.Field{zap.Int("update_id", update.UpdateID), zap.Int64("user_id", updateUserID(update))}
			if update.Message != nil {
				fields = append(fields, zap.String("text", update.Message.Text))
			}
			log.Info("incoming update", fields...)
			return next(ctx, update)
		}
	}
}

// RecoverMiddleware превращает панику обработчика в ошибку и сообщает админам
func RecoverMiddleware(notifier *logger.Notifier, log *zap.Logger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, update tgbotapi.Update) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error("panic in update handler", zap.Any("panic", r), zap.Stack("stack"))
					notifier.NotifyAdmin(fmt.Sprintf("Panic in update %d: %v", update.UpdateID, r))
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, update)
		}
	}
}

// PaymentConfigurer — то, что умеет применить настройки PayPal (*services.Processor)
type PaymentConfigurer interface {
	Configuration() bool
}

// PaymentMiddleware применяет настройки PayPal перед каждым апдейтом
func PaymentMiddleware(p PaymentConfigurer) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, update tgbotapi.Update) error {
			p.Configuration()
			return next(ctx, update)
		}
	}
}

// SessionMiddleware открывает сессию БД на время обработки апдейта
func SessionMiddleware(store *db.Store) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, update tgbotapi.Update) error {
			return next(db.WithDistributor(ctx, store.Session(ctx)), update)
		}
	}
}

// RateLimitMiddleware отбрасывает слишком частые команды. Админы не лимитируются.
func RateLimitMiddleware(limiter *RateLimiter, isAdmin func(int64) bool, messenger *services.Messenger) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, update tgbotapi.Update) error {
			msg := update.Message
			if msg == nil || msg.From == nil || !msg.IsCommand() || isAdmin(msg.From.ID) {
				return next(ctx, update)
			}
			if limiter.IsLimited(msg.From.ID, msg.Command()) {
				messenger.SendMessage(ctx, msg.From.ID, "Please, not so fast! Wait a couple of seconds...", services.MessageOptions{})
				return nil
			}
			return next(ctx, update)
		}
	}
}
