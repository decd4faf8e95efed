package bot

import (
	"context"

	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HandlerFunc обрабатывает один апдейт Telegram
type HandlerFunc func(ctx context.Context, update tgbotapi.Update) error

// Middleware оборачивает обработку каждого апдейта
type Middleware func(next HandlerFunc) HandlerFunc

// Dispatcher прогоняет апдейт через middleware и отдаёт его обработчику команды
type Dispatcher struct {
	commands    map[string]HandlerFunc
	middlewares []Middleware
	log         *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{commands: make(map[string]HandlerFunc), log: log}
}

// Use добавляет middleware; первое добавленное выполняется первым
func (d *Dispatcher) Use(mw ...Middleware) {
	d.middlewares = append(d.middlewares, mw...)
}

// Command регистрирует обработчик команды без слеша, например "test_payment"
func (d *Dispatcher) Command(name string, h HandlerFunc) {
	d.commands[name] = h
}

func (d *Dispatcher) Dispatch(ctx context.Context, update tgbotapi.Update) error {
	h := HandlerFunc(d.route)
	for i := len(d.middlewares) - 1; i >= 0; i-- {
		h = d.middlewares[i](h)
	}
	return h(ctx, update)
}

func (d *Dispatcher) route(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return nil
	}
	h, ok := d.commands[msg.Command()]
	if !ok {
		d.log.Debug("no handler for command", zap.String("command", msg.Command()))
		return nil
	}
	return h(ctx, update)
}

// updateUserID — id отправителя апдейта, 0 если его нет
func updateUserID(update tgbotapi.Update) int64 {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		return update.CallbackQuery.From.ID
	}
	return 0
}
