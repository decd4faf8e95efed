package bot

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func commandUpdate(userID int64, text string) tgbotapi.Update {
	cmd := text
	for i, r := range text {
		if r == ' ' {
			cmd = text[:i]
			break
		}
	}
	return tgbotapi.Update{
		UpdateID: 1,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID, FirstName: "Jane", LastName: "Doe"},
			Chat: &tgbotapi.Chat{ID: userID},
			Text: text,
			Entities: []tgbotapi.MessageEntity{
				{Type: "bot_command", Offset: 0, Length: len(cmd)},
			},
		},
	}
}

func TestDispatcherRoutesCommands(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	var called []string
	d.Command("start", func(ctx context.Context, u tgbotapi.Update) error {
		called = append(called, "start")
		return nil
	})
	d.Command("test_payment", func(ctx context.Context, u tgbotapi.Update) error {
		called = append(called, "test_payment")
		return nil
	})

	d.Dispatch(context.Background(), commandUpdate(1, "/test_payment"))
	d.Dispatch(context.Background(), commandUpdate(1, "/unknown"))
	d.Dispatch(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "plain text"}})
	d.Dispatch(context.Background(), tgbotapi.Update{})

	if len(called) != 1 || called[0] != "test_payment" {
		t.Errorf("called = %v", called)
	}
}

func TestDispatcherMiddlewareOrder(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	var order []string
	mw := func(name string) Middleware {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, u tgbotapi.Update) error {
				order = append(order, name)
				return next(ctx, u)
			}
		}
	}
	d.Use(mw("first"), mw("second"))
	d.Command("start", func(ctx context.Context, u tgbotapi.Update) error {
		order = append(order, "handler")
		return nil
	})

	d.Dispatch(context.Background(), commandUpdate(1, "/start"))
	want := []string{"first", "second", "handler"}
	if len(order) != 3 || order[0] != want[0] || order[1] != want[1] || order[2] != want[2] {
		t.Errorf("order = %v, want %v", order, want)
	}

	// middleware видят и не-командные апдейты
	order = nil
	d.Dispatch(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{Text: "hi"}})
	if len(order) != 2 {
		t.Errorf("order for plain message = %v", order)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	d := NewDispatcher(zap.NewNop())
	d.Use(RecoverMiddleware(nil, zap.NewNop()))
	d.Command("start", func(ctx context.Context, u tgbotapi.Update) error {
		panic("boom")
	})
	err := d.Dispatch(context.Background(), commandUpdate(1, "/start"))
	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
}

type countingConfigurer struct{ calls int }

func (c *countingConfigurer) Configuration() bool {
	c.calls++
	return true
}

func TestPaymentMiddlewareConfiguresEveryUpdate(t *testing.T) {
	c := &countingConfigurer{}
	d := NewDispatcher(zap.NewNop())
	d.Use(PaymentMiddleware(c))
	errHandler := errors.New("handler")
	d.Command("start", func(ctx context.Context, u tgbotapi.Update) error { return errHandler })

	if err := d.Dispatch(context.Background(), commandUpdate(1, "/start")); !errors.Is(err, errHandler) {
		t.Errorf("err = %v", err)
	}
	d.Dispatch(context.Background(), tgbotapi.Update{})
	if c.calls != 2 {
		t.Errorf("configuration calls = %d, want 2", c.calls)
	}
}
