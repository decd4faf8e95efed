package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// fakeSender возвращает заранее заданные ошибки по chat id
type fakeSender struct {
	errs  map[int64][]error
	calls map[int64]int
	sent  []tgbotapi.MessageConfig
}

func newFakeSender() *fakeSender {
	return &fakeSender{errs: map[int64][]error{}, calls: map[int64]int{}}
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg := c.(tgbotapi.MessageConfig)
	n := f.calls[msg.ChatID]
	f.calls[msg.ChatID]++
	if errs := f.errs[msg.ChatID]; n < len(errs) && errs[n] != nil {
		return tgbotapi.Message{}, errs[n]
	}
	f.sent = append(f.sent, msg)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func newTestMessenger(s Sender) (*Messenger, *[]time.Duration) {
	var slept []time.Duration
	m := NewMessenger(s, zap.NewNop())
	m.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return m, &slept
}

func floodErr(seconds int) error {
	return &tgbotapi.Error{Code: 429, Message: "Too Many Requests", ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: seconds}}
}

func TestClassifySendError(t *testing.T) {
	tests := []struct {
		desc  string
		err   error
		kind  failureKind
		after time.Duration
	}{
		{"bad request", &tgbotapi.Error{Code: 400, Message: "chat not found"}, failureBadRequest, 0},
		{"forbidden", &tgbotapi.Error{Code: 403, Message: "bot was blocked"}, failureForbidden, 0},
		{"flood", floodErr(3), failureRetryAfter, 3 * time.Second},
		{"flood by value", tgbotapi.Error{Code: 429, ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 1}}, failureRetryAfter, time.Second},
		{"server error", &tgbotapi.Error{Code: 500}, failureAPI, 0},
		{"network", errors.New("dial tcp: timeout"), failureAPI, 0},
	}
	for _, tt := range tests {
		kind, after := classifySendError(tt.err)
		if kind != tt.kind || after != tt.after {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tt.desc, kind, after, tt.kind, tt.after)
		}
	}
}

func TestSendMessageRetriesOnFloodLimit(t *testing.T) {
	s := newFakeSender()
	s.errs[1] = []error{floodErr(2), floodErr(1)}
	m, slept := newTestMessenger(s)

	if !m.SendMessage(context.Background(), 1, "hi", MessageOptions{}) {
		t.Fatal("expected success after retries")
	}
	if s.calls[1] != 3 || len(s.sent) != 1 {
		t.Errorf("calls = %d, sent = %d", s.calls[1], len(s.sent))
	}
	if len(*slept) != 2 || (*slept)[0] != 2*time.Second || (*slept)[1] != time.Second {
		t.Errorf("slept = %v", *slept)
	}
	if s.sent[0].ParseMode != tgbotapi.ModeHTML {
		t.Errorf("parse mode = %q", s.sent[0].ParseMode)
	}
}

func TestSendMessageRetryIsBounded(t *testing.T) {
	s := newFakeSender()
	for i := 0; i < 10; i++ {
		s.errs[1] = append(s.errs[1], floodErr(1))
	}
	m, _ := newTestMessenger(s)

	if m.SendMessage(context.Background(), 1, "hi", MessageOptions{}) {
		t.Fatal("expected failure under sustained flood limit")
	}
	if s.calls[1] != MaxSendAttempts {
		t.Errorf("attempts = %d, want %d", s.calls[1], MaxSendAttempts)
	}
}

func TestSendMessageFailuresAreNotRetried(t *testing.T) {
	for _, err := range []error{
		&tgbotapi.Error{Code: 400},
		&tgbotapi.Error{Code: 403},
		errors.New("connection reset"),
	} {
		s := newFakeSender()
		s.errs[5] = []error{err}
		m, slept := newTestMessenger(s)
		if m.SendMessage(context.Background(), 5, "x", MessageOptions{DisableNotification: true}) {
			t.Errorf("%v: expected false", err)
		}
		if s.calls[5] != 1 || len(*slept) != 0 {
			t.Errorf("%v: calls = %d, slept = %v", err, s.calls[5], *slept)
		}
	}
}

func TestSendMessageCancelledDuringWait(t *testing.T) {
	s := newFakeSender()
	s.errs[1] = []error{floodErr(30)}
	m, _ := newTestMessenger(s)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if m.SendMessage(ctx, 1, "hi", MessageOptions{}) {
		t.Error("expected false for cancelled context")
	}
}

func TestBroadcastCountsSuccesses(t *testing.T) {
	s := newFakeSender()
	s.errs[2] = []error{&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"}}
	m, slept := newTestMessenger(s)

	count := m.Broadcast(context.Background(), []int64{1, 2, 3}, "hello", MessageOptions{})
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	for _, id := range []int64{1, 2, 3} {
		if s.calls[id] != 1 {
			t.Errorf("user %d got %d attempts, want 1", id, s.calls[id])
		}
	}
	if len(*slept) != 2 || (*slept)[0] != BroadcastDelay {
		t.Errorf("slept = %v", *slept)
	}
}

func TestBroadcastRetriedRecipient(t *testing.T) {
	s := newFakeSender()
	s.errs[2] = []error{floodErr(1)}
	m, _ := newTestMessenger(s)

	if count := m.Broadcast(context.Background(), []int64{1, 2, 3}, "hello", MessageOptions{}); count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if s.calls[1] != 1 || s.calls[2] != 2 || s.calls[3] != 1 {
		t.Errorf("calls = %v", s.calls)
	}
}

func TestBroadcastEmpty(t *testing.T) {
	m, _ := newTestMessenger(newFakeSender())
	if count := m.Broadcast(context.Background(), nil, "x", MessageOptions{}); count != 0 {
		t.Errorf("count = %d", count)
	}
}
