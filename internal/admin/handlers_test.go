package admin

import (
	"context"
	"strings"
	"sync"
	"testing"

	"PayPal-Telegram-bot/config"
	"PayPal-Telegram-bot/internal/bot"
	"PayPal-Telegram-bot/internal/db"
	"PayPal-Telegram-bot/internal/services"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

const adminID = 42

type recordingSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (s *recordingSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		s.sent = append(s.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (s *recordingSender) textsTo(chatID int64) []string {
	var out []string
	for _, m := range s.sent {
		if m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

type fixture struct {
	store      *db.Store
	sender     *recordingSender
	dispatcher *bot.Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	engine, err := db.Open(sqlite.Open("file::memory:"), zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := engine.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := db.RunMigrations(engine); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	f := &fixture{store: db.NewStore(engine), sender: &recordingSender{}}
	cfg := &config.Config{Bot: config.BotConfig{AdminIDs: []int64{adminID}}}
	f.dispatcher = bot.NewDispatcher(zap.NewNop())
	New(cfg, f.store, services.NewMessenger(f.sender, zap.NewNop()), zap.NewNop()).Register(f.dispatcher)

	users := f.store.Session(context.Background()).Users()
	for _, id := range []int64{1, 2} {
		if _, err := users.CreateUser(id, "User", nil); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	receipts := f.store.Session(context.Background()).Receipts()
	for _, p := range []db.ReceiptParams{
		{UserID: 1, PaymentID: "PAY-1", ProductName: "Vase", Price: 10.56, Currency: "CAD", Quantity: 1},
		{UserID: 1, PaymentID: "PAY-1", ProductName: "Something <precious>", Price: 3.89, Currency: "CAD", Quantity: 1},
	} {
		if _, err := receipts.CreateReceipt(p); err != nil {
			t.Fatalf("create receipt: %v", err)
		}
	}
	return f
}

func (f *fixture) run(t *testing.T, from int64, text string) {
	t.Helper()
	cmd := strings.Fields(text)[0]
	update := tgbotapi.Update{Message: &tgbotapi.Message{
		From:     &tgbotapi.User{ID: from},
		Chat:     &tgbotapi.Chat{ID: from},
		Text:     text,
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
	if err := f.dispatcher.Dispatch(context.Background(), update); err != nil {
		t.Fatalf("dispatch %q: %v", text, err)
	}
}

func TestNonAdminIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.run(t, 1, "/admin_stats")
	f.run(t, 1, "/admin_broadcast hi")
	if len(f.sender.sent) != 0 {
		t.Errorf("non-admin got replies: %+v", f.sender.sent)
	}
}

func TestAdminStats(t *testing.T) {
	f := newFixture(t)
	f.run(t, adminID, "/admin_stats")
	texts := f.sender.textsTo(adminID)
	if len(texts) != 1 {
		t.Fatalf("replies = %d, want 1", len(texts))
	}
	for _, want := range []string{"Users: 2", "Receipts: 2", "CAD: 14.45 (2)"} {
		if !strings.Contains(texts[0], want) {
			t.Errorf("stats %q does not contain %q", texts[0], want)
		}
	}
}

func TestAdminBroadcast(t *testing.T) {
	f := newFixture(t)
	f.run(t, adminID, "/admin_broadcast Sale <today>")

	for _, id := range []int64{1, 2} {
		texts := f.sender.textsTo(id)
		if len(texts) != 1 || texts[0] != "Sale &lt;today&gt;" {
			t.Errorf("user %d got %v", id, texts)
		}
	}
	texts := f.sender.textsTo(adminID)
	if len(texts) != 1 || !strings.Contains(texts[0], "Delivered to 2 of 2") {
		t.Errorf("admin report = %v", texts)
	}
}

func TestAdminBroadcastUsage(t *testing.T) {
	f := newFixture(t)
	f.run(t, adminID, "/admin_broadcast")
	texts := f.sender.textsTo(adminID)
	if len(texts) != 1 || !strings.HasPrefix(texts[0], "Usage:") {
		t.Errorf("replies = %v", texts)
	}
	if len(f.sender.sent) != 1 {
		t.Errorf("nothing must be broadcast, sent = %d", len(f.sender.sent))
	}
}

func TestAdminReceipts(t *testing.T) {
	f := newFixture(t)
	f.run(t, adminID, "/admin_receipts 1")
	f.run(t, adminID, "/admin_receipts 2")
	f.run(t, adminID, "/admin_receipts abc")

	texts := f.sender.textsTo(adminID)
	if len(texts) != 3 {
		t.Fatalf("replies = %d, want 3", len(texts))
	}
	if !strings.Contains(texts[0], "Vase x1 10.56 CAD (PAY-1)") || !strings.Contains(texts[0], "Something &lt;precious&gt;") {
		t.Errorf("receipts reply = %q", texts[0])
	}
	if texts[1] != "No receipts for user 2" {
		t.Errorf("empty reply = %q", texts[1])
	}
	if !strings.HasPrefix(texts[2], "Usage:") {
		t.Errorf("usage reply = %q", texts[2])
	}
}
