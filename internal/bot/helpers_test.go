package bot

import (
	"sync"
	"testing"

	"PayPal-Telegram-bot/internal/db"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
)

// recordingSender запоминает все отправленные сообщения
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

func newTestStore(t *testing.T) *db.Store {
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
	return db.NewStore(engine)
}
