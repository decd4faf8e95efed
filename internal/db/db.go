package db

import (
	"context"
	"fmt"
	"time"

	"PayPal-Telegram-bot/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	poolSize    = 20
	maxOverflow = 200
)

// CreateEngine открывает пул соединений с Postgres
func CreateEngine(cfg config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	engine, err := Open(postgres.Open(cfg.DSN()), log)
	if err != nil {
		return nil, err
	}
	sqlDB, err := engine.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxIdleConns(poolSize)
	sqlDB.SetMaxOpenConns(poolSize + maxOverflow)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)
	return engine, nil
}

// Open подключается через произвольный диалект (в тестах — sqlite)
func Open(dialector gorm.Dialector, log *zap.Logger) (*gorm.DB, error) {
	dbLogger := gormlogger.New(
		zap.NewStdLog(log.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
	engine, err := gorm.Open(dialector, &gorm.Config{Logger: dbLogger})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return engine, nil
}

// RunMigrations создаёт таблицы, если их ещё нет
func RunMigrations(engine *gorm.DB) error {
	if err := engine.AutoMigrate(&User{}, &Receipt{}); err != nil {
		return fmt.Errorf("migrate db: %w", err)
	}
	return nil
}

// Store — фабрика сессий поверх пула
type Store struct {
	db *gorm.DB
}

func NewStore(engine *gorm.DB) *Store {
	return &Store{db: engine}
}

// Session открывает единицу работы; каждая команда коммитится сама
func (s *Store) Session(ctx context.Context) *Distributor {
	return &Distributor{tx: s.db.WithContext(ctx)}
}

// Transaction выполняет fn в одной транзакции: либо всё, либо ничего
func (s *Store) Transaction(ctx context.Context, fn func(d *Distributor) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Distributor{tx: tx})
	})
}

// Distributor раздаёт команды над сущностями в рамках одной сессии
type Distributor struct {
	tx *gorm.DB
}

func (d *Distributor) Users() *UserSession {
	return &UserSession{tx: d.tx}
}

func (d *Distributor) Receipts() *ReceiptSession {
	return &ReceiptSession{tx: d.tx}
}

type distributorKey struct{}

// WithDistributor кладёт сессию в контекст обработки апдейта
func WithDistributor(ctx context.Context, d *Distributor) context.Context {
	return context.WithValue(ctx, distributorKey{}, d)
}

func DistributorFrom(ctx context.Context) (*Distributor, bool) {
	d, ok := ctx.Value(distributorKey{}).(*Distributor)
	return d, ok
}
