package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrPaymentLocked — этот платёж уже обрабатывается другим запросом
var ErrPaymentLocked = errors.New("payment is already being processed")

const paymentLockTTL = 2 * time.Minute

// PaymentLock не даёт двум callback'ам одного платежа выполняться одновременно
type PaymentLock interface {
	Acquire(ctx context.Context, paymentID string) (release func(), err error)
}

type MemoryLock struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{active: make(map[string]struct{})}
}

func (l *MemoryLock) Acquire(_ context.Context, paymentID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[paymentID]; busy {
		return nil, ErrPaymentLocked
	}
	l.active[paymentID] = struct{}{}
	return func() {
		l.mu.Lock()
		delete(l.active, paymentID)
		l.mu.Unlock()
	}, nil
}

// RedisLock — то же самое, но общее для нескольких инстансов бота
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client, ttl: paymentLockTTL}
}

func (l *RedisLock) Acquire(ctx context.Context, paymentID string) (func(), error) {
	key := "paypal:payment:" + paymentID
	ok, err := l.client.SetNX(ctx, key, time.Now().Unix(), l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", paymentID, err)
	}
	if !ok {
		return nil, ErrPaymentLocked
	}
	return func() {
		l.client.Del(context.Background(), key)
	}, nil
}
