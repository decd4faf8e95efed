package services

import (
	"context"

	"go.uber.org/zap"
)

// Broadcast рассылает text по списку пользователей последовательно, с паузой между отправками.
// Возвращает число успешно доставленных сообщений.
func (m *Messenger) Broadcast(ctx context.Context, users []int64, text string, opts MessageOptions) (count int) {
	defer func() {
		m.log.Info("broadcast finished", zap.Int("sent", count), zap.Int("total", len(users)))
	}()
	for i, userID := range users {
		if ctx.Err() != nil {
			return count
		}
		if m.SendMessage(ctx, userID, text, opts) {
			count++
		}
		if i < len(users)-1 {
			if err := m.sleep(ctx, m.delay); err != nil {
				return count
			}
		}
	}
	return count
}
