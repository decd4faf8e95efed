package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"PayPal-Telegram-bot/internal/db"
	"go.uber.org/zap"
)

// SendReceiptDigest отправляет админам сводку по чекам за период
func SendReceiptDigest(ctx context.Context, store *db.Store, messenger *Messenger, admins []int64, period time.Duration, log *zap.Logger) int {
	if len(admins) == 0 {
		return 0
	}
	totals, err := store.Session(ctx).Receipts().TotalsSince(time.Now().Add(-period))
	if err != nil {
		log.Error("receipt digest query failed", zap.Error(err))
		return 0
	}
	return messenger.Broadcast(ctx, admins, FormatDigest(totals, period), MessageOptions{DisableNotification: true})
}

func FormatDigest(totals []db.CurrencyTotal, period time.Duration) string {
	var count int64
	var sb strings.Builder
	for _, t := range totals {
		count += t.Count
		fmt.Fprintf(&sb, "\n💰 %s: %s (%d)", t.Currency, formatAmount(t.Total), t.Count)
	}
	return fmt.Sprintf("📊 <b>Receipts for the last %s:</b> %d", period, count) + sb.String()
}
