package admin

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"PayPal-Telegram-bot/config"
	"PayPal-Telegram-bot/internal/bot"
	"PayPal-Telegram-bot/internal/db"
	"PayPal-Telegram-bot/internal/logger"
	"PayPal-Telegram-bot/internal/services"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	statsPeriod     = 30 * 24 * time.Hour
	receiptsPerUser = 10
)

// Admin — команды администратора
type Admin struct {
	cfg       *config.Config
	store     *db.Store
	messenger *services.Messenger
	log       *zap.Logger
	now       func() time.Time
}

func New(cfg *config.Config, store *db.Store, messenger *services.Messenger, log *zap.Logger) *Admin {
	return &Admin{cfg: cfg, store: store, messenger: messenger, log: log, now: time.Now}
}

func (a *Admin) Register(d *bot.Dispatcher) {
	d.Command("admin_stats", a.adminOnly(a.handleStats))
	d.Command("admin_broadcast", a.adminOnly(a.handleBroadcast))
	d.Command("admin_receipts", a.adminOnly(a.handleReceipts))
}

// adminOnly молча игнорирует команду от не-админа и пишет admin_action для админа
func (a *Admin) adminOnly(next func(ctx context.Context, msg *tgbotapi.Message) error) bot.HandlerFunc {
	return func(ctx context.Context, update tgbotapi.Update) error {
		msg := update.Message
		if msg == nil || msg.From == nil || !a.cfg.IsAdmin(msg.From.ID) {
			return nil
		}
		logger.LogAdminAction(a.log, msg.From.ID, msg.Command(), msg.CommandArguments())
		return next(ctx, msg)
	}
}

func (a *Admin) reply(ctx context.Context, msg *tgbotapi.Message, text string) {
	a.messenger.SendMessage(ctx, msg.From.ID, text, services.MessageOptions{})
}

func (a *Admin) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	session := a.store.Session(ctx)
	users, err := session.Users().Count()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	receipts, err := session.Receipts().Count()
	if err != nil {
		return fmt.Errorf("count receipts: %w", err)
	}
	totals, err := session.Receipts().TotalsSince(a.now().Add(-statsPeriod))
	if err != nil {
		return fmt.Errorf("receipt totals: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "👥 Users: %d\n🧾 Receipts: %d\n", users, receipts)
	if len(totals) == 0 {
		sb.WriteString("💰 No payments in the last 30 days")
	} else {
		sb.WriteString("💰 Last 30 days:")
		for _, t := range totals {
			fmt.Fprintf(&sb, "\n%s: %.2f (%d)", t.Currency, t.Total, t.Count)
		}
	}
	a.reply(ctx, msg, sb.String())
	return nil
}

func (a *Admin) handleBroadcast(ctx context.Context, msg *tgbotapi.Message) error {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		a.reply(ctx, msg, "Usage: /admin_broadcast &lt;text&gt;")
		return nil
	}
	ids, err := a.store.Session(ctx).Users().ListIDs()
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	count := a.messenger.Broadcast(ctx, ids, html.EscapeString(text), services.MessageOptions{})
	a.reply(ctx, msg, fmt.Sprintf("📨 Delivered to %d of %d users", count, len(ids)))
	return nil
}

func (a *Admin) handleReceipts(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.TrimSpace(msg.CommandArguments())
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		a.reply(ctx, msg, "Usage: /admin_receipts &lt;user_id&gt;")
		return nil
	}
	receipts, err := a.store.Session(ctx).Receipts().ListByUser(userID, receiptsPerUser)
	if err != nil {
		return fmt.Errorf("list receipts of %d: %w", userID, err)
	}
	a.reply(ctx, msg, formatReceipts(userID, receipts))
	return nil
}

func formatReceipts(userID int64, receipts []db.Receipt) string {
	if len(receipts) == 0 {
		return fmt.Sprintf("No receipts for user %d", userID)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 <b>Receipts of %d:</b>", userID)
	for _, r := range receipts {
		fmt.Fprintf(&sb, "\n#%d %s %s x%d %.2f %s (%s)",
			r.ID,
			r.CreatedAt.Format("02.01.2006 15:04"),
			html.EscapeString(r.ProductName),
			r.Quantity,
			r.Price,
			r.Currency,
			html.EscapeString(r.PaymentID),
		)
	}
	return sb.String()
}
