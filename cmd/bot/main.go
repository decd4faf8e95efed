package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PayPal-Telegram-bot/config"
	"PayPal-Telegram-bot/internal/admin"
	"PayPal-Telegram-bot/internal/bot"
	"PayPal-Telegram-bot/internal/db"
	"PayPal-Telegram-bot/internal/logger"
	"PayPal-Telegram-bot/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	envPath := flag.String("env", ".env", "path to .env file")
	flag.Parse()

	cfg, err := config.Load(*envPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	engine, err := db.CreateEngine(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.RunMigrations(engine); err != nil {
		zlog.Fatal("failed to run migrations", zap.Error(err))
	}
	store := db.NewStore(engine)

	botapi, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		zlog.Fatal("failed to create bot", zap.Error(err))
	}
	zlog.Info("authorized on telegram", zap.String("username", botapi.Self.UserName))

	var lock services.PaymentLock = services.NewMemoryLock()
	if cfg.Bot.UseRedis {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zlog.Fatal("failed to connect to redis", zap.Error(err), zap.String("addr", cfg.Redis.Addr))
		}
		lock = services.NewRedisLock(rdb)
	}

	notifier := logger.NewNotifier(botapi, cfg.Bot.AdminIDs, zlog)
	messenger := services.NewMessenger(botapi, zlog)
	processor := services.NewProcessor(cfg.PayPal, services.NewPayPalClient(), store, messenger, lock, notifier, zlog)
	if !processor.Configuration() {
		zlog.Warn("paypal is not configured, payments will fail until the configuration is fixed")
	}

	dispatcher := bot.NewDispatcher(zlog)
	dispatcher.Use(
		bot.RecoverMiddleware(notifier, zlog),
		bot.LoggingMiddleware(zlog),
		bot.PaymentMiddleware(processor),
		bot.SessionMiddleware(store),
		bot.RateLimitMiddleware(bot.NewRateLimiter(), cfg.IsAdmin, messenger),
	)
	bot.NewHandlers(cfg, processor, messenger, zlog).Register(dispatcher)
	admin.New(cfg, store, messenger, zlog).Register(dispatcher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Сводка по чекам для админов раз в сутки в 09:00
	c := cron.New()
	if _, err := c.AddFunc("0 9 * * *", func() {
		defer notifier.NotifyOnPanic("receipt digest")
		services.SendReceiptDigest(ctx, store, messenger, cfg.Bot.AdminIDs, 24*time.Hour, zlog)
	}); err != nil {
		zlog.Fatal("failed to schedule receipt digest", zap.Error(err))
	}
	c.Start()

	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Post("/webhook", bot.WebhookHandler(cfg.Webhook.Secret, dispatcher, zlog))
	router.Get("/payment/success", processor.CheckPayment)
	router.Get("/payment/fail", processor.CancelPayment)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.Webhook.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		zlog.Info("starting webhook server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Error("webhook server error", zap.Error(err))
			notifier.NotifyAdmin("Webhook server stopped: " + err.Error())
			stop()
		}
	}()

	bot.OnStartup(ctx, botapi, cfg, messenger, zlog)

	<-ctx.Done()
	zlog.Info("shutting down")

	bot.OnShutdown(botapi, zlog)
	<-c.Stop().Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("webhook server shutdown failed", zap.Error(err))
	}
}
