package bot

import (
	"context"

	"PayPal-Telegram-bot/config"
	"PayPal-Telegram-bot/internal/services"
	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// API — часть *tgbotapi.BotAPI, нужная при старте и остановке
type API interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Commands — меню команд бота
var Commands = []tgbotapi.BotCommand{
	{Command: "test_payment", Description: "Perform test payment."},
}

// OnStartup регистрирует webhook, приветствует админов и выставляет меню команд
func OnStartup(ctx context.Context, api API, cfg *config.Config, messenger *services.Messenger, log *zap.Logger) {
	params := tgbotapi.Params{}
	params["url"] = cfg.Webhook.BaseURL + "/webhook"
	params.AddNonEmpty("secret_token", cfg.Webhook.Secret)
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		log.Error("failed to set webhook", zap.Error(err))
	} else {
		log.Info("webhook set", zap.String("url", params["url"]))
	}

	messenger.Broadcast(ctx, cfg.Bot.AdminIDs, "👋 Hello, admin! Your bot has been started successfully.", services.MessageOptions{})

	if _, err := api.Request(tgbotapi.NewSetMyCommands(Commands...)); err != nil {
		log.Error("failed to set bot commands", zap.Error(err))
	}
}

// OnShutdown снимает webhook и сбрасывает накопившиеся апдейты
func OnShutdown(api API, log *zap.Logger) {
	log.Info("deleting webhook and dropping all pending updates")
	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true}); err != nil {
		log.Error("failed to delete webhook", zap.Error(err))
		return
	}
	log.Info("webhook has been deleted")
}
