package bot

import (
	"crypto/hmac"
	"encoding/json"
	"net/http"

	"github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// WebhookHandler принимает апдейты Telegram: POST /webhook
func WebhookHandler(secret string, d *Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !hmac.Equal([]byte(r.Header.Get(secretTokenHeader)), []byte(secret)) {
			log.Warn("telegram webhook with invalid secret token", zap.String("remote", r.RemoteAddr))
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			log.Error("couldn't decode telegram update", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		// Telegram повторяет доставку при не-2xx, поэтому ошибки обработчика только логируем
		if err := d.Dispatch(r.Context(), update); err != nil {
			log.Error("update handling failed", zap.Int("update_id", update.UpdateID), zap.Error(err))
		}
		w.WriteHeader(http.StatusOK)
	}
}
