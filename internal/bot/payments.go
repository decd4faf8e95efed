package bot

import (
	"context"
	"fmt"

	"PayPal-Telegram-bot/internal/services"
)

// PaymentSender создаёт платёж и отправляет ссылку (*services.Processor)
type PaymentSender interface {
	SendPayment(ctx context.Context, userID int64, req services.PaymentRequest, text string) (bool, error)
}

// demoPaymentRequest — тестовый платёж из двух позиций для /test_payment
func demoPaymentRequest(baseURL string, userID int64) services.PaymentRequest {
	return services.PaymentRequest{
		Intent:    "sale",
		ReturnURL: fmt.Sprintf("%s/payment/success?user_id=%d", baseURL, userID),
		CancelURL: fmt.Sprintf("%s/payment/fail?user_id=%d", baseURL, userID),
		Items: []services.LineItem{
			{
				Name:        "Something precious",
				Description: "This precious item is really rare...",
				SKU:         "Yes",
				Price:       3.89,
				Currency:    "CAD",
				Quantity:    1,
			},
			{
				Name:        "Vase",
				Description: "The Vase of the president of the USA",
				SKU:         "Really good vase",
				Price:       10.56,
				Currency:    "CAD",
				Quantity:    1,
			},
		},
		Total:       14.45,
		Currency:    "CAD",
		Description: "Simple description of the payment...",
	}
}
