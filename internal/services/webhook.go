package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"

	"PayPal-Telegram-bot/internal/db"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	textPaymentSuccessful = "Payment successful!"
	textPaymentCancelled  = "Payment cancelled."
	textMissingParams     = "Missing paymentId or PayerID."
	textInvalidUser       = "Missing or invalid user_id."
	textPaymentLocked     = "Payment is already being processed."
	textPaymentNotFound   = "Payment not found."
	textPaymentFailed     = "Payment failed or cancelled."
	textMissingPayerData  = "Missing payer information or transactions."
	textProcessingError   = "An error occurred while processing the payment."
)

var errMissingPayerData = errors.New("missing payer information or transactions")

// paymentDetails — данные выполненного платежа, нужные для чеков
type paymentDetails struct {
	paymentID   string
	payer       PayerInfo
	description string
	total       Amount
	items       []LineItem
}

func extractDetails(p *Payment) (*paymentDetails, error) {
	if p.Payer == nil || len(p.Transactions) == 0 {
		return nil, errMissingPayerData
	}
	if p.Payer.PayerInfo == nil {
		return nil, errors.New("payer_info is missing")
	}
	tr := p.Transactions[0]
	if tr.ItemList == nil {
		return nil, errors.New("item_list is missing")
	}
	d := &paymentDetails{
		paymentID:   p.ID,
		payer:       *p.Payer.PayerInfo,
		description: tr.Description,
		total:       tr.Amount,
	}
	for _, it := range tr.ItemList.Items {
		item, err := ParseItem(it)
		if err != nil {
			return nil, err
		}
		d.items = append(d.items, item)
	}
	return d, nil
}

func respond(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(text))
}

// CheckPayment обрабатывает возврат пользователя с PayPal: GET /payment/success
func (p *Processor) CheckPayment(w http.ResponseWriter, r *http.Request) {
	log := p.log.With(zap.String("trace_id", uuid.NewString()))
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("panic while processing payment", zap.Any("panic", rec), zap.Stack("stack"))
			p.notifier.NotifyAdmin(fmt.Sprintf("Panic in CheckPayment: %v", rec))
			respond(w, http.StatusInternalServerError, textProcessingError)
		}
	}()

	q := r.URL.Query()
	paymentID, payerID := q.Get("paymentId"), q.Get("PayerID")
	if paymentID == "" || payerID == "" {
		log.Warn("payment callback without paymentId or PayerID", zap.String("query", r.URL.RawQuery))
		respond(w, http.StatusBadRequest, textMissingParams)
		return
	}
	userID, err := strconv.ParseInt(q.Get("user_id"), 10, 64)
	if err != nil {
		log.Warn("payment callback with bad user_id", zap.String("user_id", q.Get("user_id")))
		respond(w, http.StatusBadRequest, textInvalidUser)
		return
	}
	log = log.With(zap.String("payment_id", paymentID), zap.Int64("user_id", userID))
	status, text := p.completePayment(r.Context(), log, paymentID, payerID, userID)
	respond(w, status, text)
}

func (p *Processor) completePayment(ctx context.Context, log *zap.Logger, paymentID, payerID string, userID int64) (int, string) {
	if !p.Configuration() {
		return http.StatusInternalServerError, textProcessingError
	}

	release, err := p.lock.Acquire(ctx, paymentID)
	if errors.Is(err, ErrPaymentLocked) {
		log.Warn("duplicate payment callback in flight")
		return http.StatusConflict, textPaymentLocked
	}
	if err != nil {
		log.Error("payment lock failed", zap.Error(err))
		return http.StatusInternalServerError, textProcessingError
	}
	defer release()

	recorded, err := p.store.Session(ctx).Receipts().ExistsForPayment(paymentID)
	if err != nil {
		log.Error("receipt lookup failed", zap.Error(err))
		return http.StatusInternalServerError, textProcessingError
	}
	if recorded {
		log.Info("payment already recorded, skipping execution")
		return http.StatusOK, textPaymentSuccessful
	}

	payment, err := p.gateway.FindPayment(ctx, paymentID)
	if errors.Is(err, ErrPaymentNotFound) {
		log.Error("payment not found", zap.Error(err))
		return http.StatusNotFound, textPaymentNotFound
	}
	if err != nil {
		log.Error("payment lookup failed", zap.Error(err))
		return http.StatusInternalServerError, textProcessingError
	}

	executed, err := p.gateway.ExecutePayment(ctx, payment.ID, payerID)
	if err != nil {
		log.Error("payment execution failed", zap.Error(err))
		return http.StatusBadRequest, textPaymentFailed
	}
	if executed.ID == "" {
		executed.ID = paymentID
	}

	details, err := extractDetails(executed)
	if errors.Is(err, errMissingPayerData) {
		log.Error("executed payment has no payer or transactions")
		return http.StatusBadRequest, textMissingPayerData
	}
	if err != nil {
		log.Error("couldn't read executed payment", zap.Error(err))
		return http.StatusInternalServerError, textProcessingError
	}

	receiptIDs, err := p.recordReceipts(ctx, userID, details)
	if err != nil {
		log.Error("couldn't record receipts, nothing was saved", zap.Error(err))
		p.notifier.NotifyAdmin(fmt.Sprintf("Payment %s of user %d executed but receipts were not saved: %v", paymentID, userID, err))
		return http.StatusInternalServerError, textProcessingError
	}
	log.Info("payment executed successfully", zap.Uints("receipt_ids", receiptIDs))

	if !p.messenger.SendMessage(ctx, userID, formatPaymentDetails(details), MessageOptions{}) {
		log.Warn("payment confirmation was not delivered")
	}
	return http.StatusOK, textPaymentSuccessful
}

// recordReceipts пишет чек на каждую позицию в одной транзакции и возвращает id записанных чеков
func (p *Processor) recordReceipts(ctx context.Context, userID int64, d *paymentDetails) ([]uint, error) {
	var ids []uint
	err := p.store.Transaction(ctx, func(tx *db.Distributor) error {
		ids = ids[:0]
		for _, item := range d.items {
			receipt, err := tx.Receipts().CreateReceipt(db.ReceiptParams{
				UserID:             userID,
				PaymentID:          d.paymentID,
				PayerEmail:         d.payer.Email,
				PayerFirstName:     d.payer.FirstName,
				PayerLastName:      d.payer.LastName,
				ProductName:        item.Name,
				ProductDescription: d.description,
				Price:              item.Price,
				Currency:           item.Currency,
				Quantity:           item.Quantity,
			})
			if err != nil {
				return err
			}
			ids = append(ids, receipt.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func formatPaymentDetails(d *paymentDetails) string {
	e := html.EscapeString
	var sb strings.Builder
	sb.WriteString("🎉 Congratulations! Payment has been received successfully!\n\n")
	sb.WriteString("Here's your payment details:\n\n")
	sb.WriteString("<i>Personal information:</i>\n")
	fmt.Fprintf(&sb, "📩 <b>Email:</b> %s\n", e(d.payer.Email))
	fmt.Fprintf(&sb, "1️⃣ <b>First name:</b> %s\n", e(d.payer.FirstName))
	fmt.Fprintf(&sb, "2️⃣ <b>Last Name:</b> %s\n\n", e(d.payer.LastName))
	sb.WriteString("<i>PRODUCTS</i>")
	for _, it := range d.items {
		sb.WriteString("\n\n<i>Product information:</i>\n")
		fmt.Fprintf(&sb, "🔍 <b>Product:</b> %s\n", e(it.Name))
		fmt.Fprintf(&sb, "💰 <b>Price:</b> $%s\n", formatAmount(it.Price))
		fmt.Fprintf(&sb, "💲 <b>Currency:</b> %s\n", e(it.Currency))
		fmt.Fprintf(&sb, "🔢 <b>Quantity:</b> %d\n", it.Quantity)
		fmt.Fprintf(&sb, "✏️ <b>Description:</b> %s", e(it.Description))
	}
	fmt.Fprintf(&sb, "\n\n<b>TOTAL:</b> $%s %s", e(d.total.Total), e(d.total.Currency))
	return sb.String()
}

// CancelPayment — пользователь отменил оплату на стороне PayPal: GET /payment/fail
func (p *Processor) CancelPayment(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		respond(w, http.StatusBadRequest, textInvalidUser)
		return
	}
	p.log.Info("payment cancelled by user", zap.Int64("user_id", userID), zap.String("token", r.URL.Query().Get("token")))
	p.messenger.SendMessage(r.Context(), userID, "❌ Payment was cancelled. Use /test_payment to try again.", MessageOptions{})
	respond(w, http.StatusOK, textPaymentCancelled)
}
