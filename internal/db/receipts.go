package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceiptSession struct {
	tx *gorm.DB
}

// ReceiptParams — поля чека по одной позиции платежа
type ReceiptParams struct {
	UserID             int64
	PaymentID          string
	PayerEmail         string
	PayerFirstName     string
	PayerLastName      string
	ProductName        string
	ProductDescription string
	Price              float64
	Currency           string
	Quantity           int
}

// CreateReceipt — upsert по первичному ключу. id не передаётся, поэтому обычно это новая строка.
func (s *ReceiptSession) CreateReceipt(p ReceiptParams) (*Receipt, error) {
	receipt := Receipt{
		UserID:             p.UserID,
		PaymentID:          p.PaymentID,
		PayerEmail:         p.PayerEmail,
		PayerFirstName:     p.PayerFirstName,
		PayerLastName:      p.PayerLastName,
		ProductName:        p.ProductName,
		ProductDescription: p.ProductDescription,
		Price:              p.Price,
		Currency:           p.Currency,
		Quantity:           p.Quantity,
	}
	err := s.tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&receipt).Error
	if err != nil {
		return nil, fmt.Errorf("create receipt for user %d: %w", p.UserID, err)
	}
	return &receipt, nil
}

// ExistsForPayment — были ли уже записаны чеки по этому платежу
func (s *ReceiptSession) ExistsForPayment(paymentID string) (bool, error) {
	var count int64
	err := s.tx.Model(&Receipt{}).Where("payment_id = ?", paymentID).Count(&count).Error
	return count > 0, err
}

func (s *ReceiptSession) Count() (int64, error) {
	var count int64
	err := s.tx.Model(&Receipt{}).Count(&count).Error
	return count, err
}

func (s *ReceiptSession) ListByUser(userID int64, limit int) ([]Receipt, error) {
	var receipts []Receipt
	err := s.tx.Where("user_id = ?", userID).Order("id desc").Limit(limit).Find(&receipts).Error
	return receipts, err
}

// TotalsSince суммирует price*quantity по валютам начиная с from
func (s *ReceiptSession) TotalsSince(from time.Time) ([]CurrencyTotal, error) {
	var totals []CurrencyTotal
	err := s.tx.Model(&Receipt{}).
		Select("currency, sum(price * quantity) as total, count(*) as count").
		Where("created_at >= ?", from).
		Group("currency").
		Order("currency").
		Scan(&totals).Error
	return totals, err
}
