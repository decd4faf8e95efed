package db

import "time"

// User — пользователь Telegram. user_id задаём сами, не автоинкремент.
type User struct {
	UserID    int64   `gorm:"primaryKey;autoIncrement:false"`
	Username  *string `gorm:"size:128"`
	FullName  string  `gorm:"size:128"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Receipt — одна оплаченная позиция платежа
type Receipt struct {
	ID                 uint   `gorm:"primaryKey"`
	UserID             int64  `gorm:"index"`
	PaymentID          string `gorm:"size:64;index"`
	PayerEmail         string `gorm:"size:128"`
	PayerFirstName     string `gorm:"size:128"`
	PayerLastName      string `gorm:"size:128"`
	ProductName        string `gorm:"size:128"`
	ProductDescription string `gorm:"size:256"`
	Price              float64
	Currency           string `gorm:"size:3"`
	Quantity           int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CurrencyTotal — сумма чеков в одной валюте
type CurrencyTotal struct {
	Currency string
	Total    float64
	Count    int64
}
