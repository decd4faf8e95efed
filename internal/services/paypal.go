package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"PayPal-Telegram-bot/config"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	SandboxBaseURL = "https://api-m.sandbox.paypal.com"
	LiveBaseURL    = "https://api-m.paypal.com"
)

var (
	ErrInvalidConfig   = errors.New("invalid paypal configuration")
	ErrPaymentNotFound = errors.New("payment not found")
)

// APIError — ответ PayPal с кодом ошибки
type APIError struct {
	StatusCode int
	Name       string `json:"name"`
	Message    string `json:"message"`
	DebugID    string `json:"debug_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paypal: %d %s: %s (debug_id=%s)", e.StatusCode, e.Name, e.Message, e.DebugID)
}

func (e *APIError) Is(target error) bool {
	return target == ErrPaymentNotFound && (e.StatusCode == http.StatusNotFound || e.Name == "INVALID_RESOURCE_ID")
}

// Wire-модели PayPal Payments API v1. Суммы и количества PayPal передаёт строками.

type Link struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method,omitempty"`
}

type Item struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	SKU         string `json:"sku,omitempty"`
	Price       string `json:"price"`
	Currency    string `json:"currency"`
	Quantity    string `json:"quantity"`
}

type ItemList struct {
	Items []Item `json:"items"`
}

type Amount struct {
	Total    string `json:"total"`
	Currency string `json:"currency"`
}

type Transaction struct {
	ItemList    *ItemList `json:"item_list,omitempty"`
	Amount      Amount    `json:"amount"`
	Description string    `json:"description,omitempty"`
}

type PayerInfo struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	PayerID   string `json:"payer_id,omitempty"`
}

type Payer struct {
	PaymentMethod string     `json:"payment_method"`
	Status        string     `json:"status,omitempty"`
	PayerInfo     *PayerInfo `json:"payer_info,omitempty"`
}

type RedirectURLs struct {
	ReturnURL string `json:"return_url"`
	CancelURL string `json:"cancel_url"`
}

type Payment struct {
	ID           string        `json:"id,omitempty"`
	Intent       string        `json:"intent"`
	State        string        `json:"state,omitempty"`
	Payer        *Payer        `json:"payer,omitempty"`
	RedirectURLs *RedirectURLs `json:"redirect_urls,omitempty"`
	Transactions []Transaction `json:"transactions"`
	Links        []Link        `json:"links,omitempty"`
}

// ApprovalURL — первая ссылка с rel=approval_url
func (p *Payment) ApprovalURL() (string, bool) {
	for _, l := range p.Links {
		if l.Rel == "approval_url" {
			return l.Href, true
		}
	}
	return "", false
}

// LineItem — позиция заказа в нашей модели
type LineItem struct {
	Name        string
	Description string
	SKU         string
	Price       float64
	Currency    string
	Quantity    int
}

func (i LineItem) Validate() error {
	switch {
	case strings.TrimSpace(i.Name) == "":
		return errors.New("item name is empty")
	case i.Price < 0:
		return fmt.Errorf("item %q: negative price", i.Name)
	case len(i.Currency) != 3:
		return fmt.Errorf("item %q: currency must be a 3-letter code", i.Name)
	case i.Quantity < 1:
		return fmt.Errorf("item %q: quantity must be positive", i.Name)
	}
	return nil
}

func (i LineItem) wire() Item {
	return Item{
		Name:        i.Name,
		Description: i.Description,
		SKU:         i.SKU,
		Price:       formatAmount(i.Price),
		Currency:    i.Currency,
		Quantity:    strconv.Itoa(i.Quantity),
	}
}

// ParseItem переводит позицию из ответа PayPal в LineItem
func ParseItem(it Item) (LineItem, error) {
	price, err := strconv.ParseFloat(it.Price, 64)
	if err != nil {
		return LineItem{}, fmt.Errorf("item %q: bad price %q", it.Name, it.Price)
	}
	qty, err := strconv.Atoi(it.Quantity)
	if err != nil {
		return LineItem{}, fmt.Errorf("item %q: bad quantity %q", it.Name, it.Quantity)
	}
	return LineItem{
		Name:        it.Name,
		Description: it.Description,
		SKU:         it.SKU,
		Price:       price,
		Currency:    it.Currency,
		Quantity:    qty,
	}, nil
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// PaymentRequest — параметры создания платежа
type PaymentRequest struct {
	Intent      string
	ReturnURL   string
	CancelURL   string
	Items       []LineItem
	Total       float64
	Currency    string
	Description string
}

func (r PaymentRequest) Validate() error {
	if r.Intent == "" {
		return errors.New("intent is empty")
	}
	if r.ReturnURL == "" || r.CancelURL == "" {
		return errors.New("redirect urls are required")
	}
	if len(r.Items) == 0 {
		return errors.New("no items")
	}
	for _, it := range r.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	if len(r.Currency) != 3 {
		return errors.New("currency must be a 3-letter code")
	}
	return nil
}

func (r PaymentRequest) wire() Payment {
	items := make([]Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, it.wire())
	}
	return Payment{
		Intent:       r.Intent,
		Payer:        &Payer{PaymentMethod: "paypal"},
		RedirectURLs: &RedirectURLs{ReturnURL: r.ReturnURL, CancelURL: r.CancelURL},
		Transactions: []Transaction{{
			ItemList:    &ItemList{Items: items},
			Amount:      Amount{Total: formatAmount(r.Total), Currency: r.Currency},
			Description: r.Description,
		}},
	}
}

// Gateway — операции платёжного провайдера, которые нужны процессору
type Gateway interface {
	Configure(cfg config.PayPalConfig) error
	CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error)
	FindPayment(ctx context.Context, paymentID string) (*Payment, error)
	ExecutePayment(ctx context.Context, paymentID, payerID string) (*Payment, error)
}

// PayPalClient ходит в REST API PayPal. OAuth2-токен получает и обновляет x/oauth2.
type PayPalClient struct {
	mu      sync.RWMutex
	cfg     config.PayPalConfig
	baseURL string
	http    *http.Client

	// BaseURL переопределяет адрес API (для тестов)
	BaseURL string
	// HTTPClient используется для запросов токена и API
	HTTPClient *http.Client
}

func NewPayPalClient() *PayPalClient {
	return &PayPalClient{HTTPClient: &http.Client{Timeout: 30 * time.Second}}
}

// Configure применяет режим и ключи. С теми же данными — no-op, токен сохраняется.
func (c *PayPalClient) Configure(cfg config.PayPalConfig) error {
	var base string
	switch cfg.Mode {
	case "sandbox":
		base = SandboxBaseURL
	case "live":
		base = LiveBaseURL
	default:
		return fmt.Errorf("%w: mode %q (expected sandbox or live)", ErrInvalidConfig, cfg.Mode)
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return fmt.Errorf("%w: client id and secret are required", ErrInvalidConfig)
	}
	if c.BaseURL != "" {
		base = c.BaseURL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil && c.cfg == cfg {
		return nil
	}
	cc := clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     base + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	hc := c.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
	c.cfg = cfg
	c.baseURL = base
	c.http = cc.Client(ctx)
	c.http.Timeout = hc.Timeout
	return nil
}

func (c *PayPalClient) CreatePayment(ctx context.Context, req PaymentRequest) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodPost, "/v1/payments/payment", req.wire(), &p); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return &p, nil
}

func (c *PayPalClient) FindPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/payment/"+url.PathEscape(paymentID), nil, &p); err != nil {
		return nil, fmt.Errorf("find payment %s: %w", paymentID, err)
	}
	return &p, nil
}

func (c *PayPalClient) ExecutePayment(ctx context.Context, paymentID, payerID string) (*Payment, error) {
	body := map[string]string{"payer_id": payerID}
	var p Payment
	path := "/v1/payments/payment/" + url.PathEscape(paymentID) + "/execute"
	if err := c.do(ctx, http.MethodPost, path, body, &p); err != nil {
		return nil, fmt.Errorf("execute payment %s: %w", paymentID, err)
	}
	return &p, nil
}

func (c *PayPalClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	c.mu.RLock()
	base, client := c.baseURL, c.http
	c.mu.RUnlock()
	if client == nil {
		return fmt.Errorf("%w: client is not configured", ErrInvalidConfig)
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("PayPal-Request-Id", uuid.NewString())
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, apiErr)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
