package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"

	// SignatureHeader — заголовок с подписью вебхука
	SignatureHeader = "X-Razorpay-Signature"
)

// Order — заказ на стороне шлюза, который оплачивает фронтенд
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// WebhookEvent — интересующая нас часть тела вебхука
type WebhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity PaymentEntity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

type PaymentEntity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Currency         string `json:"currency"`
	Amount           int64  `json:"amount"`
	ErrorDescription string `json:"error_description"`
}

type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay api: status %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL   string
	keyID     string
	keySecret string
	http      *http.Client
}

func New(baseURL, keyID, keySecret string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     keyID,
		keySecret: keySecret,
		http:      &http.Client{Timeout: timeout},
	}
}

// KeyID — публичный ключ, который нужен фронтенду для открытия формы оплаты
func (c *Client) KeyID() string {
	return c.keyID
}

// CreateOrder создаёт заказ шлюза; сумма передаётся в минимальных единицах валюты (пайсы)
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*Order, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   ToMinorUnits(amount),
		"currency": currency,
		"receipt":  receipt,
	})
	if err != nil {
		return nil, errors.Wrap(err, "marshal order")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &APIError{Status: resp.StatusCode, Body: string(raw)}
	}

	var order Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, errors.Wrap(err, "decode order")
	}
	return &order, nil
}

// ToMinorUnits переводит рубли/рупии в копейки/пайсы с округлением
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// VerifySignature сверяет HMAC-SHA256 тела вебхука с подписью из заголовка за постоянное время
func VerifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	expected := Sign(body, secret)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

// Sign считает подпись тела; используется в тестах и инструментах отладки вебхуков
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func ParseWebhookEvent(body []byte) (*WebhookEvent, error) {
	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, errors.Wrap(err, "decode webhook")
	}
	if ev.Event == "" {
		return nil, errors.New("webhook event is empty")
	}
	return &ev, nil
}
