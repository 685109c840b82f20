package courier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Option — предложение одной курьерской службы для посылки
type Option struct {
	CourierID    int64           `json:"courier_company_id"`
	CourierName  string          `json:"courier_name"`
	TotalCharges decimal.Decimal `json:"total_charges"`
	TransitDays  int             `json:"transit_days"`
}

// RateRequest — параметры запроса тарифов
type RateRequest struct {
	PickupPincode   string
	DeliveryPincode string
	WeightKg        float64
	LengthCm        float64
	BreadthCm       float64
	HeightCm        float64
}

type Address struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Line1   string `json:"address"`
	Line2   string `json:"address_2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Pincode string `json:"pincode"`
	Country string `json:"country"`
}

type Package struct {
	WeightKg  float64 `json:"weight"`
	LengthCm  float64 `json:"length"`
	BreadthCm float64 `json:"breadth"`
	HeightCm  float64 `json:"height"`
}

type Item struct {
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Units int             `json:"units"`
	Price decimal.Decimal `json:"selling_price"`
}

// BookingRequest — тело запроса на оформление отправления
type BookingRequest struct {
	OrderReference   string          `json:"order_id"`
	OrderDate        string          `json:"order_date"`
	PaymentMethod    string          `json:"payment_method"`
	Consignee        Address         `json:"shipping_address"`
	Pickup           Address         `json:"pickup_address"`
	Package          Package         `json:"package"`
	Items            []Item          `json:"order_items"`
	CollectableValue decimal.Decimal `json:"collectable_amount"`
	DeclaredValue    decimal.Decimal `json:"sub_total"`
	CourierID        int64           `json:"courier_id,omitempty"`
}

// BookingResult — ответ курьерской службы
type BookingResult struct {
	ShipmentID  string `json:"shipment_id"`
	AWBNumber   string `json:"awb_number"`
	CourierName string `json:"courier_name"`
	LabelURL    string `json:"label_url"`
}

// APIError — неуспешный ответ курьерского API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("courier api: status %d: %s", e.Status, e.Body)
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Serviceability возвращает курьеров, готовых доставить посылку между двумя индексами
func (c *Client) Serviceability(ctx context.Context, req RateRequest) ([]Option, error) {
	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPincode)
	q.Set("delivery_postcode", req.DeliveryPincode)
	q.Set("weight", formatFloat(req.WeightKg))
	q.Set("length", formatFloat(req.LengthCm))
	q.Set("breadth", formatFloat(req.BreadthCm))
	q.Set("height", formatFloat(req.HeightCm))
	q.Set("cod", "0")

	var out struct {
		Data struct {
			Companies []Option `json:"available_courier_companies"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/courier/serviceability?"+q.Encode(), nil, &out); err != nil {
		return nil, errors.Wrap(err, "serviceability")
	}
	return out.Data.Companies, nil
}

func (c *Client) CreateShipment(ctx context.Context, req *BookingRequest) (*BookingResult, error) {
	var out BookingResult
	if err := c.do(ctx, http.MethodPost, "/v1/shipments", req, &out); err != nil {
		return nil, errors.Wrap(err, "create shipment")
	}
	return &out, nil
}

func (c *Client) CancelShipment(ctx context.Context, shipmentID string) error {
	if err := c.do(ctx, http.MethodPost, "/v1/shipments/"+url.PathEscape(shipmentID)+"/cancel", nil, nil); err != nil {
		return errors.Wrap(err, "cancel shipment")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{Status: resp.StatusCode, Body: string(raw)}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(raw, out), "decode response")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
