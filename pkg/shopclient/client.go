package shopclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sacredheart/pharmacy_shop/pkg/cart"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type CustomerInfo struct {
	Name            string
	Phone           string
	Email           string
	DeliveryType    string
	DeliveryAddress string
	PrescriptionID  string
	Notes           string
}

type PlaceOrderRequest struct {
	CustomerName    string              `json:"customer_name"`
	CustomerPhone   string              `json:"customer_phone"`
	CustomerEmail   string              `json:"customer_email,omitempty"`
	DeliveryType    string              `json:"delivery_type"`
	DeliveryAddress string              `json:"delivery_address,omitempty"`
	PrescriptionID  string              `json:"prescription_id,omitempty"`
	Notes           string              `json:"notes,omitempty"`
	Items           []cart.SnapshotItem `json:"items"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	DeliveryFee     decimal.Decimal     `json:"delivery_fee"`
	Total           decimal.Decimal     `json:"total"`
}

type Order struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"order_number"`
	Status      string          `json:"status"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
}

func (c *Client) PlaceOrder(ctx context.Context, order PlaceOrderRequest) (*Order, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, fmt.Errorf("encode order: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+"/api/v1/orders",
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Message != "" {
			return nil, fmt.Errorf("order rejected: %s", e.Message)
		}
		return nil, fmt.Errorf("order failed with status: %d", resp.StatusCode)
	}

	var result Order
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &result, nil
}

// Checkout submits the cart's current snapshot and clears the cart only
// after the server accepts the order.
func (c *Client) Checkout(ctx context.Context, m *cart.Manager, info CustomerInfo) (*Order, error) {
	snapshot := m.Snapshot(info.DeliveryType)

	order, err := c.PlaceOrder(ctx, PlaceOrderRequest{
		CustomerName:    info.Name,
		CustomerPhone:   info.Phone,
		CustomerEmail:   info.Email,
		DeliveryType:    info.DeliveryType,
		DeliveryAddress: info.DeliveryAddress,
		PrescriptionID:  info.PrescriptionID,
		Notes:           info.Notes,
		Items:           snapshot.Items,
		Subtotal:        snapshot.Subtotal,
		DeliveryFee:     snapshot.DeliveryFee,
		Total:           snapshot.Total,
	})
	if err != nil {
		return nil, err
	}

	if err := m.Clear(); err != nil {
		return order, fmt.Errorf("order placed but cart not cleared: %w", err)
	}
	return order, nil
}
