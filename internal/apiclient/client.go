// Package apiclient talks to the lab API on behalf of cartctl.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"labcommerce/internal/domain"

	"github.com/shopspring/decimal"
)

// Client is a thin JSON client for the public and patient endpoints.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type catalogItem struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
}

func (it catalogItem) toDomain() domain.CatalogItem {
	return domain.CatalogItem{
		ID:          it.ID,
		Code:        it.Code,
		Name:        it.Name,
		Description: it.Description,
		Price:       it.Price,
		Category:    it.Category,
	}
}

// ListCatalog returns catalog items, optionally filtered by category.
func (c *Client) ListCatalog(ctx context.Context, category string) ([]domain.CatalogItem, error) {
	path := "/catalog"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var body struct {
		Items []catalogItem `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &body); err != nil {
		return nil, err
	}
	out := make([]domain.CatalogItem, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, it.toDomain())
	}
	return out, nil
}

func (c *Client) GetCatalogItem(ctx context.Context, id string) (*domain.CatalogItem, error) {
	var it catalogItem
	if err := c.do(ctx, http.MethodGet, "/catalog/"+url.PathEscape(id), nil, nil, &it); err != nil {
		return nil, err
	}
	out := it.toDomain()
	return &out, nil
}

// CheckoutRequest mirrors the POST /orders body.
type CheckoutRequest struct {
	Items          []domain.CheckoutLine `json:"items"`
	Buyer          domain.Buyer          `json:"buyer"`
	PaymentPath    domain.PaymentPath    `json:"paymentPath"`
	PaymentMethod  domain.PaymentMethod  `json:"paymentMethod,omitempty"`
	Insurance      *domain.Insurance     `json:"insurance,omitempty"`
	IdempotencyKey string                `json:"-"`
}

type orderItem struct {
	ID        string          `json:"id"`
	ItemID    string          `json:"itemId"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type order struct {
	ID            string               `json:"id"`
	OrderNumber   string               `json:"orderNumber"`
	OwnerID       string               `json:"ownerId"`
	Status        domain.OrderStatus   `json:"status"`
	Items         []orderItem          `json:"items"`
	Buyer         domain.Buyer         `json:"buyer"`
	Subtotal      decimal.Decimal      `json:"subtotal"`
	Fee           decimal.Decimal      `json:"fee"`
	Total         decimal.Decimal      `json:"total"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	CreatedAt     time.Time            `json:"createdAt"`
}

func (o order) toDomain() *domain.Order {
	items := make([]domain.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, domain.OrderItem{
			ID:        it.ID,
			OrderID:   o.ID,
			ItemID:    it.ItemID,
			Code:      it.Code,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: it.LineTotal,
		})
	}
	return &domain.Order{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		OwnerID:       o.OwnerID,
		Status:        o.Status,
		Items:         items,
		Buyer:         o.Buyer,
		Subtotal:      o.Subtotal,
		Fee:           o.Fee,
		TotalAmount:   o.Total,
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
	}
}

// Checkout submits an order. The key, when set, is sent as Idempotency-Key.
func (c *Client) Checkout(ctx context.Context, req CheckoutRequest) (*domain.Order, error) {
	var headers map[string]string
	if req.IdempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": req.IdempotencyKey}
	}
	var o order
	if err := c.do(ctx, http.MethodPost, "/orders", req, headers, &o); err != nil {
		return nil, err
	}
	return o.toDomain(), nil
}

type errorBody struct {
	Error      string   `json:"error"`
	Fields     []string `json:"fields"`
	UnknownIDs []string `json:"unknownIds"`
}

// do sends a JSON request and decodes the response into out.
// Error statuses come back as the matching domain error.
func (c *Client) do(ctx context.Context, method, path string, in any, headers map[string]string, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var eb errorBody
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb)
	msg := eb.Error
	if msg == "" {
		msg = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return &domain.ValidationError{Msg: msg, Fields: eb.Fields, IDs: eb.UnknownIDs}
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrForbidden, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", domain.ErrInvalidTransition, msg)
	}
	return fmt.Errorf("api error: %s", msg)
}
