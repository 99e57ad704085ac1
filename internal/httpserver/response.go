package httpserver

import (
	"time"

	"labcommerce/internal/domain"

	"github.com/shopspring/decimal"
)

// Amounts go over the wire as fixed two-decimal strings.
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

type catalogItemResponse struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Category    string `json:"category"`
}

func toCatalogItem(it domain.CatalogItem) catalogItemResponse {
	return catalogItemResponse{
		ID:          it.ID,
		Code:        it.Code,
		Name:        it.Name,
		Description: it.Description,
		Price:       money(it.Price),
		Category:    it.Category,
	}
}

func toCatalogItems(items []domain.CatalogItem) []catalogItemResponse {
	out := make([]catalogItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toCatalogItem(it))
	}
	return out
}

type orderItemResponse struct {
	ID          string `json:"id"`
	ItemID      string `json:"itemId"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	UnitPrice   string `json:"unitPrice"`
	Quantity    int    `json:"quantity"`
	LineTotal   string `json:"lineTotal"`
}

type orderResponse struct {
	ID            string               `json:"id"`
	OrderNumber   string               `json:"orderNumber"`
	OwnerID       string               `json:"ownerId"`
	Status        domain.OrderStatus   `json:"status"`
	Items         []orderItemResponse  `json:"items"`
	Results       []domain.Result      `json:"results,omitempty"`
	Buyer         domain.Buyer         `json:"buyer"`
	Subtotal      string               `json:"subtotal"`
	Fee           string               `json:"fee"`
	Total         string               `json:"total"`
	PaymentStatus domain.PaymentStatus `json:"paymentStatus"`
	PaymentMethod domain.PaymentMethod `json:"paymentMethod"`
	PaidAt        *time.Time           `json:"paidAt,omitempty"`
	TransactionID *string              `json:"transactionId,omitempty"`
	Insurance     *domain.Insurance    `json:"insurance,omitempty"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func toOrder(o domain.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ID:          it.ID,
			ItemID:      it.ItemID,
			Code:        it.Code,
			Name:        it.Name,
			Description: it.Description,
			UnitPrice:   money(it.UnitPrice),
			Quantity:    it.Quantity,
			LineTotal:   money(it.LineTotal),
		})
	}
	return orderResponse{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		OwnerID:       o.OwnerID,
		Status:        o.Status,
		Items:         items,
		Results:       o.Results,
		Buyer:         o.Buyer,
		Subtotal:      money(o.Subtotal),
		Fee:           money(o.Fee),
		Total:         money(o.TotalAmount),
		PaymentStatus: o.PaymentStatus,
		PaymentMethod: o.PaymentMethod,
		PaidAt:        o.PaidAt,
		TransactionID: o.TransactionID,
		Insurance:     o.Insurance,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toOrders(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrder(o))
	}
	return out
}
