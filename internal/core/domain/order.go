// internal/core/domain/order.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// OrderMeta carries the caller-supplied checkout fields.
type OrderMeta struct {
	Address     string          `json:"address,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Note        string          `json:"note,omitempty"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// Validate checks the checkout fields.
func (m *OrderMeta) Validate() error {
	if m.DeliveryFee.IsNegative() {
		return fmt.Errorf("delivery_fee cannot be negative")
	}
	return nil
}

// Order is the persisted order header. Line items are stored separately and
// written after the header; a header must never outlive a failed line write.
type Order struct {
	ID          uuid.UUID       `json:"id"`
	UserID      string          `json:"user_id"`
	Status      OrderStatus     `json:"status"`
	Address     string          `json:"address,omitempty"`
	Phone       string          `json:"phone,omitempty"`
	Note        string          `json:"note,omitempty"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Total       decimal.Decimal `json:"total"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderLine is one persisted line item of an order. It keeps the name, size
// name and unit price as they were at purchase time so history survives menu
// edits.
type OrderLine struct {
	OrderID   uuid.UUID       `json:"order_id"`
	ItemID    uuid.UUID       `json:"item_id"`
	SizeID    string          `json:"size_id,omitempty"`
	SizeName  string          `json:"size_name,omitempty"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// NewOrder builds an order header from the cart state and checkout meta.
// The total is the cart total plus the delivery fee.
func NewOrder(userID string, cartTotal decimal.Decimal, meta OrderMeta, now time.Time) *Order {
	return &Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      OrderStatusPending,
		Address:     meta.Address,
		Phone:       meta.Phone,
		Note:        meta.Note,
		DeliveryFee: meta.DeliveryFee,
		Total:       cartTotal.Add(meta.DeliveryFee),
		CreatedAt:   now,
	}
}

// OrderLinesFromCart projects cart lines into order lines for the given header.
func OrderLinesFromCart(orderID uuid.UUID, lines []CartLine) []OrderLine {
	out := make([]OrderLine, 0, len(lines))
	for _, l := range lines {
		ol := OrderLine{
			OrderID:   orderID,
			ItemID:    l.ItemID,
			SizeID:    l.SizeID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
		}
		if l.Size != nil {
			ol.SizeName = l.Size.Name
		}
		out = append(out, ol)
	}
	return out
}
