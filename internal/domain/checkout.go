package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentMobile PaymentMethod = "mobile"
)

// CheckoutOrder is the buyer form captured at checkout. It is never stored.
type CheckoutOrder struct {
	Name          string        `json:"name"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes,omitempty"`
}

// Normalize fills the default payment method.
func (o CheckoutOrder) Normalize() CheckoutOrder {
	if o.PaymentMethod == "" {
		o.PaymentMethod = PaymentCash
	}
	return o
}

func (o CheckoutOrder) Validate() error {
	if o.Name == "" || o.Phone == "" || o.Address == "" {
		return NewValidationError("order", "please fill in all required fields")
	}
	switch o.PaymentMethod {
	case PaymentCash, PaymentCard, PaymentMobile:
	default:
		return NewValidationError("payment_method", "unsupported payment method")
	}
	return nil
}

// CompletedCheckout is what a submitter receives once the form and cart are accepted.
type CompletedCheckout struct {
	CheckoutID  string
	SessionID   string
	Order       CheckoutOrder
	Items       []CartLineItem
	Total       decimal.Decimal
	Currency    string
	CompletedAt time.Time
}

// CheckoutCompletedEvent is published on the checkout topic once an order is accepted.
type CheckoutCompletedEvent struct {
	CheckoutID  string          `json:"checkout_id"`
	SessionID   string          `json:"session_id"`
	Buyer       CheckoutOrder   `json:"buyer"`
	Items       []EventItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
	CompletedAt time.Time       `json:"completed_at"`
}

type EventItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func NewCheckoutCompletedEvent(c CompletedCheckout) CheckoutCompletedEvent {
	items := make([]EventItem, 0, len(c.Items))
	for _, line := range c.Items {
		items = append(items, EventItem{
			ProductID:   line.ID,
			ProductName: line.Name,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}
	return CheckoutCompletedEvent{
		CheckoutID:  c.CheckoutID,
		SessionID:   c.SessionID,
		Buyer:       c.Order,
		Items:       items,
		TotalAmount: c.Total,
		Currency:    c.Currency,
		CompletedAt: c.CompletedAt,
	}
}
