package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutOrder_Normalize(t *testing.T) {
	assert.Equal(t, PaymentCash, CheckoutOrder{}.Normalize().PaymentMethod)
	assert.Equal(t, PaymentCard, CheckoutOrder{PaymentMethod: PaymentCard}.Normalize().PaymentMethod)
}

func TestCheckoutOrder_Validate(t *testing.T) {
	complete := CheckoutOrder{Name: "Ann", Phone: "555", Address: "1 Main St", PaymentMethod: PaymentMobile}

	tests := []struct {
		name    string
		mutate  func(o *CheckoutOrder)
		wantErr string
	}{
		{"complete", func(o *CheckoutOrder) {}, ""},
		{"notes are optional", func(o *CheckoutOrder) { o.Notes = "" }, ""},
		{"missing name", func(o *CheckoutOrder) { o.Name = "" }, "please fill in all required fields"},
		{"missing address", func(o *CheckoutOrder) { o.Address = "" }, "please fill in all required fields"},
		{"unknown payment", func(o *CheckoutOrder) { o.PaymentMethod = "barter" }, "unsupported payment method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := complete
			tt.mutate(&o)
			err := o.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrValidation)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestNewCheckoutCompletedEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	price := decimal.RequireFromString("4.50")
	c := CompletedCheckout{
		CheckoutID: "co-1",
		SessionID:  "sess-1",
		Order:      CheckoutOrder{Name: "Ann", Phone: "555", Address: "1 Main St", PaymentMethod: PaymentCash},
		Items: []CartLineItem{
			{ID: "p1", Name: "Tea", UnitPrice: price, Quantity: 2, LineTotal: price.Mul(decimal.NewFromInt(2))},
		},
		Total:       decimal.RequireFromString("9.00"),
		Currency:    "USD",
		CompletedAt: at,
	}

	ev := NewCheckoutCompletedEvent(c)

	assert.Equal(t, "co-1", ev.CheckoutID)
	assert.Equal(t, "sess-1", ev.SessionID)
	assert.Equal(t, "Ann", ev.Buyer.Name)
	require.Len(t, ev.Items, 1)
	assert.Equal(t, EventItem{ProductID: "p1", ProductName: "Tea", Quantity: 2, UnitPrice: price}, ev.Items[0])
	assert.True(t, decimal.RequireFromString("9").Equal(ev.TotalAmount))
	assert.Equal(t, "USD", ev.Currency)
	assert.Equal(t, at, ev.CompletedAt)
}
