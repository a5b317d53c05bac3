package domain

import "github.com/shopspring/decimal"

// CartLineItem is one product in a cart together with its requested quantity.
type CartLineItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartProduct is what the catalog hands to the cart when a product is added.
type CartProduct struct {
	ID        string
	Name      string
	ImageURL  string
	UnitPrice decimal.Decimal
}
