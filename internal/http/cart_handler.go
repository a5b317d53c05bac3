package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/metrics"
	"github.com/fjod/storefront/internal/repository"
	"github.com/fjod/storefront/internal/screen"
	"github.com/fjod/storefront/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// maxLineQuantity bounds the quantity of one cart line set through the API.
const maxLineQuantity = 99

type CartHandler struct {
	carts     *service.CartService
	products  repository.DocumentStore
	submitter screen.Submitter
	metrics   *metrics.ServerMetrics
	timeout   time.Duration
}

func NewCartHandler(
	carts *service.CartService,
	products repository.DocumentStore,
	submitter screen.Submitter,
	m *metrics.ServerMetrics,
	timeout time.Duration,
) *CartHandler {
	return &CartHandler{
		carts:     carts,
		products:  products,
		submitter: submitter,
		metrics:   m,
		timeout:   timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity int `json:"quantity"`
}

type CartResponseDTO struct {
	SessionID string                `json:"session_id"`
	Items     []domain.CartLineItem `json:"items"`
	ItemCount int                   `json:"item_count"`
	Total     decimal.Decimal       `json:"total"`
	Currency  string                `json:"currency"`
}

type CheckoutResponseDTO struct {
	CheckoutID string          `json:"checkout_id"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
}

func cartResponse(sessionID string, c *cart.Store) CartResponseDTO {
	return CartResponseDTO{
		SessionID: sessionID,
		Items:     c.Lines(),
		ItemCount: c.ItemCount(),
		Total:     c.Total(),
		Currency:  screen.Currency,
	}
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sid := sessionID(r)
	c, err := h.carts.Cart(ctx, sid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(sid, c))
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID == "" {
		respondError(w, r, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity <= 0 || req.Quantity > maxLineQuantity {
		respondError(w, r, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	doc, err := h.products.Get(ctx, domain.ProductsCollection, req.ProductID)
	if err != nil {
		handleError(w, r, err)
		return
	}
	var product domain.Product
	if err := doc.Decode(&product); err != nil {
		handleError(w, r, err)
		return
	}

	sid := sessionID(r)
	c, err := h.carts.AddItem(ctx, sid, product.CartProduct(), req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, cartResponse(sid, c))
}

// PUT /api/v1/cart/items/{id}. A quantity below one leaves the line as it is; above 99 is rejected.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.Quantity > maxLineQuantity {
		respondError(w, r, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	sid := sessionID(r)
	id := chi.URLParam(r, "id")
	current, err := h.carts.Cart(ctx, sid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if _, ok := current.Line(id); !ok {
		respondError(w, r, http.StatusNotFound, "not_found", "item is not in the cart")
		return
	}

	c, err := h.carts.UpdateQuantity(ctx, sid, id, req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(sid, c))
}

// DELETE /api/v1/cart/items/{id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sid := sessionID(r)
	c, err := h.carts.RemoveItem(ctx, sid, chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(sid, c))
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sid := sessionID(r)
	c, err := h.carts.Clear(ctx, sid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, cartResponse(sid, c))
}

// POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var order domain.CheckoutOrder
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	sid := sessionID(r)
	log := logger.FromContext(ctx)
	c, err := h.carts.Cart(ctx, sid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	co := screen.NewCheckout(ctx, sid, c, h.submitter, screen.Deps{Log: log})
	defer co.Close()

	done, err := co.Submit(ctx, order)
	if err != nil {
		h.metrics.Checkouts.WithLabelValues("failed").Inc()
		handleError(w, r, err)
		return
	}
	h.metrics.Checkouts.WithLabelValues("completed").Inc()

	// the order is placed; a stale stored cart is only logged, the poller drops it too when Kafka is on
	if err := h.carts.Drop(ctx, sid); err != nil {
		log.WithError(err).Warn("checked-out cart not dropped")
	}

	respondJSON(w, r, http.StatusCreated, CheckoutResponseDTO{
		CheckoutID: done.CheckoutID,
		Status:     "COMPLETED",
		Total:      done.Total,
		Currency:   done.Currency,
	})
}
