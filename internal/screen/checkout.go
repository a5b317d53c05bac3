package screen

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const Currency = "USD"

// Submitter hands a completed checkout to whatever fulfils orders.
type Submitter interface {
	Submit(ctx context.Context, c domain.CompletedCheckout) error
}

// Checkout is the cart review and order form for one session.
type Checkout struct {
	lifetime
	sessionID string
	cart      *cart.Store
	submitter Submitter
	log       logrus.FieldLogger
	onRender  func()
	form      formState

	mu        sync.Mutex
	draft     domain.CheckoutOrder
	completed bool
}

func NewCheckout(ctx context.Context, sessionID string, c *cart.Store, s Submitter, d Deps) *Checkout {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Checkout{
		lifetime:  newLifetime(ctx),
		sessionID: sessionID,
		cart:      c,
		submitter: s,
		log:       log.WithField("screen", "checkout"),
		onRender:  d.OnRender,
		form:      newFormState(),
		draft:     domain.CheckoutOrder{PaymentMethod: domain.PaymentCash},
	}
}

func (c *Checkout) Lines() []domain.CartLineItem {
	return c.cart.Lines()
}

func (c *Checkout) UpdateQuantity(id string, quantity int) {
	c.cart.UpdateQuantity(id, quantity)
	c.render()
}

func (c *Checkout) RemoveItem(id string) {
	c.cart.RemoveItem(id)
	c.render()
}

// Submit validates the form and the cart, then hands the order to the submitter. On success the cart
// is cleared, the form reset and the order marked completed.
func (c *Checkout) Submit(ctx context.Context, order domain.CheckoutOrder) (domain.CompletedCheckout, error) {
	order = order.Normalize()
	c.setDraft(order)

	err := c.form.begin("", func() error {
		if err := order.Validate(); err != nil {
			return err
		}
		if c.cart.IsEmpty() {
			return domain.NewValidationError("cart", "your cart is empty")
		}
		return nil
	})
	c.render()
	if err != nil {
		return domain.CompletedCheckout{}, err
	}

	done := domain.CompletedCheckout{
		CheckoutID:  uuid.NewString(),
		SessionID:   c.sessionID,
		Order:       order,
		Items:       c.cart.Lines(),
		Total:       c.cart.Total(),
		Currency:    Currency,
		CompletedAt: time.Now().UTC(),
	}

	ctx, cancel := c.bind(ctx)
	defer cancel()

	err = c.submitter.Submit(ctx, done)
	if err != nil {
		c.log.WithError(err).WithField("checkout_id", done.CheckoutID).Error("failed to submit order")
	}
	if c.form.finish(err, "could not place the order, please try again", Notice{Kind: NoticeSuccess, Message: "order placed"}) {
		if err == nil {
			c.cart.Clear()
			c.mu.Lock()
			c.draft = domain.CheckoutOrder{PaymentMethod: domain.PaymentCash}
			c.completed = true
			c.mu.Unlock()
		}
		c.render()
	}
	if err != nil {
		return domain.CompletedCheckout{}, err
	}
	return done, nil
}

// Completed reports whether the last submission went through.
func (c *Checkout) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// StartOver hides the completed order and shows the form again.
func (c *Checkout) StartOver() {
	c.mu.Lock()
	c.completed = false
	c.mu.Unlock()
	c.render()
}

func (c *Checkout) Draft() domain.CheckoutOrder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Checkout) Status() Status {
	return c.form.status()
}

func (c *Checkout) Close() {
	c.form.close()
	c.cancel()
}

func (c *Checkout) setDraft(o domain.CheckoutOrder) {
	c.mu.Lock()
	c.draft = o
	c.mu.Unlock()
}

func (c *Checkout) render() {
	if c.onRender != nil {
		c.onRender()
	}
}
