package screen

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	got  []domain.CompletedCheckout
	err  error
	wait bool
}

func (r *recordingSubmitter) Submit(ctx context.Context, c domain.CompletedCheckout) error {
	if r.wait {
		<-ctx.Done()
		return ctx.Err()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, c)
	return nil
}

func filledCart() *cart.Store {
	c := cart.NewStore()
	c.AddItem(domain.CartProduct{ID: "p1", Name: "Mug", UnitPrice: decimal.NewFromInt(10)}, 2)
	c.AddItem(domain.CartProduct{ID: "p2", Name: "Pan", UnitPrice: decimal.RequireFromString("4.25")}, 1)
	return c
}

var validOrder = domain.CheckoutOrder{Name: "Ann", Phone: "555", Address: "1 Main St"}

func TestCheckout_Success(t *testing.T) {
	d, _ := testDeps(t)
	c := filledCart()
	sub := &recordingSubmitter{}
	co := NewCheckout(context.Background(), "sess-1", c, sub, d)
	defer co.Close()

	done, err := co.Submit(context.Background(), validOrder)
	require.NoError(t, err)

	assert.NotEmpty(t, done.CheckoutID)
	assert.Equal(t, "sess-1", done.SessionID)
	assert.Equal(t, domain.PaymentCash, done.Order.PaymentMethod)
	assert.Len(t, done.Items, 2)
	assert.True(t, done.Total.Equal(decimal.RequireFromString("24.25")), done.Total.String())
	assert.Equal(t, Currency, done.Currency)

	require.Len(t, sub.got, 1)
	assert.Equal(t, done.CheckoutID, sub.got[0].CheckoutID)

	assert.True(t, c.IsEmpty())
	assert.True(t, co.Completed())
	assert.Equal(t, domain.CheckoutOrder{PaymentMethod: domain.PaymentCash}, co.Draft())
	assert.Equal(t, NoticeSuccess, co.Status().Notice.Kind)

	co.StartOver()
	assert.False(t, co.Completed())
}

func TestCheckout_RequiredFields(t *testing.T) {
	d, _ := testDeps(t)
	c := filledCart()
	sub := &recordingSubmitter{}
	co := NewCheckout(context.Background(), "sess-1", c, sub, d)
	defer co.Close()

	_, err := co.Submit(context.Background(), domain.CheckoutOrder{Name: "Ann", Address: "x"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "please fill in all required fields", co.Status().Error)
	assert.Equal(t, "Ann", co.Draft().Name)
	assert.Empty(t, sub.got)
	assert.False(t, c.IsEmpty())
}

func TestCheckout_EmptyCartRejected(t *testing.T) {
	d, _ := testDeps(t)
	co := NewCheckout(context.Background(), "sess-1", cart.NewStore(), &recordingSubmitter{}, d)
	defer co.Close()

	_, err := co.Submit(context.Background(), validOrder)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "your cart is empty", co.Status().Error)
}

func TestCheckout_SubmitterFailureKeepsCart(t *testing.T) {
	d, hook := testDeps(t)
	c := filledCart()
	co := NewCheckout(context.Background(), "sess-1", c, &recordingSubmitter{err: errors.New("broker down")}, d)
	defer co.Close()

	_, err := co.Submit(context.Background(), validOrder)
	assert.Error(t, err)
	assert.Equal(t, PhaseIdle, co.Status().Phase)
	assert.Equal(t, "could not place the order, please try again", co.Status().Error)
	assert.Equal(t, 3, c.ItemCount())
	assert.False(t, co.Completed())
	assert.Equal(t, "failed to submit order", hook.LastEntry().Message)
}

func TestCheckout_CartEdits(t *testing.T) {
	d, _ := testDeps(t)
	rendered := 0
	d.OnRender = func() { rendered++ }
	c := filledCart()
	co := NewCheckout(context.Background(), "sess-1", c, &recordingSubmitter{}, d)
	defer co.Close()

	co.UpdateQuantity("p1", 0)
	assert.Equal(t, 2, co.Lines()[0].Quantity)
	co.UpdateQuantity("p1", 4)
	assert.Equal(t, 4, co.Lines()[0].Quantity)
	co.RemoveItem("p2")
	assert.Len(t, co.Lines(), 1)
	assert.Equal(t, 3, rendered)
}

func TestCheckout_CloseCancelsSubmission(t *testing.T) {
	d, _ := testDeps(t)
	c := filledCart()
	co := NewCheckout(context.Background(), "sess-1", c, &recordingSubmitter{wait: true}, d)

	result := make(chan error, 1)
	go func() {
		_, err := co.Submit(context.Background(), validOrder)
		result <- err
	}()
	require.Eventually(t, func() bool { return co.Status().Phase == PhaseSubmitting }, time.Second, 5*time.Millisecond)
	co.Close()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("submission was not cancelled")
	}
	assert.False(t, c.IsEmpty())
	assert.False(t, co.Completed())
}
