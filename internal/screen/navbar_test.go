package screen

import (
	"testing"

	"github.com/fjod/storefront/internal/auth"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavBar_SignedOut(t *testing.T) {
	n := NewNavBar(auth.NewSession(), cart.NewStore())

	v := n.View()
	assert.Len(t, v.Links, 5)
	assert.Zero(t, v.CartBadge)
	assert.Nil(t, v.Account)
	require.NotNil(t, v.SignIn)
	assert.Equal(t, "/login", v.SignIn.Path)
}

func TestNavBar_SignedInWithCart(t *testing.T) {
	s := auth.NewSession()
	c := cart.NewStore()
	n := NewNavBar(s, c)

	renders := 0
	stop := n.OnChange(func() { renders++ })
	defer stop()

	s.SignIn(domain.Account{UID: "u1", Email: "ann@example.com", Name: "ann"})
	c.AddItem(domain.CartProduct{ID: "p1", UnitPrice: decimal.NewFromInt(1)}, 2)
	c.AddItem(domain.CartProduct{ID: "p2", UnitPrice: decimal.NewFromInt(1)}, 1)

	v := n.View()
	assert.Equal(t, 3, v.CartBadge)
	assert.Nil(t, v.SignIn)
	require.NotNil(t, v.Account)
	assert.Equal(t, "Hello, ann", v.Account.Greeting)
	assert.Equal(t, "A", v.Account.Initial)

	n.SignOut()
	assert.Nil(t, n.View().Account)
	assert.Equal(t, 2, renders)
}

func TestAccountBadge_FallsBackToEmail(t *testing.T) {
	b := accountBadge(domain.Account{Email: "x@example.com"})
	assert.Equal(t, "Hello, x@example.com", b.Greeting)
	assert.Equal(t, "U", b.Initial)
}
