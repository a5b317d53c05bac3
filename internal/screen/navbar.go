package screen

import (
	"strings"
	"unicode/utf8"

	"github.com/fjod/storefront/internal/auth"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
)

type NavLink struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// AccountBadge is shown instead of the sign-in link while someone is signed in.
type AccountBadge struct {
	Greeting string `json:"greeting"`
	PhotoURL string `json:"photo_url,omitempty"`
	// Initial stands in for a missing photo.
	Initial string `json:"initial"`
}

type NavView struct {
	Links []NavLink `json:"links"`
	// CartBadge is the number of units in the cart; zero hides the badge.
	CartBadge int           `json:"cart_badge"`
	Account   *AccountBadge `json:"account,omitempty"`
	SignIn    *NavLink      `json:"sign_in,omitempty"`
}

type NavBar struct {
	session *auth.Session
	cart    *cart.Store
}

func NewNavBar(session *auth.Session, c *cart.Store) *NavBar {
	return &NavBar{session: session, cart: c}
}

var navLinks = []NavLink{
	{Label: "Home", Path: "/"},
	{Label: "Users", Path: "/users"},
	{Label: "Posts", Path: "/posts"},
	{Label: "Products", Path: "/products"},
	{Label: "Cart", Path: "/cart"},
}

func (n *NavBar) View() NavView {
	v := NavView{
		Links:     append([]NavLink(nil), navLinks...),
		CartBadge: n.cart.ItemCount(),
	}
	if acc := n.session.Current(); acc != nil {
		v.Account = accountBadge(*acc)
	} else {
		v.SignIn = &NavLink{Label: "Sign in", Path: "/login"}
	}
	return v
}

func (n *NavBar) SignOut() {
	n.session.SignOut()
}

// OnChange re-renders the bar on sign-in and sign-out. The returned func stops it.
func (n *NavBar) OnChange(fn func()) func() {
	return n.session.OnChange(func(*domain.Account) { fn() })
}

func accountBadge(acc domain.Account) *AccountBadge {
	name := acc.Name
	if name == "" {
		name = acc.Email
	}
	initial := "U"
	if r, _ := utf8.DecodeRuneInString(acc.Name); r != utf8.RuneError {
		initial = strings.ToUpper(string(r))
	}
	return &AccountBadge{Greeting: "Hello, " + name, PhotoURL: acc.PhotoURL, Initial: initial}
}
