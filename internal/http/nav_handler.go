package http

import (
	"net/http"

	"github.com/fjod/storefront/internal/auth"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/screen"
	"github.com/fjod/storefront/internal/service"
)

type NavHandler struct {
	carts *service.CartService
}

func NewNavHandler(carts *service.CartService) *NavHandler {
	return &NavHandler{carts: carts}
}

// GET /api/v1/nav
func (h *NavHandler) View(w http.ResponseWriter, r *http.Request) {
	session := auth.NewSession()
	if acc, ok := accountFromContext(r.Context()); ok {
		session.SignIn(acc)
	}
	c, err := h.carts.Cart(r.Context(), sessionID(r))
	if err != nil {
		// the bar still renders; only the badge is unknown
		logger.FromContext(r.Context()).WithError(err).Warn("cart badge unavailable")
		c = cart.NewStore()
	}
	nav := screen.NewNavBar(session, c)
	respondJSON(w, r, http.StatusOK, nav.View())
}
