package cache

import (
	"context"
	"errors"

	"github.com/fjod/storefront/internal/domain"
)

// CartCache persists the lines of a session's cart between requests.
type CartCache interface {
	Get(ctx context.Context, sessionID string) ([]domain.CartLineItem, error)
	Set(ctx context.Context, sessionID string, lines []domain.CartLineItem) error
	Delete(ctx context.Context, sessionID string) error
	// Update reads the stored lines (none on a miss), applies fn and writes the result back atomically.
	Update(ctx context.Context, sessionID string, fn func([]domain.CartLineItem) []domain.CartLineItem) ([]domain.CartLineItem, error)
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrConflict is returned when concurrent writers kept changing the cart during Update.
	ErrConflict = errors.New("cart changed concurrently")
)
