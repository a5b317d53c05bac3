package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ErrCartUnavailable is returned when the cart storage cannot be read or written.
var ErrCartUnavailable = errors.New("cart storage unavailable")

// CartService serves session carts from the cache. Nothing is kept in process: every call reads the
// stored lines, so instances sharing a cache see each other's writes and expired carts cost no memory.
type CartService struct {
	cache cache.CartCache
	log   logrus.FieldLogger
	sfg   singleflight.Group // Prevents cache stampede
}

func NewCartService(c cache.CartCache, log logrus.FieldLogger) *CartService {
	return &CartService{
		cache: c,
		log:   log,
	}
}

// Cart returns a store holding the session's current lines. A session without a stored cart gets an
// empty store. The store is a snapshot; changes to it are persisted only through the service.
func (s *CartService) Cart(ctx context.Context, sessionID string) (*cart.Store, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		lines, err := s.cache.Get(ctx, sessionID)
		if errors.Is(err, cache.ErrCacheMiss) {
			return []domain.CartLineItem(nil), nil
		}
		if err != nil {
			s.log.WithError(err).WithField("session_id", sessionID).Error("cache get error")
			return nil, fmt.Errorf("%w: %w", ErrCartUnavailable, err)
		}
		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return cart.FromLines(v.([]domain.CartLineItem)), nil
}

func (s *CartService) AddItem(ctx context.Context, sessionID string, p domain.CartProduct, quantity int) (*cart.Store, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Store) { c.AddItem(p, quantity) })
}

func (s *CartService) UpdateQuantity(ctx context.Context, sessionID, productID string, quantity int) (*cart.Store, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Store) { c.UpdateQuantity(productID, quantity) })
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (*cart.Store, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Store) { c.RemoveItem(productID) })
}

func (s *CartService) Clear(ctx context.Context, sessionID string) (*cart.Store, error) {
	return s.mutate(ctx, sessionID, func(c *cart.Store) { c.Clear() })
}

// mutate applies fn to the stored cart atomically. On failure nothing is written.
func (s *CartService) mutate(ctx context.Context, sessionID string, fn func(*cart.Store)) (*cart.Store, error) {
	var store *cart.Store
	_, err := s.cache.Update(ctx, sessionID, func(lines []domain.CartLineItem) []domain.CartLineItem {
		store = cart.FromLines(lines)
		fn(store)
		return store.Lines()
	})
	if err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Error("cache update error")
		return nil, fmt.Errorf("%w: %w", ErrCartUnavailable, err)
	}
	return store, nil
}

// Drop forgets a session's cart after a checkout completed.
func (s *CartService) Drop(ctx context.Context, sessionID string) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Error("cache delete error")
		return fmt.Errorf("%w: %w", ErrCartUnavailable, err)
	}
	return nil
}
