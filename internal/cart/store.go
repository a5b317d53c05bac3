// Package cart holds the in-memory cart of one shopping session.
package cart

import (
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

// Store keeps at most one line per product identity, in the order products were first added.
// Every mutation is applied synchronously and is visible to the next read.
type Store struct {
	mu    sync.RWMutex
	lines []domain.CartLineItem
}

func NewStore() *Store {
	return &Store{}
}

// FromLines rebuilds a store from persisted lines, merging duplicate identities and recomputing totals.
func FromLines(lines []domain.CartLineItem) *Store {
	s := NewStore()
	for _, l := range lines {
		s.AddItem(domain.CartProduct{
			ID:        l.ID,
			Name:      l.Name,
			ImageURL:  l.ImageURL,
			UnitPrice: l.UnitPrice,
		}, l.Quantity)
	}
	return s
}

// AddItem appends a new line or, when the product is already in the cart, adds quantity to it.
// Quantities below 1 and empty identities are ignored; the caller validates input.
func (s *Store) AddItem(p domain.CartProduct, quantity int) {
	if quantity < 1 || p.ID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(p.ID); i >= 0 {
		line := &s.lines[i]
		line.Quantity += quantity
		line.LineTotal = lineTotal(line.UnitPrice, line.Quantity)
		return
	}
	s.lines = append(s.lines, domain.CartLineItem{
		ID:        p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: p.UnitPrice,
		Quantity:  quantity,
		LineTotal: lineTotal(p.UnitPrice, quantity),
	})
}

// UpdateQuantity sets the quantity of the matching line. A quantity below 1 is a no-op:
// the line is kept unchanged, it is not removed.
func (s *Store) UpdateQuantity(id string, quantity int) {
	if quantity < 1 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.lines[i].Quantity = quantity
		s.lines[i].LineTotal = lineTotal(s.lines[i].UnitPrice, quantity)
	}
}

func (s *Store) RemoveItem(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = nil
}

// Total is the sum of all line totals; an empty cart totals zero.
func (s *Store) Total() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, l := range s.lines {
		total = total.Add(l.LineTotal)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, l := range s.lines {
		n += l.Quantity
	}
	return n
}

// Lines returns a copy of the current lines.
func (s *Store) Lines() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CartLineItem, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Line(id string) (domain.CartLineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.lines[i], true
	}
	return domain.CartLineItem{}, false
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines) == 0
}

func (s *Store) indexOf(id string) int {
	for i := range s.lines {
		if s.lines[i].ID == id {
			return i
		}
	}
	return -1
}

func lineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
