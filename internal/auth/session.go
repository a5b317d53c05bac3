package auth

import (
	"sync"

	"github.com/fjod/storefront/internal/domain"
)

// Session holds the signed-in account, if any, and tells listeners when it changes.
type Session struct {
	mu        sync.RWMutex
	current   *domain.Account
	nextID    int
	listeners map[int]func(*domain.Account)
}

func NewSession() *Session {
	return &Session{listeners: make(map[int]func(*domain.Account))}
}

func (s *Session) SignIn(acc domain.Account) {
	s.set(&acc)
}

func (s *Session) SignOut() {
	s.set(nil)
}

// Current returns a copy of the signed-in account, or nil.
func (s *Session) Current() *domain.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	acc := *s.current
	return &acc
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current != nil
}

// OnChange registers fn for sign-in and sign-out events and returns a function that removes it.
func (s *Session) OnChange(fn func(*domain.Account)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) set(acc *domain.Account) {
	s.mu.Lock()
	s.current = acc
	fns := make([]func(*domain.Account), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(s.Current())
	}
}
