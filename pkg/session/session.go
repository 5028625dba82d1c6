// Package session holds the process-lifetime record of the authenticated
// user. A Session is constructed and passed to whoever needs identity rather
// than living in a package-level singleton, so tests can run isolated
// sessions in parallel. Nothing is persisted: a restart starts logged out.
package session

import (
	"sync"

	"bookshelf/pkg/domain"
)

// Session is the ephemeral binding of "current user". The zero value is a
// logged-out session.
type Session struct {
	mu        sync.RWMutex
	user      domain.User
	bookLists []domain.BookList
	active    bool
}

// New returns a logged-out session.
func New() *Session {
	return &Session{}
}

// Login binds the session to a user.
func (s *Session) Login(user domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
	s.bookLists = nil
	s.active = true
}

// Logout clears the session.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = domain.User{}
	s.bookLists = nil
	s.active = false
}

// Current returns the logged-in user, if any.
func (s *Session) Current() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.active
}

// IsLoggedIn reports whether a user is bound.
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// UpdateBookLists replaces the cached profile list collection wholesale.
// It is a no-op on a logged-out session.
func (s *Session) UpdateBookLists(lists []domain.BookList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.bookLists = lists
}

// BookLists returns the cached profile list collection.
func (s *Session) BookLists() []domain.BookList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bookLists
}
