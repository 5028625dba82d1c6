package session

import (
	"testing"

	"bookshelf/pkg/domain"
)

func TestLoginLogoutRoundTrip(t *testing.T) {
	s := New()
	if s.IsLoggedIn() {
		t.Fatalf("fresh session must start logged out")
	}
	if _, ok := s.Current(); ok {
		t.Fatalf("no current user expected before login")
	}

	s.Login(domain.User{ID: "u1", Username: "ada"})
	if !s.IsLoggedIn() {
		t.Fatalf("expected logged-in session")
	}
	user, ok := s.Current()
	if !ok || user.ID != "u1" {
		t.Fatalf("unexpected current user: %+v ok=%v", user, ok)
	}

	s.Logout()
	if s.IsLoggedIn() {
		t.Fatalf("logout must clear the session")
	}
	if user, ok := s.Current(); ok || user.ID != "" {
		t.Fatalf("expected empty user after logout, got %+v", user)
	}
}

func TestUpdateBookListsReplacesWholesale(t *testing.T) {
	s := New()
	s.Login(domain.User{ID: "u1"})

	s.UpdateBookLists([]domain.BookList{{ID: "l1"}, {ID: "l2"}})
	s.UpdateBookLists([]domain.BookList{{ID: "l3"}})

	lists := s.BookLists()
	if len(lists) != 1 || lists[0].ID != "l3" {
		t.Fatalf("expected replacement, not merge: %+v", lists)
	}
}

func TestUpdateBookListsIgnoredWhenLoggedOut(t *testing.T) {
	s := New()
	s.UpdateBookLists([]domain.BookList{{ID: "l1"}})
	if got := s.BookLists(); got != nil {
		t.Fatalf("logged-out session must not hold lists, got %+v", got)
	}
}
