package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookshelf/pkg/domain"
)

// MemoryStore keeps the catalog in-process. It backs tests and local
// development; the mutex mirrors the unique indexes the Postgres store
// enforces.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]domain.User
	emails    map[string]string // email -> user ID
	usernames map[string]string // username -> user ID
	books     map[string]domain.Book
	bookOrder []string
	lists     map[string]domain.BookList // stored without member books
	listOrder []string
	access    map[string]map[string]struct{} // list ID -> linked user IDs
	items     map[string][]string            // list ID -> book IDs in insertion order
	reviews   map[reviewKey]domain.Review
}

type reviewKey struct {
	userID string
	bookID string
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]domain.User),
		emails:    make(map[string]string),
		usernames: make(map[string]string),
		books:     make(map[string]domain.Book),
		lists:     make(map[string]domain.BookList),
		access:    make(map[string]map[string]struct{}),
		items:     make(map[string][]string),
		reviews:   make(map[reviewKey]domain.Review),
	}
}

// SeedBook loads a catalog book. Books are seeded out-of-band in production;
// this is the test/dev equivalent.
func (m *MemoryStore) SeedBook(b domain.Book) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[b.ID]; !exists {
		m.bookOrder = append(m.bookOrder, b.ID)
	}
	b.Reviews = nil
	m.books[b.ID] = b
}

// InsertUser registers a user, rejecting duplicate email or username.
func (m *MemoryStore) InsertUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, taken := m.emails[u.Email]; taken {
		return fmt.Errorf("insert user: email %q already exists", u.Email)
	}
	if _, taken := m.usernames[u.Username]; taken {
		return fmt.Errorf("insert user: username %q already exists", u.Username)
	}
	m.users[u.ID] = u
	m.emails[u.Email] = u.ID
	m.usernames[u.Username] = u.ID
	return nil
}

// HasUserEmail checks if email exists.
func (m *MemoryStore) HasUserEmail(_ context.Context, email string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.emails[email]
	return ok, nil
}

// HasUsername checks if username exists.
func (m *MemoryStore) HasUsername(_ context.Context, username string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.usernames[username]
	return ok, nil
}

// GetUserByEmail looks up a user by email.
func (m *MemoryStore) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.emails[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

// GetUserByID returns a user by ID.
func (m *MemoryStore) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ListBooks returns the catalog in seed order.
func (m *MemoryStore) ListBooks(_ context.Context) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Book, 0, len(m.bookOrder))
	for _, id := range m.bookOrder {
		if b, ok := m.books[id]; ok {
			res = append(res, b)
		}
	}
	return res, nil
}

// GetBookWithReviews returns a book with its reviews and reviewer usernames.
func (m *MemoryStore) GetBookWithReviews(_ context.Context, id string) (domain.Book, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[id]
	if !ok {
		return domain.Book{}, false, nil
	}
	b.Reviews = nil
	for key, review := range m.reviews {
		if key.bookID != id {
			continue
		}
		if user, exists := m.users[review.UserID]; exists {
			review.Username = user.Username
		}
		b.Reviews = append(b.Reviews, review)
	}
	return b, true, nil
}

// ListsByUser returns lists linked to the user, without member books.
func (m *MemoryStore) ListsByUser(_ context.Context, userID string) ([]domain.BookList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.BookList, 0)
	for _, listID := range m.listOrder {
		if _, linked := m.access[listID][userID]; !linked {
			continue
		}
		if list, ok := m.lists[listID]; ok {
			res = append(res, list)
		}
	}
	return res, nil
}

// BooksByList returns member books in insertion order.
func (m *MemoryStore) BooksByList(_ context.Context, listID string) ([]domain.Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.items[listID]
	res := make([]domain.Book, 0, len(ids))
	for _, bookID := range ids {
		if b, ok := m.books[bookID]; ok {
			res = append(res, b)
		}
	}
	return res, nil
}

// GetList returns one list row.
func (m *MemoryStore) GetList(_ context.Context, id string) (domain.BookList, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list, ok := m.lists[id]
	return list, ok, nil
}

// HasListName checks name uniqueness per creator.
func (m *MemoryStore) HasListName(_ context.Context, creatorID, name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, list := range m.lists {
		if list.CreatorID == creatorID && list.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// InsertList creates the list row plus the creator's access linkage.
func (m *MemoryStore) InsertList(_ context.Context, list domain.BookList) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.lists {
		if existing.CreatorID == list.CreatorID && existing.Name == list.Name {
			return fmt.Errorf("insert list: name %q already exists for creator", list.Name)
		}
	}
	list.Books = nil
	m.lists[list.ID] = list
	m.listOrder = append(m.listOrder, list.ID)
	m.access[list.ID] = map[string]struct{}{list.CreatorID: {}}
	return nil
}

// DeleteList drops linkage, membership, and the list row.
func (m *MemoryStore) DeleteList(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, id)
	delete(m.access, id)
	delete(m.items, id)
	filtered := m.listOrder[:0]
	for _, listID := range m.listOrder {
		if listID != id {
			filtered = append(filtered, listID)
		}
	}
	m.listOrder = filtered
	return nil
}

// AddListItem records membership; duplicates are ignored.
func (m *MemoryStore) AddListItem(_ context.Context, listID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.items[listID] {
		if existing == bookID {
			return nil
		}
	}
	m.items[listID] = append(m.items[listID], bookID)
	return nil
}

// RemoveListItem deletes the membership row.
func (m *MemoryStore) RemoveListItem(_ context.Context, listID, bookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := m.items[listID]
	filtered := ids[:0]
	for _, existing := range ids {
		if existing != bookID {
			filtered = append(filtered, existing)
		}
	}
	m.items[listID] = filtered
	return nil
}

// UpsertReview inserts or overwrites the (user, book) review.
func (m *MemoryStore) UpsertReview(_ context.Context, review domain.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := reviewKey{userID: review.UserID, bookID: review.BookID}
	if existing, ok := m.reviews[key]; ok {
		existing.Rating = review.Rating
		existing.Text = review.Text
		existing.CreatedAt = review.CreatedAt
		m.reviews[key] = existing
		return nil
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	m.reviews[key] = review
	return nil
}

// GetUserReview returns one user's review of one book, if any.
func (m *MemoryStore) GetUserReview(_ context.Context, bookID, userID string) (domain.Review, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	review, ok := m.reviews[reviewKey{userID: userID, bookID: bookID}]
	return review, ok, nil
}
