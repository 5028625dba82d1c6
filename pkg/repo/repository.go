package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bookshelf/pkg/domain"
	"bookshelf/pkg/store"
)

var (
	// ErrBookNotFound is returned when no book row matches the requested id.
	ErrBookNotFound = errors.New("book not found")
	// ErrListNotFound is returned when no list row matches the requested id.
	ErrListNotFound = errors.New("list not found")
	// ErrListNameRequired is returned when a list is created with a blank name.
	ErrListNameRequired = errors.New("list name required")
	// ErrDuplicateListName is returned before inserting a list whose name the
	// creator already uses.
	ErrDuplicateListName = errors.New("list name already exists")
	// ErrNotListOwner is returned when a delete is attempted by anyone but the
	// list's creator. The list is left untouched.
	ErrNotListOwner = errors.New("only the list creator may delete it")
)

// Repository is the single point of access for list, book, and review data.
// It owns the process-local list cache; every mutating operation clears the
// whole cache. Gateway failures pass through unwrapped semantics-wise: no
// retries, callers translate.
type Repository struct {
	store store.Store
	cache ListCache
}

// New constructs a Repository over a gateway store and a list cache.
func New(s store.Store, cache ListCache) *Repository {
	return &Repository{store: s, cache: cache}
}

// GetUserBookLists returns the user's lists with member books nested. A
// cached snapshot is returned as-is; on a miss the lists are fetched once and
// each list's books are fetched concurrently, then the assembled result is
// cached under the user id. Concurrent callers during a miss each fetch.
func (r *Repository) GetUserBookLists(ctx context.Context, userID string) ([]domain.BookList, error) {
	if lists, ok := r.cache.Get(userID); ok {
		return lists, nil
	}
	lists, err := r.store.ListsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch lists: %w", err)
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range lists {
		i := i
		g.Go(func() error {
			books, err := r.store.BooksByList(gctx, lists[i].ID)
			if err != nil {
				return fmt.Errorf("fetch books for list %s: %w", lists[i].ID, err)
			}
			lists[i].Books = books
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.cache.Put(userID, lists)
	return lists, nil
}

// GetBookByID returns one book with its reviews, each carrying the reviewing
// user's display name.
func (r *Repository) GetBookByID(ctx context.Context, id string) (domain.Book, error) {
	book, ok, err := r.store.GetBookWithReviews(ctx, id)
	if err != nil {
		return domain.Book{}, fmt.Errorf("fetch book: %w", err)
	}
	if !ok {
		return domain.Book{}, ErrBookNotFound
	}
	return book, nil
}

// ListBooks returns the whole catalog.
func (r *Repository) ListBooks(ctx context.Context) ([]domain.Book, error) {
	return r.store.ListBooks(ctx)
}

// SaveReview upserts the review keyed on (user id, book id): a first save
// inserts, later saves overwrite rating, text, and timestamp. The list cache
// is left alone; embedded review data refreshes when the book is re-fetched.
func (r *Repository) SaveReview(ctx context.Context, review domain.Review) error {
	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if err := r.store.UpsertReview(ctx, review); err != nil {
		return fmt.Errorf("save review: %w", err)
	}
	return nil
}

// GetUserReview returns the caller's existing review of a book, if any.
func (r *Repository) GetUserReview(ctx context.Context, bookID, userID string) (domain.Review, bool, error) {
	return r.store.GetUserReview(ctx, bookID, userID)
}

// CreateBookList creates an empty list owned by userID. The name must be
// unique among the creator's lists; the pre-check raises the conflict before
// any insert, and the storage layer's unique index settles the race.
func (r *Repository) CreateBookList(ctx context.Context, userID, name string) (domain.BookList, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.BookList{}, ErrListNameRequired
	}
	taken, err := r.store.HasListName(ctx, userID, name)
	if err != nil {
		return domain.BookList{}, fmt.Errorf("check list name: %w", err)
	}
	if taken {
		return domain.BookList{}, ErrDuplicateListName
	}
	list := domain.BookList{
		ID:        uuid.NewString(),
		Name:      name,
		CreatorID: userID,
		Books:     []domain.Book{},
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.InsertList(ctx, list); err != nil {
		return domain.BookList{}, fmt.Errorf("insert list: %w", err)
	}
	r.cache.InvalidateAll()
	return list, nil
}

// DeleteBookList deletes a list after verifying actingUserID is its creator.
// A non-owner gets ErrNotListOwner and the list survives.
func (r *Repository) DeleteBookList(ctx context.Context, listID, actingUserID string) error {
	list, ok, err := r.store.GetList(ctx, listID)
	if err != nil {
		return fmt.Errorf("fetch list: %w", err)
	}
	if !ok {
		return ErrListNotFound
	}
	if list.CreatorID != actingUserID {
		return ErrNotListOwner
	}
	if err := r.store.DeleteList(ctx, listID); err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	r.cache.InvalidateAll()
	return nil
}

// AddBookToList records membership of a book in a list.
func (r *Repository) AddBookToList(ctx context.Context, listID, bookID string) error {
	if err := r.store.AddListItem(ctx, listID, bookID); err != nil {
		return fmt.Errorf("add book to list: %w", err)
	}
	r.cache.InvalidateAll()
	return nil
}

// RemoveBookFromList deletes the single membership row.
func (r *Repository) RemoveBookFromList(ctx context.Context, listID, bookID string) error {
	if err := r.store.RemoveListItem(ctx, listID, bookID); err != nil {
		return fmt.Errorf("remove book from list: %w", err)
	}
	r.cache.InvalidateAll()
	return nil
}

// ClearCache drops all cached list snapshots.
func (r *Repository) ClearCache() {
	r.cache.InvalidateAll()
}
