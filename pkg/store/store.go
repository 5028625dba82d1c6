package store

import (
	"context"

	"bookshelf/pkg/domain"
)

// Store is the remote data gateway: typed queries and mutations against the
// catalog tables (users, books, book_lists, user_book_lists, book_list_items,
// reviews). Implementations do not retry; callers translate failures.
type Store interface {
	// users
	InsertUser(ctx context.Context, u domain.User) error
	HasUserEmail(ctx context.Context, email string) (bool, error)
	HasUsername(ctx context.Context, username string) (bool, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)

	// books
	ListBooks(ctx context.Context) ([]domain.Book, error)
	GetBookWithReviews(ctx context.Context, id string) (domain.Book, bool, error)

	// lists
	ListsByUser(ctx context.Context, userID string) ([]domain.BookList, error)
	BooksByList(ctx context.Context, listID string) ([]domain.Book, error)
	GetList(ctx context.Context, id string) (domain.BookList, bool, error)
	HasListName(ctx context.Context, creatorID, name string) (bool, error)
	InsertList(ctx context.Context, list domain.BookList) error
	DeleteList(ctx context.Context, id string) error

	// membership
	AddListItem(ctx context.Context, listID, bookID string) error
	RemoveListItem(ctx context.Context, listID, bookID string) error

	// reviews
	UpsertReview(ctx context.Context, review domain.Review) error
	GetUserReview(ctx context.Context, bookID, userID string) (domain.Review, bool, error)
}

// SessionStore persists login tokens for the HTTP surface.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}
