package domain

import "time"

// User is a registered account. The password hash is write-only: it is set at
// registration, compared at login, and never serialized back out.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Book is a catalog item. Books are seeded externally and are read-only for
// this service; Reviews is populated only by lookups that ask for it.
type Book struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Genre       string    `json:"genre,omitempty"`
	Description string    `json:"description,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Year        int       `json:"year,omitempty"`
	Reviews     []Review  `json:"reviews,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AverageRating is the arithmetic mean of the attached reviews' ratings,
// 0.0 when the book has no reviews.
func (b Book) AverageRating() float64 {
	if len(b.Reviews) == 0 {
		return 0.0
	}
	sum := 0
	for _, r := range b.Reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(b.Reviews))
}

// BookList is a user-owned named shelf of books.
type BookList struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creatorId"`
	Books     []Book    `json:"books"`
	CreatedAt time.Time `json:"createdAt"`
}

// Review is one user's rating and optional comment for one book.
// At most one review exists per (UserID, BookID); later saves overwrite.
type Review struct {
	ID        string    `json:"id"`
	BookID    string    `json:"bookId"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Rating    int       `json:"rating"`
	Text      string    `json:"text,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
