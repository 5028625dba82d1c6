package store

import "time"

// GORM models used for persistence. Table names are pinned to the catalog
// schema rather than GORM's derived names.

type UserModel struct {
	ID           string    `gorm:"primaryKey"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}

func (UserModel) TableName() string { return "users" }

type BookModel struct {
	ID          string `gorm:"primaryKey"`
	Title       string `gorm:"not null"`
	Author      string `gorm:"not null"`
	Genre       string
	Description string `gorm:"type:text"`
	CoverURL    string `gorm:"column:cover_url"`
	Year        int
	CreatedAt   time.Time `gorm:"not null"`
}

func (BookModel) TableName() string { return "books" }

type BookListModel struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null;uniqueIndex:idx_book_lists_creator_name"`
	CreatorID string    `gorm:"not null;index;uniqueIndex:idx_book_lists_creator_name"`
	CreatedAt time.Time `gorm:"not null"`
}

func (BookListModel) TableName() string { return "book_lists" }

// UserBookListModel is the access linkage between a user and a list.
type UserBookListModel struct {
	BookListID string    `gorm:"primaryKey"`
	UserID     string    `gorm:"primaryKey;index"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (UserBookListModel) TableName() string { return "user_book_lists" }

// BookListItemModel is the list<->book membership row; presence only.
type BookListItemModel struct {
	BookListID string    `gorm:"primaryKey"`
	BookID     string    `gorm:"primaryKey"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

func (BookListItemModel) TableName() string { return "book_list_items" }

type ReviewModel struct {
	ID        string    `gorm:"primaryKey"`
	BookID    string    `gorm:"not null;uniqueIndex:idx_reviews_user_book"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_reviews_user_book"`
	Rating    int       `gorm:"not null"`
	Text      string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

func (ReviewModel) TableName() string { return "reviews" }
