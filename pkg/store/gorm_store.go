package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"bookshelf/pkg/domain"
)

const migrateLockID int64 = 52905290

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent instances do not race the schema.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&UserModel{},
			&BookModel{},
			&BookListModel{},
			&UserBookListModel{},
			&BookListItemModel{},
			&ReviewModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// InsertUser creates a user row. Duplicate email/username fails on the
// unique indexes.
func (s *GormStore) InsertUser(ctx context.Context, u domain.User) error {
	model := userToModel(u)
	return s.db.WithContext(ctx).Create(&model).Error
}

// HasUserEmail checks if email exists.
func (s *GormStore) HasUserEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasUsername checks if username exists.
func (s *GormStore) HasUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&UserModel{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUserByEmail looks up a user by email.
func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// GetUserByID returns a user by ID.
func (s *GormStore) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

// ListBooks returns the whole catalog ordered by created_at.
func (s *GormStore) ListBooks(ctx context.Context) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

type reviewRow struct {
	ReviewModel
	Username string
}

// GetBookWithReviews returns one book with its reviews, each carrying the
// reviewing user's username via a join.
func (s *GormStore) GetBookWithReviews(ctx context.Context, id string) (domain.Book, bool, error) {
	var model BookModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Book{}, false, nil
		}
		return domain.Book{}, false, err
	}
	var rows []reviewRow
	if err := s.db.WithContext(ctx).Model(&ReviewModel{}).
		Select("reviews.*, users.username AS username").
		Joins("INNER JOIN users ON users.id = reviews.user_id").
		Where("reviews.book_id = ?", id).
		Order("reviews.created_at DESC").
		Scan(&rows).Error; err != nil {
		return domain.Book{}, false, err
	}
	book := bookFromModel(model)
	book.Reviews = make([]domain.Review, 0, len(rows))
	for _, row := range rows {
		review := reviewFromModel(row.ReviewModel)
		review.Username = row.Username
		book.Reviews = append(book.Reviews, review)
	}
	return book, true, nil
}

// ListsByUser returns the lists linked to userID through user_book_lists,
// without member books.
func (s *GormStore) ListsByUser(ctx context.Context, userID string) ([]domain.BookList, error) {
	var models []BookListModel
	if err := s.db.WithContext(ctx).Model(&BookListModel{}).
		Joins("INNER JOIN user_book_lists ON user_book_lists.book_list_id = book_lists.id").
		Where("user_book_lists.user_id = ?", userID).
		Order("book_lists.created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.BookList, 0, len(models))
	for _, m := range models {
		res = append(res, listFromModel(m))
	}
	return res, nil
}

// BooksByList returns the member books of a list in insertion order.
func (s *GormStore) BooksByList(ctx context.Context, listID string) ([]domain.Book, error) {
	var models []BookModel
	if err := s.db.WithContext(ctx).Model(&BookModel{}).
		Joins("INNER JOIN book_list_items ON book_list_items.book_id = books.id").
		Where("book_list_items.book_list_id = ?", listID).
		Order("book_list_items.created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Book, 0, len(models))
	for _, m := range models {
		res = append(res, bookFromModel(m))
	}
	return res, nil
}

// GetList returns one list row without member books.
func (s *GormStore) GetList(ctx context.Context, id string) (domain.BookList, bool, error) {
	var model BookListModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.BookList{}, false, nil
		}
		return domain.BookList{}, false, err
	}
	return listFromModel(model), true, nil
}

// HasListName checks whether creatorID already has a list called name.
func (s *GormStore) HasListName(ctx context.Context, creatorID, name string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&BookListModel{}).
		Where("creator_id = ? AND name = ?", creatorID, name).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// InsertList creates the list row and the creator's access linkage in one
// transaction.
func (s *GormStore) InsertList(ctx context.Context, list domain.BookList) error {
	model := listToModel(list)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		linkage := UserBookListModel{
			BookListID: list.ID,
			UserID:     list.CreatorID,
			CreatedAt:  list.CreatedAt,
		}
		return tx.Create(&linkage).Error
	})
}

// DeleteList removes access linkage, membership rows, and the list itself.
func (s *GormStore) DeleteList(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&UserBookListModel{}, "book_list_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&BookListItemModel{}, "book_list_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&BookListModel{}, "id = ?", id).Error
	})
}

// AddListItem records list membership; re-adding an existing pair is a no-op.
func (s *GormStore) AddListItem(ctx context.Context, listID, bookID string) error {
	item := BookListItemModel{
		BookListID: listID,
		BookID:     bookID,
		CreatedAt:  time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
}

// RemoveListItem deletes the single membership row.
func (s *GormStore) RemoveListItem(ctx context.Context, listID, bookID string) error {
	return s.db.WithContext(ctx).
		Delete(&BookListItemModel{}, "book_list_id = ? AND book_id = ?", listID, bookID).Error
}

// UpsertReview inserts the review or, when (user_id, book_id) already exists,
// overwrites rating, text and timestamp.
func (s *GormStore) UpsertReview(ctx context.Context, review domain.Review) error {
	model := reviewToModel(review)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "book_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"rating", "text", "created_at"}),
	}).Create(&model).Error
}

// GetUserReview returns one user's review of one book, if any.
func (s *GormStore) GetUserReview(ctx context.Context, bookID, userID string) (domain.Review, bool, error) {
	var model ReviewModel
	if err := s.db.WithContext(ctx).
		Where("book_id = ? AND user_id = ?", bookID, userID).
		First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Review{}, false, nil
		}
		return domain.Review{}, false, err
	}
	return reviewFromModel(model), true, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func bookFromModel(m BookModel) domain.Book {
	return domain.Book{
		ID:          m.ID,
		Title:       m.Title,
		Author:      m.Author,
		Genre:       m.Genre,
		Description: m.Description,
		CoverURL:    m.CoverURL,
		Year:        m.Year,
		CreatedAt:   m.CreatedAt,
	}
}

func listToModel(l domain.BookList) BookListModel {
	return BookListModel{
		ID:        l.ID,
		Name:      l.Name,
		CreatorID: l.CreatorID,
		CreatedAt: l.CreatedAt,
	}
}

func listFromModel(m BookListModel) domain.BookList {
	return domain.BookList{
		ID:        m.ID,
		Name:      m.Name,
		CreatorID: m.CreatorID,
		CreatedAt: m.CreatedAt,
	}
}

func reviewToModel(r domain.Review) ReviewModel {
	return ReviewModel{
		ID:        r.ID,
		BookID:    r.BookID,
		UserID:    r.UserID,
		Rating:    r.Rating,
		Text:      r.Text,
		CreatedAt: r.CreatedAt,
	}
}

func reviewFromModel(m ReviewModel) domain.Review {
	return domain.Review{
		ID:        m.ID,
		BookID:    m.BookID,
		UserID:    m.UserID,
		Rating:    m.Rating,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}
