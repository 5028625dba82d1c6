package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookshelf/pkg/auth"
	"bookshelf/pkg/domain"
	"bookshelf/pkg/store"
)

var (
	// ErrInvalidCredentials covers both "no such user" and "wrong password".
	// The cases are merged so callers cannot enumerate accounts; the real
	// reason is only visible in debug logs.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering with an existing email.
	ErrEmailTaken = errors.New("email already exists")
	// ErrUsernameTaken is returned when registering with an existing username.
	ErrUsernameTaken = errors.New("username already exists")
)

// AuthRepository resolves credentials and registers accounts against the
// users table.
type AuthRepository struct {
	store store.Store
}

// NewAuth constructs an AuthRepository over a gateway store.
func NewAuth(s store.Store) *AuthRepository {
	return &AuthRepository{store: s}
}

// Login fetches the user row matching email and verifies the password
// against the stored bcrypt hash.
func (a *AuthRepository) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = normalizeEmail(email)
	user, ok, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch user: %w", err)
	}
	if !ok {
		slog.Debug("login failed", "reason", "unknown email")
		return domain.User{}, ErrInvalidCredentials
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		slog.Debug("login failed", "reason", "wrong password", "user_id", user.ID)
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Register creates an account after uniqueness pre-checks on email and
// username. The checks are check-then-act; the users table's unique indexes
// settle concurrent registrations.
func (a *AuthRepository) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return domain.User{}, errors.New("username, email and password required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, err
	}
	emailTaken, err := a.store.HasUserEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if emailTaken {
		return domain.User{}, ErrEmailTaken
	}
	usernameTaken, err := a.store.HasUsername(ctx, username)
	if err != nil {
		return domain.User{}, fmt.Errorf("check username: %w", err)
	}
	if usernameTaken {
		return domain.User{}, ErrUsernameTaken
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	now := time.Now().UTC()
	user := domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := a.store.InsertUser(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// CheckEmailExists reports whether an account already uses the email.
func (a *AuthRepository) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	return a.store.HasUserEmail(ctx, normalizeEmail(email))
}

// GetUserByID returns the account for a resolved session token.
func (a *AuthRepository) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	return a.store.GetUserByID(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
