package controller

import (
	"context"
	"errors"
	"sync"

	"bookshelf/pkg/domain"
	"bookshelf/pkg/repo"
	"bookshelf/pkg/session"
)

// BookState is the observable state of the single-book screen.
type BookState struct {
	Loading bool
	Error   string
	Book    *domain.Book
}

// BookController loads one book with its reviews and saves the current
// user's review.
type BookController struct {
	repo *repo.Repository
	sess *session.Session

	mu         sync.Mutex
	state      BookState
	loadGen    uint64
	cancelLoad context.CancelFunc
}

// NewBook constructs a book controller.
func NewBook(r *repo.Repository, sess *session.Session) *BookController {
	return &BookController{repo: r, sess: sess}
}

// State returns a snapshot of the observable state.
func (c *BookController) State() BookState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadBook fetches one book with nested reviews. A newer load supersedes and
// cancels any in-flight one.
func (c *BookController) LoadBook(ctx context.Context, bookID string) {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancelLoad != nil {
		c.cancelLoad()
	}
	c.cancelLoad = cancel
	c.loadGen++
	gen := c.loadGen
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	book, err := c.repo.GetBookByID(ctx, bookID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.loadGen {
		return
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.state.Error = userMessage(err)
		}
	} else {
		c.state.Book = &book
	}
	c.state.Loading = false
}

// SaveReview upserts the current user's review of bookID, then reloads the
// book so the embedded review data refreshes.
func (c *BookController) SaveReview(ctx context.Context, bookID string, rating int, text string) {
	user, ok := c.sess.Current()
	if !ok {
		c.mu.Lock()
		c.state.Error = msgNotAuthenticated
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	review := domain.Review{
		BookID: bookID,
		UserID: user.ID,
		Rating: rating,
		Text:   text,
	}
	if err := c.repo.SaveReview(ctx, review); err != nil {
		c.mu.Lock()
		c.state.Error = userMessage(err)
		c.state.Loading = false
		c.mu.Unlock()
		return
	}
	c.LoadBook(ctx, bookID)
}

// ClearError dismisses the inline error.
func (c *BookController) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}
