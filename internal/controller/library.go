package controller

import (
	"context"
	"errors"
	"sync"

	"bookshelf/pkg/domain"
	"bookshelf/pkg/repo"
)

// LibraryState is the observable state of the library screen.
type LibraryState struct {
	Loading bool
	Error   string
	Books   []domain.Book
}

// LibraryController loads the catalog and moves books in and out of lists.
type LibraryController struct {
	repo *repo.Repository

	mu         sync.Mutex
	state      LibraryState
	loadGen    uint64
	cancelLoad context.CancelFunc
}

// NewLibrary constructs a library controller.
func NewLibrary(r *repo.Repository) *LibraryController {
	return &LibraryController{repo: r}
}

// State returns a snapshot of the observable state.
func (c *LibraryController) State() LibraryState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadBooks fetches the whole catalog. A newer load supersedes and cancels
// any in-flight one.
func (c *LibraryController) LoadBooks(ctx context.Context) {
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

	books, err := c.repo.ListBooks(ctx)

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
		c.state.Books = books
	}
	c.state.Loading = false
}

// AddBookToList records membership of a book in a list.
func (c *LibraryController) AddBookToList(ctx context.Context, listID, bookID string) {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	err := c.repo.AddBookToList(ctx, listID, bookID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = userMessage(err)
	}
	c.state.Loading = false
}

// RemoveBookFromList deletes one membership row.
func (c *LibraryController) RemoveBookFromList(ctx context.Context, listID, bookID string) {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	err := c.repo.RemoveBookFromList(ctx, listID, bookID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = userMessage(err)
	}
	c.state.Loading = false
}

// ClearError dismisses the inline error.
func (c *LibraryController) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}
