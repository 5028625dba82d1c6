package controller

import (
	"context"
	"errors"
	"sync"

	"bookshelf/pkg/domain"
	"bookshelf/pkg/repo"
	"bookshelf/pkg/session"
)

// ProfileState is the observable state of the profile screen.
type ProfileState struct {
	Loading   bool
	Error     string
	BookLists []domain.BookList
}

// ProfileController orchestrates list loading, creation, deletion, and book
// removal for the logged-in user.
type ProfileController struct {
	repo *repo.Repository
	sess *session.Session

	mu         sync.Mutex
	state      ProfileState
	loadGen    uint64
	cancelLoad context.CancelFunc
}

// NewProfile constructs a profile controller.
func NewProfile(r *repo.Repository, sess *session.Session) *ProfileController {
	return &ProfileController{repo: r, sess: sess}
}

// State returns a snapshot of the observable state.
func (c *ProfileController) State() ProfileState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LoadBookLists fetches the user's lists. A newer load supersedes and
// cancels any in-flight one; a superseded load never writes its result.
// forceRefresh clears the repository cache first.
func (c *ProfileController) LoadBookLists(ctx context.Context, forceRefresh bool) {
	user, ok := c.sess.Current()
	if !ok {
		c.mu.Lock()
		c.state.Error = msgNotAuthenticated
		c.mu.Unlock()
		return
	}

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

	if forceRefresh {
		c.repo.ClearCache()
	}
	lists, err := c.repo.GetUserBookLists(ctx, user.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.loadGen {
		return // superseded by a newer load
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.state.Error = userMessage(err)
		}
	} else {
		c.state.BookLists = lists
		c.sess.UpdateBookLists(lists)
	}
	c.state.Loading = false
}

// CreateBookList creates a list named name for the current user, then
// reloads with a forced refresh.
func (c *ProfileController) CreateBookList(ctx context.Context, name string) {
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

	_, err := c.repo.CreateBookList(ctx, user.ID, name)
	if err != nil {
		c.mu.Lock()
		c.state.Error = userMessage(err)
		c.state.Loading = false
		c.mu.Unlock()
		return
	}
	c.LoadBookLists(ctx, true)
}

// DeleteBookList deletes a list. Ownership is checked by the repository
// against the acting user; a rejection surfaces as an inline error.
func (c *ProfileController) DeleteBookList(ctx context.Context, listID string) {
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

	err := c.repo.DeleteBookList(ctx, listID, user.ID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = userMessage(err)
	} else {
		kept := make([]domain.BookList, 0, len(c.state.BookLists))
		for _, list := range c.state.BookLists {
			if list.ID != listID {
				kept = append(kept, list)
			}
		}
		c.state.BookLists = kept
	}
	c.state.Loading = false
}

// RemoveBookFromList deletes one membership row, then reloads the lists.
func (c *ProfileController) RemoveBookFromList(ctx context.Context, listID, bookID string) {
	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	if err := c.repo.RemoveBookFromList(ctx, listID, bookID); err != nil {
		c.mu.Lock()
		c.state.Error = userMessage(err)
		c.state.Loading = false
		c.mu.Unlock()
		return
	}
	c.LoadBookLists(ctx, false)
}

// ClearError dismisses the inline error.
func (c *ProfileController) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}
