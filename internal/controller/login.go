// Package controller holds the view-state layer: one controller per screen,
// each exposing a loading flag, an error string and result fields, and
// driving one repository operation per user action. The presentation layer
// reads State() snapshots and calls the action methods; failures never retry
// automatically.
package controller

import (
	"context"
	"sync"

	"bookshelf/pkg/repo"
	"bookshelf/pkg/session"
)

// LoginState is the observable state of the login screen.
type LoginState struct {
	Loading bool
	Error   string
	Success bool
}

// LoginController resolves credentials and binds the session on success.
type LoginController struct {
	auth *repo.AuthRepository
	sess *session.Session

	mu    sync.Mutex
	state LoginState
}

// NewLogin constructs a login controller.
func NewLogin(auth *repo.AuthRepository, sess *session.Session) *LoginController {
	return &LoginController{auth: auth, sess: sess}
}

// State returns a snapshot of the observable state.
func (c *LoginController) State() LoginState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Login validates the form locally, then resolves the credential. Unknown
// email and wrong password surface identically.
func (c *LoginController) Login(ctx context.Context, email, password string) {
	if email == "" || password == "" {
		c.mu.Lock()
		c.state.Error = msgFillAllFields
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	user, err := c.auth.Login(ctx, email, password)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = userMessage(err)
	} else {
		c.sess.Login(user)
		c.state.Success = true
	}
	c.state.Loading = false
}

// ClearError dismisses the inline error.
func (c *LoginController) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}
