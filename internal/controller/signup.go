package controller

import (
	"context"
	"sync"

	"bookshelf/pkg/repo"
)

// SignUpState is the observable state of the registration screen.
type SignUpState struct {
	Loading bool
	Error   string
	Success bool
}

// SignUpController registers new accounts.
type SignUpController struct {
	auth *repo.AuthRepository

	mu    sync.Mutex
	state SignUpState
}

// NewSignUp constructs a sign-up controller.
func NewSignUp(auth *repo.AuthRepository) *SignUpController {
	return &SignUpController{auth: auth}
}

// State returns a snapshot of the observable state.
func (c *SignUpController) State() SignUpState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Register validates password confirmation locally, pre-checks email
// availability with its own round trip, then registers. Two concurrent
// sign-ups with the same email can both pass the pre-check; the users
// table's unique index rejects the loser.
func (c *SignUpController) Register(ctx context.Context, username, email, password, confirm string) {
	if username == "" || email == "" || password == "" {
		c.mu.Lock()
		c.state.Error = msgFillAllFields
		c.mu.Unlock()
		return
	}
	if password != confirm {
		c.mu.Lock()
		c.state.Error = msgPasswordsDiffer
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.state.Loading = true
	c.state.Error = ""
	c.mu.Unlock()

	taken, err := c.auth.CheckEmailExists(ctx, email)
	if err == nil && taken {
		c.mu.Lock()
		c.state.Error = msgEmailTaken
		c.state.Loading = false
		c.mu.Unlock()
		return
	}
	if err == nil {
		_, err = c.auth.Register(ctx, username, email, password)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = userMessage(err)
	} else {
		c.state.Success = true
	}
	c.state.Loading = false
}

// ClearError dismisses the inline error.
func (c *SignUpController) ClearError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Error = ""
}
