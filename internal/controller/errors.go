package controller

import (
	"context"
	"errors"
	"net"

	"bookshelf/pkg/auth"
	"bookshelf/pkg/repo"
)

// User-facing error strings. Controllers are the only place gateway and
// repository failures are translated; anything unrecognized becomes the
// generic message with the underlying cause appended for diagnostics.
const (
	msgFillAllFields      = "Fill in all fields"
	msgPasswordsDiffer    = "Passwords do not match"
	msgNoConnection       = "No internet connection"
	msgNotFound           = "Not found"
	msgInvalidCredentials = "Incorrect email address or password"
	msgEmailTaken         = "Email is already taken"
	msgUsernameTaken      = "Username is already taken"
	msgDuplicateListName  = "A list with this name already exists"
	msgNotListOwner       = "Only the list creator can delete it"
	msgListNameRequired   = "Enter a list name"
	msgWeakPassword       = "Password is too weak"
	msgNotAuthenticated   = "Not logged in"
	msgGenericWritePrefix = "Something went wrong: "
)

// userMessage maps an operation failure onto the taxonomy: no-network,
// not-found, invalid-credential, conflict, unknown.
func userMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, repo.ErrInvalidCredentials):
		return msgInvalidCredentials
	case errors.Is(err, repo.ErrEmailTaken):
		return msgEmailTaken
	case errors.Is(err, repo.ErrUsernameTaken):
		return msgUsernameTaken
	case errors.Is(err, auth.ErrWeakPassword):
		return msgWeakPassword
	case errors.Is(err, repo.ErrBookNotFound), errors.Is(err, repo.ErrListNotFound):
		return msgNotFound
	case errors.Is(err, repo.ErrDuplicateListName):
		return msgDuplicateListName
	case errors.Is(err, repo.ErrListNameRequired):
		return msgListNameRequired
	case errors.Is(err, repo.ErrNotListOwner):
		return msgNotListOwner
	case isNetworkError(err):
		return msgNoConnection
	default:
		return msgGenericWritePrefix + err.Error()
	}
}

func isNetworkError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
