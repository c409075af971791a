// ABOUTME: Maps chat and store errors to messages a user can act on
// ABOUTME: Storage failures get a generic retry message; their detail goes to the log

package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"

	"github.com/2389/coven-chat/internal/chat"
	"github.com/2389/coven-chat/internal/store"
)

var errNotLoggedIn = errors.New("not logged in")

// userError carries a sentence written for the person at the terminal while
// keeping the underlying error kind reachable through errors.Is.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// explain replaces err's text with a corrective message when err is of kind.
// Any other error is returned unchanged.
func explain(err, kind error, format string, args ...any) error {
	if err == nil || !errors.Is(err, kind) {
		return err
	}
	return &userError{msg: fmt.Sprintf(format, args...), err: err}
}

// usageError reports a malformed command line.
func usageError(format string, args ...any) error {
	return &userError{msg: "usage: " + fmt.Sprintf(format, args...), err: store.ErrInvalidInput}
}

// describeError turns err into the line shown to the user.
func describeError(err error) string {
	var ue *userError
	switch {
	case errors.Is(err, store.ErrStorage):
		return "The chat database could not complete the request. Please try again."
	case errors.As(err, &ue):
		return ue.msg
	case errors.Is(err, errNotLoggedIn):
		return "You are not logged in. Run 'coven-chat login' first."
	case errors.Is(err, store.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, chat.ErrForbidden):
		return "Only the group's creator can do that."
	case errors.Is(err, store.ErrNotFound):
		return "Nothing matched that name or email: " + err.Error()
	default:
		return err.Error()
	}
}

func (a *app) reportError(err error) {
	if errors.Is(err, store.ErrStorage) && a.logger != nil {
		a.logger.Error("command failed", "error", err)
	}
	color.New(color.FgRed).Fprintf(a.errOut, "Error: %s\n", describeError(err))
}
