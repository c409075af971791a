// ABOUTME: Remembers the logged-in session between invocations
// ABOUTME: The token lives in a 0600 file under the coven config directory

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/2389/coven-chat/internal/config"
	"github.com/2389/coven-chat/internal/store"
)

const sessionFileName = "chat-session"

// sessionPath returns $XDG_CONFIG_HOME/coven/chat-session (or the ~/.config equivalent).
func sessionPath() string {
	return filepath.Join(config.ConfigDir(), sessionFileName)
}

func saveSession(token string) error {
	path := sessionPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(token+"\n"), 0600); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}

// loadSession returns the saved token, or "" when there is none.
func loadSession() (string, error) {
	data, err := os.ReadFile(sessionPath())
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading session file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func clearSession() error {
	err := os.Remove(sessionPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session file: %w", err)
	}
	return nil
}

// currentUser resolves the saved session to a user. A stale or unknown token
// is discarded and reported as errNotLoggedIn.
func (a *app) currentUser(ctx context.Context) (*store.User, error) {
	token, err := loadSession()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, errNotLoggedIn
	}
	if err := a.open(); err != nil {
		return nil, err
	}

	u, err := a.svc.ResumeSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		if err := clearSession(); err != nil {
			a.logger.Warn("could not remove stale session", "error", err)
		}
		return nil, &userError{msg: "Your session has expired. Run 'coven-chat login' again.", err: errNotLoggedIn}
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
