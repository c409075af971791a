// ABOUTME: Session token generation for logged-in chat users
// ABOUTME: Tokens are random UUIDs stored server-side in the sessions table

package auth

import (
	"strings"

	"github.com/google/uuid"
)

// NewSessionToken returns a fresh opaque session token.
func NewSessionToken() string {
	return uuid.NewString()
}

// ValidSessionToken reports whether token has the shape NewSessionToken produces.
// Used to reject garbage from a hand-edited session file before touching the database.
func ValidSessionToken(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	_, err := uuid.Parse(token)
	return err == nil
}
