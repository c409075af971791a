// ABOUTME: Login sessions for callers that do not keep a process alive between commands
// ABOUTME: Opaque UUID tokens bound to a user with an expiry

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2389/coven-chat/internal/auth"
)

// CreateSession issues a new token for user valid for ttl.
func (s *SQLiteStore) CreateSession(ctx context.Context, user UserID, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session ttl must be positive", ErrInvalidInput)
	}

	now := s.storedNow()
	sess := &Session{
		Token:     auth.NewSessionToken(),
		UserID:    user,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	err := s.withTx(ctx, "create session", func(tx *sql.Tx) error {
		if err := userExists(ctx, tx, user); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			sess.Token, sess.UserID, formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt),
		)
		if err != nil {
			return fmt.Errorf("inserting session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("created session", "user_id", user, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// SessionUser resolves token to its user. Unknown, malformed, and expired
// tokens all return ErrNotFound.
func (s *SQLiteStore) SessionUser(ctx context.Context, token string) (*User, error) {
	token = strings.TrimSpace(token)
	if !auth.ValidSessionToken(token) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}

	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.token = ? AND s.expires_at > ?`,
		token, formatTime(s.now()),
	).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	if err != nil {
		return nil, s.fail("session user", fmt.Errorf("querying session: %w", err))
	}
	return &u, nil
}

// DeleteSession removes token. Deleting an unknown token is not an error.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, strings.TrimSpace(token))
	if err != nil {
		return s.fail("delete session", fmt.Errorf("deleting session: %w", err))
	}
	return nil
}

// DeleteExpiredSessions removes every session past its expiry and returns
// how many were removed.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, formatTime(s.now()))
	if err != nil {
		return 0, s.fail("delete expired sessions", fmt.Errorf("deleting sessions: %w", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, s.fail("delete expired sessions", fmt.Errorf("checking rows affected: %w", err))
	}
	if n > 0 {
		s.logger.Info("pruned expired sessions", "count", n)
	}
	return n, nil
}
