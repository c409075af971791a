// ABOUTME: Identity operations: registration, login, and user lookups
// ABOUTME: Passwords are bcrypt-hashed; legacy clear-text rows are rehashed on login

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/coven-chat/internal/auth"
)

// Register creates a user. It fails with ErrAlreadyExists when the username
// or the email is already taken, and ErrInvalidInput for malformed fields.
func (s *SQLiteStore) Register(ctx context.Context, username, email, password string) (*User, error) {
	in := registration{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, s.fail("register", err)
	}

	user := &User{Name: in.Username, Email: in.Email}
	err = s.withTx(ctx, "register", func(tx *sql.Tx) error {
		var taken int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM users WHERE name = ? OR email = ? LIMIT 1`,
			in.Username, in.Email,
		).Scan(&taken)
		if err == nil {
			return ErrAlreadyExists
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking existing user: %w", err)
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO users (name, email, password) VALUES (?, ?, ?)`,
			in.Username, in.Email, hash,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("inserting user: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting user id: %w", err)
		}
		user.ID = UserID(id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("registered user", "id", user.ID, "name", user.Name)
	return user, nil
}

// Login returns the user whose email and password both match. Any mismatch
// yields ErrInvalidCredentials without saying which part was wrong.
func (s *SQLiteStore) Login(ctx context.Context, email, password string) (*User, error) {
	var user User
	var stored string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, password FROM users WHERE email = ?`,
		strings.TrimSpace(email),
	).Scan(&user.ID, &user.Name, &user.Email, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		auth.BurnCompare(password)
		s.logger.Debug("login failed", "reason", "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, s.fail("login", fmt.Errorf("querying user: %w", err))
	}

	match, legacy := auth.VerifyPassword(stored, password)
	if !match {
		s.logger.Debug("login failed", "user_id", user.ID)
		return nil, ErrInvalidCredentials
	}

	if legacy {
		s.upgradePassword(ctx, user.ID, password)
	}

	s.logger.Debug("login succeeded", "user_id", user.ID)
	return &user, nil
}

// upgradePassword replaces a clear-text credential with a hash. Failure is
// logged but does not fail the login that triggered it.
func (s *SQLiteStore) upgradePassword(ctx context.Context, id UserID, password string) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Warn("could not hash legacy password", "user_id", id, "error", err)
		return
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET password = ? WHERE id = ?`, hash, id); err != nil {
		s.logger.Warn("could not upgrade legacy password", "user_id", id, "error", err)
		return
	}
	s.logger.Info("upgraded legacy password to bcrypt", "user_id", id)
}

// UserByEmail looks a user up by email. Returns ErrNotFound if absent.
func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(ctx, "user by email",
		`SELECT id, name, email FROM users WHERE email = ?`, strings.TrimSpace(email))
}

// UserByID looks a user up by id. Returns ErrNotFound if absent.
func (s *SQLiteStore) UserByID(ctx context.Context, id UserID) (*User, error) {
	return s.scanUser(ctx, "user by id",
		`SELECT id, name, email FROM users WHERE id = ?`, id)
}

func (s *SQLiteStore) scanUser(ctx context.Context, op, query string, arg any) (*User, error) {
	var user User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Name, &user.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("querying user: %w", err))
	}
	return &user, nil
}

// ListUsers returns every user ordered by name, skipping exclude (pass 0 to
// list everyone).
func (s *SQLiteStore) ListUsers(ctx context.Context, exclude UserID) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email FROM users WHERE id != ? ORDER BY name`, exclude)
	if err != nil {
		return nil, s.fail("list users", fmt.Errorf("querying users: %w", err))
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, s.fail("list users", fmt.Errorf("scanning user row: %w", err))
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list users", fmt.Errorf("iterating user rows: %w", err))
	}
	return users, nil
}

// userExists reports whether id names a user, inside tx.
func userExists(ctx context.Context, tx *sql.Tx, id UserID) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("checking user %d: %w", id, err)
	}
	return nil
}
