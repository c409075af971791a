// ABOUTME: Group lifecycle and membership operations for the SQLite store
// ABOUTME: Create-or-get, rename, transactional delete, join/remove, and group listings

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// CreateOrGetGroup returns the group called name, creating it when it does
// not exist yet. A new group is inserted and its creator enrolled in one
// transaction. created reports whether this call inserted the row.
func (s *SQLiteStore) CreateOrGetGroup(ctx context.Context, name string, creator UserID) (*Group, bool, error) {
	name = strings.TrimSpace(name)
	if err := validateGroupName(name); err != nil {
		return nil, false, err
	}

	var group *Group
	var created bool
	err := s.withTx(ctx, "create group", func(tx *sql.Tx) error {
		existing, err := groupByName(ctx, tx, name)
		if err == nil {
			group = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := userExists(ctx, tx, creator); err != nil {
			return err
		}

		now := s.storedNow()
		result, err := tx.ExecContext(ctx,
			`INSERT INTO chat_groups (name, created_at, created_by) VALUES (?, ?, ?)`,
			name, formatTime(now), creator,
		)
		if err != nil {
			if isConstraintViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("inserting group: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting group id: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_chat_groups (user_id, chatgroup_id) VALUES (?, ?)`,
			creator, id,
		); err != nil {
			return fmt.Errorf("enrolling creator: %w", err)
		}

		group = &Group{ID: GroupID(id), Name: name, CreatedAt: now, CreatedBy: creator}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.logger.Info("created group", "group_id", group.ID, "name", group.Name, "creator", creator)
	}
	return group, created, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const groupColumns = `id, name, created_at, COALESCE(created_by, 0)`

func scanGroup(row *sql.Row) (*Group, error) {
	var g Group
	var created timestamp
	err := row.Scan(&g.ID, &g.Name, &created, &g.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning group: %w", err)
	}
	g.CreatedAt = created.Time
	return &g, nil
}

func groupByName(ctx context.Context, q queryer, name string) (*Group, error) {
	return scanGroup(q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups WHERE name = ?`, name))
}

func groupByID(ctx context.Context, q queryer, id GroupID) (*Group, error) {
	return scanGroup(q.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups WHERE id = ?`, id))
}

// GroupByName looks a group up by its unique name.
func (s *SQLiteStore) GroupByName(ctx context.Context, name string) (*Group, error) {
	g, err := groupByName(ctx, s.db, strings.TrimSpace(name))
	if err != nil {
		return nil, s.fail("group by name", err)
	}
	return g, nil
}

// GroupByID looks a group up by id.
func (s *SQLiteStore) GroupByID(ctx context.Context, id GroupID) (*Group, error) {
	g, err := groupByID(ctx, s.db, id)
	if err != nil {
		return nil, s.fail("group by id", err)
	}
	return g, nil
}

// ListGroups returns every group ordered by name.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+groupColumns+` FROM chat_groups ORDER BY name`)
	if err != nil {
		return nil, s.fail("list groups", fmt.Errorf("querying groups: %w", err))
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		var g Group
		var created timestamp
		if err := rows.Scan(&g.ID, &g.Name, &created, &g.CreatedBy); err != nil {
			return nil, s.fail("list groups", fmt.Errorf("scanning group row: %w", err))
		}
		g.CreatedAt = created.Time
		groups = append(groups, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list groups", fmt.Errorf("iterating group rows: %w", err))
	}
	return groups, nil
}

// GroupAdmin returns the creator of the group.
func (s *SQLiteStore) GroupAdmin(ctx context.Context, id GroupID) (*User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM chat_groups g
		JOIN users u ON u.id = g.created_by
		WHERE g.id = ?`, id,
	).Scan(&u.ID, &u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group admin: %w", ErrNotFound)
	}
	if err != nil {
		return nil, s.fail("group admin", fmt.Errorf("querying group admin: %w", err))
	}
	return &u, nil
}

// RenameGroup changes a group's name. Returns ErrNotFound if no row was
// affected and ErrAlreadyExists if newName is taken by another group.
func (s *SQLiteStore) RenameGroup(ctx context.Context, id GroupID, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := validateGroupName(newName); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `UPDATE chat_groups SET name = ? WHERE id = ?`, newName, id)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("group %q: %w", newName, ErrAlreadyExists)
		}
		return s.fail("rename group", fmt.Errorf("updating group: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return s.fail("rename group", fmt.Errorf("checking rows affected: %w", err))
	}
	if rows == 0 {
		return fmt.Errorf("group: %w", ErrNotFound)
	}

	s.logger.Info("renamed group", "group_id", id, "name", newName)
	return nil
}

// DeleteGroup removes the group's messages, then its memberships, then the
// group row, in one transaction. A failure at any step leaves all three
// tables unchanged.
func (s *SQLiteStore) DeleteGroup(ctx context.Context, id GroupID) error {
	var removedMessages, removedMembers int64
	err := s.withTx(ctx, "delete group", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE chatgroup_id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting group messages: %w", err)
		}
		removedMessages, _ = result.RowsAffected()

		result, err = tx.ExecContext(ctx, `DELETE FROM user_chat_groups WHERE chatgroup_id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting group memberships: %w", err)
		}
		removedMembers, _ = result.RowsAffected()

		result, err = tx.ExecContext(ctx, `DELETE FROM chat_groups WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("deleting group: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		if rows == 0 {
			return fmt.Errorf("group: %w", ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("deleted group",
		"group_id", id,
		"messages", removedMessages,
		"members", removedMembers,
	)
	return nil
}

// JoinGroup enrolls user in group. Joining a group the user already belongs
// to succeeds without change; joined reports whether a row was inserted.
func (s *SQLiteStore) JoinGroup(ctx context.Context, user UserID, group GroupID) (bool, error) {
	var joined bool
	err := s.withTx(ctx, "join group", func(tx *sql.Tx) error {
		if err := userExists(ctx, tx, user); err != nil {
			return err
		}
		if _, err := groupByID(ctx, tx, group); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO user_chat_groups (user_id, chatgroup_id) VALUES (?, ?)`,
			user, group,
		)
		if err != nil {
			return fmt.Errorf("inserting membership: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking rows affected: %w", err)
		}
		joined = rows > 0
		return nil
	})
	if err != nil {
		return false, err
	}

	if joined {
		s.logger.Debug("user joined group", "user_id", user, "group_id", group)
	}
	return joined, nil
}

// RemoveMember deletes the membership of user in group. Returns ErrNotFound
// when there was no such membership.
func (s *SQLiteStore) RemoveMember(ctx context.Context, user UserID, group GroupID) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM user_chat_groups WHERE user_id = ? AND chatgroup_id = ?`, user, group)
	if err != nil {
		return s.fail("remove member", fmt.Errorf("deleting membership: %w", err))
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return s.fail("remove member", fmt.Errorf("checking rows affected: %w", err))
	}
	if rows == 0 {
		return fmt.Errorf("membership: %w", ErrNotFound)
	}

	s.logger.Debug("removed member", "user_id", user, "group_id", group)
	return nil
}

// IsMember reports whether user belongs to group.
func (s *SQLiteStore) IsMember(ctx context.Context, user UserID, group GroupID) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM user_chat_groups WHERE user_id = ? AND chatgroup_id = ?`, user, group,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.fail("is member", fmt.Errorf("querying membership: %w", err))
	}
	return true, nil
}

// ListGroupMembers returns the members of group ordered by name.
func (s *SQLiteStore) ListGroupMembers(ctx context.Context, group GroupID) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.email
		FROM users u
		JOIN user_chat_groups ucg ON ucg.user_id = u.id
		WHERE ucg.chatgroup_id = ?
		ORDER BY u.name`, group)
	if err != nil {
		return nil, s.fail("list group members", fmt.Errorf("querying members: %w", err))
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, s.fail("list group members", fmt.Errorf("scanning member row: %w", err))
		}
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("list group members", fmt.Errorf("iterating member rows: %w", err))
	}
	return users, nil
}

// ListCreatedGroups returns the groups user created.
func (s *SQLiteStore) ListCreatedGroups(ctx context.Context, user UserID) ([]GroupSummary, error) {
	return s.listSummaries(ctx, "list created groups", `
		SELECT g.id, g.name, COUNT(DISTINCT m.user_id)
		FROM chat_groups g
		LEFT JOIN user_chat_groups m ON m.chatgroup_id = g.id
		WHERE g.created_by = ?
		GROUP BY g.id, g.name
		ORDER BY g.name`, user)
}

// ListJoinedGroups returns the groups user belongs to but did not create.
func (s *SQLiteStore) ListJoinedGroups(ctx context.Context, user UserID) ([]GroupSummary, error) {
	return s.listSummaries(ctx, "list joined groups", `
		SELECT g.id, g.name, COUNT(DISTINCT m.user_id)
		FROM chat_groups g
		JOIN user_chat_groups mine ON mine.chatgroup_id = g.id AND mine.user_id = ?
		LEFT JOIN user_chat_groups m ON m.chatgroup_id = g.id
		WHERE g.created_by IS NULL OR g.created_by != ?
		GROUP BY g.id, g.name
		ORDER BY g.name`, user, user)
}

// ListUserGroups returns every group user belongs to.
func (s *SQLiteStore) ListUserGroups(ctx context.Context, user UserID) ([]GroupSummary, error) {
	return s.listSummaries(ctx, "list user groups", `
		SELECT g.id, g.name, COUNT(DISTINCT m.user_id)
		FROM chat_groups g
		JOIN user_chat_groups mine ON mine.chatgroup_id = g.id AND mine.user_id = ?
		LEFT JOIN user_chat_groups m ON m.chatgroup_id = g.id
		GROUP BY g.id, g.name
		ORDER BY g.name`, user)
}

func (s *SQLiteStore) listSummaries(ctx context.Context, op, query string, args ...any) ([]GroupSummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("querying groups: %w", err))
	}
	defer rows.Close()

	var out []GroupSummary
	for rows.Next() {
		var g GroupSummary
		if err := rows.Scan(&g.ID, &g.Name, &g.MemberCount); err != nil {
			return nil, s.fail(op, fmt.Errorf("scanning group row: %w", err))
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, fmt.Errorf("iterating group rows: %w", err))
	}
	return out, nil
}
