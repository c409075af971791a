// ABOUTME: Demo data for a fresh chat database
// ABOUTME: Five users, three groups, and a day-old conversation, inserted in one transaction

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/2389/coven-chat/internal/auth"
)

// SeedPassword is the password every demo user is created with.
const SeedPassword = "123"

type seedUser struct {
	name, email string
}

var seedUsers = []seedUser{
	{"Alice", "alice@example.com"},
	{"Bob", "bob@gmail.com"},
	{"Charlie", "charlie@gmail.com"},
	{"Diana", "diana@gmail.com"},
	{"Evan", "evan@gmail.com"},
}

// Indexes below are positions in seedUsers / seedGroups.
type seedGroup struct {
	name    string
	creator int
	members []int
}

var seedGroups = []seedGroup{
	{"General", 0, []int{0, 1, 2, 3, 4}},
	{"Tech Talk", 0, []int{0, 2, 4}},
	{"Coffee Break", 1, []int{1, 2, 3}},
}

type seedMessage struct {
	sender    int
	group     int // -1 for a direct message
	recipient int // -1 for a group message
	content   string
}

var seedMessages = []seedMessage{
	{0, 0, -1, "Hello everyone!"},
	{1, 0, -1, "Hi Alice, how are you?"},
	{2, 0, -1, "Welcome to the general chat!"},
	{0, 1, -1, "Anyone tried the new Go release yet?"},
	{4, 1, -1, "Yes, I'm working on a project with it right now!"},
	{1, 2, -1, "Anyone want to grab coffee later?"},
	{3, 2, -1, "I'm in! Around 3pm?"},
	{0, -1, 1, "Hey Bob, do you have the meeting notes?"},
	{1, -1, 0, "Yes, I'll send them over shortly!"},
	{2, -1, 3, "Diana, are you joining the Tech Talk group?"},
	{3, -1, 2, "Not yet, but I'm thinking about it!"},
}

// Seed fills an empty database with demo users, groups, memberships, and
// messages. It does nothing when any user already exists and reports whether
// it inserted data.
func (s *SQLiteStore) Seed(ctx context.Context) (bool, error) {
	hash, err := auth.HashPassword(SeedPassword, s.bcryptCost)
	if err != nil {
		return false, s.fail("seed", err)
	}

	var seeded bool
	err = s.withTx(ctx, "seed", func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
			return fmt.Errorf("counting users: %w", err)
		}
		if count > 0 {
			return nil
		}

		userIDs := make([]UserID, len(seedUsers))
		for i, u := range seedUsers {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO users (name, email, password) VALUES (?, ?, ?)`, u.name, u.email, hash)
			if err != nil {
				return fmt.Errorf("inserting user %s: %w", u.email, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting user id: %w", err)
			}
			userIDs[i] = UserID(id)
		}

		start := s.now().UTC().Add(-24 * time.Hour)

		groupIDs := make([]GroupID, len(seedGroups))
		for i, g := range seedGroups {
			result, err := tx.ExecContext(ctx,
				`INSERT INTO chat_groups (name, created_at, created_by) VALUES (?, ?, ?)`,
				g.name, formatTime(start), userIDs[g.creator])
			if err != nil {
				return fmt.Errorf("inserting group %s: %w", g.name, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("getting group id: %w", err)
			}
			groupIDs[i] = GroupID(id)

			for _, m := range g.members {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO user_chat_groups (user_id, chatgroup_id) VALUES (?, ?)`,
					userIDs[m], id); err != nil {
					return fmt.Errorf("enrolling member in %s: %w", g.name, err)
				}
			}
		}

		for i, m := range seedMessages {
			var group GroupID
			var recipient UserID
			if m.group >= 0 {
				group = groupIDs[m.group]
			}
			if m.recipient >= 0 {
				recipient = userIDs[m.recipient]
			}
			at := start.Add(time.Duration(i) * time.Minute)
			if err := insertMessageAt(ctx, tx, userIDs[m.sender], group, recipient, m.content, at); err != nil {
				return err
			}
		}

		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		s.logger.Info("seeded demo data",
			"users", len(seedUsers),
			"groups", len(seedGroups),
			"messages", len(seedMessages),
		)
	}
	return seeded, nil
}
