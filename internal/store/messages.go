// ABOUTME: Direct and group messaging for the SQLite store
// ABOUTME: History returns the most recent N messages oldest-first, ordered by (timestamp, id)

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SendDirect stores a message from sender to recipient.
func (s *SQLiteStore) SendDirect(ctx context.Context, sender, recipient UserID, content string) (*Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	msg := &Message{
		SenderID:    sender,
		RecipientID: recipient,
		Content:     content,
		Type:        MessageTypeMessage,
	}
	err := s.withTx(ctx, "send direct", func(tx *sql.Tx) error {
		if err := userExists(ctx, tx, sender); err != nil {
			return err
		}
		if err := userExists(ctx, tx, recipient); err != nil {
			return err
		}
		return s.insertMessage(ctx, tx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// SendToGroup stores a message from sender in group. msgType is
// MessageTypeMessage (also used when empty) or MessageTypeSystem.
func (s *SQLiteStore) SendToGroup(ctx context.Context, sender UserID, group GroupID, content, msgType string) (*Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	msgType, ok := normalizeType(msgType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidInput, msgType)
	}

	msg := &Message{
		SenderID: sender,
		GroupID:  group,
		Content:  content,
		Type:     msgType,
	}
	err := s.withTx(ctx, "send to group", func(tx *sql.Tx) error {
		if err := userExists(ctx, tx, sender); err != nil {
			return err
		}
		if _, err := groupByID(ctx, tx, group); err != nil {
			return err
		}
		return s.insertMessage(ctx, tx, msg)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// insertMessage writes msg and fills in its id, timestamp, and sender details.
// Exactly one of GroupID and RecipientID must be set.
func (s *SQLiteStore) insertMessage(ctx context.Context, tx *sql.Tx, msg *Message) error {
	var groupID, recipientID sql.NullInt64
	if msg.GroupID != 0 {
		groupID = sql.NullInt64{Int64: int64(msg.GroupID), Valid: true}
	}
	if msg.RecipientID != 0 {
		recipientID = sql.NullInt64{Int64: int64(msg.RecipientID), Valid: true}
	}
	if groupID.Valid == recipientID.Valid {
		return fmt.Errorf("%w: message needs exactly one of group or recipient", ErrInvalidInput)
	}

	msg.Timestamp = s.storedNow()
	result, err := tx.ExecContext(ctx, `
		INSERT INTO messages (sender_id, chatgroup_id, recipient_id, content, timestamp, type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		msg.SenderID, groupID, recipientID, msg.Content, formatTime(msg.Timestamp), msg.Type,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting message id: %w", err)
	}
	msg.ID = MessageID(id)

	if err := tx.QueryRowContext(ctx,
		`SELECT name, email FROM users WHERE id = ?`, msg.SenderID,
	).Scan(&msg.SenderName, &msg.SenderEmail); err != nil {
		return fmt.Errorf("loading sender: %w", err)
	}

	s.logger.Debug("stored message",
		"message_id", msg.ID,
		"sender_id", msg.SenderID,
		"group_id", msg.GroupID,
		"recipient_id", msg.RecipientID,
		"type", msg.Type,
	)
	return nil
}

const messageColumns = `m.id, m.sender_id, u.name, u.email,
	COALESCE(m.chatgroup_id, 0), COALESCE(m.recipient_id, 0),
	m.content, COALESCE(m.type, 'message'), m.timestamp`

// DirectHistory returns the most recent limit messages exchanged between a
// and b in either direction, oldest first. limit <= 0 uses DefaultHistoryLimit.
func (s *SQLiteStore) DirectHistory(ctx context.Context, a, b UserID, limit int) ([]*Message, error) {
	// Subquery takes the newest N, outer query flips them to ascending
	return s.queryMessages(ctx, "direct history", `
		SELECT * FROM (
			SELECT `+messageColumns+`
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.chatgroup_id IS NULL
			  AND ((m.sender_id = ? AND m.recipient_id = ?)
			    OR (m.sender_id = ? AND m.recipient_id = ?))
			ORDER BY m.timestamp DESC, m.id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC`,
		a, b, b, a, clampLimit(limit),
	)
}

// GroupHistory returns the most recent limit messages of group, oldest
// first, including system notices. limit <= 0 uses DefaultHistoryLimit.
func (s *SQLiteStore) GroupHistory(ctx context.Context, group GroupID, limit int) ([]*Message, error) {
	return s.queryMessages(ctx, "group history", `
		SELECT * FROM (
			SELECT `+messageColumns+`
			FROM messages m
			JOIN users u ON u.id = m.sender_id
			WHERE m.chatgroup_id = ?
			ORDER BY m.timestamp DESC, m.id DESC
			LIMIT ?
		) ORDER BY timestamp ASC, id ASC`,
		group, clampLimit(limit),
	)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, op, query string, args ...any) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("querying messages: %w", err))
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		var msg Message
		var ts timestamp
		if err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.SenderName, &msg.SenderEmail,
			&msg.GroupID, &msg.RecipientID,
			&msg.Content, &msg.Type, &ts,
		); err != nil {
			return nil, s.fail(op, fmt.Errorf("scanning message row: %w", err))
		}
		msg.Timestamp = ts.Time
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, fmt.Errorf("iterating message rows: %w", err))
	}
	return messages, nil
}

// insertMessageAt writes a message with an explicit timestamp. Used by Seed
// to lay out demo history in the past.
func insertMessageAt(ctx context.Context, tx *sql.Tx, sender UserID, group GroupID, recipient UserID, content string, at time.Time) error {
	var groupID, recipientID sql.NullInt64
	if group != 0 {
		groupID = sql.NullInt64{Int64: int64(group), Valid: true}
	}
	if recipient != 0 {
		recipientID = sql.NullInt64{Int64: int64(recipient), Valid: true}
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO messages (sender_id, chatgroup_id, recipient_id, content, timestamp, type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sender, groupID, recipientID, content, formatTime(at), MessageTypeMessage,
	)
	if err != nil {
		return fmt.Errorf("inserting seed message: %w", err)
	}
	return nil
}
