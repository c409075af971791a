// ABOUTME: Tests for direct and group messaging in the SQLite store
// ABOUTME: Covers validation, the group/recipient invariant, and newest-N-ascending history

package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contents(msgs []*Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Content
	}
	return out
}

func TestStore_SendDirect(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	alice := mustRegister(t, store, "alice", "alice@example.com")
	bob := mustRegister(t, store, "bob", "bob@example.com")

	msg, err := store.SendDirect(ctx, alice.ID, bob.ID, "hello bob")
	require.NoError(t, err)
	assert.NotZero(t, msg.ID)
	assert.True(t, msg.IsDirect())
	assert.Equal(t, bob.ID, msg.RecipientID)
	assert.Zero(t, msg.GroupID)
	assert.Equal(t, "alice", msg.SenderName)
	assert.Equal(t, "alice@example.com", msg.SenderEmail)
	assert.Equal(t, MessageTypeMessage, msg.Type)
	assert.False(t, msg.Timestamp.IsZero())
}

func TestStore_SentTimestampMatchesHistory(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	alice := mustRegister(t, store, "alice", "alice@example.com")
	bob := mustRegister(t, store, "bob", "bob@example.com")
	g, _, err := store.CreateOrGetGroup(ctx, "G", alice.ID)
	require.NoError(t, err)

	store.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.UTC) }

	direct, err := store.SendDirect(ctx, alice.ID, bob.ID, "dm")
	require.NoError(t, err)
	grouped, err := store.SendToGroup(ctx, alice.ID, g.ID, "group", MessageTypeMessage)
	require.NoError(t, err)

	want := time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.UTC)
	assert.True(t, want.Equal(direct.Timestamp), "got %s", direct.Timestamp)
	assert.True(t, want.Equal(grouped.Timestamp), "got %s", grouped.Timestamp)

	dms, err := store.DirectHistory(ctx, alice.ID, bob.ID, 0)
	require.NoError(t, err)
	require.Len(t, dms, 1)
	assert.True(t, direct.Timestamp.Equal(dms[0].Timestamp), "sent %s, read %s", direct.Timestamp, dms[0].Timestamp)

	history, err := store.GroupHistory(ctx, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, grouped.Timestamp.Equal(history[0].Timestamp), "sent %s, read %s", grouped.Timestamp, history[0].Timestamp)
}

func TestStore_SendDirect_EmptyContent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	alice := mustRegister(t, store, "alice", "alice@example.com")
	bob := mustRegister(t, store, "bob", "bob@example.com")

	_, err := store.SendDirect(ctx, alice.ID, bob.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, 0, countRows(t, store, `SELECT COUNT(*) FROM messages`))
}

func TestStore_SendDirect_UnknownUsers(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	alice := mustRegister(t, store, "alice", "alice@example.com")

	_, err := store.SendDirect(ctx, alice.ID, 999, "hi")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.SendDirect(ctx, 999, alice.ID, "hi")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SendToGroup(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	alice := mustRegister(t, store, "alice", "alice@example.com")
	g, _, err := store.CreateOrGetGroup(ctx, "G", alice.ID)
	require.NoError(t, err)

	msg, err := store.SendToGroup(ctx, alice.ID, g.ID, "hello all", "")
	require.NoError(t, err)
	assert.Equal(t, g.ID, msg.GroupID)
	assert.Zero(t, msg.RecipientID)
	assert.Equal(t, MessageTypeMessage, msg.Type)

	notice, err := store.SendToGroup(ctx, alice.ID, g.ID, "alice has joined the group chat.", MessageTypeSystem)
	require.NoError(t, err)
	assert.True(t, notice.IsSystem())

	_, err = store.SendToGroup(ctx, alice.ID, g.ID, "x", "shout")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = store.SendToGroup(ctx, alice.ID, g.ID, "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = store.SendToGroup(ctx, alice.ID, 999, "hi", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.SendToGroup(ctx, 999, g.ID, "hi", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_MessageTargetInvariant(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	alice := mustRegister(t, store, "alice", "alice@example.com")
	bob := mustRegister(t, store, "bob", "bob@example.com")
	g, _, err := store.CreateOrGetGroup(ctx, "G", alice.ID)
	require.NoError(t, err)

	_, err = store.SendDirect(ctx, alice.ID, bob.ID, "dm")
	require.NoError(t, err)
	_, err = store.SendToGroup(ctx, alice.ID, g.ID, "group", "")
	require.NoError(t, err)

	assert.Equal(t, 0, countRows(t, store,
		`SELECT COUNT(*) FROM messages WHERE chatgroup_id IS NOT NULL AND recipient_id IS NOT NULL`))
	assert.Equal(t, 0, countRows(t, store,
		`SELECT COUNT(*) FROM messages WHERE chatgroup_id IS NULL AND recipient_id IS NULL`))

	// The schema rejects both shapes even when written directly
	_, err = store.db.Exec(`INSERT INTO messages (sender_id, chatgroup_id, recipient_id, content, timestamp)
		VALUES (?, ?, ?, 'both', '2024-01-01 00:00:00')`, alice.ID, g.ID, bob.ID)
	assert.Error(t, err)
	_, err = store.db.Exec(`INSERT INTO messages (sender_id, content, timestamp)
		VALUES (?, 'neither', '2024-01-01 00:00:00')`, alice.ID)
	assert.Error(t, err)

	// insertMessage refuses before reaching the database
	err = store.withTx(ctx, "test", func(tx *sql.Tx) error {
		return store.insertMessage(ctx, tx, &Message{SenderID: alice.ID, Content: "neither", Type: MessageTypeMessage})
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestStore_DirectHistory_MostRecentAscending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	store.now = steppingClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.Minute)

	alice := mustRegister(t, store, "alice", "alice@example.com")
	bob := mustRegister(t, store, "bob", "bob@example.com")

	_, err := store.SendDirect(ctx, alice.ID, bob.ID, "t1")
	require.NoError(t, err)
	_, err = store.SendDirect(ctx, bob.ID, alice.ID, "t2")
	require.NoError(t, err)
	_, err = store.SendDirect(ctx, alice.ID, bob.ID, "t3")
	require.NoError(t, err)

	history, err := store.DirectHistory(ctx, alice.ID, bob.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"t2", "t3"}, contents(history))
	assert.True(t, history[0].Timestamp.Before(history[1].Timestamp))

	// Argument order does not matter
	history, err = store.DirectHistory(ctx, bob.ID, alice.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1", "t2", "t3"}, contents(history))
	assert.Equal(t, "bob", history[1].SenderName)
}

func TestStore_DirectHistory_OnlyThatPair(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	alice := mustRegister(t, store, "alice", "alice@example.com")
	bob := mustRegister(t, store, "bob", "bob@example.com")
	carol := mustRegister(t, store, "carol", "carol@example.com")
	g, _, err := store.CreateOrGetGroup(ctx, "G", alice.ID)
	require.NoError(t, err)

	_, err = store.SendDirect(ctx, alice.ID, bob.ID, "to bob")
	require.NoError(t, err)
	_, err = store.SendDirect(ctx, alice.ID, carol.ID, "to carol")
	require.NoError(t, err)
	_, err = store.SendToGroup(ctx, alice.ID, g.ID, "to group", "")
	require.NoError(t, err)

	history, err := store.DirectHistory(ctx, alice.ID, bob.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"to bob"}, contents(history))

	history, err = store.DirectHistory(ctx, bob.ID, carol.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStore_GroupHistory_MostRecentAscending(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	store.now = steppingClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), time.Second)

	alice := mustRegister(t, store, "alice", "alice@example.com")
	g, _, err := store.CreateOrGetGroup(ctx, "G", alice.ID)
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		_, err := store.SendToGroup(ctx, alice.ID, g.ID, fmt.Sprintf("m%d", i), "")
		require.NoError(t, err)
	}
	_, err = store.SendToGroup(ctx, alice.ID, g.ID, "alice renamed the group", MessageTypeSystem)
	require.NoError(t, err)

	history, err := store.GroupHistory(ctx, g.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"m4", "m5", "alice renamed the group"}, contents(history))
	assert.Equal(t, MessageTypeSystem, history[2].Type)
	assert.Equal(t, "alice@example.com", history[0].SenderEmail)

	all, err := store.GroupHistory(ctx, g.ID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 6)
}

func TestStore_History_SameTimestampKeepsInsertOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	frozen := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return frozen }

	alice := mustRegister(t, store, "alice", "alice@example.com")
	g, _, err := store.CreateOrGetGroup(ctx, "G", alice.ID)
	require.NoError(t, err)

	for _, c := range []string{"a", "b", "c", "d"} {
		_, err := store.SendToGroup(ctx, alice.ID, g.ID, c, "")
		require.NoError(t, err)
	}

	history, err := store.GroupHistory(ctx, g.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, contents(history))
}

func TestStore_History_DefaultLimit(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	store.now = steppingClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Second)

	alice := mustRegister(t, store, "alice", "alice@example.com")
	g, _, err := store.CreateOrGetGroup(ctx, "G", alice.ID)
	require.NoError(t, err)

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		_, err := store.SendToGroup(ctx, alice.ID, g.ID, fmt.Sprintf("m%d", i), "")
		require.NoError(t, err)
	}

	history, err := store.GroupHistory(ctx, g.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, DefaultHistoryLimit)
	assert.Equal(t, "m5", history[0].Content)
	assert.Equal(t, fmt.Sprintf("m%d", DefaultHistoryLimit+4), history[len(history)-1].Content)
}
