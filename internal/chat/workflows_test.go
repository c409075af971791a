// ABOUTME: Tests for enter/leave/add/kick/rename/delete workflows
// ABOUTME: Verifies permission checks and the system notices each one stores

package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/store"
)

func TestEnterGroup(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	joined, err := f.svc.EnterGroup(ctx, f.bob, f.group.ID)
	require.NoError(t, err)
	assert.True(t, joined)

	msg := lastMessage(t, f)
	assert.True(t, msg.IsSystem())
	assert.Equal(t, "Bob has joined the group chat.", msg.Content)

	// Entering again neither rejoins nor posts another notice
	joined, err = f.svc.EnterGroup(ctx, f.bob, f.group.ID)
	require.NoError(t, err)
	assert.False(t, joined)

	history, err := f.svc.GroupHistory(ctx, "General", 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.EnterGroup(ctx, f.bob, 999)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLeaveGroup(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	_, err := f.svc.EnterGroup(ctx, f.bob, f.group.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.LeaveGroup(ctx, f.bob, "General"))
	assert.Equal(t, "Bob has left the group", lastMessage(t, f).Content)

	isMember, err := f.svc.IsMember(ctx, "bob@example.com", "General")
	require.NoError(t, err)
	assert.False(t, isMember)

	assert.ErrorIs(t, f.svc.LeaveGroup(ctx, f.bob, "General"), store.ErrNotFound)
}

func TestAddMember(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	invitee, err := f.svc.AddMember(ctx, f.alice, "bob@example.com", "General")
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, invitee.ID)
	assert.Equal(t, "Bob has been added to the group by Alice.", lastMessage(t, f).Content)

	_, err = f.svc.AddMember(ctx, f.alice, "bob@example.com", "General")
	assert.ErrorIs(t, err, store.ErrAlreadyExists)

	_, err = f.svc.AddMember(ctx, f.alice, "nobody@example.com", "General")
	assert.ErrorIs(t, err, store.ErrNotFound)

	// Any member may add, not only the creator
	_, err = f.svc.AddMember(ctx, f.bob, "charlie@example.com", "General")
	require.NoError(t, err)
	assert.Equal(t, "Charlie has been added to the group by Bob.", lastMessage(t, f).Content)
}

func TestAddMember_ActorMustBeMember(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	_, err := f.svc.AddMember(ctx, f.bob, "charlie@example.com", "General")
	assert.ErrorIs(t, err, ErrForbidden)

	member, err := f.svc.IsMember(ctx, "charlie@example.com", "General")
	require.NoError(t, err)
	assert.False(t, member)

	history, err := f.svc.GroupHistory(ctx, "General", 0)
	require.NoError(t, err)
	assert.Empty(t, history, "a refused add stores no notice")

	_, err = f.svc.AddMember(ctx, f.bob, "charlie@example.com", "Nowhere")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestKickMember(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	_, err := f.svc.AddMember(ctx, f.alice, "bob@example.com", "General")
	require.NoError(t, err)
	_, err = f.svc.AddMember(ctx, f.alice, "charlie@example.com", "General")
	require.NoError(t, err)

	// Only the creator may kick
	err = f.svc.KickMember(ctx, f.bob, "charlie@example.com", "General")
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.KickMember(ctx, f.alice, "charlie@example.com", "General"))
	assert.Equal(t, "Alice removed Charlie from the group.", lastMessage(t, f).Content)

	err = f.svc.KickMember(ctx, f.alice, "charlie@example.com", "General")
	assert.ErrorIs(t, err, store.ErrNotFound)

	err = f.svc.KickMember(ctx, f.alice, "alice@example.com", "General")
	assert.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestRenameGroupAs(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.RenameGroupAs(ctx, f.bob, "General", "Lobby"), ErrForbidden)

	require.NoError(t, f.svc.RenameGroupAs(ctx, f.alice, "General", "Lobby"))
	history, err := f.svc.GroupHistory(ctx, "Lobby", 0)
	require.NoError(t, err)
	require.NotEmpty(t, history)
	assert.Equal(t, "Alice renamed the group to Lobby.", history[len(history)-1].Content)
}

func TestDeleteGroupAs(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.DeleteGroupAs(ctx, f.bob, f.group.ID), ErrForbidden)

	require.NoError(t, f.svc.DeleteGroupAs(ctx, f.alice, f.group.ID))
	_, err := f.svc.GroupByID(ctx, f.group.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, f.svc.DeleteGroupAs(ctx, f.alice, f.group.ID), store.ErrNotFound)
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(store.ErrNotFound))
	assert.True(t, IsUserError(ErrForbidden))
	assert.True(t, IsUserError(store.ErrInvalidCredentials))
	assert.False(t, IsUserError(store.ErrStorage))
	assert.False(t, IsUserError(nil))
}
