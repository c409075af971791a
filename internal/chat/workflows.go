// ABOUTME: Membership workflows performed by a logged-in user
// ABOUTME: Each change is followed by a system notice in the group's history

package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/coven-chat/internal/store"
)

// EnterGroup opens a group for actor, joining it first when actor is not a
// member yet. joined reports whether a membership was created.
func (s *Service) EnterGroup(ctx context.Context, actor *store.User, groupID store.GroupID) (bool, error) {
	joined, err := s.store.JoinGroup(ctx, actor.ID, groupID)
	if err != nil {
		return false, err
	}
	if !joined {
		return false, nil
	}

	s.notice(ctx, actor.ID, groupID, fmt.Sprintf(noticeJoined, actor.Name))
	s.logger.Info("user joined group", "user", actor.Email, "group_id", groupID)
	return true, nil
}

// LeaveGroup removes actor from groupName. Fails with store.ErrNotFound when
// actor is not a member.
func (s *Service) LeaveGroup(ctx context.Context, actor *store.User, groupName string) error {
	g, err := s.store.GroupByName(ctx, groupName)
	if err != nil {
		return err
	}
	if err := s.store.RemoveMember(ctx, actor.ID, g.ID); err != nil {
		return err
	}

	s.notice(ctx, actor.ID, g.ID, fmt.Sprintf(noticeLeft, actor.Name))
	s.logger.Info("user left group", "user", actor.Email, "group", g.Name)
	return nil
}

// AddMember enrolls inviteeEmail in groupName on actor's behalf. The actor
// must be a member; the invitee must exist and must not already be a member.
func (s *Service) AddMember(ctx context.Context, actor *store.User, inviteeEmail, groupName string) (*store.User, error) {
	g, err := s.store.GroupByName(ctx, groupName)
	if err != nil {
		return nil, err
	}
	member, err := s.store.IsMember(ctx, actor.ID, g.ID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, fmt.Errorf("only members can add to %s: %w", g.Name, ErrForbidden)
	}
	invitee, err := s.LookupUserByEmail(ctx, inviteeEmail)
	if err != nil {
		return nil, err
	}

	joined, err := s.store.JoinGroup(ctx, invitee.ID, g.ID)
	if err != nil {
		return nil, err
	}
	if !joined {
		return nil, fmt.Errorf("%s is already a member of %s: %w", invitee.Name, g.Name, store.ErrAlreadyExists)
	}

	s.notice(ctx, actor.ID, g.ID, fmt.Sprintf(noticeAdded, invitee.Name, actor.Name))
	s.logger.Info("member added", "by", actor.Email, "user", invitee.Email, "group", g.Name)
	return invitee, nil
}

// KickMember removes memberEmail from groupName. Only the group's creator
// may do this, and the creator cannot be removed.
func (s *Service) KickMember(ctx context.Context, actor *store.User, memberEmail, groupName string) error {
	g, err := s.requireCreator(ctx, actor, groupName)
	if err != nil {
		return err
	}
	member, err := s.store.UserByEmail(ctx, memberEmail)
	if err != nil {
		return err
	}
	if member.ID == g.CreatedBy {
		return fmt.Errorf("%w: the group creator cannot be removed", store.ErrInvalidInput)
	}
	if err := s.store.RemoveMember(ctx, member.ID, g.ID); err != nil {
		return err
	}

	s.notice(ctx, actor.ID, g.ID, fmt.Sprintf(noticeRemoved, actor.Name, member.Name))
	s.logger.Info("member removed", "by", actor.Email, "user", member.Email, "group", g.Name)
	return nil
}

// RenameGroupAs renames a group on behalf of its creator.
func (s *Service) RenameGroupAs(ctx context.Context, actor *store.User, oldName, newName string) error {
	g, err := s.requireCreator(ctx, actor, oldName)
	if err != nil {
		return err
	}
	if err := s.store.RenameGroup(ctx, g.ID, newName); err != nil {
		return err
	}

	s.notice(ctx, actor.ID, g.ID, fmt.Sprintf(noticeRenamed, actor.Name, newName))
	s.logger.Info("group renamed", "by", actor.Email, "from", oldName, "to", newName)
	return nil
}

// DeleteGroupAs deletes a group on behalf of its creator.
func (s *Service) DeleteGroupAs(ctx context.Context, actor *store.User, groupID store.GroupID) error {
	g, err := s.store.GroupByID(ctx, groupID)
	if err != nil {
		return err
	}
	if g.CreatedBy != actor.ID {
		return fmt.Errorf("only the creator can delete %s: %w", g.Name, ErrForbidden)
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return err
	}

	s.logger.Info("group deleted", "by", actor.Email, "group", g.Name)
	return nil
}

func (s *Service) requireCreator(ctx context.Context, actor *store.User, groupName string) (*store.Group, error) {
	g, err := s.store.GroupByName(ctx, groupName)
	if err != nil {
		return nil, err
	}
	if g.CreatedBy != actor.ID {
		return nil, fmt.Errorf("only the creator can manage %s: %w", g.Name, ErrForbidden)
	}
	return g, nil
}

// notice stores a system message. The membership change it describes has
// already happened, so a failure here is logged rather than returned.
func (s *Service) notice(ctx context.Context, sender store.UserID, group store.GroupID, text string) {
	if _, err := s.store.SendToGroup(ctx, sender, group, text, store.MessageTypeSystem); err != nil {
		s.logger.Warn("could not store system notice", "group_id", group, "error", err)
	}
}

// IsUserError reports whether err is an expected condition the user can
// correct, as opposed to a storage failure.
func IsUserError(err error) bool {
	return errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, store.ErrAlreadyExists) ||
		errors.Is(err, store.ErrInvalidInput) ||
		errors.Is(err, store.ErrInvalidCredentials) ||
		errors.Is(err, ErrForbidden)
}
