// ABOUTME: Boundary service translating emails and group names into store ids
// ABOUTME: Runs the membership workflows that write system notices into group history

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/2389/coven-chat/internal/store"
)

// ErrForbidden is returned when the actor may not perform a creator-only action.
var ErrForbidden = errors.New("forbidden")

// Notice formats for system messages stored in group history.
const (
	noticeJoined  = "%s has joined the group chat."
	noticeLeft    = "%s has left the group"
	noticeAdded   = "%s has been added to the group by %s."
	noticeRemoved = "%s removed %s from the group."
	noticeRenamed = "%s renamed the group to %s."
)

// Service exposes chat operations keyed by emails, group names, and ids.
type Service struct {
	store        store.ChatStore
	logger       *slog.Logger
	historyLimit int
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger; the service adds component=chat.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithHistoryLimit sets the limit used when a history call passes limit <= 0.
func WithHistoryLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}

// NewService creates a Service over st.
func NewService(st store.ChatStore, opts ...Option) *Service {
	s := &Service{
		store:        st,
		logger:       slog.Default(),
		historyLimit: store.DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "chat")
	return s
}

// Register creates an account.
func (s *Service) Register(ctx context.Context, username, email, password string) (*store.User, error) {
	return s.store.Register(ctx, username, email, password)
}

// Login checks credentials.
func (s *Service) Login(ctx context.Context, email, password string) (*store.User, error) {
	return s.store.Login(ctx, email, password)
}

// LookupUserByEmail resolves an email to a user; used to validate invite targets.
func (s *Service) LookupUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.store.UserByEmail(ctx, email)
}

// Users lists everyone except the given user.
func (s *Service) Users(ctx context.Context, except store.UserID) ([]*store.User, error) {
	return s.store.ListUsers(ctx, except)
}

// StartSession logs in and issues a session token valid for ttl.
func (s *Service) StartSession(ctx context.Context, email, password string, ttl time.Duration) (*store.User, *store.Session, error) {
	u, err := s.store.Login(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}
	sess, err := s.store.CreateSession(ctx, u.ID, ttl)
	if err != nil {
		return nil, nil, err
	}
	if n, err := s.store.DeleteExpiredSessions(ctx); err == nil && n > 0 {
		s.logger.Debug("pruned sessions on login", "count", n)
	}
	return u, sess, nil
}

// ResumeSession returns the user behind token.
func (s *Service) ResumeSession(ctx context.Context, token string) (*store.User, error) {
	return s.store.SessionUser(ctx, token)
}

// EndSession discards token.
func (s *Service) EndSession(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, token)
}

// CreateOrGetGroup returns the group called name, creating it with
// creatorEmail as creator and first member when it does not exist.
func (s *Service) CreateOrGetGroup(ctx context.Context, name, creatorEmail string) (*store.Group, bool, error) {
	creator, err := s.store.UserByEmail(ctx, creatorEmail)
	if err != nil {
		return nil, false, err
	}
	return s.store.CreateOrGetGroup(ctx, name, creator.ID)
}

// Group resolves a group name.
func (s *Service) Group(ctx context.Context, name string) (*store.Group, error) {
	return s.store.GroupByName(ctx, name)
}

// GroupByID resolves a group id.
func (s *Service) GroupByID(ctx context.Context, id store.GroupID) (*store.Group, error) {
	return s.store.GroupByID(ctx, id)
}

// Groups lists every group.
func (s *Service) Groups(ctx context.Context) ([]*store.Group, error) {
	return s.store.ListGroups(ctx)
}

// JoinGroup enrolls the user with email in the group; already a member is success.
func (s *Service) JoinGroup(ctx context.Context, email string, groupID store.GroupID) error {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	_, err = s.store.JoinGroup(ctx, u.ID, groupID)
	return err
}

// RemoveMember deletes the membership of email in groupName. Fails when
// either lookup fails or there was no membership.
func (s *Service) RemoveMember(ctx context.Context, email, groupName string) error {
	u, g, err := s.resolve(ctx, email, groupName)
	if err != nil {
		return err
	}
	return s.store.RemoveMember(ctx, u.ID, g.ID)
}

// IsMember reports whether email belongs to groupName. An unknown user or
// group is simply not a member.
func (s *Service) IsMember(ctx context.Context, email, groupName string) (bool, error) {
	u, g, err := s.resolve(ctx, email, groupName)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.store.IsMember(ctx, u.ID, g.ID)
}

// ListGroupMembers returns the members of groupName ordered by name.
func (s *Service) ListGroupMembers(ctx context.Context, groupName string) ([]*store.User, error) {
	g, err := s.store.GroupByName(ctx, groupName)
	if err != nil {
		return nil, err
	}
	return s.store.ListGroupMembers(ctx, g.ID)
}

// ListCreatedGroups returns the groups email created.
func (s *Service) ListCreatedGroups(ctx context.Context, email string) ([]store.GroupSummary, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.ListCreatedGroups(ctx, u.ID)
}

// ListJoinedGroups returns the groups email belongs to but did not create.
func (s *Service) ListJoinedGroups(ctx context.Context, email string) ([]store.GroupSummary, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.ListJoinedGroups(ctx, u.ID)
}

// ListUserGroups returns every group email belongs to.
func (s *Service) ListUserGroups(ctx context.Context, email string) ([]store.GroupSummary, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.store.ListUserGroups(ctx, u.ID)
}

// GroupAdmin returns the creator of the group.
func (s *Service) GroupAdmin(ctx context.Context, groupID store.GroupID) (*store.User, error) {
	return s.store.GroupAdmin(ctx, groupID)
}

// RenameGroup renames oldName to newName.
func (s *Service) RenameGroup(ctx context.Context, oldName, newName string) error {
	g, err := s.store.GroupByName(ctx, oldName)
	if err != nil {
		return err
	}
	return s.store.RenameGroup(ctx, g.ID, newName)
}

// DeleteGroup removes the group with all its messages and memberships.
func (s *Service) DeleteGroup(ctx context.Context, groupID store.GroupID) error {
	return s.store.DeleteGroup(ctx, groupID)
}

// SendDirect sends content from senderEmail to recipientEmail.
func (s *Service) SendDirect(ctx context.Context, senderEmail, recipientEmail, content string) (*store.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", store.ErrInvalidInput)
	}
	sender, err := s.store.UserByEmail(ctx, senderEmail)
	if err != nil {
		return nil, err
	}
	recipient, err := s.store.UserByEmail(ctx, recipientEmail)
	if err != nil {
		return nil, err
	}
	return s.store.SendDirect(ctx, sender.ID, recipient.ID, content)
}

// SendToGroup posts content from senderEmail into groupName. msgType is
// store.MessageTypeMessage (or empty) for user content.
func (s *Service) SendToGroup(ctx context.Context, senderEmail, groupName, content, msgType string) (*store.Message, error) {
	if content == "" {
		return nil, fmt.Errorf("%w: message content is empty", store.ErrInvalidInput)
	}
	u, g, err := s.resolve(ctx, senderEmail, groupName)
	if err != nil {
		return nil, err
	}
	return s.store.SendToGroup(ctx, u.ID, g.ID, content, msgType)
}

// DirectHistory returns the most recent limit messages between two users,
// oldest first. limit <= 0 uses the configured history limit.
func (s *Service) DirectHistory(ctx context.Context, emailA, emailB string, limit int) ([]*store.Message, error) {
	a, err := s.store.UserByEmail(ctx, emailA)
	if err != nil {
		return nil, err
	}
	b, err := s.store.UserByEmail(ctx, emailB)
	if err != nil {
		return nil, err
	}
	return s.store.DirectHistory(ctx, a.ID, b.ID, s.limit(limit))
}

// GroupHistory returns the most recent limit messages of groupName, oldest first.
func (s *Service) GroupHistory(ctx context.Context, groupName string, limit int) ([]*store.Message, error) {
	g, err := s.store.GroupByName(ctx, groupName)
	if err != nil {
		return nil, err
	}
	return s.store.GroupHistory(ctx, g.ID, s.limit(limit))
}

func (s *Service) limit(limit int) int {
	if limit <= 0 {
		return s.historyLimit
	}
	return limit
}

func (s *Service) resolve(ctx context.Context, email, groupName string) (*store.User, *store.Group, error) {
	u, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	g, err := s.store.GroupByName(ctx, groupName)
	if err != nil {
		return nil, nil, err
	}
	return u, g, nil
}
