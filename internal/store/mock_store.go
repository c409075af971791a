// ABOUTME: Mock ChatStore implementation for testing
// ABOUTME: Allows tests of higher layers to run without SQLite

package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-chat/internal/auth"
)

// MockStore is an in-memory ChatStore implementation for testing.
// Passwords are kept in clear text; it is not meant for real data.
type MockStore struct {
	mu        sync.RWMutex
	users     map[UserID]*mockUser
	groups    map[GroupID]*Group
	members   map[GroupID]map[UserID]bool
	messages  []*Message
	sessions  map[string]*Session
	nextUser  UserID
	nextGroup GroupID
	nextMsg   MessageID
	closed    bool

	// Now returns the current time. Tests may replace it.
	Now func() time.Time
}

type mockUser struct {
	User
	password string
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		users:    make(map[UserID]*mockUser),
		groups:   make(map[GroupID]*Group),
		members:  make(map[GroupID]map[UserID]bool),
		sessions: make(map[string]*Session),
		Now:      time.Now,
	}
}

var errMockClosed = fmt.Errorf("%w: store is closed", ErrStorage)

// Register creates a user.
func (m *MockStore) Register(ctx context.Context, username, email, password string) (*User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if err := validateStruct(registration{Username: username, Email: email, Password: password}); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errMockClosed
	}

	for _, u := range m.users {
		if u.Name == username || u.Email == email {
			return nil, ErrAlreadyExists
		}
	}
	m.nextUser++
	u := &mockUser{User: User{ID: m.nextUser, Name: username, Email: email}, password: password}
	m.users[u.ID] = u

	out := u.User
	return &out, nil
}

// Login returns the user whose email and password match.
func (m *MockStore) Login(ctx context.Context, email, password string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	u := m.userByEmail(strings.TrimSpace(email))
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if match, _ := auth.VerifyPassword(u.password, password); !match {
		return nil, ErrInvalidCredentials
	}
	out := u.User
	return &out, nil
}

func (m *MockStore) userByEmail(email string) *mockUser {
	for _, u := range m.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

// UserByEmail looks a user up by email.
func (m *MockStore) UserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	u := m.userByEmail(strings.TrimSpace(email))
	if u == nil {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	out := u.User
	return &out, nil
}

// UserByID looks a user up by id.
func (m *MockStore) UserByID(ctx context.Context, id UserID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	out := u.User
	return &out, nil
}

// ListUsers returns every user except exclude, ordered by name.
func (m *MockStore) ListUsers(ctx context.Context, exclude UserID) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	var out []*User
	for id, u := range m.users {
		if id == exclude {
			continue
		}
		cp := u.User
		out = append(out, &cp)
	}
	sortUsers(out)
	return out, nil
}

func sortUsers(users []*User) {
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
}

// CreateOrGetGroup returns the named group, creating it and enrolling the
// creator when it does not exist.
func (m *MockStore) CreateOrGetGroup(ctx context.Context, name string, creator UserID) (*Group, bool, error) {
	name = strings.TrimSpace(name)
	if err := validateGroupName(name); err != nil {
		return nil, false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, false, errMockClosed
	}

	if g := m.groupByName(name); g != nil {
		out := *g
		return &out, false, nil
	}
	if _, ok := m.users[creator]; !ok {
		return nil, false, fmt.Errorf("user %d: %w", creator, ErrNotFound)
	}

	m.nextGroup++
	g := &Group{ID: m.nextGroup, Name: name, CreatedAt: m.Now().UTC(), CreatedBy: creator}
	m.groups[g.ID] = g
	m.members[g.ID] = map[UserID]bool{creator: true}

	out := *g
	return &out, true, nil
}

func (m *MockStore) groupByName(name string) *Group {
	for _, g := range m.groups {
		if g.Name == name {
			return g
		}
	}
	return nil
}

// GroupByName looks a group up by name.
func (m *MockStore) GroupByName(ctx context.Context, name string) (*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	g := m.groupByName(strings.TrimSpace(name))
	if g == nil {
		return nil, fmt.Errorf("group: %w", ErrNotFound)
	}
	out := *g
	return &out, nil
}

// GroupByID looks a group up by id.
func (m *MockStore) GroupByID(ctx context.Context, id GroupID) (*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	g, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("group: %w", ErrNotFound)
	}
	out := *g
	return &out, nil
}

// ListGroups returns every group ordered by name.
func (m *MockStore) ListGroups(ctx context.Context) ([]*Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	out := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		cp := *g
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GroupAdmin returns the creator of the group.
func (m *MockStore) GroupAdmin(ctx context.Context, id GroupID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	g, ok := m.groups[id]
	if !ok {
		return nil, fmt.Errorf("group admin: %w", ErrNotFound)
	}
	u, ok := m.users[g.CreatedBy]
	if !ok {
		return nil, fmt.Errorf("group admin: %w", ErrNotFound)
	}
	out := u.User
	return &out, nil
}

// RenameGroup changes a group's name.
func (m *MockStore) RenameGroup(ctx context.Context, id GroupID, newName string) error {
	newName = strings.TrimSpace(newName)
	if err := validateGroupName(newName); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMockClosed
	}

	g, ok := m.groups[id]
	if !ok {
		return fmt.Errorf("group: %w", ErrNotFound)
	}
	if other := m.groupByName(newName); other != nil && other.ID != id {
		return fmt.Errorf("group %q: %w", newName, ErrAlreadyExists)
	}
	g.Name = newName
	return nil
}

// DeleteGroup removes the group with its messages and memberships.
func (m *MockStore) DeleteGroup(ctx context.Context, id GroupID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMockClosed
	}

	if _, ok := m.groups[id]; !ok {
		return fmt.Errorf("group: %w", ErrNotFound)
	}
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.GroupID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	delete(m.members, id)
	delete(m.groups, id)
	return nil
}

// JoinGroup enrolls user in group; already being a member is not an error.
func (m *MockStore) JoinGroup(ctx context.Context, user UserID, group GroupID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, errMockClosed
	}

	if _, ok := m.users[user]; !ok {
		return false, fmt.Errorf("user %d: %w", user, ErrNotFound)
	}
	if _, ok := m.groups[group]; !ok {
		return false, fmt.Errorf("group: %w", ErrNotFound)
	}
	if m.members[group][user] {
		return false, nil
	}
	if m.members[group] == nil {
		m.members[group] = make(map[UserID]bool)
	}
	m.members[group][user] = true
	return true, nil
}

// RemoveMember deletes a membership; ErrNotFound when there was none.
func (m *MockStore) RemoveMember(ctx context.Context, user UserID, group GroupID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMockClosed
	}

	if !m.members[group][user] {
		return fmt.Errorf("membership: %w", ErrNotFound)
	}
	delete(m.members[group], user)
	return nil
}

// IsMember reports whether user belongs to group.
func (m *MockStore) IsMember(ctx context.Context, user UserID, group GroupID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false, errMockClosed
	}
	return m.members[group][user], nil
}

// ListGroupMembers returns the members of group ordered by name.
func (m *MockStore) ListGroupMembers(ctx context.Context, group GroupID) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	var out []*User
	for id := range m.members[group] {
		if u, ok := m.users[id]; ok {
			cp := u.User
			out = append(out, &cp)
		}
	}
	sortUsers(out)
	return out, nil
}

// ListCreatedGroups returns the groups user created.
func (m *MockStore) ListCreatedGroups(ctx context.Context, user UserID) ([]GroupSummary, error) {
	return m.summaries(func(g *Group) bool { return g.CreatedBy == user })
}

// ListJoinedGroups returns the groups user belongs to but did not create.
func (m *MockStore) ListJoinedGroups(ctx context.Context, user UserID) ([]GroupSummary, error) {
	return m.summaries(func(g *Group) bool {
		return g.CreatedBy != user && m.members[g.ID][user]
	})
}

// ListUserGroups returns every group user belongs to.
func (m *MockStore) ListUserGroups(ctx context.Context, user UserID) ([]GroupSummary, error) {
	return m.summaries(func(g *Group) bool { return m.members[g.ID][user] })
}

func (m *MockStore) summaries(keep func(*Group) bool) ([]GroupSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	var out []GroupSummary
	for _, g := range m.groups {
		if keep(g) {
			out = append(out, GroupSummary{ID: g.ID, Name: g.Name, MemberCount: len(m.members[g.ID])})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SendDirect stores a direct message.
func (m *MockStore) SendDirect(ctx context.Context, sender, recipient UserID, content string) (*Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errMockClosed
	}

	if _, ok := m.users[sender]; !ok {
		return nil, fmt.Errorf("user %d: %w", sender, ErrNotFound)
	}
	if _, ok := m.users[recipient]; !ok {
		return nil, fmt.Errorf("user %d: %w", recipient, ErrNotFound)
	}
	return m.append(&Message{SenderID: sender, RecipientID: recipient, Content: content, Type: MessageTypeMessage}), nil
}

// SendToGroup stores a group message.
func (m *MockStore) SendToGroup(ctx context.Context, sender UserID, group GroupID, content, msgType string) (*Message, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	msgType, ok := normalizeType(msgType)
	if !ok {
		return nil, fmt.Errorf("%w: unknown message type %q", ErrInvalidInput, msgType)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errMockClosed
	}

	if _, ok := m.users[sender]; !ok {
		return nil, fmt.Errorf("user %d: %w", sender, ErrNotFound)
	}
	if _, ok := m.groups[group]; !ok {
		return nil, fmt.Errorf("group: %w", ErrNotFound)
	}
	return m.append(&Message{SenderID: sender, GroupID: group, Content: content, Type: msgType}), nil
}

// append assigns id, time, and sender details. Caller holds m.mu.
func (m *MockStore) append(msg *Message) *Message {
	m.nextMsg++
	msg.ID = m.nextMsg
	msg.Timestamp = m.Now().UTC()
	sender := m.users[msg.SenderID]
	msg.SenderName = sender.Name
	msg.SenderEmail = sender.Email
	m.messages = append(m.messages, msg)

	out := *msg
	return &out
}

// DirectHistory returns the most recent limit direct messages between a and b.
func (m *MockStore) DirectHistory(ctx context.Context, a, b UserID, limit int) ([]*Message, error) {
	return m.history(limit, func(msg *Message) bool {
		return msg.GroupID == 0 &&
			((msg.SenderID == a && msg.RecipientID == b) || (msg.SenderID == b && msg.RecipientID == a))
	})
}

// GroupHistory returns the most recent limit messages of group.
func (m *MockStore) GroupHistory(ctx context.Context, group GroupID, limit int) ([]*Message, error) {
	return m.history(limit, func(msg *Message) bool { return msg.GroupID == group })
}

func (m *MockStore) history(limit int, match func(*Message) bool) ([]*Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	var out []*Message
	for _, msg := range m.messages {
		if match(msg) {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if n := clampLimit(limit); len(out) > n {
		out = out[len(out)-n:]
	}
	return out, nil
}

// CreateSession issues a token for user.
func (m *MockStore) CreateSession(ctx context.Context, user UserID, ttl time.Duration) (*Session, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: session ttl must be positive", ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errMockClosed
	}

	if _, ok := m.users[user]; !ok {
		return nil, fmt.Errorf("user %d: %w", user, ErrNotFound)
	}
	now := m.Now().UTC()
	sess := &Session{Token: auth.NewSessionToken(), UserID: user, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	m.sessions[sess.Token] = sess

	out := *sess
	return &out, nil
}

// SessionUser resolves an unexpired token to its user.
func (m *MockStore) SessionUser(ctx context.Context, token string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, errMockClosed
	}

	sess, ok := m.sessions[strings.TrimSpace(token)]
	if !ok || !m.Now().Before(sess.ExpiresAt) {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	u, ok := m.users[sess.UserID]
	if !ok {
		return nil, fmt.Errorf("session: %w", ErrNotFound)
	}
	out := u.User
	return &out, nil
}

// DeleteSession removes a token.
func (m *MockStore) DeleteSession(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errMockClosed
	}
	delete(m.sessions, strings.TrimSpace(token))
	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (m *MockStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errMockClosed
	}

	var n int64
	now := m.Now()
	for token, sess := range m.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n, nil
}

// Close marks the store closed; later calls fail with ErrStorage.
func (m *MockStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("store already closed")
	}
	m.closed = true
	return nil
}

// Ensure MockStore implements ChatStore
var _ ChatStore = (*MockStore)(nil)
