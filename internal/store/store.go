// ABOUTME: ChatStore interface, data types, and error kinds for chat persistence
// ABOUTME: Defines users, groups, memberships, messages, and sessions keyed by integer ids

package store

import (
	"context"
	"errors"
	"time"
)

// Error kinds. Every store operation reports failure through one of these,
// checked with errors.Is. Nothing panics for expected conditions.
var (
	// ErrNotFound is returned when a user, group, membership, or session does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned for a duplicate username, email, or group name.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput is returned for empty content, malformed emails, and similar.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned by Login. It never says which field was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStorage wraps engine-level failures, including use of a closed store.
	ErrStorage = errors.New("storage failure")
)

// UserID identifies a user row.
type UserID int64

// GroupID identifies a chat group row.
type GroupID int64

// MessageID identifies a message row.
type MessageID int64

// User is a registered account. The stored credential never leaves the store.
type User struct {
	ID    UserID
	Name  string
	Email string
}

// Group is a named chat room with a single creator.
type Group struct {
	ID        GroupID
	Name      string
	CreatedAt time.Time
	CreatedBy UserID
}

// GroupSummary is a row of the created/joined group listings.
type GroupSummary struct {
	ID          GroupID
	Name        string
	MemberCount int
}

// MessageType constants for the messages.type column
const (
	MessageTypeMessage = "message" // Regular user content
	MessageTypeSystem  = "system"  // Join/leave/kick/rename notices written by callers
)

// Message is a stored chat message. Exactly one of GroupID and RecipientID is
// non-zero: a group message has GroupID set, a direct message has RecipientID set.
type Message struct {
	ID          MessageID
	SenderID    UserID
	SenderName  string
	SenderEmail string
	GroupID     GroupID
	RecipientID UserID
	Content     string
	Type        string
	Timestamp   time.Time
}

// IsDirect reports whether m was addressed to a single user.
func (m *Message) IsDirect() bool {
	return m.RecipientID != 0
}

// IsSystem reports whether m is a synthesized lifecycle notice.
func (m *Message) IsSystem() bool {
	return m.Type == MessageTypeSystem
}

// Session binds an opaque token to a logged-in user until ExpiresAt.
type Session struct {
	Token     string
	UserID    UserID
	CreatedAt time.Time
	ExpiresAt time.Time
}

// DefaultHistoryLimit is used when a history call passes limit <= 0.
const DefaultHistoryLimit = 50

// maxHistoryLimit caps history reads.
const maxHistoryLimit = 1000

// ChatStore owns all persistent chat state. Ids are the canonical identity
// between operations; UserByEmail and GroupByName are the translation step
// for callers that start from natural keys.
type ChatStore interface {
	// Identity
	Register(ctx context.Context, username, email, password string) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id UserID) (*User, error)
	ListUsers(ctx context.Context, exclude UserID) ([]*User, error)

	// Group lifecycle
	CreateOrGetGroup(ctx context.Context, name string, creator UserID) (*Group, bool, error)
	GroupByName(ctx context.Context, name string) (*Group, error)
	GroupByID(ctx context.Context, id GroupID) (*Group, error)
	ListGroups(ctx context.Context) ([]*Group, error)
	GroupAdmin(ctx context.Context, id GroupID) (*User, error)
	RenameGroup(ctx context.Context, id GroupID, newName string) error
	DeleteGroup(ctx context.Context, id GroupID) error

	// Membership
	JoinGroup(ctx context.Context, user UserID, group GroupID) (bool, error)
	RemoveMember(ctx context.Context, user UserID, group GroupID) error
	IsMember(ctx context.Context, user UserID, group GroupID) (bool, error)
	ListGroupMembers(ctx context.Context, group GroupID) ([]*User, error)
	ListCreatedGroups(ctx context.Context, user UserID) ([]GroupSummary, error)
	ListJoinedGroups(ctx context.Context, user UserID) ([]GroupSummary, error)
	ListUserGroups(ctx context.Context, user UserID) ([]GroupSummary, error)

	// Messaging
	SendDirect(ctx context.Context, sender, recipient UserID, content string) (*Message, error)
	SendToGroup(ctx context.Context, sender UserID, group GroupID, content, msgType string) (*Message, error)
	DirectHistory(ctx context.Context, a, b UserID, limit int) ([]*Message, error)
	GroupHistory(ctx context.Context, group GroupID, limit int) ([]*Message, error)

	// Sessions
	CreateSession(ctx context.Context, user UserID, ttl time.Duration) (*Session, error)
	SessionUser(ctx context.Context, token string) (*User, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int64, error)

	// Close releases any resources held by the store
	Close() error
}

// isDomainError reports whether err is one of the expected-condition kinds
// that pass through to callers unchanged.
func isDomainError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrStorage)
}

// clampLimit applies the default and upper bound to a history limit.
func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		return maxHistoryLimit
	}
	return limit
}

// normalizeType maps an empty message type to MessageTypeMessage and reports
// whether the result is a known type.
func normalizeType(msgType string) (string, bool) {
	switch msgType {
	case "":
		return MessageTypeMessage, true
	case MessageTypeMessage, MessageTypeSystem:
		return msgType, true
	default:
		return msgType, false
	}
}
