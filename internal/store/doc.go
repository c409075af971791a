// Package store provides persistent storage for the chat client using SQLite.
//
// # Architecture
//
// ChatStore is the single interface every caller goes through. SQLiteStore
// implements it on one database file; MockStore implements it in memory for
// tests of higher layers.
//
// Operations are grouped by area:
//
//   - Identity: Register, Login, UserByEmail, UserByID, ListUsers
//   - Groups: CreateOrGetGroup, GroupByName, GroupByID, ListGroups, GroupAdmin,
//     RenameGroup, DeleteGroup
//   - Membership: JoinGroup, RemoveMember, IsMember, ListGroupMembers,
//     ListCreatedGroups, ListJoinedGroups, ListUserGroups
//   - Messaging: SendDirect, SendToGroup, DirectHistory, GroupHistory
//   - Sessions: CreateSession, SessionUser, DeleteSession, DeleteExpiredSessions
//
// Integer ids (UserID, GroupID, MessageID) are the identity passed between
// operations. Email and group-name lookups are the translation step for
// callers holding natural keys.
//
// # Data Models
//
//   - User: unique name and email, bcrypt password hash
//   - Group: unique name, creation time, creator
//   - Membership: (user, group) pair, unique
//   - Message: sender, content, timestamp, type, and exactly one of a group
//     or a direct recipient
//   - Session: opaque token bound to a user until it expires
//
// # Transactions
//
// Every mutating operation runs in a single transaction. CreateOrGetGroup
// inserts the group and enrolls its creator together. DeleteGroup removes the
// group's messages, memberships, and row together or not at all.
//
// # History
//
// DirectHistory and GroupHistory return the most recent limit messages in
// ascending order, so the newest message is last. Ties on timestamp are
// broken by message id.
//
// # SQLite Configuration
//
// Each connection enables foreign keys, a busy timeout, and WAL:
//
//	_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)
//
// The default driver is modernc.org/sqlite (pure Go). WithDriver(DriverMattn)
// selects github.com/mattn/go-sqlite3.
//
// # Error Handling
//
//   - ErrNotFound: user, group, membership, or session does not exist
//   - ErrAlreadyExists: duplicate username, email, or group name
//   - ErrInvalidInput: empty content, malformed email, blank group name
//   - ErrInvalidCredentials: login mismatch
//   - ErrStorage: engine failure or closed store, logged where it occurs
//
// # Testing
//
// Use NewMockStore() for unit tests of callers:
//
//	s := store.NewMockStore()
//
// Use NewSQLiteStore(filepath.Join(t.TempDir(), "chat.db")) for tests
// against real SQLite.
//
// # Migrations
//
// Migrations are embedded from internal/store/migrations and applied with
// goose when the store opens. Databases created by earlier clients are
// adopted in place.
package store
