// ABOUTME: SQLite implementation of ChatStore using modernc.org/sqlite or mattn/go-sqlite3
// ABOUTME: Opens the database, runs goose migrations, and provides tx/time/error helpers

package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/2389/coven-chat/internal/auth"
	"github.com/2389/coven-chat/internal/store/migrations"
)

// Driver names accepted by WithDriver.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, requires cgo
)

// timestampLayout is fixed-width so TEXT ordering matches chronological order.
// Second-resolution values written by older clients sort correctly against it.
const timestampLayout = "2006-01-02 15:04:05.000000"

// SQLiteStore implements ChatStore on a single SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

// Option configures a SQLiteStore.
type Option func(*options)

type options struct {
	driver     string
	bcryptCost int
	logger     *slog.Logger
}

// WithDriver selects the database/sql driver (DriverModernc or DriverMattn).
func WithDriver(name string) Option {
	return func(o *options) { o.driver = name }
}

// WithBcryptCost sets the work factor used to hash new passwords.
func WithBcryptCost(cost int) Option {
	return func(o *options) { o.bcryptCost = cost }
}

// WithLogger sets the logger; the store adds component=store.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// NewSQLiteStore opens (or creates) the chat database at path and brings its
// schema up to date. Parent directories are created if needed.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	o := options{
		driver:     DriverModernc,
		bcryptCost: auth.DefaultBcryptCost,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger.With("component", "store")

	if o.driver != DriverModernc && o.driver != DriverMattn {
		return nil, fmt.Errorf("unsupported sqlite driver %q", o.driver)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(o.driver, dsn(o.driver, path))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// One connection serializes writers, so a transaction never meets
	// SQLITE_BUSY from a sibling connection in the same process. It also
	// keeps a ":memory:" database alive across calls.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{
		db:         db,
		logger:     logger,
		bcryptCost: o.bcryptCost,
		now:        time.Now,
	}

	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path, "driver", o.driver)
	return s, nil
}

// dsn builds a connection string that sets per-connection pragmas for the
// chosen driver. Foreign keys must be on for every connection.
func dsn(driverName, path string) string {
	if driverName == DriverMattn {
		return path + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL"
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// migrate applies the embedded goose migrations, then patches databases
// created by older clients whose messages table predates the type column.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{s.logger})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return err
	}

	// SQLite has no ADD COLUMN IF NOT EXISTS, so check first
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM pragma_table_info('messages') WHERE name = 'type'`).Scan(&exists)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspecting messages table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `ALTER TABLE messages ADD COLUMN type TEXT NOT NULL DEFAULT 'message'`); err != nil {
		return fmt.Errorf("adding type column to messages: %w", err)
	}
	s.logger.Info("applied migration", "column", "type", "table", "messages")
	return nil
}

// gooseLogger routes goose output through slog at debug level.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Close closes the database connection. Later calls fail with ErrStorage.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// fail turns err into the error returned to the caller. Expected conditions
// pass through; anything else is logged and wrapped as ErrStorage.
func (s *SQLiteStore) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	s.logger.Error("storage failure", "op", op, "error", err)
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}

// withTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise. The returned error has already been through fail.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail(op, fmt.Errorf("beginning transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("rollback failed", "op", op, "error", rbErr)
			}
			err = s.fail(op, err)
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = s.fail(op, fmt.Errorf("committing transaction: %w", cErr))
		}
	}()

	return fn(tx)
}

// isConstraintViolation checks if the error is a SQLite UNIQUE constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// formatTime renders t in the stored timestamp layout (UTC).
// storedNow is the current time at the precision timestampLayout keeps, so
// values handed back from writes match what a later read returns.
func (s *SQLiteStore) storedNow() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTime accepts the stored layout plus the shapes older clients and the
// drivers' DATETIME conversions produce.
func parseTime(s string) (time.Time, error) {
	layouts := []string{
		timestampLayout,
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// timestamp scans DATETIME/TEXT columns. Both drivers may hand back a
// time.Time for DATETIME columns, or the raw text.
type timestamp struct {
	Time time.Time
}

var _ sql.Scanner = (*timestamp)(nil)

// Scan implements sql.Scanner.
func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.Time = v.UTC()
		return nil
	case string:
		t, err := parseTime(v)
		ts.Time = t
		return err
	case []byte:
		t, err := parseTime(string(v))
		ts.Time = t
		return err
	case nil:
		ts.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("cannot scan %T into timestamp", src)
	}
}

// Value implements driver.Valuer so timestamps can be bound directly.
func (ts timestamp) Value() (driver.Value, error) {
	return formatTime(ts.Time), nil
}

// Ensure SQLiteStore implements ChatStore
var _ ChatStore = (*SQLiteStore)(nil)
