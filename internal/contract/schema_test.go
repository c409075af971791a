// ABOUTME: Contract tests for the chat database schema
// ABOUTME: Fails when a table, column, or index that older clients rely on disappears

package contract

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-chat/internal/store"
)

// expectedSchema lists the columns other clients of the same database file
// read and write. Removing or renaming any of them breaks those clients.
var expectedSchema = map[string][]string{
	"users": {
		"id", "name", "email", "password",
	},
	"chat_groups": {
		"id", "name", "created_at", "created_by",
	},
	"user_chat_groups": {
		"user_id", "chatgroup_id",
	},
	"messages": {
		"id", "sender_id", "chatgroup_id", "recipient_id",
		"content", "timestamp", "type",
	},
	"sessions": {
		"token", "user_id", "created_at", "expires_at",
	},
}

var drivers = []string{store.DriverModernc, store.DriverMattn}

// setupTestDB creates a database through the store, then opens a second
// handle on the same file for inspection.
func setupTestDB(t *testing.T, driver string) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "contract_test.db")

	sqliteStore, err := store.NewSQLiteStore(dbPath, store.WithDriver(driver))
	require.NoError(t, err, "failed to create SQLite store")

	db, err := sql.Open(driver, dbPath)
	require.NoError(t, err, "failed to open database")

	t.Cleanup(func() {
		db.Close()
		sqliteStore.Close()
	})

	return db
}

func queryNames(ctx context.Context, db *sql.DB, query string) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

func getTableColumns(ctx context.Context, db *sql.DB, tableName string) (map[string]bool, error) {
	cols, err := queryNames(ctx, db, fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", tableName))
	if err != nil {
		return nil, fmt.Errorf("querying table info: %w", err)
	}
	return cols, nil
}

func TestSchemaSurface(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			db := setupTestDB(t, driver)
			ctx := context.Background()

			for table, expectedCols := range expectedSchema {
				actualCols, err := getTableColumns(ctx, db, table)
				if !assert.NoError(t, err, "failed to get columns for table %s", table) {
					continue
				}
				if !assert.NotEmpty(t, actualCols, "table %s should exist", table) {
					continue
				}

				for _, col := range expectedCols {
					assert.True(t, actualCols[col], "column %s.%s should exist", table, col)
				}
				for col := range actualCols {
					if !slices.Contains(expectedCols, col) {
						t.Logf("INFO: extra column %s.%s not in contract (consider adding)", table, col)
					}
				}
			}
		})
	}
}

func TestTablesExist(t *testing.T) {
	db := setupTestDB(t, store.DriverModernc)

	tables, err := queryNames(context.Background(), db,
		"SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	require.NoError(t, err)

	for table := range expectedSchema {
		assert.True(t, tables[table], "table %s should exist", table)
	}
}

func TestSchemaHasIndexes(t *testing.T) {
	db := setupTestDB(t, store.DriverModernc)

	expectedIndexes := []string{
		"idx_messages_group_ts",
		"idx_messages_direct_ts",
		"idx_user_chat_groups_group",
		"idx_chat_groups_created_by",
		"idx_sessions_user",
		"idx_sessions_expires",
	}

	indexes, err := queryNames(context.Background(), db,
		"SELECT name FROM sqlite_master WHERE type='index' AND name NOT LIKE 'sqlite_%'")
	require.NoError(t, err)

	for _, idx := range expectedIndexes {
		assert.True(t, indexes[idx], "index %s should exist", idx)
	}
}

// A message must name exactly one of a group and a recipient.
func TestMessagesTargetCheck(t *testing.T) {
	db := setupTestDB(t, store.DriverModernc)
	ctx := context.Background()

	_, err := db.ExecContext(ctx, `INSERT INTO users (name, email, password) VALUES ('a', 'a@x.io', 'p')`)
	require.NoError(t, err)

	_, err = db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, content, timestamp) VALUES (1, 'nowhere', '2024-01-01 00:00:00.000000')`)
	assert.Error(t, err, "message without target must be rejected")

	_, err = db.ExecContext(ctx,
		`INSERT INTO messages (sender_id, recipient_id, content, timestamp) VALUES (1, 1, 'note', '2024-01-01 00:00:00.000000')`)
	require.NoError(t, err)

	var msgType string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT type FROM messages`).Scan(&msgType))
	assert.Equal(t, "message", msgType)
}
