// Package sqlite provides the SQLite database that backs the web sessions.
package sqlite

import (
	"context"
	"fmt"
	"github.com/jmoiron/sqlx"
	"github.com/myrjola/tutorai/internal/errors"
	"github.com/myrjola/tutorai/internal/random"
	"log/slog"
	"strings"
	"time"

	_ "embed"
	_ "github.com/mattn/go-sqlite3" // Enable sqlite3 driver
)

//go:embed schema.sql
var schemaDefinition string

type Database struct {
	DB     *sqlx.DB
	logger *slog.Logger
}

// NewDatabase connects to the database and applies the schema.
//
// The url parameter is the path to the SQLite database file or ":memory:" for an in-memory database.
// The optimizer runs in the background until ctx is done.
func NewDatabase(ctx context.Context, url string, logger *slog.Logger) (*Database, error) {
	var (
		err error
		db  *sqlx.DB
	)

	// Each in-memory database gets a random name so that parallel tests don't share sessions.
	// See https://www.sqlite.org/inmemorydb.html.
	inMemoryConfig := ""
	if strings.Contains(url, ":memory:") {
		var dbNameLength uint = 20
		if url, err = random.Letters(dbNameLength); err != nil {
			return nil, errors.Wrap(err, "generate random ID")
		}
		inMemoryConfig = "&mode=memory&cache=shared"
	}
	commonConfig := strings.Join([]string{
		// Write-ahead logging enables higher performance and concurrent readers.
		"_journal_mode=wal",
		// Avoids SQLITE_BUSY errors when database is under load.
		"_busy_timeout=5000",
		// Increases performance at the cost of durability https://www.sqlite.org/pragma.html#pragma_synchronous.
		"_synchronous=normal",
		// Performance enhancement by storing temporary tables indices in memory instead of files.
		"_temp_store=memory",
	}, "&")

	// The options prefixed with underscore '_' are SQLite pragmas documented at https://www.sqlite.org/pragma.html.
	// The options without leading underscore are SQLite URI parameters documented at https://www.sqlite.org/uri.html.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&%s%s", url, commonConfig, inMemoryConfig)
	if db, err = sqlx.ConnectContext(ctx, "sqlite3", dsn); err != nil {
		return nil, errors.Wrap(err, "connect database", slog.String("url", url))
	}

	// Sessions are small and written on most requests so a single writer avoids lock contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(time.Hour)

	database := Database{
		DB:     db,
		logger: logger,
	}

	if _, err = db.ExecContext(ctx, schemaDefinition); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "apply schema")
	}

	go database.startOptimizer(ctx)

	return &database, nil
}

// ActiveSessions counts the stored sessions that have not expired yet.
func (db *Database) ActiveSessions(ctx context.Context) (int, error) {
	var count int
	// scs stores the expiry as a Julian day number.
	if err := db.DB.GetContext(ctx, &count, "SELECT count(*) FROM sessions WHERE julianday('now') < expiry"); err != nil {
		return 0, errors.Wrap(err, "count sessions")
	}
	return count, nil
}

// Close closes the underlying connection pool.
func (db *Database) Close() error {
	if err := db.DB.Close(); err != nil {
		return errors.Wrap(err, "close database")
	}
	return nil
}
