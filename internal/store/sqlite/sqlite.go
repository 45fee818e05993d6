package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lu-zhengda/gmailwrapper/internal/store"
)

var _ store.Store = (*DB)(nil)

// DB is the sqlite-backed store.Store.
type DB struct {
	db *sql.DB
	// fts is false when the driver was built without the fts5 module;
	// SearchEmails then falls back to LIKE matching.
	fts bool
}

// New opens the SQLite database at dsn, creating parent directories, and
// applies the schema. Use ":memory:" for a throwaway database.
func New(dsn string) (*DB, error) {
	connStr := ":memory:?_foreign_keys=on"
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		connStr = dsn + "?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dsn == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &DB{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func (s *DB) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	_, err := s.db.Exec(ftsSchema)
	switch {
	case err == nil:
		s.fts = true
	case missingFTS(err):
		s.fts = false
	default:
		return fmt.Errorf("failed to apply FTS schema: %w", err)
	}
	return nil
}

// missingFTS reports whether err comes from a go-sqlite3 build without the
// sqlite_fts5 tag.
func missingFTS(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such module: fts5")
}

// FullText reports whether searches use the FTS5 index.
func (s *DB) FullText() bool {
	return s.fts
}

// Close closes the underlying database connection.
func (s *DB) Close() error {
	return s.db.Close()
}
