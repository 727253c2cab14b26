// Package sqlite provides SQLite-backed persistence for the catalog resolver.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store provides SQLite-backed persistence.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// connPragmas are applied to every pooled connection through the DSN.
// foreign_keys in particular is per connection.
//
//nolint:gochecknoglobals // Static connection settings
var connPragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs schema migrations.
// Transactions begin IMMEDIATE so a session holds the write lock from its
// first read until it commits.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger,
	}, nil
}

func dsn(path string) string {
	q := url.Values{}
	for _, p := range connPragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// entityTable returns the table backing an entity type. Only fixed names are
// returned, so the result is safe to splice into SQL.
func entityTable(t domain.EntityType) (string, error) {
	switch t {
	case domain.EntityAuthor:
		return "authors", nil
	case domain.EntityPublisher:
		return "publishers", nil
	case domain.EntityBinder:
		return "binders", nil
	default:
		return "", store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown entity type %q", t))
	}
}

// bookColumn returns the books foreign key column for an entity type.
func bookColumn(t domain.EntityType) string {
	switch t {
	case domain.EntityAuthor:
		return "author_id"
	case domain.EntityPublisher:
		return "publisher_id"
	default:
		return "binder_id"
	}
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullString returns a sql.NullString from a string pointer or empty string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullID returns a sql.NullInt64 from a nullable id.
func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// idPtr converts a scanned nullable id back to a pointer.
func idPtr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return domain.IDPtr(v.Int64)
}
