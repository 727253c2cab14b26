package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/store"
)

// Session wraps a single transaction. Because the store opens transactions
// IMMEDIATE, no other writer can delete an entity between an EntityExists
// check and the UpdateBookEntities that follows it.
type Session struct {
	tx *sql.Tx
}

// BeginSession starts a new unit of work.
func (s *Store) BeginSession(ctx context.Context) (store.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Session{tx: tx}, nil
}

// GetBook reads a book inside the transaction.
func (ss *Session) GetBook(ctx context.Context, id string) (*domain.Book, error) {
	return getBook(ctx, ss.tx, id)
}

// EntityExists reports whether the entity is still present.
func (ss *Session) EntityExists(ctx context.Context, t domain.EntityType, id int64) (bool, error) {
	return entityExists(ctx, ss.tx, t, id)
}

func entityExists(ctx context.Context, q queryer, t domain.EntityType, id int64) (bool, error) {
	table, err := entityTable(t)
	if err != nil {
		return false, err
	}

	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s %d: %w", t, id, err)
	}
	return true, nil
}

// UpdateBookEntities writes the book's three foreign keys and UpdatedAt.
func (ss *Session) UpdateBookEntities(ctx context.Context, b *domain.Book) error {
	res, err := ss.tx.ExecContext(ctx, `
		UPDATE books SET updated_at = ?, author_id = ?, publisher_id = ?, binder_id = ?
		WHERE id = ?`,
		formatTime(b.UpdatedAt),
		nullID(b.AuthorID),
		nullID(b.PublisherID),
		nullID(b.BinderID),
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("update book entities: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// Commit commits the transaction.
func (ss *Session) Commit() error {
	return ss.tx.Commit()
}

// Rollback aborts the transaction. It is a no-op once committed.
func (ss *Session) Rollback() error {
	if err := ss.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
