package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/store"
)

// entitySelect builds the column list for an entity query, including the
// number of books referencing each row.
func entitySelect(table, fkColumn string) string {
	return `SELECT e.id, e.created_at, e.updated_at, e.name, e.normalized_name, e.tier,
		(SELECT COUNT(*) FROM books b WHERE b.` + fkColumn + ` = e.id) AS usage_count
		FROM ` + table + ` e`
}

// scanEntity scans a sql.Row (or sql.Rows via its Scan method) into a domain.CanonicalEntity.
func scanEntity(scanner interface{ Scan(dest ...any) error }, t domain.EntityType) (*domain.CanonicalEntity, error) {
	e := domain.CanonicalEntity{Type: t}

	var (
		createdAt string
		updatedAt string
		tier      sql.NullString
	)

	err := scanner.Scan(
		&e.ID,
		&createdAt,
		&updatedAt,
		&e.Name,
		&e.NormalizedName,
		&tier,
		&e.UsageCount,
	)
	if err != nil {
		return nil, err
	}

	e.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}
	if tier.Valid {
		e.Tier = tier.String
	}

	return &e, nil
}

// ListEntities returns every entity of a type ordered by id.
func (s *Store) ListEntities(ctx context.Context, t domain.EntityType) ([]domain.CanonicalEntity, error) {
	table, err := entityTable(t)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, entitySelect(table, bookColumn(t))+` ORDER BY e.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var entities []domain.CanonicalEntity
	for rows.Next() {
		e, err := scanEntity(rows, t)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		entities = append(entities, *e)
	}
	return entities, rows.Err()
}

// CreateEntity inserts a new entity and sets its ID.
// Returns store.ErrAlreadyExists when the normalized name is taken.
func (s *Store) CreateEntity(ctx context.Context, e *domain.CanonicalEntity) error {
	table, err := entityTable(e.Type)
	if err != nil {
		return err
	}
	if strings.TrimSpace(e.NormalizedName) == "" {
		return store.ErrInvalidInput.WithMessage("normalized name is required")
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO `+table+` (created_at, updated_at, name, normalized_name, tier)
		VALUES (?, ?, ?, ?, ?)`,
		formatTime(e.CreatedAt),
		formatTime(e.UpdatedAt),
		e.Name,
		e.NormalizedName,
		nullString(e.Tier),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists.WithCause(err)
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}

	e.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return nil
}

// GetEntity retrieves an entity by ID.
// Returns store.ErrNotFound if the entity does not exist.
func (s *Store) GetEntity(ctx context.Context, t domain.EntityType, id int64) (*domain.CanonicalEntity, error) {
	table, err := entityTable(t)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, entitySelect(table, bookColumn(t))+` WHERE e.id = ?`, id)
	e, err := scanEntity(row, t)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEntity removes an entity. Books pointing at it have the key nulled
// by the schema. Returns store.ErrNotFound if nothing was deleted.
func (s *Store) DeleteEntity(ctx context.Context, t domain.EntityType, id int64) error {
	table, err := entityTable(t)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
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

// EntityExists reports whether the entity is present, outside any session.
func (s *Store) EntityExists(ctx context.Context, t domain.EntityType, id int64) (bool, error) {
	return entityExists(ctx, s.db, t, id)
}

// CountEntities returns the number of entities of a type.
func (s *Store) CountEntities(ctx context.Context, t domain.EntityType) (int, error) {
	table, err := entityTable(t)
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
