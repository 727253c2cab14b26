// Package store defines the persistence interface for the catalog resolver.
package store

import (
	"context"

	"github.com/listenupapp/catalog-resolver/internal/domain"
)

// Store defines the interface for all persistence operations.
type Store interface {
	// Lifecycle
	Close() error
	Ping(ctx context.Context) error

	// Canonical entities (authors, publishers, binders)
	ListEntities(ctx context.Context, t domain.EntityType) ([]domain.CanonicalEntity, error)
	CreateEntity(ctx context.Context, e *domain.CanonicalEntity) error
	GetEntity(ctx context.Context, t domain.EntityType, id int64) (*domain.CanonicalEntity, error)
	DeleteEntity(ctx context.Context, t domain.EntityType, id int64) error
	EntityExists(ctx context.Context, t domain.EntityType, id int64) (bool, error)
	CountEntities(ctx context.Context, t domain.EntityType) (int, error)

	// Books
	CreateBook(ctx context.Context, book *domain.Book) error
	GetBook(ctx context.Context, id string) (*domain.Book, error)

	// Sessions
	BeginSession(ctx context.Context) (Session, error)
}

// Session is a unit of work. Reads made through it observe the same snapshot
// the final write commits against. Rollback after Commit is a no-op, so
// callers can always defer it.
type Session interface {
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	EntityExists(ctx context.Context, t domain.EntityType, id int64) (bool, error)
	UpdateBookEntities(ctx context.Context, book *domain.Book) error
	Commit() error
	Rollback() error
}
