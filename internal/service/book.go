package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/listenupapp/catalog-resolver/internal/association"
	"github.com/listenupapp/catalog-resolver/internal/domain"
	domainerrors "github.com/listenupapp/catalog-resolver/internal/errors"
	"github.com/listenupapp/catalog-resolver/internal/id"
	"github.com/listenupapp/catalog-resolver/internal/store"
	"github.com/listenupapp/catalog-resolver/internal/validation"
)

// CreateBookRequest is the input to BookService.Create.
type CreateBookRequest struct {
	Title string `json:"title" validate:"required,max=500"`
}

// AssociationResult pairs the association outcome with the book as it
// stands afterwards.
type AssociationResult struct {
	Book   *domain.Book
	Result *association.Result
}

// BookService orchestrates book operations.
type BookService struct {
	store      store.Store
	associator *association.Associator
	validator  *validation.Validator
	logger     *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(st store.Store, associator *association.Associator, logger *slog.Logger) *BookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BookService{
		store:      st,
		associator: associator,
		validator:  validation.New(),
		logger:     logger,
	}
}

// Create adds a book with no entity references.
func (s *BookService) Create(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return nil, fmt.Errorf("generate book id: %w", err)
	}

	b := &domain.Book{ID: bookID, Title: strings.TrimSpace(req.Title)}
	b.InitTimestamps()
	if err := s.store.CreateBook(ctx, b); err != nil {
		return nil, storeError(err, "book "+bookID)
	}
	return b, nil
}

// Get retrieves a single book by ID.
func (s *BookService) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	b, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, storeError(err, "book "+bookID)
	}
	return b, nil
}

// AssociateEntities resolves each slot and sets the book's foreign keys.
//
// Slots are validated against the entity cache before the store session
// opens, because a session holds the write lock and a cache rebuild needs a
// connection of its own. The session then loads the book, re-checks every
// resolved id, and writes, all in one transaction. When any slot fails
// validation nothing is written and the returned error is a coded domain
// error listing every failed slot; the AssociationResult is still returned
// so callers can report warnings.
func (s *BookService) AssociateEntities(ctx context.Context, bookID string, slots []association.Slot, opts association.Options) (*AssociationResult, error) {
	res, err := s.associator.Validate(ctx, s.store, slots, opts)
	if err != nil {
		if domainerrors.Is(err, association.ErrInvalidSlots) {
			return nil, domainerrors.Validation(err.Error()).WithCause(err)
		}
		return nil, fmt.Errorf("validate entities: %w", err)
	}

	sess, err := s.store.BeginSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin session: %w", err)
	}
	defer func() {
		if err := sess.Rollback(); err != nil {
			s.logger.Error("session rollback failed", "book_id", bookID, "error", err)
		}
	}()

	book, err := sess.GetBook(ctx, bookID)
	if err != nil {
		return nil, storeError(err, "book "+bookID)
	}

	out := &AssociationResult{Book: book, Result: res}
	if res.HasErrors() {
		return out, domainerrors.FromEntityValidations(res.Errors())
	}

	// An entity deleted after validation is demoted here. The schema's
	// ON DELETE SET NULL has already cleared any key pointing at it, so the
	// associator's Cleared branch does not fire against this store.
	if err := s.associator.Apply(ctx, sess, book, res); err != nil {
		return nil, fmt.Errorf("associate entities: %w", err)
	}

	if res.Modified() {
		book.Touch()
		if err := sess.UpdateBookEntities(ctx, book); err != nil {
			return nil, storeError(err, "book "+bookID)
		}
		if err := sess.Commit(); err != nil {
			return nil, fmt.Errorf("commit association: %w", err)
		}
		s.logger.Info("book entities updated",
			"book_id", bookID,
			"slots", changedSlots(res),
			"warnings", len(res.Warnings),
		)
	}

	return out, nil
}

func changedSlots(res *association.Result) []string {
	var out []string
	for _, slot := range res.Slots {
		switch {
		case slot.Changed:
			out = append(out, "set:"+slot.Type.String())
		case slot.Cleared:
			out = append(out, "cleared:"+slot.Type.String())
		}
	}
	return out
}
