package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/catalog-resolver/internal/association"
	"github.com/listenupapp/catalog-resolver/internal/domain"
	domainerrors "github.com/listenupapp/catalog-resolver/internal/errors"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
	"github.com/listenupapp/catalog-resolver/internal/service"
	"github.com/listenupapp/catalog-resolver/internal/worker"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "associateBookEntities",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}/entities",
		Summary:     "Associate entities",
		Description: "Validates every supplied entity and writes the book only if none of them is blocked",
		Tags:        []string{"Books"},
	}, s.handleAssociateEntities)

	huma.Register(s.api, huma.Operation{
		OperationID:   "analyzeBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books/{id}/analysis",
		Summary:       "Submit analysis text",
		Description:   "Queues free-form analysis text; extracted publisher and binder names are associated in the background",
		Tags:          []string{"Books"},
		DefaultStatus: http.StatusAccepted,
	}, s.handleAnalyzeBook)
}

// === DTOs ===

// CreateBookRequest is the body for creating a book.
type CreateBookRequest struct {
	Title string `json:"title" minLength:"1" maxLength:"500" doc:"Book title"`
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body CreateBookRequest
}

// BookIDInput identifies a book.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// BookOutput wraps a book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// AssociateEntitiesRequest names the entities to attach. Each type is given
// either by name or by id, never both.
type AssociateEntitiesRequest struct {
	Author      *string `json:"author,omitempty" maxLength:"500" doc:"Author name"`
	AuthorID    *int64  `json:"author_id,omitempty" minimum:"1" doc:"Author ID"`
	Publisher   *string `json:"publisher,omitempty" maxLength:"500" doc:"Publisher name"`
	PublisherID *int64  `json:"publisher_id,omitempty" minimum:"1" doc:"Publisher ID"`
	Binder      *string `json:"binder,omitempty" maxLength:"500" doc:"Binder name"`
	BinderID    *int64  `json:"binder_id,omitempty" minimum:"1" doc:"Binder ID"`
	Threshold   float64 `json:"threshold,omitempty" minimum:"0" maximum:"1" doc:"Fuzzy threshold override"`
	Force       bool    `json:"force,omitempty" doc:"Downgrade blocking outcomes to warnings"`
}

// AssociateEntitiesInput wraps the association request for Huma.
type AssociateEntitiesInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body AssociateEntitiesRequest
}

// SlotResponse reports the outcome for one entity type.
type SlotResponse struct {
	Type    string        `json:"type"`
	Input   string        `json:"input"`
	Result  resolver.View `json:"result"`
	Changed bool          `json:"changed"`
	Cleared bool          `json:"cleared"`
}

// AssociateEntitiesResponse is the book after association plus per-slot detail.
type AssociateEntitiesResponse struct {
	Book     *domain.Book   `json:"book"`
	Slots    []SlotResponse `json:"slots"`
	Warnings []string       `json:"warnings"`
	Modified bool           `json:"modified"`
}

// AssociateEntitiesOutput wraps the association response for Huma.
type AssociateEntitiesOutput struct {
	Warnings string `header:"X-Entity-Warnings"`
	Body     AssociateEntitiesResponse
}

// AnalyzeBookRequest carries free-form analysis text.
type AnalyzeBookRequest struct {
	Text string `json:"text" minLength:"1" maxLength:"100000" doc:"Analysis text"`
}

// AnalyzeBookInput wraps the analysis request for Huma.
type AnalyzeBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body AnalyzeBookRequest
}

// AnalyzeBookResponse acknowledges a queued analysis job.
type AnalyzeBookResponse struct {
	JobID  string `json:"job_id"`
	BookID string `json:"book_id"`
	Status string `json:"status"`
}

// AnalyzeBookOutput wraps the analysis response for Huma.
type AnalyzeBookOutput struct {
	Body AnalyzeBookResponse
}

// === Handlers ===

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	book, err := s.services.Books.Create(ctx, service.CreateBookRequest{Title: input.Body.Title})
	if err != nil {
		return nil, s.fail(ctx, "book creation failed", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	book, err := s.services.Books.Get(ctx, input.ID)
	if err != nil {
		return nil, s.fail(ctx, "book lookup failed", err)
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleAssociateEntities(ctx context.Context, input *AssociateEntitiesInput) (*AssociateEntitiesOutput, error) {
	slots := input.Body.slots()
	if len(slots) == 0 {
		return nil, domainerrors.Validation("no entities supplied")
	}

	out, err := s.services.Books.AssociateEntities(ctx, input.ID, slots, association.Options{
		Threshold: input.Body.Threshold,
		Force:     input.Body.Force,
	})
	if err != nil {
		return nil, s.fail(ctx, "entity association failed", err)
	}

	resp := AssociateEntitiesResponse{
		Book:     out.Book,
		Slots:    make([]SlotResponse, 0, len(out.Result.Slots)),
		Warnings: out.Result.Warnings,
		Modified: out.Result.Modified(),
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	for _, slot := range out.Result.Slots {
		resp.Slots = append(resp.Slots, SlotResponse{
			Type:    slot.Type.String(),
			Input:   slot.Input,
			Result:  slot.Result.View(),
			Changed: slot.Changed,
			Cleared: slot.Cleared,
		})
	}

	return &AssociateEntitiesOutput{
		Warnings: headerSafe(strings.Join(out.Result.Warnings, "; ")),
		Body:     resp,
	}, nil
}

func (s *Server) handleAnalyzeBook(ctx context.Context, input *AnalyzeBookInput) (*AnalyzeBookOutput, error) {
	if s.services.Analysis == nil {
		return nil, domainerrors.Unavailable("analysis is disabled")
	}

	if _, err := s.services.Books.Get(ctx, input.ID); err != nil {
		return nil, s.fail(ctx, "book lookup failed", err)
	}

	jobID, err := s.services.Analysis.Enqueue(input.ID, input.Body.Text)
	switch {
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrStopped):
		return nil, domainerrors.Unavailable(err.Error())
	case err != nil:
		return nil, s.fail(ctx, "analysis enqueue failed", err)
	}

	return &AnalyzeBookOutput{
		Body: AnalyzeBookResponse{JobID: jobID, BookID: input.ID, Status: "queued"},
	}, nil
}

// slots converts the request into association slots in a fixed type order.
// A type given both by name and by id yields two slots, which the associator
// rejects as invalid.
func (r AssociateEntitiesRequest) slots() []association.Slot {
	var slots []association.Slot
	add := func(t domain.EntityType, name *string, id *int64) {
		if id != nil {
			slots = append(slots, association.Slot{Type: t, EntityID: id})
		}
		if name != nil {
			slots = append(slots, association.Slot{Type: t, Name: *name})
		}
	}
	add(domain.EntityAuthor, r.Author, r.AuthorID)
	add(domain.EntityPublisher, r.Publisher, r.PublisherID)
	add(domain.EntityBinder, r.Binder, r.BinderID)
	return slots
}

// headerSafe drops control characters so user input cannot split headers.
func headerSafe(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
