package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
	"github.com/listenupapp/catalog-resolver/internal/service"
)

func (s *Server) registerEntityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "validateEntity",
		Method:      http.MethodPost,
		Path:        "/api/v1/entities/{type}/validate",
		Summary:     "Validate entity name",
		Description: "Resolves a name against the canonical table without writing anything",
		Tags:        []string{"Entities"},
	}, s.handleValidateEntity)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchEntities",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{type}/matches",
		Summary:     "Find similar entities",
		Description: "Returns ranked fuzzy candidates for a name",
		Tags:        []string{"Entities"},
	}, s.handleSearchEntities)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createEntity",
		Method:        http.MethodPost,
		Path:          "/api/v1/entities/{type}",
		Summary:       "Create canonical entity",
		Description:   "Adds a canonical entity. Near duplicates are rejected unless forced.",
		Tags:          []string{"Entities"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateEntity)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEntity",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{type}/{id}",
		Summary:     "Get entity",
		Tags:        []string{"Entities"},
	}, s.handleGetEntity)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteEntity",
		Method:        http.MethodDelete,
		Path:          "/api/v1/entities/{type}/{id}",
		Summary:       "Delete entity",
		Description:   "Removes a canonical entity. Books pointing at it lose the reference.",
		Tags:          []string{"Entities"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteEntity)

	huma.Register(s.api, huma.Operation{
		OperationID:   "invalidateEntityCache",
		Method:        http.MethodPost,
		Path:          "/api/v1/entities/{type}/cache/invalidate",
		Summary:       "Invalidate entity cache",
		Description:   "Drops the cached name index so the next lookup reloads it",
		Tags:          []string{"Entities"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleInvalidateCache)
}

// === DTOs ===

// ValidateEntityRequest is the body of a dry-run validation.
type ValidateEntityRequest struct {
	Name      string  `json:"name" maxLength:"500" doc:"Raw entity name"`
	Threshold float64 `json:"threshold,omitempty" minimum:"0" maximum:"1" doc:"Fuzzy threshold override"`
	Force     bool    `json:"force,omitempty" doc:"Downgrade blocking outcomes to warnings"`
}

// ValidateEntityInput wraps the validate request for Huma.
type ValidateEntityInput struct {
	Type string `path:"type" enum:"author,publisher,binder" doc:"Entity type"`
	Body ValidateEntityRequest
}

// ValidateEntityResponse reports what the resolver would do with a name.
type ValidateEntityResponse struct {
	EntityType string        `json:"entity_type"`
	Input      string        `json:"input"`
	Mode       string        `json:"mode"`
	Result     resolver.View `json:"result"`
}

// ValidateEntityOutput wraps the validate response for Huma.
type ValidateEntityOutput struct {
	Body ValidateEntityResponse
}

// SearchEntitiesInput contains parameters for a fuzzy search.
type SearchEntitiesInput struct {
	Type      string  `path:"type" enum:"author,publisher,binder" doc:"Entity type"`
	Query     string  `query:"q" required:"true" minLength:"1" maxLength:"500" doc:"Name to match"`
	Threshold float64 `query:"threshold" minimum:"0" maximum:"1" doc:"Minimum confidence, defaults per type"`
	Limit     int     `query:"limit" minimum:"0" maximum:"50" doc:"Maximum results"`
}

// SearchEntitiesResponse lists ranked candidates.
type SearchEntitiesResponse struct {
	EntityType string               `json:"entity_type"`
	Query      string               `json:"query"`
	Matches    []domain.EntityMatch `json:"matches"`
}

// SearchEntitiesOutput wraps the search response for Huma.
type SearchEntitiesOutput struct {
	Body SearchEntitiesResponse
}

// CreateEntityRequest is the body for creating a canonical entity.
type CreateEntityRequest struct {
	Name  string `json:"name" minLength:"1" maxLength:"200" doc:"Display name"`
	Tier  string `json:"tier,omitempty" maxLength:"32" doc:"Optional ranking tier"`
	Force bool   `json:"force,omitempty" doc:"Create even when similar entities exist"`
}

// CreateEntityInput wraps the create request for Huma.
type CreateEntityInput struct {
	Type string `path:"type" enum:"author,publisher,binder" doc:"Entity type"`
	Body CreateEntityRequest
}

// EntityIDInput identifies a single canonical entity.
type EntityIDInput struct {
	Type string `path:"type" enum:"author,publisher,binder" doc:"Entity type"`
	ID   int64  `path:"id" minimum:"1" doc:"Entity ID"`
}

// EntityTypeInput carries only the entity type.
type EntityTypeInput struct {
	Type string `path:"type" enum:"author,publisher,binder" doc:"Entity type"`
}

// EntityOutput wraps a canonical entity for Huma.
type EntityOutput struct {
	Body *domain.CanonicalEntity
}

// === Handlers ===

func (s *Server) handleValidateEntity(ctx context.Context, input *ValidateEntityInput) (*ValidateEntityOutput, error) {
	t := domain.EntityType(input.Type)
	res, err := s.services.Entities.Validate(ctx, t, input.Body.Name, resolver.Options{
		Threshold: input.Body.Threshold,
		Force:     input.Body.Force,
	})
	if err != nil {
		return nil, s.fail(ctx, "entity validation failed", err)
	}

	return &ValidateEntityOutput{
		Body: ValidateEntityResponse{
			EntityType: input.Type,
			Input:      input.Body.Name,
			Mode:       string(s.services.Entities.Mode()),
			Result:     res.View(),
		},
	}, nil
}

func (s *Server) handleSearchEntities(ctx context.Context, input *SearchEntitiesInput) (*SearchEntitiesOutput, error) {
	matches, err := s.services.Entities.Search(ctx, domain.EntityType(input.Type), input.Query, input.Threshold, input.Limit)
	if err != nil {
		return nil, s.fail(ctx, "entity search failed", err)
	}

	return &SearchEntitiesOutput{
		Body: SearchEntitiesResponse{
			EntityType: input.Type,
			Query:      input.Query,
			Matches:    matches,
		},
	}, nil
}

func (s *Server) handleCreateEntity(ctx context.Context, input *CreateEntityInput) (*EntityOutput, error) {
	entity, err := s.services.Entities.Create(ctx, service.CreateEntityRequest{
		Type:  domain.EntityType(input.Type),
		Name:  input.Body.Name,
		Tier:  input.Body.Tier,
		Force: input.Body.Force,
	})
	if err != nil {
		return nil, s.fail(ctx, "entity creation failed", err)
	}
	return &EntityOutput{Body: entity}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, input *EntityIDInput) (*EntityOutput, error) {
	entity, err := s.services.Entities.Get(ctx, domain.EntityType(input.Type), input.ID)
	if err != nil {
		return nil, s.fail(ctx, "entity lookup failed", err)
	}
	return &EntityOutput{Body: entity}, nil
}

func (s *Server) handleDeleteEntity(ctx context.Context, input *EntityIDInput) (*struct{}, error) {
	if err := s.services.Entities.Delete(ctx, domain.EntityType(input.Type), input.ID); err != nil {
		return nil, s.fail(ctx, "entity deletion failed", err)
	}
	return nil, nil
}

func (s *Server) handleInvalidateCache(ctx context.Context, input *EntityTypeInput) (*struct{}, error) {
	if err := s.services.Entities.InvalidateCache(domain.EntityType(input.Type)); err != nil {
		return nil, s.fail(ctx, "cache invalidation failed", err)
	}
	return nil, nil
}
