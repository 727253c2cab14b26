package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/listenupapp/catalog-resolver/internal/domain"
	domainerrors "github.com/listenupapp/catalog-resolver/internal/errors"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
	"github.com/listenupapp/catalog-resolver/internal/matcher"
	"github.com/listenupapp/catalog-resolver/internal/normalize"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
	"github.com/listenupapp/catalog-resolver/internal/store"
	"github.com/listenupapp/catalog-resolver/internal/validation"
)

// CreateEntityRequest is the input to EntityService.Create.
type CreateEntityRequest struct {
	Type  domain.EntityType `json:"type" validate:"required,entitytype"`
	Name  string            `json:"name" validate:"required,entityname,max=200"`
	Tier  string            `json:"tier,omitempty" validate:"omitempty,max=32"`
	Force bool              `json:"force,omitempty"`
}

// EntityService maintains canonical authors, publishers, and binders and
// exposes the resolver to callers that only want an answer, not a write.
type EntityService struct {
	store     store.Store
	cache     *entitycache.Cache
	matcher   *matcher.Matcher
	resolver  *resolver.Validator
	validator *validation.Validator
	logger    *slog.Logger
}

// NewEntityService creates a new entity service.
func NewEntityService(
	st store.Store,
	cache *entitycache.Cache,
	m *matcher.Matcher,
	r *resolver.Validator,
	logger *slog.Logger,
) *EntityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EntityService{
		store:     st,
		cache:     cache,
		matcher:   m,
		resolver:  r,
		validator: validation.New(),
		logger:    logger,
	}
}

// Mode reports the validation mode the resolver runs in.
func (s *EntityService) Mode() resolver.Mode {
	return s.resolver.Mode()
}

// Validate resolves name without touching any record.
func (s *EntityService) Validate(ctx context.Context, t domain.EntityType, name string, opts resolver.Options) (resolver.Result, error) {
	if err := checkType(t); err != nil {
		return resolver.Result{}, err
	}
	res, err := s.resolver.Validate(ctx, t, name, opts)
	if err != nil {
		return resolver.Result{}, fmt.Errorf("validate %s: %w", t, err)
	}
	return res, nil
}

// Search returns ranked fuzzy candidates for query. A threshold <= 0 uses the
// configured default for t; a limit <= 0 uses the configured maximum.
func (s *EntityService) Search(ctx context.Context, t domain.EntityType, query string, threshold float64, limit int) ([]domain.EntityMatch, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}
	if threshold > 1 {
		return nil, domainerrors.Validationf("threshold %v must not exceed 1", threshold)
	}
	if limit > s.matcher.MaxResults() {
		limit = s.matcher.MaxResults()
	}

	matches, err := s.matcher.Fuzzy(ctx, t, query, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", t, err)
	}
	return matches, nil
}

// Create adds a canonical entity. Creation is always guarded: an exact match
// is rejected outright, and near matches are rejected unless Force is set,
// whatever the resolver's mode.
func (s *EntityService) Create(ctx context.Context, req CreateEntityRequest) (*domain.CanonicalEntity, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	ref, found, err := s.matcher.Exact(ctx, req.Type, name)
	if err != nil {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}
	if found {
		return nil, domainerrors.AlreadyExistsf("%s %q already exists as %q", req.Type, name, ref.Name).
			WithDetails(ref)
	}

	if !req.Force {
		similar, err := s.matcher.Fuzzy(ctx, req.Type, name, 0, 0)
		if err != nil {
			return nil, fmt.Errorf("similarity check: %w", err)
		}
		if len(similar) > 0 {
			return nil, domainerrors.FromEntityValidation(domain.NewSimilarEntityError(req.Type, name, similar))
		}
	}

	now := time.Now()
	e := &domain.CanonicalEntity{
		Type:           req.Type,
		Name:           name,
		NormalizedName: normalize.Name(req.Type, name),
		Tier:           strings.TrimSpace(req.Tier),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateEntity(ctx, e); err != nil {
		return nil, storeError(err, fmt.Sprintf("%s %q", req.Type, name))
	}
	s.cache.Invalidate(req.Type)

	s.logger.Info("entity created",
		"entity_type", e.Type,
		"entity_id", e.ID,
		"name", e.Name,
		"forced", req.Force,
	)
	return e, nil
}

// Get returns a single entity.
func (s *EntityService) Get(ctx context.Context, t domain.EntityType, id int64) (*domain.CanonicalEntity, error) {
	if err := checkType(t); err != nil {
		return nil, err
	}
	e, err := s.store.GetEntity(ctx, t, id)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("%s %d", t, id))
	}
	return e, nil
}

// Delete removes an entity. Books pointing at it lose that reference.
func (s *EntityService) Delete(ctx context.Context, t domain.EntityType, id int64) error {
	if err := checkType(t); err != nil {
		return err
	}
	if err := s.store.DeleteEntity(ctx, t, id); err != nil {
		return storeError(err, fmt.Sprintf("%s %d", t, id))
	}
	s.cache.Invalidate(t)

	s.logger.Info("entity deleted", "entity_type", t, "entity_id", id)
	return nil
}

// InvalidateCache drops the cached snapshot for t in this process.
func (s *EntityService) InvalidateCache(t domain.EntityType) error {
	if err := checkType(t); err != nil {
		return err
	}
	s.cache.Invalidate(t)
	return nil
}

func checkType(t domain.EntityType) error {
	if !t.IsValid() {
		return domainerrors.Validationf("unknown entity type %q", t)
	}
	return nil
}
