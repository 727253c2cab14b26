package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/catalog-resolver/internal/association"
	"github.com/listenupapp/catalog-resolver/internal/config"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
	"github.com/listenupapp/catalog-resolver/internal/logger"
	"github.com/listenupapp/catalog-resolver/internal/matcher"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
	"github.com/listenupapp/catalog-resolver/internal/service"
)

// ProvideEntityCache provides the in-process entity cache.
func ProvideEntityCache(i do.Injector) (*entitycache.Cache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return entitycache.New(storeHandle.Store, entitycache.Options{TTL: cfg.Entity.CacheTTL}, log.Logger), nil
}

// ProvideMatcher provides the exact and fuzzy matcher.
func ProvideMatcher(i do.Injector) (*matcher.Matcher, error) {
	cfg := do.MustInvoke[*config.Config](i)
	cache := do.MustInvoke[*entitycache.Cache](i)

	return matcher.New(cache, matcher.Thresholds{
		Author:    cfg.Entity.AuthorThreshold,
		Publisher: cfg.Entity.PublisherThreshold,
		Binder:    cfg.Entity.BinderThreshold,
	}, cfg.Entity.MaxResults), nil
}

// ProvideResolver provides the entity validator.
func ProvideResolver(i do.Injector) (*resolver.Validator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	m := do.MustInvoke[*matcher.Matcher](i)
	log := do.MustInvoke[*logger.Logger](i)

	mode, err := resolver.ParseMode(cfg.Entity.ValidationMode)
	if err != nil {
		return nil, err
	}
	return resolver.NewValidator(m, mode, log.Logger), nil
}

// ProvideAssociator provides the two-phase associator.
func ProvideAssociator(i do.Injector) (*association.Associator, error) {
	v := do.MustInvoke[*resolver.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return association.New(v, log.Logger), nil
}

// ProvideEntityService provides the canonical entity service.
func ProvideEntityService(i do.Injector) (*service.EntityService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	cache := do.MustInvoke[*entitycache.Cache](i)
	m := do.MustInvoke[*matcher.Matcher](i)
	v := do.MustInvoke[*resolver.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewEntityService(storeHandle.Store, cache, m, v, log.Logger), nil
}

// ProvideBookService provides the book service.
func ProvideBookService(i do.Injector) (*service.BookService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	associator := do.MustInvoke[*association.Associator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewBookService(storeHandle.Store, associator, log.Logger), nil
}
