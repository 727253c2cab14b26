// Package di provides dependency injection configuration for the catalog resolver.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/catalog-resolver/internal/association"
	"github.com/listenupapp/catalog-resolver/internal/config"
	"github.com/listenupapp/catalog-resolver/internal/di/providers"
	"github.com/listenupapp/catalog-resolver/internal/entitycache"
	"github.com/listenupapp/catalog-resolver/internal/logger"
	"github.com/listenupapp/catalog-resolver/internal/matcher"
	"github.com/listenupapp/catalog-resolver/internal/resolver"
	"github.com/listenupapp/catalog-resolver/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Database layer
	do.Provide(injector, providers.ProvideStore)

	// Resolution layer
	do.Provide(injector, providers.ProvideEntityCache)
	do.Provide(injector, providers.ProvideMatcher)
	do.Provide(injector, providers.ProvideResolver)
	do.Provide(injector, providers.ProvideAssociator)

	// Business services
	do.Provide(injector, providers.ProvideEntityService)
	do.Provide(injector, providers.ProvideBookService)

	// Workers
	do.Provide(injector, providers.ProvideAnalysisWorker)

	// Server
	do.Provide(injector, providers.ProvideRateLimiter)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and starts the HTTP server.
// This triggers lazy initialization of every provider.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*entitycache.Cache](injector)
	_ = do.MustInvoke[*matcher.Matcher](injector)
	if _, err := do.Invoke[*resolver.Validator](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*association.Associator](injector)

	// Business services
	_ = do.MustInvoke[*service.EntityService](injector)
	_ = do.MustInvoke[*service.BookService](injector)

	// Workers
	_ = do.MustInvoke[*providers.AnalysisWorkerHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.RateLimiterHandle](injector)
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
