// Package providers contains dependency injection providers for the catalog resolver.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/catalog-resolver/internal/config"
	"github.com/listenupapp/catalog-resolver/internal/logger"
)

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting catalog resolver",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"metadata_path", cfg.Metadata.BasePath,
		"validation_mode", cfg.Entity.ValidationMode,
	)

	return log, nil
}
