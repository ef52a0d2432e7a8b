// Package providers contains dependency injection providers for the bookpeer catalog.
package providers

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/bookpeer/internal/config"
	"github.com/listenupapp/bookpeer/internal/logger"
)

// Args holds the command-line arguments configuration is loaded from.
type Args []string

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	args := do.MustInvoke[Args](i)
	return config.LoadConfig(args)
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting bookpeer catalog",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"library_path", cfg.Library.Path,
		"extension", cfg.Library.Extension,
	)

	return log, nil
}
