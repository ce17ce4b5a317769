// Package cli wires the delivery cost engine for command line use and
// prints run reports for humans.
package cli

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/costing"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/config"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/logging"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/observability"
)

// App holds everything a command needs
type App struct {
	Config   *config.Config
	Storage  *storage.Storage
	Service  *service.CostService
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// NewApp validates the config, opens storage and builds the cost service.
// system scopes the logger, e.g. "costing" or "api".
func NewApp(cfg *config.Config, system string) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	engineCfg, err := costing.ConfigFromSettings(cfg.Costing)
	if err != nil {
		return nil, fmt.Errorf("invalid costing configuration: %w", err)
	}

	logger := logging.NewLoggerWithSystem(cfg.Observability.Logging, system)

	store, err := storage.NewStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	return &App{
		Config:   cfg,
		Storage:  store,
		Service:  service.NewCostService(store, engineCfg, metrics, logger),
		Registry: registry,
		Logger:   logger,
	}, nil
}

// Close releases the database
func (a *App) Close() error {
	return a.Storage.Close()
}
