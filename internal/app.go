// Package internal contains core application functionality
package internal

import (
	"fmt"
	"time"

	"github.com/karloscodes/cartridge"

	"pocketlytics/internal/analytics"
	"pocketlytics/internal/clickhouse"
	"pocketlytics/internal/config"
	"pocketlytics/internal/database"
)

// Application wraps cartridge.Application with pocketlytics-specific components
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager // Relational store manager with migration methods
	Store     *clickhouse.Client
	Analytics *analytics.Service
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	store, err := clickhouse.NewClient(clickhouse.Config{
		URL:           cfg.ClickHouseURL,
		Database:      cfg.ClickHouseDatabase,
		User:          cfg.ClickHouseUser,
		Password:      cfg.ClickHousePassword,
		Timeout:       cfg.ClickHouseTimeout(),
		MaxResultRows: cfg.ClickHouseMaxResultRows,
		Breaker: clickhouse.BreakerSettings{
			MinRequests:  uint32(cfg.BreakerMinRequests),
			FailureRatio: cfg.BreakerFailureRatio,
			Timeout:      time.Duration(cfg.BreakerTimeoutSeconds) * time.Second,
			Interval:     time.Duration(cfg.BreakerIntervalSeconds) * time.Second,
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event store client: %w", err)
	}

	svc := analytics.NewService(analytics.Options{
		Store:        store,
		DB:           dbManager.GetConnection(),
		Logger:       logger,
		OverviewMode: cfg.OverviewMode,
		QueryStats:   cfg.QueryStatsEnabled,
		Workers:      cfg.QueryWorkers,
		MaxBuckets:   cfg.MaxBuckets,
	})

	routes := Routes{Analytics: svc, Store: store}

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:         cfg,
		Logger:         logger,
		DBManager:      dbManager,
		RouteMountFunc: routes.Mount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Store:       store,
		Analytics:   svc,
	}, nil
}
