package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
)

// HealthStatus represents the health check response
type HealthStatus struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	DBStatus    string    `json:"db_status"`
	StoreStatus string    `json:"store_status"`
}

// Pinger checks the event store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthIndexAction handles the health check endpoint
func HealthIndexAction(store Pinger) func(ctx *cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		dbStatus := "ok"

		// Check database connectivity
		db := ctx.DBManager.GetConnection()
		if db == nil {
			dbStatus = "error"
			ctx.Logger.Error("Database connection unavailable")
		} else {
			sqlDB, err := db.DB()
			if err != nil {
				dbStatus = "error"
				ctx.Logger.Error("Database connection error", slog.Any("error", err))
			} else if err := sqlDB.Ping(); err != nil {
				dbStatus = "error"
				ctx.Logger.Error("Database ping failed", slog.Any("error", err))
			}
		}

		storeStatus := "ok"
		if store != nil {
			pingCtx, cancel := context.WithTimeout(ctx.UserContext(), 2*time.Second)
			defer cancel()
			if err := store.Ping(pingCtx); err != nil {
				storeStatus = "error"
				ctx.Logger.Error("Event store ping failed", slog.Any("error", err))
			}
		}

		health := HealthStatus{
			Status:      "ok",
			Timestamp:   time.Now(),
			DBStatus:    dbStatus,
			StoreStatus: storeStatus,
		}

		if dbStatus != "ok" || storeStatus != "ok" {
			health.Status = "degraded"
		}

		return ctx.JSON(health)
	}
}
