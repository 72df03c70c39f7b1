package main

import (
	"log"

	"barter_backend/internal/app"
	"barter_backend/internal/config"
	"barter_backend/internal/jobs"
	"barter_backend/internal/listing"
	"barter_backend/internal/match"
	"barter_backend/internal/platform/database"
	"barter_backend/internal/platform/elasticsearch"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDB opens the database, migrates the schema and returns a cleanup
// that closes the pool and flushes the logger.
func provideDB(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}
	if err := app.Migrate(db, cfg, logger); err != nil {
		cleanup()
		return nil, nil, err
	}
	return db, cleanup, nil
}

func provideOverdueCounter(matches match.Repository) jobs.OverdueCounter {
	return matches
}

// syncCommand holds what `server sync-listings` needs.
type syncCommand struct {
	Listings *listing.ServiceImplementation
	ES       *elasticsearch.ESClientWrapper
	Logger   *zap.Logger
}
