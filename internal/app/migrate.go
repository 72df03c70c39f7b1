package app

import (
	"fmt"

	"barter_backend/internal/config"
	"barter_backend/internal/listing"
	"barter_backend/internal/match"
	"barter_backend/internal/message"
	"barter_backend/internal/swipe"
	"barter_backend/internal/user"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&user.User{},
		&listing.Listing{},
		&swipe.Swipe{},
		&match.Match{},
		&message.Message{},
	}
}

// Migrate creates or updates the schema when DB_AUTO_MIGRATE is on.
func Migrate(db *gorm.DB, cfg *config.Config, logger *zap.Logger) error {
	if !cfg.DBAutoMigrate {
		logger.Info("DB_AUTO_MIGRATE is off; skipping schema migration")
		return nil
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	logger.Info("Database schema migrated")
	return nil
}
