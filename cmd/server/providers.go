// File: cmd/server/providers.go
package main

import (
	"fmt"
	"log"

	"workhub_backend/internal/config"
	"workhub_backend/internal/device"
	"workhub_backend/internal/notification"
	"workhub_backend/internal/platform/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// provideDatabase opens the GORM connection and keeps the schema current.
func provideDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.NewGORM(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&notification.Notification{}, &device.DeviceToken{}); err != nil {
		return nil, fmt.Errorf("auto-migration failed: %w", err)
	}
	return db, nil
}

func provideCleanup(logger *zap.Logger, db *gorm.DB) func() {
	return func() {
		logger.Info("Executing cleanup tasks...")
		database.CloseGORMDB(db)
		if err := logger.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
		log.Println("Cleanup finished.")
	}
}
