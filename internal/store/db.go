package store

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/limnoscan/specimen-processor/config"
	"github.com/limnoscan/specimen-processor/internal/models"
)

// Connect opens the Postgres connection and runs migrations.
func Connect() (*gorm.DB, error) {
	pgConfig := config.GetPostgresConfig()

	db, err := gorm.Open(postgres.Open(pgConfig.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Upload{},
		&models.Item{},
	); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return db, nil
}
