package db

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Tom8810/janso/config"
	"github.com/Tom8810/janso/internal/model"
)

// Init opens the database selected by the environment and runs migrations.
// Production connects to the hosted PostgreSQL DSN; every other environment
// uses the local SQLite emulator.
func Init(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	logLevel := logger.Info
	if cfg.IsProduction() {
		dialector = postgres.Open(cfg.Database.DSN)
		logLevel = logger.Warn
	} else {
		logrus.WithField("dsn", cfg.Database.EmulatorDSN).Info("using local SQLite emulator")
		dialector = sqlite.Open(cfg.Database.EmulatorDSN)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.IsProduction() {
		sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	} else {
		// SQLite allows a single writer; one connection keeps batches serialized.
		sqlDB.SetMaxOpenConns(1)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetimeMinutes) * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	logrus.Info("database initialization complete")
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	logrus.Debug("running database migrations")
	if err := db.AutoMigrate(
		&model.Document{},
		&model.Account{},
		&model.PushSubscription{},
		&model.SubscriptionParlor{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}
	return nil
}
