package database

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bloodbank/pkg/config"
)

// ErrNotConfigured means no database settings were supplied; callers run on the mock store.
var ErrNotConfigured = errors.New("database not configured")

// Open connects to the configured database, tunes the pool and migrates models.
// The connection is retried ConnectAttempts times before giving up.
func Open(cfg config.Database, log *zap.Logger, models ...interface{}) (*gorm.DB, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}

	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	log.Info("connecting to database",
		zap.String("driver", cfg.Driver),
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port))

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var db *gorm.DB
	for i := 1; i <= attempts; i++ {
		db, err = connect(dialector, cfg, false)
		if err == nil {
			break
		}
		log.Warn("database connection failed",
			zap.Int("attempt", i),
			zap.Int("max_attempts", attempts),
			zap.Error(err))
		if i < attempts {
			time.Sleep(cfg.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Driver, err)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	log.Info("database connection established successfully")
	return db, nil
}

// OpenDeferred returns a handle without contacting the server, for a database
// that was unreachable at startup. Connections are made on first use and
// nothing is migrated.
func OpenDeferred(cfg config.Database) (*gorm.DB, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}
	return connect(dialector, cfg, true)
}

func dialectorFor(cfg config.Database) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func connect(dialector gorm.Dialector, cfg config.Database, deferred bool) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError:       true,
		DisableAutomaticPing: deferred,
		Logger:               logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// sqlite serialises writers; more connections only add lock errors.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return db, nil
}

// Close releases the pool behind db.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
