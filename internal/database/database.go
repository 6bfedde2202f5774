package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shopwave/pkg/config"
)

// Open connects GORM to the SQL backend selected by cfg.StoreDriver.
// Postgres goes through an otelsql-instrumented pgx *sql.DB.
func Open(cfg *config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)}

	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database %s: %w", cfg.SQLitePath, err)
		}
		return db, nil
	case config.StorePostgres:
		return openPostgres(cfg, gormCfg)
	default:
		return nil, fmt.Errorf("store driver %q is not a SQL backend", cfg.StoreDriver)
	}
}

func openPostgres(cfg *config.Config, gormCfg *gorm.Config) (*gorm.DB, error) {
	attrs := otelsql.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("service.name", cfg.OTELServiceName),
	)

	sqlDB, err := otelsql.Open("pgx", cfg.DatabaseDSN, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(sqlDB, attrs); err != nil {
		log.Printf("Warning: failed to register otelsql stats metrics: %v", err)
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormCfg)
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm on postgres: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the tables of the given record types.
func Migrate(db *gorm.DB, records ...interface{}) error {
	if err := db.AutoMigrate(records...); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	log.Printf("Database schema migrated (%d tables)", len(records))
	return nil
}

// Close releases the connection pool under db.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
