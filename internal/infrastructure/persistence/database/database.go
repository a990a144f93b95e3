// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/BallotDesk/ballotdesk-go/internal/infrastructure/observability/logging"
	"github.com/BallotDesk/ballotdesk-go/pkg/config"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
}

// NewConnection establishes a new database connection for the specified driver.
func NewConnection(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}

	if err = db.Ping(); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	if err = db.Ping(); err != nil {
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(config.DBConnMaxLifetimeMinutes) * time.Minute)

	logger.Database().Info("Database connection established", "driverName", driverName, "duration", time.Since(start))

	return &DB{db}, nil
}

// Open resolves the configured driver and data source. A remote libsql URL
// takes precedence over the local sqlite path when both are set.
func Open(logger *logging.ChanneledLogger) (*DB, error) {
	if config.DBURL != "" {
		connStr := config.DBURL
		if config.DBAuthToken != "" {
			connStr = fmt.Sprintf("%s?authToken=%s", config.DBURL, config.DBAuthToken)
		}
		return NewConnectionWithLogger("libsql", connStr, logger)
	}
	return NewConnectionWithLogger(config.DBDriver, config.DBPath, logger)
}
