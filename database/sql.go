package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"portfolio/api/config"
)

type DBClient struct {
	DB     *sql.DB
	Driver string
}

// NewSQLDB opens the user database with the configured driver and pings it.
func NewSQLDB(cfg config.DatabaseConfig) (*DBClient, error) {
	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %w", err)
	}

	if cfg.Driver == config.DriverSQLite {
		// SQLite serialises writers; one connection avoids "database is locked".
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to the database (ping failed): %w", err)
	}

	slog.Info("connected to user database", "driver", cfg.Driver)
	return &DBClient{DB: db, Driver: cfg.Driver}, nil
}

var userSchemas = map[string]string{
	config.DriverPostgres: `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			hashed_password BYTEA NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	config.DriverSQLite: `
		CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			hashed_password BLOB NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
}

// EnsureUserSchema creates the users table if it does not exist.
func (c *DBClient) EnsureUserSchema(ctx context.Context) error {
	ddl, ok := userSchemas[c.Driver]
	if !ok {
		return fmt.Errorf("no users schema for driver %q", c.Driver)
	}
	if _, err := c.DB.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}
	return nil
}

func (c *DBClient) Close() {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		} else {
			slog.Info("user database connection closed")
		}
	}
}
