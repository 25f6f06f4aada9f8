package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"portfolio/api/config"
)

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

const pageViewsDDL = `
	CREATE TABLE IF NOT EXISTS page_views (
		event_id String,
		page String,
		visitor_key String,
		user_agent String,
		referrer String,
		screen_resolution String,
		timezone String,
		timestamp DateTime64(3)
	) ENGINE = MergeTree()
	ORDER BY (timestamp, page)`

// NewClickHouseDB connects to the page-view archive and makes sure the
// page_views table exists.
func NewClickHouseDB(cfg config.ClickHouseConfig) (*ClickHouseClient, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("CLICKHOUSE_HOST is not set")
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.NativePort)},
		Auth: clickhouse.Auth{
			Database: cfg.DBName,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "portfolio-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	if err := conn.Exec(ctx, pageViewsDDL); err != nil {
		return nil, fmt.Errorf("failed to create page_views table: %w", err)
	}

	slog.Info("connected to ClickHouse page-view archive", "addr", options.Addr[0])
	return &ClickHouseClient{Conn: conn}, nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		slog.Info("ClickHouse connection closed")
	}
}
