package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"hermannm.dev/wrap"

	"better-pypi-stats/internal/config"
)

// NewConnection opens the shared ClickHouse handle and checks that the server
// answers.
func NewConnection(ctx context.Context, cfg config.ClickHouse) (driver.Conn, error) {
	conn, err := clickhouse.Open(connectionOptions(cfg))
	if err != nil {
		return nil, wrap.Error(err, "failed to connect to ClickHouse")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.DialTimeout+5*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, wrap.Errorf(err, "failed to ping ClickHouse at '%s'", cfg.Address)
	}

	slog.Info(
		"connected to ClickHouse",
		slog.String("address", cfg.Address),
		slog.String("database", cfg.DatabaseName),
		slog.String("protocol", cfg.Protocol),
	)
	return conn, nil
}

// Options docs: https://clickhouse.com/docs/en/integrations/go#connection-settings
func connectionOptions(cfg config.ClickHouse) *clickhouse.Options {
	options := &clickhouse.Options{
		Addr: []string{cfg.Address},
		Auth: clickhouse.Auth{
			Database: cfg.DatabaseName,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Debug: cfg.Debug,
		Debugf: func(format string, v ...any) {
			slog.Debug(fmt.Sprintf(format, v...))
		},
		DialTimeout:     cfg.DialTimeout,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}

	// The HTTP transport does not support LZ4.
	if cfg.Protocol == "native" {
		options.Protocol = clickhouse.Native
		options.Compression = &clickhouse.Compression{Method: clickhouse.CompressionLZ4}
	} else {
		options.Protocol = clickhouse.HTTP
		options.Compression = &clickhouse.Compression{Method: clickhouse.CompressionGZIP}
	}

	if cfg.TLS {
		options.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return options
}
