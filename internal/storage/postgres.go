package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/natheelic/iot-device-hub/internal/config"
	"go.uber.org/zap"
)

// Sentinel results callers can distinguish from transport failures.
var (
	// ErrNotFound: the requested row does not exist (or is soft-deleted
	// where the operation only touches active rows).
	ErrNotFound = errors.New("not found")

	// ErrNameTaken: another active profile already holds the device name.
	ErrNameTaken = errors.New("device name already in use")
)

type PostgresClient struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresClient(cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresClient, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Connection testen
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{pool: pool, logger: logger}, nil
}

func (p *PostgresClient) Close() {
	p.pool.Close()
}

// Ping is the health probe round trip.
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
