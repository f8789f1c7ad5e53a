package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"privacyguard-lab/internal/config"
	"privacyguard-lab/pkg/logger"
)

// PostgresDB wraps the pgx connection pool
type PostgresDB struct {
	pool   *pgxpool.Pool
	logger *logger.Logger
}

// NewPostgres creates a new PostgreSQL connection pool and ensures the schema exists
func NewPostgres(ctx context.Context, cfg config.DatabaseConfig, log *logger.Logger) (*PostgresDB, error) {
	log = log.WithComponent("postgres")
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Str("dbname", cfg.DBName).Msg("connecting to PostgreSQL")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &PostgresDB{
		pool:   pool,
		logger: log,
	}

	if err := db.initializeSchema(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Msg("connected to PostgreSQL successfully")

	return db, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS app_analyses (
		id               UUID PRIMARY KEY,
		identifier       TEXT NOT NULL,
		display_name     TEXT NOT NULL,
		device_id        TEXT,
		is_system_app    BOOLEAN NOT NULL DEFAULT FALSE,
		version_name     TEXT,
		fingerprint      TEXT NOT NULL,
		security_score   INTEGER NOT NULL CHECK (security_score BETWEEN 0 AND 100),
		risk_tier        TEXT NOT NULL,
		dangerous_count  INTEGER NOT NULL,
		normal_count     INTEGER NOT NULL,
		result           JSONB NOT NULL,
		report           TEXT,
		analysis_version TEXT NOT NULL,
		analyzed_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_app_analyses_identifier ON app_analyses (identifier)`,
	`CREATE INDEX IF NOT EXISTS idx_app_analyses_device ON app_analyses (device_id)`,
	`CREATE INDEX IF NOT EXISTS idx_app_analyses_tier ON app_analyses (risk_tier)`,
	`CREATE INDEX IF NOT EXISTS idx_app_analyses_analyzed_at ON app_analyses (analyzed_at DESC)`,
}

// initializeSchema creates tables and indexes
func (db *PostgresDB) initializeSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	db.logger.Debug().Int("statements", len(schemaStatements)).Msg("schema initialized")
	return nil
}

// Pool returns the underlying connection pool
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Close closes the connection pool
func (db *PostgresDB) Close() {
	db.logger.Info().Msg("closing PostgreSQL connection pool")
	db.pool.Close()
}

// Ping checks the database connection
func (db *PostgresDB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// DBTX is an interface that abstracts database operations for use in queries
// This allows queries to work with both *pgxpool.Pool and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

var (
	_ DBTX = (*pgxpool.Pool)(nil)
	_ DBTX = (pgx.Tx)(nil)
)
