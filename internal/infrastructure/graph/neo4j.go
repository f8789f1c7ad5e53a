package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"privacyguard-lab/internal/config"
	"privacyguard-lab/pkg/logger"
)

// Neo4jClient wraps the Neo4j driver
type Neo4jClient struct {
	driver neo4j.DriverWithContext
	config config.Neo4jConfig
	logger *logger.Logger
}

// NewNeo4jClient creates a new Neo4j client
func NewNeo4jClient(ctx context.Context, cfg config.Neo4jConfig, log *logger.Logger) (*Neo4jClient, error) {
	auth := neo4j.BasicAuth(cfg.Username, cfg.Password, "")

	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxConnections
		c.MaxConnectionLifetime = time.Duration(cfg.MaxLifetimeMinutes) * time.Minute
		c.ConnectionAcquisitionTimeout = 30 * time.Second
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Neo4j: %w", err)
	}

	client := &Neo4jClient{
		driver: driver,
		config: cfg,
		logger: log.WithComponent("neo4j"),
	}

	if err := client.initializeSchema(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to initialize Neo4j schema")
	}

	log.Info().
		Str("uri", cfg.URI).
		Msg("connected to Neo4j")

	return client, nil
}

// Close closes the Neo4j driver
func (c *Neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// ReadSession creates a read-only session
func (c *Neo4jClient) ReadSession(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: c.config.Database,
	})
}

// WriteSession creates a read-write session
func (c *Neo4jClient) WriteSession(ctx context.Context) neo4j.SessionWithContext {
	return c.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: c.config.Database,
	})
}

// ExecuteWrite executes a write transaction
func (c *Neo4jClient) ExecuteWrite(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.WriteSession(ctx)
	defer session.Close(ctx)

	return session.ExecuteWrite(ctx, work)
}

// ExecuteRead executes a read transaction
func (c *Neo4jClient) ExecuteRead(ctx context.Context, work func(tx neo4j.ManagedTransaction) (any, error)) (any, error) {
	session := c.ReadSession(ctx)
	defer session.Close(ctx)

	return session.ExecuteRead(ctx, work)
}

// initializeSchema creates indexes and constraints
func (c *Neo4jClient) initializeSchema(ctx context.Context) error {
	session := c.WriteSession(ctx)
	defer session.Close(ctx)

	statements := []string{
		"CREATE CONSTRAINT app_identifier IF NOT EXISTS FOR (a:App) REQUIRE a.identifier IS UNIQUE",
		"CREATE CONSTRAINT sdk_name IF NOT EXISTS FOR (s:SDK) REQUIRE s.name IS UNIQUE",
		"CREATE INDEX sdk_category IF NOT EXISTS FOR (s:SDK) ON (s.category)",
	}

	for _, stmt := range statements {
		_, err := session.Run(ctx, stmt, nil)
		if err != nil {
			c.logger.Warn().Err(err).Str("statement", stmt).Msg("failed to apply schema statement")
		}
	}

	c.logger.Info().Msg("Neo4j schema initialized")
	return nil
}

// Health checks Neo4j connectivity
func (c *Neo4jClient) Health(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}
