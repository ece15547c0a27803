// Package neo4j implements store.EntityStore on a Neo4j property graph.
// This is the primary backend: entities are (:Entity {name}) nodes with one
// label per kind, relationships are typed edges carrying an optional
// importance weight.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/JadenBair-FS/aris/pkg/logger"
)

// Client wraps a pooled Neo4j driver plus the target database name.
type Client struct {
	Driver   neo4j.DriverWithContext
	Database string
}

// NewClientParams configures the Neo4j connection. URI is required; the
// remaining fields fall back to driver defaults.
type NewClientParams struct {
	URI      string
	Username string
	Password string
	Database string

	ConnectTimeout time.Duration
	MaxPoolSize    int
}

// NewClient connects to Neo4j and verifies connectivity before returning.
// The caller owns the client and must Close it; nothing here is a process
// global.
func NewClient(ctx context.Context, params NewClientParams) (*Client, error) {
	if params.URI == "" {
		return nil, fmt.Errorf("neo4j: URI is required")
	}
	timeout := params.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxPool := params.MaxPoolSize
	if maxPool <= 0 {
		maxPool = 50
	}

	auth := neo4j.BasicAuth(params.Username, params.Password, "")
	driver, err := neo4j.NewDriverWithContext(params.URI, auth, func(cfg *neo4j.Config) {
		cfg.MaxConnectionPoolSize = maxPool
		cfg.SocketConnectTimeout = timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4j: verify connectivity: %w", err)
	}

	return &Client{Driver: driver, Database: params.Database}, nil
}

func (c *Client) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return c.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: c.Database,
	})
}

// InitSchema creates the unique-name constraint on entities. Best effort:
// restricted users may lack schema privileges, so failures are logged and
// the store keeps working against MERGE semantics alone.
func (c *Client) InitSchema(ctx context.Context) {
	session := c.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx,
		`CREATE CONSTRAINT entity_name_unique IF NOT EXISTS FOR (e:Entity) REQUIRE e.name IS UNIQUE`, nil)
	if err != nil {
		logger.Warn("neo4j schema init failed (continuing)", "err", err)
		return
	}
	_, _ = res.Consume(ctx)
}

func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.Driver == nil {
		return nil
	}
	err := c.Driver.Close(ctx)
	c.Driver = nil
	return err
}
