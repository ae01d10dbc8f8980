// Package graph provides the graph database abstraction used by the audit
// sink. Any bolt-speaking database (Memgraph, Neo4j) can back it.
package graph

import (
	"context"

	"github.com/nkall/periscope/internal/config"
)

// Record represents a single result row from a query.
type Record map[string]any

// Reader provides read-only graph database operations.
type Reader interface {
	// Execute runs a Cypher query and returns results.
	Execute(ctx context.Context, query string, params map[string]any) ([]Record, error)
}

// Writer provides write graph database operations.
type Writer interface {
	// ExecuteWrite runs a write query (CREATE, MERGE, SET, DELETE).
	ExecuteWrite(ctx context.Context, query string, params map[string]any) error
}

// Driver is the full interface for graph database operations.
type Driver interface {
	Reader
	Writer

	// Close releases database resources.
	Close() error

	// Ping checks if the database is reachable.
	Ping(ctx context.Context) error
}

// Config holds database connection configuration.
type Config struct {
	URI      string
	Username string
	Password string
}

// DefaultConfig returns connection settings from the environment.
func DefaultConfig() Config {
	env := config.Get()
	return Config{
		URI:      env.Neo4jURI,
		Username: env.Neo4jUser,
		Password: env.Neo4jPassword,
	}
}
