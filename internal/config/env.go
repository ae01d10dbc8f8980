// Package config provides centralized configuration management for the
// periscope client.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

// Env holds all periscope environment variables.
type Env struct {
	// GatewayURL is the agent gateway base URL (PERISCOPE_GATEWAY_URL)
	GatewayURL string

	// Home overrides the periscope home directory (PERISCOPE_HOME)
	Home string

	// Debug enables debug logging (PERISCOPE_DEBUG)
	Debug bool

	// NoGraph disables the graph audit sink (PERISCOPE_NO_GRAPH)
	NoGraph bool

	// ActionLogCap overrides the visible action log bound (PERISCOPE_ACTION_CAP)
	ActionLogCap string

	// Neo4jURI is the graph database URI (NEO4J_URI)
	Neo4jURI string

	// Neo4jUser is the graph database user (NEO4J_USER)
	Neo4jUser string

	// Neo4jPassword is the graph database password (NEO4J_PASSWORD)
	Neo4jPassword string
}

var (
	env     *Env
	envOnce sync.Once
)

// Get returns the singleton environment configuration.
// Thread-safe, loads once on first call.
func Get() *Env {
	envOnce.Do(func() {
		env = &Env{
			GatewayURL:    getEnvDefault("PERISCOPE_GATEWAY_URL", "http://localhost:8700"),
			Home:          os.Getenv("PERISCOPE_HOME"),
			Debug:         os.Getenv("PERISCOPE_DEBUG") == "1",
			NoGraph:       os.Getenv("PERISCOPE_NO_GRAPH") == "1",
			ActionLogCap:  os.Getenv("PERISCOPE_ACTION_CAP"),
			Neo4jURI:      getEnvDefault("NEO4J_URI", "bolt://localhost:7687"),
			Neo4jUser:     os.Getenv("NEO4J_USER"),
			Neo4jPassword: os.Getenv("NEO4J_PASSWORD"),
		}
	})
	return env
}

// Reset clears the cached environment (for testing).
func Reset() {
	envOnce = sync.Once{}
	env = nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Paths holds standard periscope directory paths.
type Paths struct {
	// Home is the periscope home directory (~/.periscope)
	Home string

	// Data is the data directory (~/.periscope/data)
	Data string

	// ContextFile is the persisted context set (~/.periscope/context.json)
	ContextFile string

	// EnvFile is the .env file path (~/.periscope/.env)
	EnvFile string
}

var (
	paths     *Paths
	pathsOnce sync.Once
)

// GetPaths returns the singleton paths configuration.
func GetPaths() *Paths {
	pathsOnce.Do(func() {
		home := Get().Home
		if home == "" {
			userHome, err := os.UserHomeDir()
			if err != nil {
				userHome = "."
			}
			home = filepath.Join(userHome, ".periscope")
		}

		paths = &Paths{
			Home:        home,
			Data:        filepath.Join(home, "data"),
			ContextFile: filepath.Join(home, "context.json"),
			EnvFile:     filepath.Join(home, ".env"),
		}
	})
	return paths
}

// ResetPaths clears the cached paths (for testing).
func ResetPaths() {
	pathsOnce = sync.Once{}
	paths = nil
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}
