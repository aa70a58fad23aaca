package app

import (
	"errors"
	"fmt"
)

// Cache backend names accepted by Config.CacheBackend.
const (
	CacheMemory   = "memory"
	CachePostgres = "postgres"
	CacheS3       = "s3"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // pipeline definition .hcl file or directory
	Pipeline     string // pipeline to run; empty lists the loaded ones
	InputsFile   string // optional YAML file with initial inputs

	CacheBackend string // memory | postgres | s3
	StatusPort   int    // HTTP status server port, 0 disables

	LogFormat string
	LogLevel  string
}

// NewConfig validates a Config and applies defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = CacheMemory
	}
	switch cfg.CacheBackend {
	case CacheMemory, CachePostgres, CacheS3:
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
	return &cfg, nil
}
