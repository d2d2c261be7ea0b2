package config

import (
	"fmt"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageBadger   = "badger"

	SemanticNone     = "none"
	SemanticChromem  = "chromem"
	SemanticPgvector = "pgvector"
)

type AppConfig struct {
	RuntimePath string `env:"HEALTHMEM_RUNTIME_PATH" envDefault:".healthmem"`

	// Storage
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres badger"`
	DatabaseURL   string `env:"DATABASE_URL" validate:"required_if=StorageDriver postgres" secret:"true"`
	SemanticStore string `env:"SEMANTIC_STORE" envDefault:"chromem" validate:"oneof=none chromem pgvector"`

	// Coordination
	RedisURL string `env:"REDIS_URL" secret:"true"`

	// Ops endpoint
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9464"`
}

func ParseAppConfig() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	c.RuntimePath = resolveRuntimePath(c.RuntimePath)
	if err := Validate(c); err != nil {
		return nil, err
	}
	if c.SemanticStore == SemanticPgvector && c.StorageDriver != StoragePostgres && c.DatabaseURL == "" {
		return nil, fmt.Errorf("SEMANTIC_STORE=pgvector needs DATABASE_URL")
	}
	return c, nil
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "healthmem.db")
}

func (c AppConfig) GetBadgerPath() string {
	return filepath.Join(c.RuntimePath, "badger")
}

func (c AppConfig) GetVectorPath() string {
	return filepath.Join(c.RuntimePath, "vectors")
}
