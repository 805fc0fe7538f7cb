package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	envPrefix            = "FIELDCACHE"
	defaultHTTPAddress   = "127.0.0.1:8087"
	defaultBackend       = BackendBadger
	defaultStoragePath   = "fieldcache-data"
	defaultLogLevel      = "info"
	defaultCeilingMB     = 4
	defaultChunkBudgetMB = 1.0
)

// Supported storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// AppConfig captures runtime configuration for the cache service.
type AppConfig struct {
	HTTPAddress    string
	StorageBackend string
	StoragePath    string
	CacheCeilingMB int
	ChunkBudgetMB  float64
	LogLevel       string
}

// CeilingBytes converts the configured flat-cache ceiling to bytes.
func (c AppConfig) CeilingBytes() int {
	return c.CacheCeilingMB * 1024 * 1024
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("storage.backend", defaultBackend)
	configViper.SetDefault("storage.path", defaultStoragePath)
	configViper.SetDefault("cache.ceiling_mb", defaultCeilingMB)
	configViper.SetDefault("cache.chunk_budget_mb", defaultChunkBudgetMB)
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:    configViper.GetString("http.address"),
		StorageBackend: configViper.GetString("storage.backend"),
		StoragePath:    configViper.GetString("storage.path"),
		CacheCeilingMB: configViper.GetInt("cache.ceiling_mb"),
		ChunkBudgetMB:  configViper.GetFloat64("cache.chunk_budget_mb"),
		LogLevel:       configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.StorageBackend {
	case BackendBadger, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be one of %s, %s, %s", BackendBadger, BackendSQLite, BackendMemory)
	}
	if c.StorageBackend != BackendMemory && strings.TrimSpace(c.StoragePath) == "" {
		return fmt.Errorf("storage.path is required for the %s backend", c.StorageBackend)
	}
	if c.CacheCeilingMB <= 0 {
		return fmt.Errorf("cache.ceiling_mb must be positive")
	}
	if c.ChunkBudgetMB <= 0 {
		return fmt.Errorf("cache.chunk_budget_mb must be positive")
	}
	return nil
}
