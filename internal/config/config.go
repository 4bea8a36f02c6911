package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	StoreConfig
	SessionConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Store
	Session
	Security
}

// New loads .env files (when present) into the process environment and returns
// a Config that reads its values from it.
func New() (Config, error) {
	loadEnvFiles()
	c := mainConfig{}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks settings that have no safe default outside development.
func Validate(c Config) error {
	if c.GetEnv() == DevEnv {
		return nil
	}
	if c.GetSessionSecret() == "" {
		return fmt.Errorf("[config Validate] %s is required when %s=%s", sessionSecretVar, envVar, c.GetEnv())
	}
	if len(c.GetSessionSecret()) < minSessionSecretLength {
		return fmt.Errorf("[config Validate] %s must be at least %d characters", sessionSecretVar, minSessionSecretLength)
	}
	// The in-memory stores are a development convenience only.
	if c.GetDatabaseURL() == "" {
		return fmt.Errorf("[config Validate] %s is required when %s=%s", databaseURLVar, envVar, c.GetEnv())
	}
	if c.GetRedisURL() == "" {
		return fmt.Errorf("[config Validate] %s is required when %s=%s", redisURLVar, envVar, c.GetEnv())
	}
	return nil
}

// loadEnvFiles never overrides variables that are already set.
func loadEnvFiles() {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err == nil {
			continue
		}
		cwd, err := os.Getwd()
		if err != nil {
			continue
		}
		parent := filepath.Dir(cwd)
		if parent == "" || parent == cwd {
			continue
		}
		_ = godotenv.Load(filepath.Join(parent, name))
	}
}
