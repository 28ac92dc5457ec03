// Package config loads gateway and database settings from a .env file and
// the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Variable names.
const (
	BaseURL            = "IBKR_BASE_URL"
	InsecureSkipVerify = "IBKR_INSECURE_SKIP_VERIFY"
	Timeout            = "IBKR_TIMEOUT"
	DatabaseURL        = "DATABASE_URL"
	LogLevel           = "LOG_LEVEL"
	LogFormat          = "LOG_FORMAT"
)

// DefaultFile is the .env file read when no path is given.
const DefaultFile = ".env"

// Config is the resolved configuration.
type Config struct {
	BaseURL            string
	InsecureSkipVerify bool // the local gateway serves a self-signed certificate
	Timeout            time.Duration
	DatabaseURL        string
	LogLevel           string
	LogFormat          string

	v *viper.Viper
}

// Load reads path, if it exists, and overlays the process environment.
// Environment variables take precedence over the file. A missing file is
// not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultFile
	}

	v := viper.New()
	v.SetDefault(BaseURL, "https://localhost:5000/v1/api")
	v.SetDefault(InsecureSkipVerify, true)
	v.SetDefault(Timeout, 30*time.Second)
	v.SetDefault(LogLevel, "info")
	v.SetDefault(LogFormat, "json")
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := &Config{
		BaseURL:            v.GetString(BaseURL),
		InsecureSkipVerify: v.GetBool(InsecureSkipVerify),
		Timeout:            v.GetDuration(Timeout),
		DatabaseURL:        v.GetString(DatabaseURL),
		LogLevel:           v.GetString(LogLevel),
		LogFormat:          v.GetString(LogFormat),
		v:                  v,
	}
	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("config: %s must be positive, got %q", Timeout, v.GetString(Timeout))
	}
	return cfg, nil
}

// Var returns the value of any variable by name, from the environment or
// the loaded file. Unknown names yield "".
func (c *Config) Var(name string) string {
	if c == nil || c.v == nil {
		return os.Getenv(name)
	}
	return c.v.GetString(name)
}
