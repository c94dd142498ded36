// Package config loads advisor settings from defaults, an optional YAML
// file and BJADVISOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// EnvPrefix is prepended to every environment override, e.g. BJADVISOR_HTTP_ADDR.
const EnvPrefix = "BJADVISOR"

type HTTP struct {
	Addr           string        `mapstructure:"addr"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// Store configures the recorder. An empty Path means the per-user data dir.
type Store struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Engine holds numeric and simulation defaults.
type Engine struct {
	Tolerance            float64 `mapstructure:"tolerance"`
	MaxIterations        int     `mapstructure:"max_iterations"`
	Intervals            int     `mapstructure:"intervals"`
	SimulationIterations int     `mapstructure:"simulation_iterations"`
	Workers              int     `mapstructure:"workers"`
	BatchSize            int     `mapstructure:"batch_size"`
}

type Tables struct {
	Path string `mapstructure:"path"`
}

type Log struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// Config is the full advisor configuration.
type Config struct {
	HTTP   HTTP   `mapstructure:"http"`
	Store  Store  `mapstructure:"store"`
	Engine Engine `mapstructure:"engine"`
	Tables Tables `mapstructure:"tables"`
	Log    Log    `mapstructure:"log"`
}

// SetDefaults registers every key so env overrides work without a file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", "127.0.0.1:8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 60*time.Second)
	v.SetDefault("http.request_timeout", 60*time.Second)

	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "")

	v.SetDefault("engine.tolerance", 1e-4)
	v.SetDefault("engine.max_iterations", 100)
	v.SetDefault("engine.intervals", 100)
	v.SetDefault("engine.simulation_iterations", 10000)
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.batch_size", 1024)

	v.SetDefault("tables.path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// New returns a viper instance with defaults and env binding applied.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if non-empty) into v and decodes the result.
func Load(v *viper.Viper, path string) (Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error
	if c.HTTP.Addr == "" {
		err = multierr.Append(err, errors.New("http.addr must not be empty"))
	}
	if c.HTTP.RequestTimeout <= 0 {
		err = multierr.Append(err, errors.New("http.request_timeout must be positive"))
	}
	if c.Engine.Tolerance <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.tolerance must be positive, got %g", c.Engine.Tolerance))
	}
	if c.Engine.MaxIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.max_iterations must be positive, got %d", c.Engine.MaxIterations))
	}
	if c.Engine.Intervals <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.intervals must be positive, got %d", c.Engine.Intervals))
	}
	if c.Engine.SimulationIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.simulation_iterations must be positive, got %d", c.Engine.SimulationIterations))
	}
	if c.Engine.Workers < 0 {
		err = multierr.Append(err, fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers))
	}
	if c.Engine.BatchSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("engine.batch_size must be positive, got %d", c.Engine.BatchSize))
	}
	return err
}
