// Package config loads townql settings from an optional file, TOWNQL_*
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"

	qerrors "github.com/townql/townql/townql/errors"
)

// EnvPrefix namespaces environment variables: TOWNQL_SQLITE_PATH -> sqlite.path.
const EnvPrefix = "TOWNQL_"

type Config struct {
	Backend    string         `mapstructure:"backend"`
	Collection string         `mapstructure:"collection"`
	SQLite     SQLiteConfig   `mapstructure:"sqlite"`
	Postgres   PostgresConfig `mapstructure:"postgres"`
	Log        LogConfig      `mapstructure:"log"`
	Metrics    MetricsConfig  `mapstructure:"metrics"`
	Seed       SeedConfig     `mapstructure:"seed"`
}

type SQLiteConfig struct {
	Path   string `mapstructure:"path"`
	Driver string `mapstructure:"driver"` // sqlite (modernc) or sqlite3 (mattn)
}

type PostgresConfig struct {
	DSN    string `mapstructure:"dsn"`
	Schema string `mapstructure:"schema"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"` // empty disables the /metrics listener
}

type SeedConfig struct {
	File string `mapstructure:"file"`
}

// SetDefaults registers every key so flags and env vars can be bound to it.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend", "sqlite")
	v.SetDefault("collection", "Vermont_Municipalities")
	v.SetDefault("sqlite.path", "townql.db")
	v.SetDefault("sqlite.driver", "sqlite")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.schema", "townql")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("seed.file", "")
}

// Load reads configuration into a Config. path may be empty.
func Load(v *viper.Viper, path string) (Config, error) {
	if v == nil {
		v = viper.New()
	}
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, qerrors.Wrap(qerrors.ErrConfig, "read config file", err)
		}
	}

	// Walk the environment instead of AutomaticEnv so nested keys unmarshal
	// without a config file. BindEnv keeps flags above env.
	for _, envStr := range os.Environ() {
		key, _, ok := strings.Cut(envStr, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		propKey := strings.TrimPrefix(key, EnvPrefix)
		propKey = strings.ToLower(strings.Replace(propKey, "_", ".", 1))
		propKey = strings.TrimPrefix(propKey, ".")
		if err := v.BindEnv(propKey, key); err != nil {
			return Config{}, qerrors.Wrap(qerrors.ErrConfig, "bind "+key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, qerrors.Wrap(qerrors.ErrConfig, "failed to unmarshal config", err)
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return cfg, cfg.Validate()
}

// Validate rejects settings no backend could start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Collection) == "" {
		return qerrors.New(qerrors.ErrConfig, "collection must not be empty")
	}
	switch c.Backend {
	case "memory":
	case "sqlite":
		if c.SQLite.Path == "" {
			return qerrors.New(qerrors.ErrConfig, "sqlite.path is required for the sqlite backend")
		}
		if c.SQLite.Driver != "sqlite" && c.SQLite.Driver != "sqlite3" {
			return qerrors.Newf(qerrors.ErrConfig, "unknown sqlite.driver %q (want sqlite or sqlite3)", c.SQLite.Driver)
		}
	case "postgres":
		if c.Postgres.DSN == "" {
			return qerrors.New(qerrors.ErrConfig, "postgres.dsn is required for the postgres backend")
		}
		if c.Postgres.Schema == "" {
			return qerrors.New(qerrors.ErrConfig, "postgres.schema must not be empty")
		}
	default:
		return qerrors.Newf(qerrors.ErrConfig, "unknown backend %q (want memory, sqlite or postgres)", c.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return qerrors.Newf(qerrors.ErrConfig, "unknown log.format %q (want text or json)", c.Log.Format)
	}
	return nil
}
