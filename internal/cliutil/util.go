package cliutil

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/townql/townql/townql"
	"github.com/townql/townql/townql/config"
	"github.com/townql/townql/townql/metrics"
)

// DefaultDBName is used when --sqlite-path names a directory.
const DefaultDBName = "townql.db"

// Env is what every command needs after the root command has run.
type Env struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// ResolveSQLitePath turns the configured sqlite path into a database file.
// Anything ending in .db or naming an existing file is used as-is; a directory
// gets townql.db appended.
func ResolveSQLitePath(p string) string {
	if p == "" || p == ":memory:" || strings.HasPrefix(p, "file:") || strings.HasSuffix(p, ".db") {
		return p
	}
	if st, err := os.Stat(p); err == nil && st.IsDir() {
		return filepath.Join(p, DefaultDBName)
	}
	return p
}

// OpenClient connects the configured store.
func OpenClient(ctx context.Context, env Env) (*townql.Client, error) {
	cfg := env.Config
	cfg.SQLite.Path = ResolveSQLitePath(cfg.SQLite.Path)
	return townql.Open(ctx, cfg, townql.Options{
		Collection: cfg.Collection,
		Logger:     env.Logger,
		Metrics:    env.Metrics,
	})
}
