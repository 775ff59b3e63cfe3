package cliopt

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// GlobalOptions are parsed once at the CLI root and passed to subcommands.
// Store settings go through viper so files and TOWNQL_* env vars apply too;
// only presentation flags live here.
//
// NOTE: This is a separate package to avoid import cycles between the root
// command and per-command code.
type GlobalOptions struct {
	ConfigFile string
	Format     string
	Width      int
}

func DefaultGlobalOptions() GlobalOptions {
	return GlobalOptions{
		Format: "text",
		Width:  80,
	}
}

// flagKeys maps CLI flags onto config keys.
var flagKeys = []struct {
	flag, key, usage string
}{
	{"backend", "backend", "store backend: memory|sqlite|postgres"},
	{"sqlite-path", "sqlite.path", "sqlite database file, or a directory holding townql.db"},
	{"sqlite-driver", "sqlite.driver", "sqlite driver: sqlite (pure Go) or sqlite3 (cgo)"},
	{"pg-dsn", "postgres.dsn", "postgres DSN"},
	{"pg-schema", "postgres.schema", "postgres schema holding the documents table"},
	{"collection", "collection", "collection holding the town records"},
	{"log-level", "log.level", "log level: debug|info|warn|error"},
	{"log-format", "log.format", "log format: text|json"},
	{"metrics-addr", "metrics.addr", "serve prometheus /metrics on this address (shell only)"},
	{"seed-file", "seed.file", "JSON seed file loaded before the shell starts"},
}

func BindGlobalFlags(fs *pflag.FlagSet, v *viper.Viper, g *GlobalOptions) error {
	fs.StringVar(&g.ConfigFile, "config", g.ConfigFile, "config file (yaml, json or toml)")
	fs.StringVarP(&g.Format, "format", "f", g.Format, "output format: text|json|plan")
	fs.IntVar(&g.Width, "width", g.Width, "wrap text output at this many columns (0 disables)")

	for _, fk := range flagKeys {
		fs.String(fk.flag, "", fk.usage)
		if err := v.BindPFlag(fk.key, fs.Lookup(fk.flag)); err != nil {
			return err
		}
	}
	return nil
}
