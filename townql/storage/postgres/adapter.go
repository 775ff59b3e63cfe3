package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/townql/townql/townql/storage"
	"github.com/townql/townql/townql/storage/sqlbuilder"
)

const (
	magicKey   = "townql_magic"
	magicValue = "townql"
	versionKey = "townql_version"
)

type Adapter struct {
	DSN    string
	Schema string // dedicated schema, pinned via search_path
}

func New(dsn, schema string) *Adapter {
	return &Adapter{DSN: dsn, Schema: schema}
}

func (a *Adapter) Backend() storage.Backend { return storage.BackendPostgres }

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle { return sqlbuilder.PlaceholderDollar }

func (a *Adapter) Close() error { return nil }

func (a *Adapter) SQL() storage.SQL { return SQLTemplates }

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func quoteIdent(ident string) string {
	// ident is validated to contain no quotes
	return `"` + ident + `"`
}

func (a *Adapter) ensureSchema(ctx context.Context, db *sql.DB) error {
	if a.Schema == "" || !schemaNameRe.MatchString(a.Schema) {
		return fmt.Errorf("invalid postgres schema name %q (must match %s)", a.Schema, schemaNameRe.String())
	}
	_, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoteIdent(a.Schema))
	return err
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	// First connection only makes sure the schema exists.
	cfg0, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	db0 := stdlib.OpenDB(*cfg0)
	if err := db0.PingContext(ctx); err != nil {
		_ = db0.Close()
		return nil, err
	}
	if err := a.ensureSchema(ctx, db0); err != nil {
		_ = db0.Close()
		return nil, err
	}
	_ = db0.Close()

	cfg, err := pgx.ParseConfig(a.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.RuntimeParams == nil {
		cfg.RuntimeParams = make(map[string]string)
	}
	cfg.RuntimeParams["search_path"] = fmt.Sprintf("%s,public", quoteIdent(a.Schema))

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) CreateCollections(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}

	sqlt := a.SQL()
	var magic string
	err := db.QueryRowContext(ctx, sqlt.GetMeta, magicKey).Scan(&magic)
	switch {
	case err == sql.ErrNoRows:
		if _, err := db.ExecContext(ctx, sqlt.SetMeta, magicKey, magicValue); err != nil {
			return err
		}
		_, err = db.ExecContext(ctx, sqlt.SetMeta, versionKey, "1")
		return err
	case err != nil:
		return err
	case magic != magicValue:
		return fmt.Errorf("schema %s is not a townql schema", a.Schema)
	}
	return nil
}

// FieldExpr casts only JSON numbers so a stray string never breaks the query.
func (a *Adapter) FieldExpr(field string, numeric bool) string {
	if numeric {
		return "(CASE WHEN jsonb_typeof(data->'" + field + "') = 'number' THEN (data->>'" + field + "')::numeric END)"
	}
	return "data->>'" + field + "'"
}

// SortExpr orders on the jsonb value itself; JSON null sorts as missing.
func (a *Adapter) SortExpr(field string) string {
	return "NULLIF(data->'" + field + "', 'null'::jsonb)"
}
