package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/townql/townql/townql/storage"
	"github.com/townql/townql/townql/storage/sqlbuilder"
)

const (
	magicKey   = "townql_magic"
	magicValue = "townql"
	versionKey = "townql_version"
)

type Adapter struct {
	Path       string
	DriverName string
}

// New uses the pure-Go modernc driver registered as "sqlite".
func New(path string) *Adapter {
	return &Adapter{Path: path, DriverName: "sqlite"}
}

// NewWithDriver selects another registered driver, e.g. "sqlite3" for cgo.
func NewWithDriver(path, driver string) *Adapter {
	return &Adapter{Path: path, DriverName: driver}
}

func (a *Adapter) Backend() storage.Backend {
	return storage.BackendSQLite
}

func (a *Adapter) PlaceholderStyle() sqlbuilder.PlaceholderStyle {
	return sqlbuilder.PlaceholderQuestion
}

func (a *Adapter) Connect(ctx context.Context) (*sql.DB, error) {
	dsn := a.Path
	if !strings.Contains(dsn, "?") {
		dsn = dsn + "?_busy_timeout=5000"
	} else {
		dsn = dsn + "&_busy_timeout=5000"
	}
	db, err := sql.Open(a.DriverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func (a *Adapter) Close() error {
	return nil
}

func (a *Adapter) SQL() storage.SQL {
	return SQLTemplates
}

func (a *Adapter) CreateCollections(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, ddlBase); err != nil {
		return err
	}
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode=WAL;")
	_, _ = db.ExecContext(ctx, "PRAGMA synchronous=NORMAL;")

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
		return fmt.Errorf("not a townql db")
	}
	return nil
}

func (a *Adapter) FieldExpr(field string, numeric bool) string {
	return "json_extract(data_json, '$." + field + "')"
}

func (a *Adapter) SortExpr(field string) string {
	return a.FieldExpr(field, true)
}
