package townql

import (
	"context"
	"log/slog"

	"github.com/townql/townql/townql/config"
	"github.com/townql/townql/townql/engine"
	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/metrics"
	"github.com/townql/townql/townql/planner"
	"github.com/townql/townql/townql/seed"
	"github.com/townql/townql/townql/storage"
	"github.com/townql/townql/townql/storage/memory"
	"github.com/townql/townql/townql/storage/postgres"
	"github.com/townql/townql/townql/storage/sqlite"
	"github.com/townql/townql/townql/storage/sqlstore"
)

type Options struct {
	Collection string
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

// Client holds one store connection for the life of the process and runs
// queries against it.
type Client struct {
	store   storage.Store
	engine  *engine.Engine
	log     *slog.Logger
	metrics *metrics.Metrics
	coll    string
}

// New wraps an already open store.
func New(store storage.Store, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Collection == "" {
		opts.Collection = engine.DefaultCollection
	}
	return &Client{
		store: store,
		engine: engine.New(store, engine.Options{
			Collection: opts.Collection,
			Logger:     opts.Logger,
			Metrics:    opts.Metrics,
		}),
		log:     opts.Logger,
		metrics: opts.Metrics,
		coll:    opts.Collection,
	}
}

// OpenStore connects the backend cfg names. SQL drivers must already be
// registered by the caller.
func OpenStore(ctx context.Context, cfg config.Config, log *slog.Logger) (storage.Store, error) {
	var adapter storage.Adapter
	switch storage.Backend(cfg.Backend) {
	case storage.BackendMemory:
		return memory.New(), nil
	case storage.BackendSQLite:
		adapter = sqlite.NewWithDriver(cfg.SQLite.Path, cfg.SQLite.Driver)
	case storage.BackendPostgres:
		adapter = postgres.New(cfg.Postgres.DSN, cfg.Postgres.Schema)
	default:
		return nil, qerrors.Newf(qerrors.ErrConfig, "unknown backend %q", cfg.Backend)
	}
	store, err := sqlstore.Open(ctx, adapter, log)
	if err != nil {
		return nil, qerrors.StoreError("open "+cfg.Backend+" store", err)
	}
	return store, nil
}

// Open connects the configured store and returns a Client over it.
func Open(ctx context.Context, cfg config.Config, opts Options) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Collection == "" {
		opts.Collection = cfg.Collection
	}
	store, err := OpenStore(ctx, cfg, opts.Logger)
	if err != nil {
		return nil, err
	}
	return New(store, opts), nil
}

func (c *Client) Store() storage.Store { return c.store }

func (c *Client) Collection() string { return c.coll }

// Query parses and runs text. The plan is returned whenever parsing succeeded,
// even if execution failed.
func (c *Client) Query(ctx context.Context, text string) (*engine.Result, *planner.QueryPlan, error) {
	plan, err := ParseQuery(text)
	if err != nil {
		c.metrics.ObserveParseError(string(qerrors.KindOf(err)))
		c.log.Debug("query rejected", "query", text, "error", err)
		return nil, nil, err
	}
	res, err := c.engine.Execute(ctx, plan)
	return res, plan, err
}

func (c *Client) Execute(ctx context.Context, plan *planner.QueryPlan) (*engine.Result, error) {
	return c.engine.Execute(ctx, plan)
}

// Seed writes records into the client's collection. The store must accept
// writes.
func (c *Client) Seed(ctx context.Context, records []map[string]any, replace bool) (int, error) {
	w, ok := c.store.(storage.Writer)
	if !ok {
		return 0, qerrors.New(qerrors.ErrSeed, "store does not accept writes")
	}
	l, err := seed.NewLoader(w, seed.Options{
		Collection: c.coll,
		Replace:    replace,
		Logger:     c.log,
		Metrics:    c.metrics,
	})
	if err != nil {
		return 0, err
	}
	return l.Load(ctx, records)
}

func (c *Client) Close() error {
	if err := c.store.Close(); err != nil {
		return qerrors.StoreError("close store", err)
	}
	return nil
}
