// Package engine runs query plans against a document store. AND chains are
// pushed down to the store, OR is emulated with a client-side union, and name
// and OF lookups scan the collection.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/townql/townql/townql/catalog"
	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/metrics"
	"github.com/townql/townql/townql/planner"
	"github.com/townql/townql/townql/query"
	"github.com/townql/townql/townql/storage"
)

// DefaultCollection holds the municipality records.
const DefaultCollection = "Vermont_Municipalities"

type Options struct {
	Collection string
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
}

type Engine struct {
	store      storage.Store
	collection string
	log        *slog.Logger
	metrics    *metrics.Metrics
}

func New(store storage.Store, opts Options) *Engine {
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Engine{
		store:      store,
		collection: opts.Collection,
		log:        opts.Logger,
		metrics:    opts.Metrics,
	}
}

func (e *Engine) Collection() string { return e.collection }

// execution tracks per-call bookkeeping.
type execution struct {
	path    string
	scanned int
}

// Execute runs plan and blocks until the whole result is available.
func (e *Engine) Execute(ctx context.Context, plan *planner.QueryPlan) (*Result, error) {
	if plan == nil || len(plan.Filters) == 0 {
		return nil, qerrors.New(qerrors.ErrSyntax, "empty query plan")
	}

	start := time.Now()
	x := &execution{}
	res, err := e.dispatch(ctx, plan, x)
	elapsed := time.Since(start)

	e.metrics.ObserveQuery(x.path, x.scanned, elapsed, err)
	if err != nil {
		e.log.Debug("query failed", "path", x.path, "plan", plan.String(), "error", err)
		return nil, err
	}
	e.log.Debug("query executed",
		"path", x.path,
		"plan", plan.String(),
		"scanned", x.scanned,
		"results", res.Len(),
		"elapsed", elapsed,
	)
	return res, nil
}

func (e *Engine) dispatch(ctx context.Context, plan *planner.QueryPlan, x *execution) (*Result, error) {
	first := plan.Filters[0]
	switch {
	case len(plan.Filters) == 1 && first.Field == catalog.TownName && (first.Op == query.OpEq || first.Op == query.OpOf):
		x.path = metrics.PathNameLookup
		return e.nameLookup(ctx, plan, x)
	case first.Op == query.OpOf:
		x.path = metrics.PathOfLookup
		return e.ofLookup(ctx, plan, x)
	}
	return e.filter(ctx, plan, x)
}

// nameLookup returns the stored name of the first town whose name matches
// case-insensitively. Stored casing is not reliable, so this never pushes down.
func (e *Engine) nameLookup(ctx context.Context, plan *planner.QueryPlan, x *execution) (*Result, error) {
	want := fmt.Sprint(plan.Filters[0].Value)
	doc, found, err := e.findTown(ctx, plan, want, x)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Result{Kind: KindScalar}, nil
	}
	return &Result{Kind: KindScalar, Values: []any{doc.Fields[catalog.TownName]}}, nil
}

// ofLookup returns one field of the first town matching the OF operand. A town
// that lacks the field yields a single nil value.
func (e *Engine) ofLookup(ctx context.Context, plan *planner.QueryPlan, x *execution) (*Result, error) {
	f := plan.Filters[0]
	if len(plan.Filters) > 1 {
		return nil, qerrors.RestrictionError("cannot use AND/OR with OF operator: run OF lookups as a single condition")
	}
	doc, found, err := e.findTown(ctx, plan, fmt.Sprint(f.Value), x)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Result{Kind: KindScalar}, nil
	}
	return &Result{Kind: KindScalar, Values: []any{doc.Fields[f.Field]}}, nil
}

func (e *Engine) findTown(ctx context.Context, plan *planner.QueryPlan, name string, x *execution) (storage.Document, bool, error) {
	q := e.store.Collection(e.collection)
	if plan.OrderBy != nil {
		q = q.OrderBy(plan.OrderBy.Field, storage.Direction(plan.OrderBy.Direction))
	}
	for doc, err := range q.Stream(ctx) {
		if err != nil {
			return storage.Document{}, false, e.storeError(err)
		}
		x.scanned++
		stored, ok := doc.Fields[catalog.TownName].(string)
		if ok && strings.EqualFold(strings.TrimSpace(stored), strings.TrimSpace(name)) {
			return doc, true, nil
		}
	}
	return storage.Document{}, false, nil
}

// filter pushes the AND chain down and unions in the OR branch, if any. Under
// OR each branch gets the order and limit on its own before the union.
func (e *Engine) filter(ctx context.Context, plan *planner.QueryPlan, x *execution) (*Result, error) {
	x.path = metrics.PathPushdown

	chain := e.store.Collection(e.collection)
	var union *rowSet
	for i, f := range plan.Filters {
		if f.Op == query.OpOf {
			return nil, qerrors.RestrictionError("cannot use AND/OR with OF operator: run OF lookups as a single condition")
		}
		if union != nil {
			return nil, qerrors.RestrictionError("cannot use more than one AND/OR operator")
		}
		switch f.Connector {
		case "", query.ConnAnd:
			if i > 0 && f.Connector == "" {
				return nil, qerrors.Newf(qerrors.ErrSyntax, "filter %d has no connector", i)
			}
			chain = chain.Where(f.Field, storage.Op(f.Op), f.Value)
		case query.ConnOr:
			x.path = metrics.PathUnion
			union = newRowSet()
			if err := e.collect(ctx, e.modifiers(chain, plan), union, x); err != nil {
				return nil, err
			}
			branch := e.store.Collection(e.collection).Where(f.Field, storage.Op(f.Op), f.Value)
			if err := e.collect(ctx, e.modifiers(branch, plan), union, x); err != nil {
				return nil, err
			}
		default:
			return nil, qerrors.Newf(qerrors.ErrSyntax, "unknown connector %q", f.Connector)
		}
	}

	if union == nil {
		union = newRowSet()
		if err := e.collect(ctx, e.modifiers(chain, plan), union, x); err != nil {
			return nil, err
		}
	}
	return &Result{Kind: KindRows, Rows: union.slice()}, nil
}

func (e *Engine) modifiers(q storage.Query, plan *planner.QueryPlan) storage.Query {
	if plan.OrderBy != nil {
		q = q.OrderBy(plan.OrderBy.Field, storage.Direction(plan.OrderBy.Direction))
	}
	if plan.Limit != nil {
		q = q.Limit(*plan.Limit)
	}
	return q
}

func (e *Engine) collect(ctx context.Context, q storage.Query, into *rowSet, x *execution) error {
	for doc, err := range q.Stream(ctx) {
		if err != nil {
			return e.storeError(err)
		}
		x.scanned++
		into.add(toRow(doc))
	}
	return nil
}

func (e *Engine) storeError(err error) error {
	return qerrors.StoreError(fmt.Sprintf("query collection %s", e.collection), err)
}

func toRow(doc storage.Document) Row {
	r := make(Row, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		r[k] = v
	}
	r[IDField] = doc.ID
	return r
}
