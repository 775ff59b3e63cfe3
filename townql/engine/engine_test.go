package engine_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/townql/townql/townql/engine"
	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/logger"
	"github.com/townql/townql/townql/metrics"
	"github.com/townql/townql/townql/planner"
	"github.com/townql/townql/townql/query"
	"github.com/townql/townql/townql/storage"
	"github.com/townql/townql/townql/storage/memory"
)

var towns = []storage.Document{
	{ID: "burlington", Fields: map[string]any{"town_name": "Burlington", "population": int64(44743), "altitude": int64(341), "county": "Chittenden", "postal_code": "05401"}},
	{ID: "victory", Fields: map[string]any{"town_name": "Victory", "population": int64(62), "altitude": int64(1165), "county": "Essex"}},
	{ID: "granby", Fields: map[string]any{"town_name": "Granby", "population": int64(88), "altitude": int64(1250), "county": "Essex"}},
	{ID: "norton", Fields: map[string]any{"town_name": "Norton", "population": int64(40), "altitude": int64(1240), "county": "Essex"}},
	{ID: "somerset", Fields: map[string]any{"town_name": "Somerset", "population": int64(5), "altitude": int64(2001), "county": "Windham"}},
	{ID: "stowe", Fields: map[string]any{"town_name": "stowe", "population": int64(5223), "altitude": int64(723), "county": "Lamoille"}},
	{ID: "cambridge", Fields: map[string]any{"town_name": "Cambridge", "population": int64(3700), "county": "Lamoille"}},
}

func newEngine(t *testing.T) (*engine.Engine, *metrics.Metrics) {
	t.Helper()
	store := memory.New()
	for _, d := range towns {
		require.NoError(t, store.Put(context.Background(), engine.DefaultCollection, d))
	}
	m := metrics.New()
	return engine.New(store, engine.Options{Logger: logger.Nop(), Metrics: m}), m
}

func plan(t *testing.T, text string) *planner.QueryPlan {
	t.Helper()
	q, err := query.Parse(text)
	require.NoError(t, err)
	q, errs := query.Validate(q)
	require.NoError(t, errs.Err())
	p, err := planner.Build(q)
	require.NoError(t, err)
	return p
}

func run(t *testing.T, e *engine.Engine, text string) *engine.Result {
	t.Helper()
	res, err := e.Execute(context.Background(), plan(t, text))
	require.NoError(t, err)
	return res
}

func ids(res *engine.Result) []string {
	out := make([]string, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, r.ID())
	}
	return out
}

func TestOfLookupReturnsField(t *testing.T) {
	e, m := newEngine(t)
	res := run(t, e, "altitude OF Burlington")
	require.Equal(t, engine.KindScalar, res.Kind)
	require.Equal(t, []any{int64(341)}, res.Values)

	require.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.PathOfLookup, "ok")))
}

func TestOfLookupCaseInsensitive(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "county OF STOWE")
	require.Equal(t, []any{"Lamoille"}, res.Values)
}

func TestOfLookupMissingField(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "altitude OF Cambridge")
	require.Equal(t, engine.KindScalar, res.Kind)
	require.Equal(t, []any{nil}, res.Values)
}

func TestOfLookupNoTown(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "altitude OF Atlantis")
	require.Equal(t, engine.KindScalar, res.Kind)
	require.True(t, res.Empty())
}

func TestNameLookup(t *testing.T) {
	e, m := newEngine(t)

	res := run(t, e, "town_name == Stowe")
	require.Equal(t, engine.KindScalar, res.Kind)
	require.Equal(t, []any{"stowe"}, res.Values)

	res = run(t, e, "town_name OF burlington")
	require.Equal(t, []any{"Burlington"}, res.Values)

	res = run(t, e, "town_name == Atlantis")
	require.True(t, res.Empty())

	require.Equal(t, 3.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.PathNameLookup, "ok")))
}

func TestNameInequalityIsPushedDown(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "town_name != Victory")
	require.Equal(t, engine.KindRows, res.Kind)
	require.Len(t, res.Rows, len(towns)-1)
}

func TestPushdownSingle(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "population > 5000")
	require.Equal(t, engine.KindRows, res.Kind)
	require.ElementsMatch(t, []string{"burlington", "stowe"}, ids(res))

	for _, r := range res.Rows {
		require.Equal(t, r.ID(), r[engine.IDField])
		require.Contains(t, r, "town_name")
	}
}

func TestPushdownAndChain(t *testing.T) {
	e, m := newEngine(t)
	res := run(t, e, "population < 100 AND county == Essex")
	require.ElementsMatch(t, []string{"victory", "granby", "norton"}, ids(res))

	res = run(t, e, `county == "Essex" and altitude >= 1245`)
	require.ElementsMatch(t, []string{"granby"}, ids(res))

	require.Equal(t, 2.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.PathPushdown, "ok")))
}

func TestOrUnionDeduplicates(t *testing.T) {
	e, m := newEngine(t)
	res := run(t, e, "population < 50 OR county == Essex")
	require.Equal(t, engine.KindRows, res.Kind)

	got := ids(res)
	require.ElementsMatch(t, []string{"norton", "somerset", "victory", "granby"}, got)
	// left branch first, then what the right branch adds
	require.ElementsMatch(t, []string{"norton", "somerset"}, got[:2])

	require.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.PathUnion, "ok")))
	require.Equal(t, 5.0, testutil.ToFloat64(m.DocumentsScanned.WithLabelValues(metrics.PathUnion)))
}

func TestOrderAndLimitPushdown(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "population > 50 ORDER BY population DESC LIMIT 2")
	require.Equal(t, []string{"burlington", "stowe"}, ids(res))

	res = run(t, e, "county == Essex ORDER BY altitude")
	require.Equal(t, []string{"victory", "norton", "granby"}, ids(res))
}

func TestOrderAndLimitApplyPerBranch(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "county == Lamoille OR county == Essex ORDER BY population LIMIT 1")
	// one row from each branch
	require.Equal(t, []string{"cambridge", "norton"}, ids(res))
}

func TestEmptyResult(t *testing.T) {
	e, _ := newEngine(t)
	res := run(t, e, "population > 1000000")
	require.Equal(t, engine.KindRows, res.Kind)
	require.True(t, res.Empty())
}

func TestRejectsMalformedPlans(t *testing.T) {
	e, _ := newEngine(t)

	_, err := e.Execute(context.Background(), &planner.QueryPlan{})
	require.True(t, qerrors.IsKind(err, qerrors.ErrSyntax))

	bad := &planner.QueryPlan{Filters: []planner.Filter{
		{Field: "population", Op: query.OpGt, Value: int64(1)},
		{Connector: query.ConnOr, Field: "county", Op: query.OpEq, Value: "Essex"},
		{Connector: query.ConnAnd, Field: "altitude", Op: query.OpGt, Value: int64(1)},
	}}
	_, err = e.Execute(context.Background(), bad)
	require.True(t, qerrors.IsKind(err, qerrors.ErrLanguageRestriction))

	mixed := &planner.QueryPlan{Filters: []planner.Filter{
		{Field: "population", Op: query.OpGt, Value: int64(1)},
		{Connector: query.ConnAnd, Field: "altitude", Op: query.OpOf, Value: "Stowe"},
	}}
	_, err = e.Execute(context.Background(), mixed)
	require.True(t, qerrors.IsKind(err, qerrors.ErrLanguageRestriction))
}

type brokenStore struct{ err error }

func (s brokenStore) Collection(string) storage.Query {
	return brokenQuery(s)
}

func (brokenStore) Close() error {
	return nil
}

type brokenQuery struct{ err error }

func (q brokenQuery) Where(string, storage.Op, any) storage.Query {
	return q
}

func (q brokenQuery) OrderBy(string, storage.Direction) storage.Query {
	return q
}

func (q brokenQuery) Limit(int) storage.Query {
	return q
}

func (q brokenQuery) Stream(context.Context) iter.Seq2[storage.Document, error] {
	return func(yield func(storage.Document, error) bool) {
		yield(storage.Document{}, q.err)
	}
}

func TestStoreFailuresAreStoreErrors(t *testing.T) {
	cause := errors.New("connection refused")
	m := metrics.New()
	e := engine.New(brokenStore{err: cause}, engine.Options{Logger: logger.Nop(), Metrics: m})

	for _, text := range []string{"population > 5", "altitude OF Stowe", "town_name == Stowe", "population < 5 OR county == Essex"} {
		_, err := e.Execute(context.Background(), plan(t, text))
		require.Error(t, err, text)
		require.True(t, qerrors.IsKind(err, qerrors.ErrStore), text)
		require.ErrorIs(t, err, cause, text)
	}
	require.Equal(t, 1.0, testutil.ToFloat64(m.QueriesTotal.WithLabelValues(metrics.PathPushdown, "error")))
}

func TestCancelledContext(t *testing.T) {
	e, _ := newEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Execute(ctx, plan(t, "population > 5"))
	require.ErrorIs(t, err, context.Canceled)
}
