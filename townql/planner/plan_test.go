package planner

import (
	"reflect"
	"testing"

	"github.com/townql/townql/townql/query"
)

func build(t *testing.T, input string) *QueryPlan {
	t.Helper()
	q, err := query.Parse(input)
	if err != nil {
		t.Fatalf("Parse(%q): %v", input, err)
	}
	v, errs := query.Validate(q)
	if len(errs) > 0 {
		t.Fatalf("Validate(%q): %v", input, errs)
	}
	plan, err := Build(v)
	if err != nil {
		t.Fatalf("Build(%q): %v", input, err)
	}
	return plan
}

func TestBuildSingleCondition(t *testing.T) {
	plan := build(t, "population > 5000")
	want := &QueryPlan{
		Filters: []Filter{{Connector: "", Field: "population", Op: query.OpGt, Value: int64(5000)}},
	}
	if !reflect.DeepEqual(plan, want) {
		t.Errorf("expected %v, got %v", want, plan)
	}
}

func TestBuildIgnoresWhitespace(t *testing.T) {
	a := build(t, "population>5000")
	b := build(t, "   population     >       5000   ")
	if !reflect.DeepEqual(a, b) {
		t.Errorf("plans differ: %v vs %v", a, b)
	}
}

func TestBuildCompound(t *testing.T) {
	plan := build(t, "population < 50 or county == Essex")
	want := []Filter{
		{Connector: "", Field: "population", Op: query.OpLt, Value: int64(50)},
		{Connector: query.ConnOr, Field: "county", Op: query.OpEq, Value: "Essex"},
	}
	if !reflect.DeepEqual(plan.Filters, want) {
		t.Errorf("expected %v, got %v", want, plan.Filters)
	}
}

func TestBuildModifiers(t *testing.T) {
	plan := build(t, "county == Essex ORDER BY Population LIMIT 5")
	if plan.OrderBy == nil || plan.OrderBy.Field != "population" || plan.OrderBy.Direction != query.Asc {
		t.Errorf("unexpected order by: %+v", plan.OrderBy)
	}
	if plan.Limit == nil || *plan.Limit != 5 {
		t.Errorf("unexpected limit: %v", plan.Limit)
	}
}

func TestBuildKeepsFilterOrder(t *testing.T) {
	plan := build(t, "county == Essex and population < 50")
	if plan.Filters[0].Field != "county" || plan.Filters[1].Field != "population" {
		t.Errorf("filters reordered: %v", plan.Filters)
	}
	if plan.Filters[1].Connector != query.ConnAnd {
		t.Errorf("expected AND connector, got %q", plan.Filters[1].Connector)
	}
}

func TestBuildRejectsNestedTree(t *testing.T) {
	c := func(f string) *query.Condition {
		return &query.Condition{Field: f, Op: query.OpEq, Value: query.IntValue(1)}
	}
	q := &query.Query{Root: &query.Binary{
		Left:      &query.Binary{Left: c("population"), Connector: query.ConnAnd, Right: c("altitude")},
		Connector: query.ConnOr,
		Right:     c("town_id"),
	}}
	if _, err := Build(q); err == nil {
		t.Fatalf("expected error for nested tree")
	}
}

func TestExplain(t *testing.T) {
	steps := build(t, "altitude OF Burlington").Explain()
	if len(steps) != 1 {
		t.Fatalf("expected one step, got %v", steps)
	}

	steps = build(t, "population < 50 OR county == Essex LIMIT 2").Explain()
	if len(steps) != 3 {
		t.Fatalf("expected three steps, got %v", steps)
	}
}

func TestString(t *testing.T) {
	got := build(t, "population > 5000").String()
	want := `QueryPlan{filters: [("", population > 5000)]}`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
