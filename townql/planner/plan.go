package planner

import (
	"fmt"
	"strings"

	qerrors "github.com/townql/townql/townql/errors"
	"github.com/townql/townql/townql/query"
)

// Filter is one resolved condition of a plan. Connector is empty for the first
// filter and AND or OR for the rest.
type Filter struct {
	Connector query.Connector
	Field     string
	Op        query.Op
	Value     any
}

func (f Filter) String() string {
	cond := fmt.Sprintf("%s %s %s", f.Field, f.Op, formatValue(f.Value))
	if f.Connector == "" {
		return cond
	}
	return string(f.Connector) + " " + cond
}

// QueryPlan is the flattened, store-ready form of a validated query.
type QueryPlan struct {
	Filters []Filter
	OrderBy *query.OrderBy
	Limit   *int
}

// Build flattens a validated query tree into an ordered filter sequence. The
// left condition always comes first; nothing is reordered or deduplicated.
func Build(q *query.Query) (*QueryPlan, error) {
	plan := &QueryPlan{}

	switch root := q.Root.(type) {
	case *query.Condition:
		plan.Filters = append(plan.Filters, filterFor("", root))
	case *query.Binary:
		left, lok := root.Left.(*query.Condition)
		right, rok := root.Right.(*query.Condition)
		if !lok || !rok {
			return nil, qerrors.RestrictionError("cannot use more than one AND/OR operator")
		}
		conn := query.Connector(strings.ToUpper(string(root.Connector)))
		plan.Filters = append(plan.Filters, filterFor("", left), filterFor(conn, right))
	default:
		return nil, qerrors.New(qerrors.ErrSyntax, "empty query")
	}

	if q.OrderBy != nil {
		dir := q.OrderBy.Direction
		if dir == "" {
			dir = query.Asc
		}
		plan.OrderBy = &query.OrderBy{
			Field:     strings.ToLower(q.OrderBy.Field),
			Direction: query.Direction(strings.ToUpper(string(dir))),
		}
	}

	if q.Limit != nil {
		if *q.Limit <= 0 {
			return nil, qerrors.Newf(qerrors.ErrSyntax, "LIMIT expects a positive integer, got %d", *q.Limit)
		}
		n := *q.Limit
		plan.Limit = &n
	}

	return plan, nil
}

func filterFor(conn query.Connector, c *query.Condition) Filter {
	return Filter{
		Connector: conn,
		Field:     strings.ToLower(c.Field),
		Op:        c.Op,
		Value:     c.Value.Any(),
	}
}

// Explain describes how the engine will run the plan, one step per line.
func (p *QueryPlan) Explain() []string {
	var steps []string
	if len(p.Filters) == 0 {
		return steps
	}

	first := p.Filters[0]
	switch {
	case len(p.Filters) == 1 && first.Field == "town_name" && (first.Op == query.OpEq || first.Op == query.OpOf):
		steps = append(steps, fmt.Sprintf("SCAN collection for town_name matching %s (case-insensitive, first match)", formatValue(first.Value)))
		return steps
	case first.Op == query.OpOf:
		steps = append(steps, fmt.Sprintf("SCAN collection for town_name matching %s, return %s", formatValue(first.Value), first.Field))
		return steps
	}

	steps = append(steps, "WHERE "+first.String())
	for _, f := range p.Filters[1:] {
		switch f.Connector {
		case query.ConnAnd:
			steps = append(steps, "WHERE "+strings.TrimPrefix(f.String(), "AND "))
		case query.ConnOr:
			steps = append(steps, "RUN AND-chain; RUN WHERE "+strings.TrimPrefix(f.String(), "OR ")+"; UNION by id")
		}
	}
	if p.OrderBy != nil {
		steps = append(steps, fmt.Sprintf("ORDER BY %s %s", p.OrderBy.Field, p.OrderBy.Direction))
	}
	if p.Limit != nil {
		steps = append(steps, fmt.Sprintf("LIMIT %d", *p.Limit))
	}
	return steps
}

func (p *QueryPlan) String() string {
	parts := make([]string, 0, len(p.Filters))
	for _, f := range p.Filters {
		parts = append(parts, fmt.Sprintf("(%q, %s)", string(f.Connector), strings.TrimPrefix(strings.TrimPrefix(f.String(), "AND "), "OR ")))
	}
	s := "QueryPlan{filters: [" + strings.Join(parts, ", ") + "]"
	if p.OrderBy != nil {
		s += fmt.Sprintf(", order_by: %s %s", p.OrderBy.Field, p.OrderBy.Direction)
	}
	if p.Limit != nil {
		s += fmt.Sprintf(", limit: %d", *p.Limit)
	}
	return s + "}"
}

func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v)
}
