// Package townql answers questions about Vermont municipalities written in a
// small query language:
//
//	population > 5000
//	county == Essex OR population < 50
//	altitude OF Burlington
//	population > 1000 ORDER BY population DESC LIMIT 5
//
// ParseQuery turns text into a QueryPlan; Execute or a Client runs the plan
// against a document store.
package townql

import (
	"context"

	"github.com/townql/townql/townql/engine"
	"github.com/townql/townql/townql/planner"
	"github.com/townql/townql/townql/query"
	"github.com/townql/townql/townql/storage"
)

// ParseQuery lexes, parses, validates and plans text. Validation reports every
// problem it finds, joined in one error.
func ParseQuery(text string) (*planner.QueryPlan, error) {
	q, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	q, errs := query.Validate(q)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	return planner.Build(q)
}

// Execute runs plan against store's default collection.
func Execute(ctx context.Context, store storage.Store, plan *planner.QueryPlan) (*engine.Result, error) {
	return engine.New(store, engine.Options{}).Execute(ctx, plan)
}
