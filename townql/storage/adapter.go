// Package storage defines the document store the query engine runs against.
//
// A store exposes only conjunctive filtering, ordering, limiting and streaming;
// everything else (disjunction, name lookups) is emulated by the engine.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"regexp"

	"github.com/townql/townql/townql/storage/sqlbuilder"
)

type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
)

// Op is a comparison the store can evaluate natively
type Op string

const (
	OpEq  Op = "=="
	OpNe  Op = "!="
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// Valid reports whether the store understands op.
func (op Op) Valid() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLte, OpGt, OpGte:
		return true
	}
	return false
}

// Direction is a sort direction
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Document is a stored record and its store-assigned identifier.
type Document struct {
	ID     string
	Fields map[string]any
}

// Store is a document database holding named collections.
type Store interface {
	Collection(name string) Query
	Close() error
}

// Query is an immutable query handle; every builder call returns a new handle.
// Nothing touches the store until Stream is ranged over.
type Query interface {
	Where(field string, op Op, value any) Query
	OrderBy(field string, dir Direction) Query
	Limit(n int) Query
	Stream(ctx context.Context) iter.Seq2[Document, error]
}

// Writer is implemented by stores that accept new documents.
type Writer interface {
	Put(ctx context.Context, collection string, doc Document) error
}

// Truncater is implemented by stores that can empty a collection.
type Truncater interface {
	Truncate(ctx context.Context, collection string) error
}

// Predicate is one server-side filter.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

// Order is a server-side sort.
type Order struct {
	Field     string
	Direction Direction
}

// Spec accumulates the state of a query handle. Its With* methods copy, so a
// handle can be extended in two directions without aliasing.
type Spec struct {
	Collection string
	Filters    []Predicate
	Order      *Order
	Limit      int // 0 means unlimited
}

func (s Spec) WithFilter(p Predicate) Spec {
	filters := make([]Predicate, len(s.Filters), len(s.Filters)+1)
	copy(filters, s.Filters)
	s.Filters = append(filters, p)
	return s
}

func (s Spec) WithOrder(field string, dir Direction) Spec {
	s.Order = &Order{Field: field, Direction: dir}
	return s
}

func (s Spec) WithLimit(n int) Spec {
	s.Limit = n
	return s
}

var validFieldNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks field names and operators before they reach a backend.
func (s Spec) Validate() error {
	for _, p := range s.Filters {
		if !validFieldNameRe.MatchString(p.Field) {
			return fmt.Errorf("invalid field name: %s", p.Field)
		}
		if !p.Op.Valid() {
			return fmt.Errorf("unsupported operator %q on field %s", p.Op, p.Field)
		}
	}
	if s.Order != nil {
		if !validFieldNameRe.MatchString(s.Order.Field) {
			return fmt.Errorf("invalid order field: %s", s.Order.Field)
		}
		if s.Order.Direction != Asc && s.Order.Direction != Desc {
			return fmt.Errorf("invalid order direction: %s", s.Order.Direction)
		}
	}
	if s.Limit < 0 {
		return fmt.Errorf("invalid limit: %d", s.Limit)
	}
	return nil
}

// Adapter abstracts database-specific operations for SQL-backed stores.
type Adapter interface {
	Backend() Backend
	PlaceholderStyle() sqlbuilder.PlaceholderStyle

	Connect(ctx context.Context) (*sql.DB, error)
	Close() error

	// CreateCollections creates the documents table if needed and verifies
	// that an existing database belongs to townql.
	CreateCollections(ctx context.Context, db *sql.DB) error

	// FieldExpr returns the SQL expression reading a document field. numeric
	// is set when the compared value is a number.
	FieldExpr(field string, numeric bool) string
	// SortExpr returns the expression ordering documents by field, keeping
	// numbers numeric.
	SortExpr(field string) string

	SQL() SQL
}

// SQL holds the statements a SQL-backed store needs besides generated selects.
type SQL struct {
	GetMeta string
	SetMeta string

	// SelectDocuments is the select list and table, without a WHERE clause.
	SelectDocuments string
	// CollectionColumn names the column holding the collection name.
	CollectionColumn string

	UpsertDocument   string
	CountDocuments   string
	DeleteCollection string
}
