// Package sqlstore implements storage.Store on top of a storage.Adapter.
// Documents live in one table as JSON; filters, ordering and limits are
// compiled to SQL so the database does the work.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strconv"
	"strings"

	"github.com/townql/townql/townql/storage"
	"github.com/townql/townql/townql/storage/docjson"
	"github.com/townql/townql/townql/storage/sqlbuilder"
)

type Store struct {
	adapter storage.Adapter
	db      *sql.DB
	log     *slog.Logger
}

// Open connects through the adapter and makes sure the documents table exists.
func Open(ctx context.Context, adapter storage.Adapter, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := adapter.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", adapter.Backend(), err)
	}
	if err := adapter.CreateCollections(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare %s: %w", adapter.Backend(), err)
	}
	log.Debug("document store opened", "backend", adapter.Backend())
	return &Store{adapter: adapter, db: db, log: log}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
	}
	return s.adapter.Close()
}

func (s *Store) Collection(name string) storage.Query {
	return &sqlQuery{store: s, spec: storage.Spec{Collection: name}}
}

// Put upserts a document by id.
func (s *Store) Put(ctx context.Context, collection string, doc storage.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document in %s has no id", collection)
	}
	data, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", doc.ID, err)
	}
	_, err = s.db.ExecContext(ctx, s.adapter.SQL().UpsertDocument, collection, doc.ID, string(data))
	return err
}

// Count returns the number of documents in a collection.
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.adapter.SQL().CountDocuments, collection).Scan(&n)
	return n, err
}

// Truncate deletes every document of a collection.
func (s *Store) Truncate(ctx context.Context, collection string) error {
	_, err := s.db.ExecContext(ctx, s.adapter.SQL().DeleteCollection, collection)
	return err
}

type sqlQuery struct {
	store *Store
	spec  storage.Spec
}

func (q *sqlQuery) Where(field string, op storage.Op, value any) storage.Query {
	return &sqlQuery{store: q.store, spec: q.spec.WithFilter(storage.Predicate{Field: field, Op: op, Value: value})}
}

func (q *sqlQuery) OrderBy(field string, dir storage.Direction) storage.Query {
	return &sqlQuery{store: q.store, spec: q.spec.WithOrder(field, dir)}
}

func (q *sqlQuery) Limit(n int) storage.Query {
	return &sqlQuery{store: q.store, spec: q.spec.WithLimit(n)}
}

func (q *sqlQuery) Stream(ctx context.Context) iter.Seq2[storage.Document, error] {
	return func(yield func(storage.Document, error) bool) {
		stmt, args, err := Compile(q.store.adapter, q.spec)
		if err != nil {
			yield(storage.Document{}, err)
			return
		}
		q.store.log.Debug("sql select", "sql", stmt, "args", len(args))

		rows, err := q.store.db.QueryContext(ctx, stmt, args...)
		if err != nil {
			yield(storage.Document{}, err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			var id, data string
			if err := rows.Scan(&id, &data); err != nil {
				yield(storage.Document{}, err)
				return
			}
			fields, err := docjson.Decode([]byte(data))
			if err != nil {
				yield(storage.Document{}, fmt.Errorf("decode document %s: %w", id, err))
				return
			}
			if !yield(storage.Document{ID: id, Fields: fields}, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(storage.Document{}, err)
		}
	}
}

// Compile turns a query spec into a SELECT returning (id, data) rows.
func Compile(adapter storage.Adapter, spec storage.Spec) (string, []any, error) {
	if err := spec.Validate(); err != nil {
		return "", nil, err
	}
	sqlt := adapter.SQL()
	b := sqlbuilder.New(adapter.PlaceholderStyle())

	var sb strings.Builder
	sb.WriteString(sqlt.SelectDocuments)
	sb.WriteString(" WHERE ")
	sb.WriteString(sqlt.CollectionColumn)
	sb.WriteString(" = ")
	sb.WriteString(b.Arg(spec.Collection))

	for _, p := range spec.Filters {
		op, ok := sqlbuilder.SQLOp(string(p.Op))
		if !ok {
			return "", nil, fmt.Errorf("unsupported operator %q", p.Op)
		}
		value, numeric := bindValue(p.Value)
		fmt.Fprintf(&sb, " AND %s %s %s", adapter.FieldExpr(p.Field, numeric), op, b.Arg(value))
	}

	if spec.Order != nil {
		expr := adapter.SortExpr(spec.Order.Field)
		fmt.Fprintf(&sb, " AND %s IS NOT NULL ORDER BY %s %s", expr, expr, spec.Order.Direction)
	}
	if spec.Limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(spec.Limit))
	}
	return sb.String(), b.Args(), nil
}

// bindValue normalizes a filter value for binding and reports whether the
// comparison is numeric.
func bindValue(v any) (any, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case string:
		return n, false
	}
	return fmt.Sprint(v), false
}
