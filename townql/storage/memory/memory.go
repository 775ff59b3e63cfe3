// Package memory is an in-process document store with the same filtering
// semantics as the SQL stores. It backs tests and the seeded demo shell.
package memory

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"

	"github.com/townql/townql/townql/storage"
)

type collection struct {
	ids  []string
	docs map[string]map[string]any
}

// Store keeps collections in insertion order.
type Store struct {
	mu          sync.RWMutex
	collections map[string]*collection
	closed      bool
}

func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) Collection(name string) storage.Query {
	return &memQuery{store: s, spec: storage.Spec{Collection: name}}
}

// Put inserts or replaces a document. Replacing keeps the original position.
func (s *Store) Put(ctx context.Context, name string, doc storage.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc.ID == "" {
		return fmt.Errorf("memory: document in %s has no id", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory: store is closed")
	}

	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	if _, exists := c.docs[doc.ID]; !exists {
		c.ids = append(c.ids, doc.ID)
	}
	c.docs[doc.ID] = cloneFields(doc.Fields)
	return nil
}

// Truncate drops every document of a collection.
func (s *Store) Truncate(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// Len returns the number of documents in a collection.
func (s *Store) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.ids)
	}
	return 0
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// snapshot copies the collection so iteration never holds the lock while yielding.
func (s *Store) snapshot(name string) ([]storage.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("memory: store is closed")
	}
	c, ok := s.collections[name]
	if !ok {
		return nil, nil
	}
	out := make([]storage.Document, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, storage.Document{ID: id, Fields: cloneFields(c.docs[id])})
	}
	return out, nil
}

type memQuery struct {
	store *Store
	spec  storage.Spec
}

func (q *memQuery) Where(field string, op storage.Op, value any) storage.Query {
	return &memQuery{store: q.store, spec: q.spec.WithFilter(storage.Predicate{Field: field, Op: op, Value: value})}
}

func (q *memQuery) OrderBy(field string, dir storage.Direction) storage.Query {
	return &memQuery{store: q.store, spec: q.spec.WithOrder(field, dir)}
}

func (q *memQuery) Limit(n int) storage.Query {
	return &memQuery{store: q.store, spec: q.spec.WithLimit(n)}
}

func (q *memQuery) Stream(ctx context.Context) iter.Seq2[storage.Document, error] {
	return func(yield func(storage.Document, error) bool) {
		if err := q.spec.Validate(); err != nil {
			yield(storage.Document{}, err)
			return
		}
		docs, err := q.store.snapshot(q.spec.Collection)
		if err != nil {
			yield(storage.Document{}, err)
			return
		}

		if q.spec.Order != nil {
			docs = q.sorted(docs)
		}

		emitted := 0
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				yield(storage.Document{}, err)
				return
			}
			if !Matches(doc.Fields, q.spec.Filters) {
				continue
			}
			if !yield(doc, nil) {
				return
			}
			emitted++
			if q.spec.Limit > 0 && emitted >= q.spec.Limit {
				return
			}
		}
	}
}

// sorted drops documents lacking the order field and sorts the rest stably.
func (q *memQuery) sorted(docs []storage.Document) []storage.Document {
	field := q.spec.Order.Field
	out := make([]storage.Document, 0, len(docs))
	for _, d := range docs {
		if v, ok := d.Fields[field]; ok && v != nil {
			out = append(out, d)
		}
	}
	desc := q.spec.Order.Direction == storage.Desc
	sort.SliceStable(out, func(i, j int) bool {
		c := CompareValues(out[i].Fields[field], out[j].Fields[field])
		if desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
