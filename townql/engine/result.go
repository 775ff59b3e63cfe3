package engine

// Kind tells a row result from a lookup result.
type Kind int

const (
	// KindRows is a sequence of matching documents.
	KindRows Kind = iota
	// KindScalar is the outcome of a name or OF lookup: zero or one value.
	KindScalar
)

func (k Kind) String() string {
	if k == KindScalar {
		return "scalar"
	}
	return "rows"
}

// IDField is the key under which a row carries its document id.
const IDField = "id"

// Row is a document's fields plus its id.
type Row map[string]any

func (r Row) ID() string {
	id, _ := r[IDField].(string)
	return id
}

// Result is what Execute produces. Rows is set for KindRows, Values for
// KindScalar; an empty lookup is a KindScalar result with no values.
type Result struct {
	Kind   Kind
	Rows   []Row
	Values []any
}

func (r *Result) Len() int {
	if r.Kind == KindScalar {
		return len(r.Values)
	}
	return len(r.Rows)
}

func (r *Result) Empty() bool { return r.Len() == 0 }

// rowSet is an insertion-ordered set of rows keyed by document id.
type rowSet struct {
	order []string
	rows  map[string]Row
}

func newRowSet() *rowSet {
	return &rowSet{rows: make(map[string]Row)}
}

// add keeps the first row seen for an id and reports whether it was new.
func (s *rowSet) add(r Row) bool {
	id := r.ID()
	if _, ok := s.rows[id]; ok {
		return false
	}
	s.rows[id] = r
	s.order = append(s.order, id)
	return true
}

func (s *rowSet) slice() []Row {
	out := make([]Row, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.rows[id])
	}
	return out
}
