package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/townql/townql/townql/storage"
)

func seeded(t *testing.T) *Store {
	t.Helper()
	s := New()
	ctx := context.Background()
	docs := []storage.Document{
		{ID: "a", Fields: map[string]any{"town_name": "Burlington", "population": int64(44743), "altitude": int64(200)}},
		{ID: "b", Fields: map[string]any{"town_name": "Montpelier", "population": int64(8074), "altitude": int64(525)}},
		{ID: "c", Fields: map[string]any{"town_name": "Stowe", "population": int64(5223), "altitude": int64(723)}},
		{ID: "d", Fields: map[string]any{"town_name": "Victory", "population": int64(62)}},
	}
	for _, d := range docs {
		require.NoError(t, s.Put(ctx, "towns", d))
	}
	return s
}

func collect(t *testing.T, q storage.Query) []string {
	t.Helper()
	var ids []string
	for doc, err := range q.Stream(context.Background()) {
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}
	return ids
}

func TestStreamFilters(t *testing.T) {
	s := seeded(t)
	c := s.Collection("towns")

	require.Equal(t, []string{"a", "b"}, collect(t, c.Where("population", storage.OpGt, int64(5500))))
	require.Equal(t, []string{"b"}, collect(t, c.Where("town_name", storage.OpEq, "Montpelier")))
	require.Equal(t, []string{"a", "c"}, collect(t, c.Where("population", storage.OpGt, 1000).Where("population", storage.OpNe, int64(8074))))
	require.Empty(t, collect(t, c.Where("population", storage.OpLt, 0)))
}

func TestMissingFieldNeverMatches(t *testing.T) {
	s := seeded(t)
	ids := collect(t, s.Collection("towns").Where("altitude", storage.OpNe, int64(200)))
	require.Equal(t, []string{"b", "c"}, ids)
}

func TestIntAndFloatCompare(t *testing.T) {
	s := seeded(t)
	ids := collect(t, s.Collection("towns").Where("altitude", storage.OpEq, 525.0))
	require.Equal(t, []string{"b"}, ids)
}

func TestOrderAndLimit(t *testing.T) {
	s := seeded(t)
	c := s.Collection("towns")

	require.Equal(t, []string{"d", "c", "b", "a"}, collect(t, c.OrderBy("population", storage.Asc)))
	require.Equal(t, []string{"a", "b"}, collect(t, c.OrderBy("population", storage.Desc).Limit(2)))
	// documents without the order field are left out
	require.Equal(t, []string{"c", "b", "a"}, collect(t, c.OrderBy("altitude", storage.Desc)))
}

func TestHandlesAreImmutable(t *testing.T) {
	s := seeded(t)
	base := s.Collection("towns").Where("population", storage.OpGt, int64(1000))
	left := base.Where("altitude", storage.OpGt, int64(500))
	right := base.Where("altitude", storage.OpLt, int64(500))

	require.Equal(t, []string{"a", "b", "c"}, collect(t, base))
	require.Equal(t, []string{"b", "c"}, collect(t, left))
	require.Equal(t, []string{"a"}, collect(t, right))
}

func TestPutReplacesInPlace(t *testing.T) {
	s := seeded(t)
	require.NoError(t, s.Put(context.Background(), "towns", storage.Document{
		ID: "a", Fields: map[string]any{"town_name": "Burlington", "population": int64(1)},
	}))
	require.Equal(t, 4, s.Len("towns"))
	require.Equal(t, []string{"a", "d"}, collect(t, s.Collection("towns").Where("population", storage.OpLt, int64(100))))
}

func TestStreamStopsEarly(t *testing.T) {
	s := seeded(t)
	n := 0
	for _, err := range s.Collection("towns").Stream(context.Background()) {
		require.NoError(t, err)
		n++
		break
	}
	require.Equal(t, 1, n)
}

func TestStreamErrors(t *testing.T) {
	s := seeded(t)

	var got error
	for _, err := range s.Collection("towns").Where("bad field", storage.OpEq, 1).Stream(context.Background()) {
		got = err
	}
	require.Error(t, got)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got = nil
	for _, err := range s.Collection("towns").Stream(ctx) {
		got = err
	}
	require.ErrorIs(t, got, context.Canceled)

	require.NoError(t, s.Close())
	got = nil
	for _, err := range s.Collection("towns").Stream(context.Background()) {
		got = err
	}
	require.Error(t, got)
}

func TestUnknownCollectionIsEmpty(t *testing.T) {
	s := New()
	require.Empty(t, collect(t, s.Collection("nope")))
}

func TestTruncate(t *testing.T) {
	s := seeded(t)
	require.NoError(t, s.Truncate(context.Background(), "towns"))
	require.Zero(t, s.Len("towns"))
	require.Empty(t, collect(t, s.Collection("towns")))
}
