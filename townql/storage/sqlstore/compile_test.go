package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/townql/townql/townql/storage"
	"github.com/townql/townql/townql/storage/postgres"
)

func TestCompilePostgres(t *testing.T) {
	spec := storage.Spec{Collection: "towns"}.
		WithFilter(storage.Predicate{Field: "population", Op: storage.OpGt, Value: 5000}).
		WithFilter(storage.Predicate{Field: "town_name", Op: storage.OpNe, Value: "Stowe"}).
		WithOrder("altitude", storage.Desc).
		WithLimit(3)

	stmt, args, err := Compile(postgres.New("postgres://localhost/db", "townql"), spec)
	require.NoError(t, err)
	require.Equal(t,
		"SELECT id, data::text FROM documents WHERE collection = $1"+
			" AND (CASE WHEN jsonb_typeof(data->'population') = 'number' THEN (data->>'population')::numeric END) > $2"+
			" AND data->>'town_name' <> $3"+
			" AND NULLIF(data->'altitude', 'null'::jsonb) IS NOT NULL ORDER BY NULLIF(data->'altitude', 'null'::jsonb) DESC LIMIT 3",
		stmt)
	require.Equal(t, []any{"towns", int64(5000), "Stowe"}, args)
}

func TestCompileNoFilters(t *testing.T) {
	stmt, args, err := Compile(postgres.New("", "townql"), storage.Spec{Collection: "towns"})
	require.NoError(t, err)
	require.Equal(t, "SELECT id, data::text FROM documents WHERE collection = $1", stmt)
	require.Equal(t, []any{"towns"}, args)
}

func TestCompileRejectsInvalidSpec(t *testing.T) {
	_, _, err := Compile(postgres.New("", "townql"), storage.Spec{Collection: "towns", Limit: -1})
	require.Error(t, err)
}
