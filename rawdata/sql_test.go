package rawdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaSQL(t *testing.T) {
	q := SchemaSQL()

	for _, table := range []string{"_providers", "_resources", "_entities", "_attributes", "_schedule"} {
		assert.Contains(t, q, "CREATE TABLE IF NOT EXISTS raw_data."+table+" (")
	}
	assert.NotContains(t, q, ",\n)", "no trailing comma before a closing paren")
	assert.Contains(t, q, "resource_id INTEGER NOT NULL REFERENCES raw_data._resources(id)\n)")
}

func TestCreateTableSQL(t *testing.T) {
	q, err := CreateTableSQL("ohlc", []Column{
		{Name: "entity_id", Type: "INTEGER NOT NULL"},
		{Name: "timestamp", Type: "TIMESTAMP"},
		{Name: "close", Type: "numeric(18, 6)"},
		{Name: "tags", Type: "text[]"},
	})
	require.NoError(t, err)

	want := `CREATE TABLE IF NOT EXISTS "raw_data"."ohlc" (
    id SERIAL PRIMARY KEY,
    "entity_id" INTEGER NOT NULL,
    "timestamp" TIMESTAMP,
    "close" numeric(18, 6),
    "tags" text[]
)`
	assert.Equal(t, want, q)
}

func TestCreateTableSQL_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []Column
		target  error
	}{
		{"table injection", "ohlc; drop", []Column{{"a", "text"}}, ErrInvalidIdentifier},
		{"table upper case", "OHLC", []Column{{"a", "text"}}, ErrInvalidIdentifier},
		{"table leading digit", "1ohlc", []Column{{"a", "text"}}, ErrInvalidIdentifier},
		{"column quote", "ohlc", []Column{{`a"b`, "text"}}, ErrInvalidIdentifier},
		{"type injection", "ohlc", []Column{{"a", "text); DROP TABLE x; --"}}, ErrInvalidType},
		{"type default clause", "ohlc", []Column{{"a", "text DEFAULT now()"}}, ErrInvalidType},
		{"unknown type", "ohlc", []Column{{"a", "money"}}, ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateTableSQL(tt.table, tt.columns)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	_, err := CreateTableSQL("ohlc", nil)
	assert.Error(t, err)
}

func TestInsertSQL(t *testing.T) {
	q, err := InsertSQL("ohlc", []string{"entity_id", "timestamp", "close"})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "raw_data"."ohlc" ("entity_id", "timestamp", "close") VALUES ($1, $2, $3)`, q)

	_, err = InsertSQL("ohlc", []string{"close", "1=1"})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = InsertSQL("ohlc", nil)
	assert.Error(t, err)
}

func TestSelectSQL(t *testing.T) {
	entity := int64(7)
	attribute := int64(3)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		filter   Filter
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "no filter",
			wantSQL: `SELECT * FROM "raw_data"."ohlc"`,
		},
		{
			name:     "entity only",
			filter:   Filter{EntityID: &entity},
			wantSQL:  `SELECT * FROM "raw_data"."ohlc" WHERE entity_id = $1`,
			wantArgs: []any{entity},
		},
		{
			name:     "attribute only is $1",
			filter:   Filter{AttributeID: &attribute},
			wantSQL:  `SELECT * FROM "raw_data"."ohlc" WHERE attribute_id = $1`,
			wantArgs: []any{attribute},
		},
		{
			name:     "window only",
			filter:   Filter{Start: &start, End: &end},
			wantSQL:  `SELECT * FROM "raw_data"."ohlc" WHERE "timestamp" >= $1 AND "timestamp" <= $2`,
			wantArgs: []any{start, end},
		},
		{
			name:     "everything",
			filter:   Filter{EntityID: &entity, AttributeID: &attribute, Start: &start, End: &end},
			wantSQL:  `SELECT * FROM "raw_data"."ohlc" WHERE entity_id = $1 AND attribute_id = $2 AND "timestamp" >= $3 AND "timestamp" <= $4`,
			wantArgs: []any{entity, attribute, start, end},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, args, err := SelectSQL("ohlc", tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}

	_, _, err := SelectSQL("ohlc\"", Filter{})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestDropSQL(t *testing.T) {
	q, err := DropTableSQL("ohlc")
	require.NoError(t, err)
	assert.Equal(t, `DROP TABLE IF EXISTS "raw_data"."ohlc"`, q)

	_, err = DropTableSQL("")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	assert.Equal(t, `DROP SCHEMA IF EXISTS "raw_data" CASCADE`, DropSchemaSQL())
}
