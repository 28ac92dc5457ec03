package rawdata

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// Schema is the Postgres schema holding every raw-data table.
const Schema = "raw_data"

// TimeColumn is the column Filter.Start and Filter.End compare against.
const TimeColumn = "timestamp"

var (
	identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

	// Base type with an optional precision and array suffix, followed by
	// simple column constraints.
	typeRe = regexp.MustCompile(`(?i)^(` +
		`smallint|integer|bigint|int|serial|bigserial|real|double precision|` +
		`numeric(\(\d+(,\s*\d+)?\))?|decimal(\(\d+(,\s*\d+)?\))?|` +
		`text|varchar(\(\d+\))?|char(\(\d+\))?|boolean|bool|date|` +
		`timestamp|timestamptz|timestamp with time zone|timestamp without time zone|` +
		`json|jsonb|uuid|bytea)(\[\])?` +
		`(\s+(not\s+null|null|unique))*$`)
)

// ErrInvalidIdentifier is returned for table or column names outside
// [a-z_][a-z0-9_]*.
var ErrInvalidIdentifier = errors.New("rawdata: invalid identifier")

// ErrInvalidType is returned for column types the builder does not accept.
var ErrInvalidType = errors.New("rawdata: invalid column type")

// Column is a user table column definition.
type Column struct {
	Name string
	Type string
}

// Filter narrows SelectRecords. Nil fields are not constrained; set fields
// are combined with AND.
type Filter struct {
	EntityID    *int64
	AttributeID *int64
	Start       *time.Time
	End         *time.Time
}

// SchemaSQL creates the raw_data schema and its bookkeeping tables.
func SchemaSQL() string {
	return `CREATE SCHEMA IF NOT EXISTS raw_data;
CREATE TABLE IF NOT EXISTS raw_data._providers (
    id SERIAL PRIMARY KEY,
    name TEXT UNIQUE NOT NULL
);
CREATE TABLE IF NOT EXISTS raw_data._resources (
    id SERIAL PRIMARY KEY,
    name TEXT UNIQUE NOT NULL,
    provider_id INTEGER NOT NULL REFERENCES raw_data._providers(id)
);
CREATE TABLE IF NOT EXISTS raw_data._entities (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    resource_id INTEGER NOT NULL REFERENCES raw_data._resources(id)
);
CREATE TABLE IF NOT EXISTS raw_data._attributes (
    id SERIAL PRIMARY KEY,
    name TEXT NOT NULL,
    entity_id INTEGER NOT NULL REFERENCES raw_data._entities(id)
);
CREATE TABLE IF NOT EXISTS raw_data._schedule (
    id SERIAL PRIMARY KEY,
    attribute_id INTEGER NOT NULL REFERENCES raw_data._attributes(id),
    start_date TIMESTAMP NOT NULL,
    end_date TIMESTAMP NOT NULL,
    frequency TEXT NOT NULL
);`
}

// CreateTableSQL creates a table in the raw_data schema with a serial id
// followed by columns.
func CreateTableSQL(table string, columns []Column) (string, error) {
	name, err := tableName(table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("rawdata: create %s: no columns", table)
	}

	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, "id SERIAL PRIMARY KEY")
	for _, c := range columns {
		col, err := ident(c.Name)
		if err != nil {
			return "", err
		}
		typ := strings.TrimSpace(c.Type)
		if !typeRe.MatchString(typ) {
			return "", fmt.Errorf("%w: %q for column %s", ErrInvalidType, c.Type, c.Name)
		}
		defs = append(defs, col+" "+typ)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n)", name, strings.Join(defs, ",\n    ")), nil
}

// InsertSQL inserts one row; values are bound as $1..$n in column order.
func InsertSQL(table string, columns []string) (string, error) {
	name, err := tableName(table)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("rawdata: insert into %s: no columns", table)
	}

	cols := make([]string, len(columns))
	vals := make([]string, len(columns))
	for i, c := range columns {
		if cols[i], err = ident(c); err != nil {
			return "", err
		}
		vals[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", name, strings.Join(cols, ", "), strings.Join(vals, ", ")), nil
}

// SelectSQL selects every column of table matching f and returns the
// arguments to bind, in placeholder order.
func SelectSQL(table string, f Filter) (string, []any, error) {
	name, err := tableName(table)
	if err != nil {
		return "", nil, err
	}

	var (
		conds []string
		args  []any
	)
	add := func(expr string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("%s $%d", expr, len(args)))
	}
	ts := pgx.Identifier{TimeColumn}.Sanitize()

	if f.EntityID != nil {
		add("entity_id =", *f.EntityID)
	}
	if f.AttributeID != nil {
		add("attribute_id =", *f.AttributeID)
	}
	if f.Start != nil {
		add(ts+" >=", *f.Start)
	}
	if f.End != nil {
		add(ts+" <=", *f.End)
	}

	q := "SELECT * FROM " + name
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	return q, args, nil
}

// DropTableSQL drops a raw_data table if it exists.
func DropTableSQL(table string) (string, error) {
	name, err := tableName(table)
	if err != nil {
		return "", err
	}
	return "DROP TABLE IF EXISTS " + name, nil
}

// DropSchemaSQL drops the raw_data schema and everything in it.
func DropSchemaSQL() string {
	return "DROP SCHEMA IF EXISTS " + pgx.Identifier{Schema}.Sanitize() + " CASCADE"
}

func tableName(table string) (string, error) {
	if !identRe.MatchString(table) {
		return "", fmt.Errorf("%w: table %q", ErrInvalidIdentifier, table)
	}
	return pgx.Identifier{Schema, table}.Sanitize(), nil
}

func ident(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", fmt.Errorf("%w: column %q", ErrInvalidIdentifier, name)
	}
	return pgx.Identifier{name}.Sanitize(), nil
}
