// Package rawdata stores raw broker data in Postgres under the raw_data
// schema.
//
// Bookkeeping tables describe where data came from: providers own
// resources, resources own entities, entities own attributes, and
// attributes carry a collection schedule. Data tables are created on demand
// with CreateTable and filled with InsertRecords.
//
// Every function takes a DB, which *pgxpool.Pool, *pgx.Conn and pgx.Tx all
// satisfy. Table and column names are validated before they reach SQL;
// values are always bound.
package rawdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of the pgx API used by this package.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Init creates the raw_data schema and bookkeeping tables. It is
// idempotent.
func Init(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, SchemaSQL()); err != nil {
		return fmt.Errorf("rawdata: init schema: %w", err)
	}
	return nil
}

// CreateTable creates a data table if it does not exist.
func CreateTable(ctx context.Context, db DB, table string, columns []Column) error {
	q, err := CreateTableSQL(table, columns)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, q); err != nil {
		return fmt.Errorf("rawdata: create table %s: %w", table, err)
	}
	return nil
}

// InsertRecords inserts rows into table in one batch. Each row holds one
// value per column. It returns the number of rows inserted.
func InsertRecords(ctx context.Context, db DB, table string, columns []string, rows [][]any) (int64, error) {
	q, err := InsertSQL(table, columns)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, fmt.Errorf("rawdata: insert into %s: row %d has %d values for %d columns", table, i, len(row), len(columns))
		}
		batch.Queue(q, row...)
	}

	br := db.SendBatch(ctx, batch)
	var inserted int64
	for i := range rows {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return inserted, fmt.Errorf("rawdata: insert into %s: row %d: %w", table, i, err)
		}
		inserted += tag.RowsAffected()
	}
	if err := br.Close(); err != nil {
		return inserted, fmt.Errorf("rawdata: insert into %s: %w", table, err)
	}
	return inserted, nil
}

// SelectRecords returns the rows of table matching f, keyed by column name.
func SelectRecords(ctx context.Context, db DB, table string, f Filter) ([]map[string]any, error) {
	q, args, err := SelectSQL(table, f)
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("rawdata: select from %s: %w", table, err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("rawdata: select from %s: %w", table, err)
	}
	return records, nil
}

// DropTable drops a data table if it exists.
func DropTable(ctx context.Context, db DB, table string) error {
	q, err := DropTableSQL(table)
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, q); err != nil {
		return fmt.Errorf("rawdata: drop table %s: %w", table, err)
	}
	return nil
}

// DropSchema drops the raw_data schema with every table in it.
func DropSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, DropSchemaSQL()); err != nil {
		return fmt.Errorf("rawdata: drop schema: %w", err)
	}
	return nil
}

// AddProvider registers a data provider and returns its id.
func AddProvider(ctx context.Context, db DB, name string) (int64, error) {
	return insertReturning(ctx, db, "_providers", []string{"name"}, name)
}

// AddResource registers a resource of a provider and returns its id.
func AddResource(ctx context.Context, db DB, name string, providerID int64) (int64, error) {
	return insertReturning(ctx, db, "_resources", []string{"name", "provider_id"}, name, providerID)
}

// AddEntity registers an entity of a resource and returns its id.
func AddEntity(ctx context.Context, db DB, name string, resourceID int64) (int64, error) {
	return insertReturning(ctx, db, "_entities", []string{"name", "resource_id"}, name, resourceID)
}

// AddAttribute registers an attribute of an entity and returns its id.
func AddAttribute(ctx context.Context, db DB, name string, entityID int64) (int64, error) {
	return insertReturning(ctx, db, "_attributes", []string{"name", "entity_id"}, name, entityID)
}

// AddSchedule records the collection window and frequency of an attribute
// and returns the schedule id.
func AddSchedule(ctx context.Context, db DB, attributeID int64, start, end time.Time, frequency string) (int64, error) {
	if end.Before(start) {
		return 0, fmt.Errorf("rawdata: schedule ends %s before it starts %s", end, start)
	}
	return insertReturning(ctx, db, "_schedule",
		[]string{"attribute_id", "start_date", "end_date", "frequency"},
		attributeID, start, end, frequency)
}

func insertReturning(ctx context.Context, db DB, table string, columns []string, args ...any) (int64, error) {
	q, err := InsertSQL(table, columns)
	if err != nil {
		return 0, err
	}
	var id int64
	if err := db.QueryRow(ctx, q+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("rawdata: insert into %s: %w", table, err)
	}
	return id, nil
}
