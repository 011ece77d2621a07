package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"reflect"
)

// QueryParams selects the rows a query returns.
type QueryParams struct {
	// Where holds the WHERE clause without the "WHERE" keyword, for example
	// "Outcome = ?".
	Where string

	// Args holds the arguments for the placeholders in Where.
	Args []any

	// Limit is the maximum number of rows to return. Zero means no limit.
	Limit int

	// Offset is the number of rows to skip.
	Offset int

	// OrderBy holds the ordering without the "ORDER BY" keywords.
	OrderBy string
}

// DataReader reads back what a DataRecorder stored.
type DataReader interface {
	// MapTable tells the reader which struct the rows of a table decode
	// into. A table must be mapped before it is queried.
	MapTable(tableName string, sampleEntry any)

	// ListTables returns the mapped tables.
	ListTables() []string

	// Query returns the matching rows as pointers to the mapped struct, and
	// the number of rows that match regardless of the limit.
	Query(ctx context.Context, tableName string, params QueryParams) (
		results []any,
		totalCount int,
		err error,
	)

	// Close closes the reader.
	Close() error
}

type sqliteReader struct {
	*sql.DB

	typeMap map[string]reflect.Type
}

// NewReader opens a recording file for reading.
func NewReader(dbFilename string) DataReader {
	db, err := sql.Open("sqlite3", dbFilename)
	if err != nil {
		panic(err)
	}

	return NewReaderWithDB(db)
}

// NewReaderWithDB creates a DataReader on an open database.
func NewReaderWithDB(db *sql.DB) DataReader {
	return &sqliteReader{
		DB:      db,
		typeMap: make(map[string]reflect.Type),
	}
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.typeMap[tableName] = reflect.TypeOf(sampleEntry)
}

func (r *sqliteReader) ListTables() []string {
	tables := make([]string, 0, len(r.typeMap))
	for table := range r.typeMap {
		tables = append(tables, table)
	}

	return tables
}

func (r *sqliteReader) Query(
	ctx context.Context,
	tableName string,
	params QueryParams,
) ([]any, int, error) {
	structType, ok := r.typeMap[tableName]
	if !ok {
		return nil, 0, fmt.Errorf("no mapping found for table: %s", tableName)
	}

	query := "SELECT * FROM " + tableName

	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	if params.OrderBy != "" {
		query += " ORDER BY " + params.OrderBy
	}

	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", params.Limit)
		if params.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.Offset)
		}
	}

	totalCount, err := r.count(ctx, tableName, params)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.QueryContext(ctx, query, params.Args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	results, err := scanRows(rows, structType)
	if err != nil {
		return nil, 0, err
	}

	return results, totalCount, nil
}

func (r *sqliteReader) count(
	ctx context.Context,
	tableName string,
	params QueryParams,
) (int, error) {
	query := "SELECT COUNT(*) FROM " + tableName
	if params.Where != "" {
		query += " WHERE " + params.Where
	}

	var n int
	if err := r.QueryRowContext(ctx, query, params.Args...).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func scanRows(rows *sql.Rows, structType reflect.Type) ([]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	fieldIndex := make(map[string]int, structType.NumField())
	for i := 0; i < structType.NumField(); i++ {
		fieldIndex[structType.Field(i).Name] = i
	}

	var results []any
	for rows.Next() {
		ptr := reflect.New(structType)
		val := ptr.Elem()

		targets := make([]any, len(columns))
		for i, col := range columns {
			if idx, ok := fieldIndex[col]; ok {
				targets[i] = val.Field(idx).Addr().Interface()
			} else {
				var discard any
				targets[i] = &discard
			}
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, ptr.Interface())
	}

	return results, rows.Err()
}

func (r *sqliteReader) Close() error {
	return r.DB.Close()
}
