// Package datarecording stores the records produced by a channel into a
// database so that exchanges and events can be inspected after the run.
package datarecording

import (
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/fatih/structs"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/tebeka/atexit"
)

// DataRecorder is a backend that can record and store data.
type DataRecorder interface {
	// CreateTable creates a table whose columns are the fields of
	// sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers an entry for a table that already exists.
	InsertData(tableName string, entry any)

	// ListTables returns the names of all tables.
	ListTables() []string

	// Flush writes all the buffered entries into the database.
	Flush()
}

// New creates a DataRecorder that writes into a new SQLite file. An empty
// path picks a unique name.
func New(path string) DataRecorder {
	w := &sqliteWriter{
		dbName:    path,
		batchSize: 10000,
		tables:    make(map[string]*table),
	}

	w.init()

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a DataRecorder that writes into an open database. The
// database should be limited to one open connection.
func NewWithDB(db *sql.DB) DataRecorder {
	w := &sqliteWriter{
		DB:        db,
		batchSize: 10000,
		tables:    make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

type sqliteWriter struct {
	*sql.DB

	mu         sync.Mutex
	dbName     string
	tables     map[string]*table
	batchSize  int
	entryCount int
}

func (t *sqliteWriter) init() {
	if t.dbName == "" {
		t.dbName = "guclink_recording_" + xid.New().String()
	}

	filename := t.dbName + ".sqlite3"

	_, err := os.Stat(filename)
	if err == nil {
		panic(fmt.Errorf("file %s already exists", filename))
	}

	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		panic(err)
	}

	// The batch transaction is issued as plain statements, so they must all
	// run on the same connection.
	db.SetMaxOpenConns(1)

	t.DB = db
}

func isAllowedKind(kind reflect.Kind) bool {
	switch kind {
	case
		reflect.Bool,
		reflect.Int,
		reflect.Int8,
		reflect.Int16,
		reflect.Int32,
		reflect.Int64,
		reflect.Uint,
		reflect.Uint8,
		reflect.Uint16,
		reflect.Uint32,
		reflect.Uint64,
		reflect.Float32,
		reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// columnNames lists the fields of an entry, which become the columns of its
// table. Every field must hold a scalar.
func columnNames(entry any) []string {
	if !structs.IsStruct(entry) {
		panic(fmt.Sprintf("entry of type %T is not a struct", entry))
	}

	for _, field := range structs.Fields(entry) {
		if !isAllowedKind(field.Kind()) {
			panic(fmt.Sprintf("field %s of %T cannot be stored",
				field.Name(), entry))
		}
	}

	return structs.Names(entry)
}

func (t *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	names := columnNames(sampleEntry)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.mustExecute(`CREATE TABLE ` + tableName +
		` (` + "\n\t" + strings.Join(names, ", \n\t") + "\n" + `);`)

	t.tables[tableName] = &table{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (t *sqliteWriter) InsertData(tableName string, entry any) {
	t.mu.Lock()

	table, exists := t.tables[tableName]
	if !exists {
		t.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	if reflect.TypeOf(entry) != table.structType {
		t.mu.Unlock()
		panic(fmt.Sprintf("entry of type %T does not fit table %s",
			entry, tableName))
	}

	table.entries = append(table.entries, entry)
	t.entryCount++
	full := t.entryCount >= t.batchSize

	t.mu.Unlock()

	if full {
		t.Flush()
	}
}

func (t *sqliteWriter) ListTables() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	tables := make([]string, 0, len(t.tables))
	for name := range t.tables {
		tables = append(tables, name)
	}

	return tables
}

func (t *sqliteWriter) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.entryCount == 0 {
		return
	}

	t.mustExecute("BEGIN TRANSACTION")
	defer t.mustExecute("COMMIT TRANSACTION")

	for tableName, table := range t.tables {
		if len(table.entries) == 0 {
			continue
		}

		stmt := t.prepareStatement(tableName, table.entries[0])

		for _, entry := range table.entries {
			if _, err := stmt.Exec(structs.Values(entry)...); err != nil {
				panic(err)
			}
		}

		table.entries = nil

		stmt.Close()
	}

	t.entryCount = 0
}

func (t *sqliteWriter) mustExecute(query string) sql.Result {
	res, err := t.Exec(query)
	if err != nil {
		panic(fmt.Errorf("failed to execute %q: %w", query, err))
	}

	return res
}

func (t *sqliteWriter) prepareStatement(tableName string, entry any) *sql.Stmt {
	marks := structs.Names(entry)
	for i := range marks {
		marks[i] = "?"
	}

	stmt, err := t.Prepare("INSERT INTO " + tableName +
		" VALUES (" + strings.Join(marks, ", ") + ")")
	if err != nil {
		panic(err)
	}

	return stmt
}
