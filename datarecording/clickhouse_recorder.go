package datarecording

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/fatih/structs"
	"github.com/tebeka/atexit"
)

// ClickHouseOptions locates a ClickHouse server.
type ClickHouseOptions struct {
	Addr      string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

type clickHouseTable struct {
	structType reflect.Type
	entries    []any
}

// clickHouseRecorder sends entries to ClickHouse in batches, one batch per
// table.
type clickHouseRecorder struct {
	conn      clickhouse.Conn
	batchSize int

	mu         sync.Mutex
	tables     map[string]*clickHouseTable
	entryCount int
}

// NewClickHouseRecorder connects to a ClickHouse server.
func NewClickHouseRecorder(opts ClickHouseOptions) (DataRecorder, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = 10000
	}

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     2,
		MaxIdleConns:     2,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	r := &clickHouseRecorder{
		conn:      conn,
		batchSize: opts.BatchSize,
		tables:    make(map[string]*clickHouseTable),
	}

	atexit.Register(func() { r.Flush() })

	return r, nil
}

func clickHouseType(kind reflect.Kind) string {
	switch kind {
	case reflect.Bool:
		return "Bool"
	case reflect.Int8:
		return "Int8"
	case reflect.Int16:
		return "Int16"
	case reflect.Int32:
		return "Int32"
	case reflect.Int, reflect.Int64:
		return "Int64"
	case reflect.Uint8:
		return "UInt8"
	case reflect.Uint16:
		return "UInt16"
	case reflect.Uint32:
		return "UInt32"
	case reflect.Uint, reflect.Uint64:
		return "UInt64"
	case reflect.Float32:
		return "Float32"
	case reflect.Float64:
		return "Float64"
	case reflect.String:
		return "String"
	default:
		panic(fmt.Sprintf("kind %s cannot be stored", kind))
	}
}

func (r *clickHouseRecorder) CreateTable(tableName string, sampleEntry any) {
	columnNames(sampleEntry)

	fields := structs.Fields(sampleEntry)
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name() + " " + clickHouseType(f.Kind())
	}

	query := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = MergeTree() ORDER BY tuple()",
		tableName, strings.Join(columns, ", "))

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conn.Exec(context.Background(), query); err != nil {
		panic(fmt.Errorf("failed to create table %s: %w", tableName, err))
	}

	r.tables[tableName] = &clickHouseTable{
		structType: reflect.TypeOf(sampleEntry),
	}
}

func (r *clickHouseRecorder) InsertData(tableName string, entry any) {
	r.mu.Lock()

	t, ok := r.tables[tableName]
	if !ok {
		r.mu.Unlock()
		panic(fmt.Sprintf("table %s does not exist", tableName))
	}

	t.entries = append(t.entries, entry)
	r.entryCount++
	full := r.entryCount >= r.batchSize

	r.mu.Unlock()

	if full {
		r.Flush()
	}
}

func (r *clickHouseRecorder) ListTables() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *clickHouseRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entryCount == 0 {
		return
	}

	ctx := context.Background()

	for name, t := range r.tables {
		if len(t.entries) == 0 {
			continue
		}

		batch, err := r.conn.PrepareBatch(ctx, "INSERT INTO "+name)
		if err != nil {
			panic(fmt.Errorf("failed to prepare batch for %s: %w", name, err))
		}

		for _, entry := range t.entries {
			if err := batch.Append(structs.Values(entry)...); err != nil {
				panic(fmt.Errorf("failed to append to %s: %w", name, err))
			}
		}

		if err := batch.Send(); err != nil {
			panic(fmt.Errorf("failed to send batch for %s: %w", name, err))
		}

		t.entries = nil
	}

	r.entryCount = 0
}
