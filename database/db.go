package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Collection names of the persisted documents
const (
	Profiles      = "profiles"
	Messages      = "messages"
	ExamStates    = "exam_states"
	QuestionStats = "question_stats"
)

// ErrCorrupt is returned by Store.Load when a persisted document cannot be decoded
var ErrCorrupt = errors.New("corrupt document")

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Store loads and saves whole JSON documents by collection name.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load decodes the collection into v. A missing collection leaves v untouched.
	Load(ctx context.Context, collection string, v any) error
	Save(ctx context.Context, collection string, v any) error
	Close() error
}

var nowUnix = func() int64 { return time.Now().Unix() }

// DB is a Store backed by a single documents table
type DB struct {
	conn   *sql.DB
	driver string
}

// Open returns the store for the given driver
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	if driver == DriverMemory {
		return NewMemoryStore(), nil
	}
	return New(ctx, driver, dsn)
}

// New creates a new database connection and initializes tables
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite3"
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverPostgres:
		drvName = "pgx"
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	conn, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	if err = createTables(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, driver: driver}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, conn *sql.DB) error {
	_, err := conn.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT PRIMARY KEY,
			body TEXT NOT NULL,
			updated_at BIGINT NOT NULL
		)
	`)
	return err
}

// Load reads the document stored under collection
func (db *DB) Load(ctx context.Context, collection string, v any) error {
	var body string
	err := db.conn.QueryRowContext(ctx, db.rebind("SELECT body FROM documents WHERE collection = ?"), collection).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", collection, err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, collection, err)
	}
	return nil
}

// Save replaces the document stored under collection
func (db *DB) Save(ctx context.Context, collection string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", collection, err)
	}
	_, err = db.conn.ExecContext(ctx, db.rebind(`
		INSERT INTO documents (collection, body, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (collection) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at
	`), collection, string(body), nowUnix())
	if err != nil {
		return fmt.Errorf("save %s: %w", collection, err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}
