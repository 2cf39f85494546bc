// Package sqlite implements store.Store on top of modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ppiankov/forensia/internal/store"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Options tune the connection pool
type Options struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// Repository implements store.Store using SQLite
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

var _ store.Store = (*Repository)(nil)

// New opens (or creates) the database at path and migrates the schema
func New(path string, opts Options) (*Repository, error) {
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 10 * time.Second
	}
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, opts.BusyTimeout.Milliseconds())
	if path == MemoryPath {
		dsn = MemoryPath
		// every connection to :memory: is a separate database
		opts.MaxOpenConns = 1
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxOpenConns)
	if path == MemoryPath {
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	} else {
		db.SetConnMaxLifetime(time.Hour)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &Repository{db: db, now: time.Now}
	if err := repo.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return repo, nil
}

// Close closes the underlying database
func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) migrate() error {
	for _, schema := range []string{graphSchema, analyticsSchema} {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// Stats counts rows in every table
func (r *Repository) Stats(ctx context.Context) (store.Stats, error) {
	var s store.Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM claim_nodes),
			(SELECT COUNT(*) FROM source_nodes),
			(SELECT COUNT(*) FROM evidence_links),
			(SELECT COUNT(*) FROM source_reputation),
			(SELECT COUNT(*) FROM influence_edges),
			(SELECT COUNT(*) FROM coordination_events),
			(SELECT COUNT(*) FROM provenance_traces)
	`).Scan(&s.Claims, &s.Sources, &s.Links, &s.Snapshots, &s.Edges, &s.Events, &s.Traces)
	if err != nil {
		return store.Stats{}, fmt.Errorf("count rows: %w", err)
	}
	return s, nil
}
