package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Store wraps a *sql.DB for either backend. Every public method opens
// and releases its own connection via the pool (spec.md §4.A
// concurrency policy) -- there is no held connection handle.
type Store struct {
	db       *sql.DB
	postgres bool
}

// Open selects the backend from dsn: a non-empty dsn opens Postgres
// via pgx/v5/stdlib; an empty dsn opens an embedded sqlite file at
// sqlitePath (WAL-enabled) for development, exactly as
// db_manager.py's DB_BACKEND selection (SUPABASE_DB_URL/DATABASE_URL
// presence -> postgres, else sqlite).
func Open(ctx context.Context, dsn string, sqlitePath string) (*Store, error) {
	if dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("pipeline store: open postgres: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, fmt.Errorf("pipeline store: ping postgres: %w", err)
		}
		s := &Store{db: db, postgres: true}
		if err := s.ensureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return s, nil
	}

	if sqlitePath == "" {
		sqlitePath = "acem_pipeline.db"
	}
	db, err := sql.Open("sqlite", sqlitePath)
	if err != nil {
		return nil, fmt.Errorf("pipeline store: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite: one writer, WAL lets readers proceed
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode=WAL`); err != nil {
		db.Close()
		return nil, fmt.Errorf("pipeline store: enable WAL: %w", err)
	}
	s := &Store{db: db, postgres: false}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying pool/file handle.
func (s *Store) Close() error { return s.db.Close() }

// adapt rewrites `?` placeholders into `$1`, `$2`, ... for Postgres,
// leaving sqlite queries untouched; mirrors db_manager.py's
// _adapt_query so every query method below is written once, backend
// agnostic.
func (s *Store) adapt(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.adapt(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.adapt(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.adapt(query), args...)
}

// insertReturningID inserts a row and returns its new id, using
// RETURNING on Postgres and LastInsertId on sqlite -- the same branch
// db_manager.py takes via _using_postgres().
func (s *Store) insertReturningID(ctx context.Context, query string, args ...any) (int64, error) {
	if s.postgres {
		var id int64
		if err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func placeholderList(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
	}
	return strings.Join(parts, ", ")
}
