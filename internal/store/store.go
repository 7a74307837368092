// Package store persists users, photos and likes through database/sql.
// The same queries run on sqlite3 and postgres; placeholders are written
// as ? and rebound per dialect.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/dating-api/internal/config"
	"github.com/dating-api/internal/models"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// forUpdate is the row lock clause. sqlite has none; its write transactions
// are started with BEGIN IMMEDIATE instead.
func (d Dialect) forUpdate() string {
	if d == DialectPostgres {
		return "FOR UPDATE"
	}
	return ""
}

func (d Dialect) readTxOptions() *sql.TxOptions {
	if d == DialectPostgres {
		return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
	}
	return nil
}

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var _ models.Store = (*Store)(nil)

type Store struct {
	db      *sql.DB
	q       Querier
	inTx    bool
	dialect Dialect
	now     func() time.Time
}

// Open connects to the configured database and applies pending migrations.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var dialect Dialect
	switch cfg.Type {
	case "sqlite":
		dialect = DialectSQLite
		if dir := filepath.Dir(cfg.SQLite.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
	case "postgres":
		dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database type %q", cfg.Type)
	}

	db, err := sql.Open(string(dialect), cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 25
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxOpen)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := New(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// New wraps an already opened database. Migrations are not applied.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		q:       db,
		dialect: dialect,
		now:     time.Now,
	}
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() models.UserRepository {
	return &UserRepository{store: s}
}

func (s *Store) Photos() models.PhotoRepository {
	return &PhotoRepository{q: s.q, dialect: s.dialect}
}

func (s *Store) Likes() models.LikeRepository {
	return &LikeRepository{q: s.q, dialect: s.dialect}
}

// WithTx runs fn in a transaction, committing when fn returns nil. Nested
// calls reuse the enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx models.Store) error) error {
	return s.withTx(ctx, nil, fn)
}

func (s *Store) withTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx models.Store) error) (err error) {
	if s.inTx {
		return fn(ctx, s)
	}

	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txStore := &Store{
		db:      s.db,
		q:       tx,
		inTx:    true,
		dialect: s.dialect,
		now:     s.now,
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("commit transaction: %w", cerr)
		}
	}()

	return fn(ctx, txStore)
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	return false
}

// dbTime normalises timestamps so both drivers store and compare them the
// same way.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func dbDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
