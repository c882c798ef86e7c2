// Package sqlstore persists users, departments, admins and the daily
// attendance log through database/sql. Postgres (pgx), MySQL and SQLite are
// supported; the (roll_number, att_date) unique key is enforced by every
// schema.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	// ErrDuplicate is returned when a unique key (roll number, username)
	// rejects an insert.
	ErrDuplicate = errors.New("record already exists")
	// ErrNotFound is returned by deletes and updates that touched no rows.
	ErrNotFound = errors.New("record not found")
	// ErrUnknownDepartment is returned when a department id does not exist.
	ErrUnknownDepartment = errors.New("unknown department")
)

// DefaultDepartments are seeded by SeedDepartments when called without names.
var DefaultDepartments = []string{
	"Computer Science",
	"Electronics",
	"Mechanical",
	"Civil",
	"Electrical",
	"Information Technology",
	"Chemical",
}

// Store is the SQL-backed repository.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to driver/dsn with sane pool defaults and verifies the
// connection.
func Open(driver, dsn string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	dsn, err = d.prepareDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dialect: d}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	return s, nil
}

// New wraps an existing handle. driver selects the SQL dialect.
func New(db *sql.DB, driver string) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dialect: d}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Driver reports the normalized dialect name.
func (s *Store) Driver() string { return s.dialect.name }

// Ping verifies connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	schema, err := migrations.ReadFile("migrations/" + s.dialect.name + ".sql")
	if err != nil {
		return fmt.Errorf("read schema: %w", err)
	}
	for _, stmt := range strings.Split(string(schema), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// SeedDepartments inserts any missing department names.
func (s *Store) SeedDepartments(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		names = DefaultDepartments
	}
	for _, name := range names {
		var n int
		if err := s.queryRow(ctx, `SELECT COUNT(*) FROM departments WHERE name = ?`, name).Scan(&n); err != nil {
			return fmt.Errorf("check department %q: %w", name, err)
		}
		if n > 0 {
			continue
		}
		if _, err := s.exec(ctx, `INSERT INTO departments (name) VALUES (?)`, name); err != nil {
			if s.dialect.isUnique(err) {
				continue
			}
			return fmt.Errorf("seed department %q: %w", name, err)
		}
	}
	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.dialect.rebind(query), args...)
}

// insertID runs an INSERT and reports the new row id.
func (s *Store) insertID(ctx context.Context, query string, args ...any) (int64, error) {
	if s.dialect.returning {
		var id int64
		err := s.queryRow(ctx, query+" RETURNING id", args...).Scan(&id)
		return id, err
	}
	res, err := s.exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

type scanner interface {
	Scan(dest ...any) error
}
