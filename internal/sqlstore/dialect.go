package sqlstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/mattn/go-sqlite3"
)

// Supported DB_DRIVER values.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite3"
)

type dialect struct {
	name string
	// driver is the database/sql driver name.
	driver string
	// numbered placeholders ($1, $2, ...) instead of ?.
	numbered bool
	// returning means inserts report ids via RETURNING rather than LastInsertId.
	returning  bool
	prepareDSN func(string) (string, error)
	isUnique   func(error) bool
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case Postgres, "pgx", "postgresql":
		return dialect{
			name:       Postgres,
			driver:     "pgx",
			numbered:   true,
			returning:  true,
			prepareDSN: func(dsn string) (string, error) { return dsn, nil },
			isUnique: func(err error) bool {
				var pgErr *pgconn.PgError
				return errors.As(err, &pgErr) && pgErr.Code == "23505"
			},
		}, nil
	case MySQL:
		return dialect{
			name:   MySQL,
			driver: "mysql",
			prepareDSN: func(dsn string) (string, error) {
				cfg, err := mysql.ParseDSN(dsn)
				if err != nil {
					return "", fmt.Errorf("parse mysql dsn: %w", err)
				}
				cfg.ParseTime = true
				return cfg.FormatDSN(), nil
			},
			isUnique: func(err error) bool {
				var myErr *mysql.MySQLError
				return errors.As(err, &myErr) && myErr.Number == 1062
			},
		}, nil
	case SQLite, "sqlite":
		return dialect{
			name:   SQLite,
			driver: "sqlite3",
			prepareDSN: func(dsn string) (string, error) {
				if path, _, _ := strings.Cut(dsn, "?"); path != ":memory:" {
					if dir := filepath.Dir(strings.TrimPrefix(path, "file:")); dir != "." {
						if err := os.MkdirAll(dir, 0o755); err != nil {
							return "", fmt.Errorf("create db dir: %w", err)
						}
					}
				}
				if strings.Contains(dsn, "?") {
					return dsn, nil
				}
				return dsn + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", nil
			},
			isUnique: func(err error) bool {
				var sqErr sqlite3.Error
				if !errors.As(err, &sqErr) {
					return false
				}
				return sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
					sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
			},
		}, nil
	}
	return dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
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
