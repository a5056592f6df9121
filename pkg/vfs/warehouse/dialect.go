package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// dialect hides the catalog queries that differ between drivers.
type dialect interface {
	driverName() string
	datasets(ctx context.Context, db *sql.DB) ([]string, error)
	tables(ctx context.Context, db *sql.DB, dataset string) ([]string, error)
	quote(ident string) string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverPostgres:
		return postgres{}, nil
	case DriverSQLite:
		return sqlite{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q (valid: %s, %s)", driver, DriverPostgres, DriverSQLite) //nolint:err113,lll // validation with input
	}
}

type postgres struct{}

func (postgres) driverName() string { return "postgres" }

func (postgres) datasets(ctx context.Context, db *sql.DB) ([]string, error) {
	return queryNames(ctx, db, `
		SELECT schema_name FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		  AND schema_name NOT LIKE 'pg_temp%'
		ORDER BY schema_name`)
}

func (postgres) tables(ctx context.Context, db *sql.DB, dataset string) ([]string, error) {
	return queryNames(ctx, db, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = $1 AND table_type = 'BASE TABLE'
		ORDER BY table_name`, dataset)
}

func (postgres) quote(ident string) string { return pq.QuoteIdentifier(ident) }

type sqlite struct{}

func (sqlite) driverName() string { return "sqlite" }

func (s sqlite) datasets(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA database_list")
	if err != nil {
		return nil, err //nolint:wrapcheck // classified by the caller
	}

	defer func() { _ = rows.Close() }()

	var names []string

	for rows.Next() {
		var (
			seq        int
			name, file string
		)

		if err := rows.Scan(&seq, &name, &file); err != nil {
			return nil, err //nolint:wrapcheck // classified by the caller
		}

		if name != "temp" {
			names = append(names, name)
		}
	}

	return names, rows.Err() //nolint:wrapcheck // classified by the caller
}

func (s sqlite) tables(ctx context.Context, db *sql.DB, dataset string) ([]string, error) {
	//nolint:gosec // dataset is quoted as an identifier
	query := fmt.Sprintf(`SELECT name FROM %s.sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%%'
		ORDER BY name`, s.quote(dataset))

	return queryNames(ctx, db, query)
}

func (sqlite) quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func queryNames(ctx context.Context, db *sql.DB, query string, args ...any) ([]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // classified by the caller
	}

	defer func() { _ = rows.Close() }()

	var names []string

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err //nolint:wrapcheck // classified by the caller
		}

		names = append(names, name)
	}

	return names, rows.Err() //nolint:wrapcheck // classified by the caller
}
