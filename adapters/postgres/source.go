package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gradelens/domain/core"
	"gradelens/internal"
	"gradelens/internal/errors"
	"gradelens/ports"
)

// Connect opens and pings a Postgres connection pool
func Connect(ctx context.Context, url string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	return db, nil
}

// TableSource reads the student table from Postgres. Every column is read
// as text so the table is typed by the same rules as a CSV file.
type TableSource struct {
	db    *sqlx.DB
	table string
}

var _ ports.TableSource = (*TableSource)(nil)

// NewTableSource creates a source over table, which may be schema-qualified
func NewTableSource(db *sqlx.DB, table string) (*TableSource, error) {
	if _, err := quoteTable(table); err != nil {
		return nil, err
	}
	return &TableSource{db: db, table: table}, nil
}

// Identity hashes the table content inside the database, so an unchanged
// table keeps its cache entry and any write invalidates it.
func (s *TableSource) Identity(ctx context.Context) (core.Hash, error) {
	quoted, _ := quoteTable(s.table)
	query := fmt.Sprintf(
		`SELECT count(*), coalesce(md5(string_agg(t::text, E'\n' ORDER BY t::text)), '') FROM %s AS t`,
		quoted)

	var (
		rows     int64
		checksum string
	)
	if err := s.db.QueryRowxContext(ctx, query).Scan(&rows, &checksum); err != nil {
		return "", errors.DatabaseError(fmt.Sprintf("failed to fingerprint %s", s.table), err)
	}
	return core.SourceHash("postgres", s.table, fmt.Sprint(rows), checksum), nil
}

// ReadTable selects every row. NULL reads as an empty cell.
func (s *TableSource) ReadTable(ctx context.Context) (*ports.RawTable, error) {
	logger := internal.DefaultLogger.Component("postgres")
	quoted, _ := quoteTable(s.table)

	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s", quoted))
	if err != nil {
		return nil, errors.DatabaseError(fmt.Sprintf("failed to query %s", s.table), err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, errors.DatabaseError("failed to read column names", err)
	}

	table := &ports.RawTable{Name: s.table, Header: header}
	cells := make([]sql.NullString, len(header))
	dest := make([]interface{}, len(header))
	for i := range cells {
		dest[i] = &cells[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, errors.DatabaseError(fmt.Sprintf("failed to scan row %d", len(table.Rows)+1), err)
		}
		record := make([]string, len(cells))
		for i, c := range cells {
			if c.Valid {
				record[i] = c.String
			}
		}
		table.Rows = append(table.Rows, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.DatabaseError("row iteration failed", err)
	}

	logger.Debug("read %d rows from %s", len(table.Rows), s.table)
	return table, nil
}

// quoteTable quotes each dot-separated part of a table name
func quoteTable(table string) (string, error) {
	parts := strings.Split(table, ".")
	if len(parts) > 2 {
		return "", errors.ConfigInvalid(fmt.Sprintf("invalid table name %q", table))
	}
	for i, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", errors.ConfigInvalid(fmt.Sprintf("invalid table name %q", table))
		}
		parts[i] = pq.QuoteIdentifier(p)
	}
	return strings.Join(parts, "."), nil
}
