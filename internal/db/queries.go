package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stacklok/gitsorted/internal/issues"
)

// Columns that can order the watermark query
const (
	ColumnCreatedAt     = "created_at"
	ColumnLastProcessed = "last_processed"
)

// DBTX is satisfied by *pgxpool.Pool and *pgx.Conn.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the issue store statements against one table.
type Queries struct {
	db    DBTX
	table string
}

// New returns Queries for table. The table name is quoted, never interpolated raw.
func New(db DBTX, table string) *Queries {
	return &Queries{
		db:    db,
		table: pgx.Identifier{table}.Sanitize(),
	}
}

const selectColumns = `number, id, created_at, title, author, last_processed`

// LatestBy returns up to limit records with the greatest value in column,
// ignoring rows where it is NULL.
func (q *Queries) LatestBy(ctx context.Context, column string, limit int) ([]issues.Record, error) {
	switch column {
	case ColumnCreatedAt, ColumnLastProcessed:
	default:
		return nil, fmt.Errorf("unsupported watermark column %q", column)
	}

	sql := fmt.Sprintf(
		`SELECT %s FROM %s WHERE %s IS NOT NULL ORDER BY %s DESC, number DESC LIMIT $1`,
		selectColumns, q.table, column, column,
	)
	rows, err := q.db.Query(ctx, sql, limit)
	if err != nil {
		return nil, classify("reading watermark", err, issues.ErrTransport)
	}
	return collectRecords(rows)
}

// ListIssues returns every stored record, newest first.
func (q *Queries) ListIssues(ctx context.Context) ([]issues.Record, error) {
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC, number DESC`, selectColumns, q.table)
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, classify("listing issues", err, issues.ErrTransport)
	}
	return collectRecords(rows)
}

// UpsertIssues inserts or updates every record of batch in one statement,
// keyed by number. last_processed never moves backwards.
func (q *Queries) UpsertIssues(ctx context.Context, batch issues.Batch) (int64, error) {
	numbers := make([]int32, len(batch))
	ids := make([]int64, len(batch))
	createdAts := make([]time.Time, len(batch))
	titles := make([]string, len(batch))
	authors := make([]string, len(batch))
	processed := make([]time.Time, len(batch))

	for i, r := range batch {
		numbers[i] = int32(r.Number) //nolint:gosec // issue numbers fit in int4
		ids[i] = r.ID
		createdAts[i] = r.CreatedAt
		titles[i] = r.Title
		authors[i] = r.Author
		processed[i] = r.LastProcessed
	}

	sql := fmt.Sprintf(`
INSERT INTO %[1]s AS t (number, id, created_at, title, author, last_processed)
SELECT * FROM unnest($1::int4[], $2::int8[], $3::timestamptz[], $4::text[], $5::text[], $6::timestamptz[])
ON CONFLICT (number) DO UPDATE SET
    id = EXCLUDED.id,
    created_at = EXCLUDED.created_at,
    title = EXCLUDED.title,
    author = EXCLUDED.author,
    last_processed = GREATEST(t.last_processed, EXCLUDED.last_processed)`, q.table)

	tag, err := q.db.Exec(ctx, sql, numbers, ids, createdAts, titles, authors, processed)
	if err != nil {
		return 0, classify("upserting issues", err, issues.ErrPersistence)
	}
	return tag.RowsAffected(), nil
}

func collectRecords(rows pgx.Rows) ([]issues.Record, error) {
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (issues.Record, error) {
		var r issues.Record
		err := row.Scan(&r.Number, &r.ID, &r.CreatedAt, &r.Title, &r.Author, &r.LastProcessed)
		return r, err
	})
	if err != nil {
		var scanErr pgx.ScanArgError
		if errors.As(err, &scanErr) {
			return nil, fmt.Errorf("%w: scanning issue rows: %w", issues.ErrParse, err)
		}
		return nil, classify("reading rows", err, issues.ErrTransport)
	}
	return records, nil
}
