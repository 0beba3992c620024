package filelog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/edi/edi/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type fileLogRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &fileLogRepoPG{pool: pool} }

func (r *fileLogRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, file_name, file_type, file_hash, record_count, parse_summary, loaded_at`

func (r *fileLogRepoPG) scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var summary []byte
	if err := row.Scan(&e.ID, &e.FileName, &e.FileType, &e.FileHash, &e.RecordCount, &summary, &e.LoadedAt); err != nil {
		return nil, err
	}
	e.Summary = summary
	return &e, nil
}

func (r *fileLogRepoPG) Exists(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM edi_file_log WHERE file_hash = $1)`, hash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("filelog: exists: %w", err)
	}
	return exists, nil
}

func (r *fileLogRepoPG) Record(ctx context.Context, e *Entry) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	var summary []byte
	if len(e.Summary) > 0 {
		summary = e.Summary
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO edi_file_log (id, file_name, file_type, file_hash, record_count, parse_summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (file_hash) DO NOTHING
		RETURNING loaded_at`,
		e.ID, e.FileName, e.FileType, e.FileHash, e.RecordCount, summary,
	).Scan(&e.LoadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("filelog: record %s: %w", e.FileName, err)
	}
	return true, nil
}

func (r *fileLogRepoPG) GetByHash(ctx context.Context, hash string) (*Entry, error) {
	e, err := r.scanEntry(r.conn(ctx).QueryRow(ctx,
		`SELECT `+entryCols+` FROM edi_file_log WHERE file_hash = $1`, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filelog: get: %w", err)
	}
	return e, nil
}

func (r *fileLogRepoPG) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM edi_file_log`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("filelog: count: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+entryCols+` FROM edi_file_log ORDER BY loaded_at DESC, file_name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("filelog: list: %w", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("filelog: scan: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}
