package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/apper"
)

type pgQuerier struct {
	pool *pgxpool.Pool
}

// NewPgRecordStore serves records from a PostgreSQL table.
func NewPgRecordStore(pool *pgxpool.Pool, table string, logger *zap.Logger) (*RecordStore, error) {
	return newRecordStore(pgQuerier{pool: pool}, postgresDialect, table, logger)
}

func (q pgQuerier) query(ctx context.Context, sql string, args ...any) ([]apper.Record, error) {
	rows, err := q.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	records := []apper.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, mapError(rows.Err())
}

func (q pgQuerier) exec(ctx context.Context, sql string, args ...any) (int64, error) {
	cmd, err := q.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, mapError(err)
	}
	return cmd.RowsAffected(), nil
}

// mapError keeps the SQLSTATE in the message so it ends up in the logs.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("postgres %s: %w", pgErr.Code, err)
	}
	return err
}
