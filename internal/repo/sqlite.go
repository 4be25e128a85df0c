package repo

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/BuzzLyutic/flowtrack/internal/apper"
)

type sqlQuerier struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path. ":memory:" works for
// tests; the pool is pinned to one connection so every query sees the same
// in-memory database.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	return db, nil
}

// NewSQLiteRecordStore serves records from an SQLite table.
func NewSQLiteRecordStore(db *sql.DB, table string, logger *zap.Logger) (*RecordStore, error) {
	return newRecordStore(sqlQuerier{db: db}, sqliteDialect, table, logger)
}

func (q sqlQuerier) query(ctx context.Context, query string, args ...any) ([]apper.Record, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
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
	return records, rows.Err()
}

func (q sqlQuerier) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
