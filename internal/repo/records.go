package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/apper"
	"github.com/BuzzLyutic/flowtrack/internal/mapper"
)

var (
	ErrorNotFound     = errors.New("not found")
	ErrorInvalidTable = errors.New("invalid table name")
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// querier hides the driver: pgx pool or database/sql.
type querier interface {
	query(ctx context.Context, sql string, args ...any) ([]apper.Record, error)
	exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// RecordStore serves the record client contract from a SQL table, so the
// service can run without the hosted backend.
type RecordStore struct {
	q      querier
	d      dialect
	table  string
	logger *zap.Logger
}

func newRecordStore(q querier, d dialect, table string, logger *zap.Logger) (*RecordStore, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrorInvalidTable, table)
	}
	return &RecordStore{q: q, d: d, table: table, logger: logger}, nil
}

// Migrate creates the table if it does not exist.
func (s *RecordStore) Migrate(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.q.exec(ctx, fmt.Sprintf(stmt, s.table)); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
	}
	return nil
}

func (s *RecordStore) FetchRecords(ctx context.Context, entity string, params apper.FetchParams) (*apper.Envelope, error) {
	if env := s.checkEntity(entity); env != nil {
		return env, nil
	}

	query := fmt.Sprintf("SELECT %s FROM %s %s", s.d.selectList, s.table, orderClause(params.OrderBy))
	records, err := s.q.query(ctx, query)
	if err != nil {
		s.logger.Error("fetch records", zap.String("table", s.table), zap.Error(err))
		return apper.Failure("Failed to fetch records"), nil
	}

	names := params.Names()
	for i := range records {
		records[i] = project(records[i], names)
	}
	return apper.WithData(records)
}

func (s *RecordStore) GetRecordByID(ctx context.Context, entity string, id int64, params apper.FetchParams) (*apper.Envelope, error) {
	if env := s.checkEntity(entity); env != nil {
		return env, nil
	}

	rec, err := s.get(ctx, id)
	if errors.Is(err, ErrorNotFound) {
		return apper.Failure(fmt.Sprintf("Record with Id %d does not exist", id)), nil
	}
	if err != nil {
		s.logger.Error("get record", zap.String("table", s.table), zap.Int64("id", id), zap.Error(err))
		return apper.Failure("Failed to fetch record"), nil
	}
	return apper.WithData(project(rec, params.Names()))
}

func (s *RecordStore) CreateRecord(ctx context.Context, entity string, params apper.WriteParams) (*apper.Envelope, error) {
	if env := s.checkEntity(entity); env != nil {
		return env, nil
	}

	results := make([]apper.Result, 0, len(params.Records))
	for _, rec := range params.Records {
		results = append(results, s.create(ctx, rec))
	}
	return apper.WithResults(results), nil
}

func (s *RecordStore) create(ctx context.Context, rec apper.Record) apper.Result {
	cols, args, invalid := assignments(rec)
	if len(invalid) > 0 {
		return apper.Result{Errors: invalid, Message: "Record has invalid fields"}
	}

	var query string
	if len(cols) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s", s.table, s.d.selectList)
	} else {
		ph := make([]string, len(cols))
		for i := range cols {
			ph[i] = s.d.placeholder(i + 1)
		}
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			s.table, strings.Join(cols, ", "), strings.Join(ph, ", "), s.d.selectList)
	}

	rows, err := s.q.query(ctx, query, args...)
	if err != nil || len(rows) == 0 {
		s.logger.Error("create record", zap.String("table", s.table), zap.Error(err))
		return apper.Result{Message: "Failed to create record"}
	}
	return apper.Result{Success: true, Data: rows[0]}
}

func (s *RecordStore) UpdateRecord(ctx context.Context, entity string, params apper.WriteParams) (*apper.Envelope, error) {
	if env := s.checkEntity(entity); env != nil {
		return env, nil
	}

	results := make([]apper.Result, 0, len(params.Records))
	for _, rec := range params.Records {
		results = append(results, s.update(ctx, rec))
	}
	return apper.WithResults(results), nil
}

func (s *RecordStore) update(ctx context.Context, rec apper.Record) apper.Result {
	id := rec.Int64(mapper.FieldID)
	if id <= 0 {
		return apper.Result{Errors: []apper.FieldError{{FieldLabel: mapper.FieldID, Message: "is required"}}}
	}
	cols, args, invalid := assignments(rec)
	if len(invalid) > 0 {
		return apper.Result{Errors: invalid, Message: "Record has invalid fields"}
	}

	var (
		updated apper.Record
		err     error
	)
	if len(cols) == 0 {
		updated, err = s.get(ctx, id)
	} else {
		set := make([]string, len(cols))
		for i, c := range cols {
			set[i] = c + " = " + s.d.placeholder(i+1)
		}
		query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s RETURNING %s",
			s.table, strings.Join(set, ", "), s.d.placeholder(len(cols)+1), s.d.selectList)

		var rows []apper.Record
		rows, err = s.q.query(ctx, query, append(args, id)...)
		if err == nil && len(rows) == 0 {
			err = ErrorNotFound
		}
		if err == nil {
			updated = rows[0]
		}
	}

	if errors.Is(err, ErrorNotFound) {
		return apper.Result{Message: fmt.Sprintf("Record with Id %d does not exist", id)}
	}
	if err != nil {
		s.logger.Error("update record", zap.String("table", s.table), zap.Int64("id", id), zap.Error(err))
		return apper.Result{Message: "Failed to update record"}
	}
	return apper.Result{Success: true, Data: updated}
}

func (s *RecordStore) DeleteRecord(ctx context.Context, entity string, params apper.DeleteParams) (*apper.Envelope, error) {
	if env := s.checkEntity(entity); env != nil {
		return env, nil
	}

	query := fmt.Sprintf("DELETE FROM %s WHERE id = %s", s.table, s.d.placeholder(1))
	results := make([]apper.Result, 0, len(params.RecordIds))
	for _, id := range params.RecordIds {
		n, err := s.q.exec(ctx, query, id)
		switch {
		case err != nil:
			s.logger.Error("delete record", zap.String("table", s.table), zap.Int64("id", id), zap.Error(err))
			results = append(results, apper.Result{Message: "Failed to delete record"})
		case n == 0:
			results = append(results, apper.Result{Message: fmt.Sprintf("Record with Id %d does not exist", id)})
		default:
			results = append(results, apper.Result{Success: true, Data: apper.Record{mapper.FieldID: id}})
		}
	}
	return apper.WithResults(results), nil
}

func (s *RecordStore) get(ctx context.Context, id int64) (apper.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = %s", s.d.selectList, s.table, s.d.placeholder(1))
	rows, err := s.q.query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrorNotFound
	}
	return rows[0], nil
}

func (s *RecordStore) checkEntity(entity string) *apper.Envelope {
	if entity != s.table {
		return apper.Failure(fmt.Sprintf("Unknown table: %s", entity))
	}
	return nil
}
