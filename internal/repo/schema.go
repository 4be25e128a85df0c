package repo

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BuzzLyutic/flowtrack/internal/apper"
	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/mapper"
)

// column binds a remote field name to its SQL column.
type column struct {
	field    string
	name     string
	writable bool
}

// Порядок колонок совпадает с порядком в selectList диалекта.
var columns = []column{
	{field: mapper.FieldID, name: "id"},
	{field: mapper.FieldName, name: "name", writable: true},
	{field: mapper.FieldTitle, name: "title_c", writable: true},
	{field: mapper.FieldDescription, name: "description_c", writable: true},
	{field: mapper.FieldPriority, name: "priority_c", writable: true},
	{field: mapper.FieldStatus, name: "status_c", writable: true},
	{field: mapper.FieldCompletedAt, name: "completed_at_c", writable: true},
	{field: mapper.FieldFiles, name: "files_c", writable: true},
	{field: mapper.FieldCreatedOn, name: "created_on"},
}

func columnFor(field string) (column, bool) {
	for _, c := range columns {
		if c.field == field {
			return c, true
		}
	}
	return column{}, false
}

type dialect struct {
	placeholder func(n int) string
	selectList  string
	schema      []string
}

var postgresDialect = dialect{
	placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
	selectList: `id, name, title_c, description_c, priority_c, status_c, completed_at_c, files_c,
		to_char(created_on AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"')`,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS %[1]s (
			id             BIGSERIAL PRIMARY KEY,
			name           TEXT NOT NULL DEFAULT '',
			title_c        TEXT NOT NULL DEFAULT '',
			description_c  TEXT NOT NULL DEFAULT '',
			priority_c     TEXT NOT NULL DEFAULT '',
			status_c       TEXT NOT NULL DEFAULT '',
			completed_at_c TEXT,
			files_c        TEXT,
			created_on     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_on ON %[1]s (created_on DESC)`,
	},
}

var sqliteDialect = dialect{
	placeholder: func(int) string { return "?" },
	selectList:  `id, name, title_c, description_c, priority_c, status_c, completed_at_c, files_c, created_on`,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS %[1]s (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT NOT NULL DEFAULT '',
			title_c        TEXT NOT NULL DEFAULT '',
			description_c  TEXT NOT NULL DEFAULT '',
			priority_c     TEXT NOT NULL DEFAULT '',
			status_c       TEXT NOT NULL DEFAULT '',
			completed_at_c TEXT,
			files_c        TEXT,
			created_on     TEXT NOT NULL DEFAULT (strftime('%%Y-%%m-%%dT%%H:%%M:%%SZ', 'now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_%[1]s_created_on ON %[1]s (created_on DESC)`,
	},
}

// scanRecord reads one row laid out as dialect.selectList.
func scanRecord(scan func(dest ...any) error) (apper.Record, error) {
	var (
		id                                  int64
		name, title, desc, prio, status, at string
		completed, rawFiles                 *string
	)
	if err := scan(&id, &name, &title, &desc, &prio, &status, &completed, &rawFiles, &at); err != nil {
		return nil, err
	}

	rec := apper.Record{
		mapper.FieldID:          id,
		mapper.FieldName:        name,
		mapper.FieldTitle:       title,
		mapper.FieldDescription: desc,
		mapper.FieldPriority:    prio,
		mapper.FieldStatus:      status,
		mapper.FieldCompletedAt: nil,
		mapper.FieldFiles:       nil,
		mapper.FieldCreatedOn:   at,
	}
	if completed != nil {
		rec[mapper.FieldCompletedAt] = *completed
	}
	if rawFiles != nil && *rawFiles != "" {
		var list []files.Descriptor
		if err := json.Unmarshal([]byte(*rawFiles), &list); err != nil {
			return nil, fmt.Errorf("decode files of record %d: %w", id, err)
		}
		rec[mapper.FieldFiles] = list
	}
	return rec, nil
}

// encodeValue converts a record value into the SQL argument for its column.
func encodeValue(c column, v any) (any, error) {
	switch c.field {
	case mapper.FieldFiles:
		if v == nil {
			return nil, nil
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		return string(raw), nil
	case mapper.FieldCompletedAt:
		if v == nil {
			return nil, nil
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string or null")
		}
		if s == "" {
			return nil, nil
		}
		return s, nil
	}
	if v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("must be a string")
	}
	return s, nil
}

// assignments splits a record into writable columns and their arguments.
// Keys that cannot be written are reported as field errors.
func assignments(rec apper.Record) ([]string, []any, []apper.FieldError) {
	var (
		cols    []string
		args    []any
		invalid []apper.FieldError
	)
	for _, c := range columns {
		v, ok := rec[c.field]
		if !ok || !c.writable {
			continue
		}
		arg, err := encodeValue(c, v)
		if err != nil {
			invalid = append(invalid, apper.FieldError{FieldLabel: c.field, Message: err.Error()})
			continue
		}
		cols = append(cols, c.name)
		args = append(args, arg)
	}
	for key := range rec {
		if key == mapper.FieldID {
			continue
		}
		if c, ok := columnFor(key); !ok || !c.writable {
			invalid = append(invalid, apper.FieldError{FieldLabel: key, Message: "field is not updateable"})
		}
	}
	return cols, args, invalid
}

// project keeps Id plus the requested fields. No selection keeps everything.
func project(rec apper.Record, fields []string) apper.Record {
	if len(fields) == 0 {
		return rec
	}
	out := apper.Record{mapper.FieldID: rec[mapper.FieldID]}
	for _, f := range fields {
		if v, ok := rec[f]; ok {
			out[f] = v
		}
	}
	return out
}

func orderClause(orders []apper.OrderBy) string {
	var parts []string
	for _, o := range orders {
		c, ok := columnFor(o.FieldName)
		if !ok {
			continue
		}
		dir := "ASC"
		if strings.EqualFold(o.SortType, apper.SortDesc) {
			dir = "DESC"
		}
		parts = append(parts, c.name+" "+dir)
	}
	if len(parts) == 0 {
		parts = append(parts, "created_on DESC")
	}
	return "ORDER BY " + strings.Join(append(parts, "id DESC"), ", ")
}
