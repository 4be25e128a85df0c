package apper

import "context"

const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

type FieldName struct {
	Name string `json:"Name"`
}

type FieldRef struct {
	Field FieldName `json:"field"`
}

// Fields builds a field-selection list from plain names.
func Fields(names ...string) []FieldRef {
	out := make([]FieldRef, 0, len(names))
	for _, n := range names {
		out = append(out, FieldRef{Field: FieldName{Name: n}})
	}
	return out
}

type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

type FetchParams struct {
	Fields  []FieldRef `json:"fields,omitempty"`
	OrderBy []OrderBy  `json:"orderBy,omitempty"`
}

// Names returns the selected field names.
func (p FetchParams) Names() []string {
	out := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		out = append(out, f.Field.Name)
	}
	return out
}

type WriteParams struct {
	Records []Record `json:"records"`
}

type DeleteParams struct {
	RecordIds []int64 `json:"RecordIds"`
}

// Client is the record storage contract. A non-nil error means the call
// itself failed (transport, malformed response); remote-reported failures come
// back as an envelope with Success false.
type Client interface {
	FetchRecords(ctx context.Context, entity string, params FetchParams) (*Envelope, error)
	GetRecordByID(ctx context.Context, entity string, id int64, params FetchParams) (*Envelope, error)
	CreateRecord(ctx context.Context, entity string, params WriteParams) (*Envelope, error)
	UpdateRecord(ctx context.Context, entity string, params WriteParams) (*Envelope, error)
	DeleteRecord(ctx context.Context, entity string, params DeleteParams) (*Envelope, error)
}
