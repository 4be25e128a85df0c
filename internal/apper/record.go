// Package apper holds the remote record schema, the response envelope and the
// clients that speak it.
package apper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is one row in the remote schema, keyed by remote field names.
// Only the keys that are present are sent on writes.
type Record map[string]any

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// String returns the value under key if it is a string, "" otherwise.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Truthy follows the loose truthiness the remote SDK uses: absent, null, "",
// 0 and false are all falsy.
func (r Record) Truthy(key string) bool {
	switch v := r[key].(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	}
	return true
}

// Int64 reads a numeric id regardless of how it was decoded.
func (r Record) Int64(key string) int64 {
	switch v := r[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}

// FieldError is a validation error attached to one record of a bulk call.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

func (e FieldError) String() string {
	if e.FieldLabel == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.FieldLabel, e.Message)
}

// Result is the per-record outcome of a create, update or delete call.
type Result struct {
	Success bool         `json:"success"`
	Data    Record       `json:"data,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Message string       `json:"message,omitempty"`
}

// Envelope wraps every remote response.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Results []Result        `json:"results,omitempty"`
}

// Failure builds an envelope-level failure.
func Failure(message string) *Envelope {
	return &Envelope{Success: false, Message: message}
}

// WithData builds a successful envelope carrying v as its data.
func WithData(v any) (*Envelope, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode envelope data: %w", err)
	}
	return &Envelope{Success: true, Data: raw}, nil
}

// WithResults builds a successful envelope for a bulk call.
func WithResults(results []Result) *Envelope {
	return &Envelope{Success: true, Results: results}
}

// Records decodes Data as a list of records. Missing data yields an empty list.
func (e *Envelope) Records() ([]Record, error) {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return []Record{}, nil
	}
	var out []Record
	if err := decodeJSON(e.Data, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// Record decodes Data as a single record.
func (e *Envelope) Record() (Record, error) {
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return nil, fmt.Errorf("decode record: empty data")
	}
	var out Record
	if err := decodeJSON(e.Data, &out); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return out, nil
}

// Split partitions Results into successful and failed entries, keeping order.
func (e *Envelope) Split() (succeeded, failed []Result) {
	for _, r := range e.Results {
		if r.Success {
			succeeded = append(succeeded, r)
		} else {
			failed = append(failed, r)
		}
	}
	return succeeded, failed
}

// decodeJSON keeps numbers as json.Number so record ids survive beyond 2^53.
func decodeJSON(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}
