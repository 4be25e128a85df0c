// Package mapper translates between the UI task shape and the remote record
// schema. Every function here is pure.
package mapper

import (
	"github.com/BuzzLyutic/flowtrack/internal/apper"
	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/model"
)

// Remote field names.
const (
	FieldID          = "Id"
	FieldName        = "Name"
	FieldTitle       = "title_c"
	FieldDescription = "description_c"
	FieldPriority    = "priority_c"
	FieldStatus      = "status_c"
	FieldCompletedAt = "completed_at_c"
	FieldFiles       = "files_c"
	FieldCreatedOn   = "CreatedOn"
)

// QueryFields is the field selection used by list and get.
func QueryFields() []apper.FieldRef {
	return apper.Fields(
		FieldName,
		FieldTitle,
		FieldDescription,
		FieldPriority,
		FieldStatus,
		FieldCompletedAt,
		FieldCreatedOn,
	)
}

// ToUI converts a record, substituting defaults for absent or falsy fields.
func ToUI(r apper.Record) model.Task {
	t := model.Task{
		ID:          r.Int64(FieldID),
		Title:       stringOr(r, FieldTitle, ""),
		Description: stringOr(r, FieldDescription, ""),
		Priority:    stringOr(r, FieldPriority, model.PriorityMedium),
		Status:      stringOr(r, FieldStatus, model.StatusActive),
		CreatedAt:   r.String(FieldCreatedOn),
		Files:       files.FromAny(r[FieldFiles]),
	}
	if r.Truthy(FieldCompletedAt) {
		s := r.String(FieldCompletedAt)
		t.CompletedAt = &s
	}
	if t.Files == nil {
		t.Files = []files.Descriptor{}
	}
	return t
}

// ToUIWithFallback is ToUI, except that fields the record leaves falsy take the
// value that was submitted in p before the usual defaults apply.
func ToUIWithFallback(r apper.Record, p model.TaskPatch) model.Task {
	t := ToUI(r)
	if !r.Truthy(FieldTitle) && p.Title != nil {
		t.Title = *p.Title
	}
	if !r.Truthy(FieldDescription) && p.Description != nil {
		t.Description = *p.Description
	}
	if !r.Truthy(FieldPriority) && p.Priority != nil && *p.Priority != "" {
		t.Priority = *p.Priority
	}
	if !r.Truthy(FieldStatus) && p.Status != nil && *p.Status != "" {
		t.Status = *p.Status
	}
	if !r.Truthy(FieldCompletedAt) && p.CompletedAt.Value != nil && *p.CompletedAt.Value != "" {
		s := *p.CompletedAt.Value
		t.CompletedAt = &s
	}
	return t
}

func ToUISlice(records []apper.Record) []model.Task {
	tasks := make([]model.Task, len(records))
	for i, r := range records {
		tasks[i] = ToUI(r)
	}
	return tasks
}

// ToRemote emits a key only for the fields present in p. The title is written
// to both Name and title_c.
func ToRemote(p model.TaskPatch) apper.Record {
	r := apper.Record{}
	if p.Title != nil {
		r[FieldName] = *p.Title
		r[FieldTitle] = *p.Title
	}
	if p.Description != nil {
		r[FieldDescription] = *p.Description
	}
	if p.Priority != nil {
		r[FieldPriority] = *p.Priority
	}
	if p.Status != nil {
		r[FieldStatus] = *p.Status
	}
	if p.CompletedAt.Set {
		if p.CompletedAt.Value != nil {
			r[FieldCompletedAt] = *p.CompletedAt.Value
		} else {
			r[FieldCompletedAt] = nil
		}
	}
	if p.Files != nil {
		r[FieldFiles] = p.Files
	}
	return r
}

func stringOr(r apper.Record, key, def string) string {
	if !r.Truthy(key) {
		return def
	}
	return r.String(key)
}
