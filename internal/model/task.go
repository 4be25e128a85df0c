package model

import (
	"encoding/json"

	"github.com/BuzzLyutic/flowtrack/internal/files"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Task is the UI-facing shape. Timestamps are passed through as the store
// formats them.
type Task struct {
	ID          int64              `json:"Id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    string             `json:"priority"`
	Status      string             `json:"status"`
	CompletedAt *string            `json:"completedAt"`
	CreatedAt   string             `json:"createdAt"`
	Files       []files.Descriptor `json:"files"`
}

// NullableString tells an absent key apart from an explicit null.
type NullableString struct {
	Set   bool
	Value *string
}

func Null() NullableString {
	return NullableString{Set: true}
}

func SetString(s string) NullableString {
	return NullableString{Set: true, Value: &s}
}

func (n *NullableString) UnmarshalJSON(b []byte) error {
	n.Set = true
	if string(b) == "null" {
		n.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	n.Value = &s
	return nil
}

func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}

// TaskPatch carries only the fields being set by a create or update.
type TaskPatch struct {
	Title       *string            `json:"title,omitempty"`
	Description *string            `json:"description,omitempty"`
	Priority    *string            `json:"priority,omitempty"`
	Status      *string            `json:"status,omitempty"`
	CompletedAt NullableString     `json:"completedAt"`
	Files       []files.Descriptor `json:"files,omitempty"`
}

// WithCreateDefaults fills every unset field with the value a new task gets.
// Files are left as they are.
func (p TaskPatch) WithCreateDefaults() TaskPatch {
	out := p
	if out.Title == nil {
		out.Title = String("")
	}
	if out.Description == nil {
		out.Description = String("")
	}
	if out.Priority == nil || *out.Priority == "" {
		out.Priority = String(PriorityMedium)
	}
	if out.Status == nil || *out.Status == "" {
		out.Status = String(StatusActive)
	}
	if !out.CompletedAt.Set {
		out.CompletedAt = Null()
	}
	return out
}

// MarshalJSON emits only the fields that are set.
func (p TaskPatch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 6)
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Priority != nil {
		out["priority"] = *p.Priority
	}
	if p.Status != nil {
		out["status"] = *p.Status
	}
	if p.CompletedAt.Set {
		out["completedAt"] = p.CompletedAt
	}
	if p.Files != nil {
		out["files"] = p.Files
	}
	return json.Marshal(out)
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.Status == nil && !p.CompletedAt.Set && p.Files == nil
}

func String(s string) *string {
	return &s
}
