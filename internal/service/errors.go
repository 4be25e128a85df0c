package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrCreateFailed = errors.New("failed to create task")
	ErrRemote       = errors.New("remote request failed")
)

// OpError carries the operation and task id an error happened in.
type OpError struct {
	Op      string
	ID      int64
	Message string
	Err     error
}

func (e *OpError) Error() string {
	subject := "task"
	if e.ID != 0 {
		subject = fmt.Sprintf("task %d", e.ID)
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.Op, subject, msg)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func notFound(op string, id int64) error {
	return &OpError{
		Op:      op,
		ID:      id,
		Message: fmt.Sprintf("Task with Id %d not found", id),
		Err:     ErrNotFound,
	}
}
