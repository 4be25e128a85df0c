package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/apper"
	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/mapper"
	"github.com/BuzzLyutic/flowtrack/internal/model"
	"github.com/BuzzLyutic/flowtrack/internal/notify"
)

const DefaultTable = "task_c"

const (
	opList   = "list"
	opGet    = "get"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
)

// TaskService adapts the record client to UI tasks. Every call is one round
// trip; nothing is cached between calls.
type TaskService struct {
	client   apper.Client
	table    string
	conv     files.Converter
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewTaskService wires the adapter. conv may be nil, in which case
// attachments are sent as received.
func NewTaskService(client apper.Client, table string, conv files.Converter, notifier notify.Notifier, logger *zap.Logger) *TaskService {
	if table == "" {
		table = DefaultTable
	}
	return &TaskService{
		client:   client,
		table:    table,
		conv:     conv,
		notifier: notifier,
		logger:   logger,
	}
}

// List returns tasks newest first. Failures of any kind are logged and yield
// an empty list.
func (s *TaskService) List(ctx context.Context) []model.Task {
	env, err := s.client.FetchRecords(ctx, s.table, apper.FetchParams{
		Fields:  mapper.QueryFields(),
		OrderBy: []apper.OrderBy{{FieldName: mapper.FieldCreatedOn, SortType: apper.SortDesc}},
	})
	if err == nil && env == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		s.logger.Error("error fetching tasks", zap.String("op", opList), zap.Error(err))
		return []model.Task{}
	}
	if !env.Success {
		s.logger.Error("fetch tasks rejected", zap.String("op", opList), zap.String("message", env.Message))
		s.notifier.Notify(ctx, notify.Error(opList, env.Message))
		return []model.Task{}
	}

	records, err := env.Records()
	if err != nil {
		s.logger.Error("error fetching tasks", zap.String("op", opList), zap.Error(err))
		return []model.Task{}
	}
	return mapper.ToUISlice(records)
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	env, err := s.client.GetRecordByID(ctx, s.table, id, apper.FetchParams{Fields: mapper.QueryFields()})
	if err = s.checkCall(ctx, opGet, id, env, err); err != nil {
		if errors.Is(err, ErrRemote) {
			return model.Task{}, notFound(opGet, id)
		}
		return model.Task{}, err
	}

	record, err := env.Record()
	if err != nil {
		s.logger.Error("error fetching task", zap.String("op", opGet), zap.Int64("id", id), zap.Error(err))
		return model.Task{}, &OpError{Op: opGet, ID: id, Err: err}
	}
	return mapper.ToUI(record), nil
}

// Create sends one record built from p with the create defaults applied.
// Attachments go through the file converter; if conversion fails the original
// descriptors are sent and a warning is raised.
func (s *TaskService) Create(ctx context.Context, p model.TaskPatch) (model.Task, error) {
	payload := p.WithCreateDefaults()
	attachments := payload.Files
	payload.Files = nil

	record := mapper.ToRemote(payload)
	if len(attachments) > 0 {
		conv := files.ConvertForCreate(s.conv, attachments)
		if conv.Err != nil {
			s.logger.Warn("error converting files, using original format",
				zap.String("op", opCreate), zap.Int("files", len(attachments)), zap.Error(conv.Err))
			s.notifier.Notify(ctx, notify.Warning(opCreate, fmt.Sprintf("Attachments sent unconverted: %v", conv.Err)))
		}
		record[mapper.FieldFiles] = conv.Files
	}

	env, err := s.client.CreateRecord(ctx, s.table, apper.WriteParams{Records: []apper.Record{record}})
	if err = s.checkCall(ctx, opCreate, 0, env, err); err != nil {
		return model.Task{}, err
	}

	created, ok := s.firstSucceeded(ctx, opCreate, env)
	if !ok {
		s.logger.Error("error creating task", zap.String("op", opCreate), zap.Error(ErrCreateFailed))
		return model.Task{}, &OpError{Op: opCreate, Err: ErrCreateFailed}
	}
	return mapper.ToUIWithFallback(created, payload), nil
}

// Update sends only the fields present in p.
func (s *TaskService) Update(ctx context.Context, id int64, p model.TaskPatch) (model.Task, error) {
	record := mapper.ToRemote(p)
	record[mapper.FieldID] = id

	env, err := s.client.UpdateRecord(ctx, s.table, apper.WriteParams{Records: []apper.Record{record}})
	if err = s.checkCall(ctx, opUpdate, id, env, err); err != nil {
		return model.Task{}, err
	}

	updated, ok := s.firstSucceeded(ctx, opUpdate, env)
	if !ok {
		s.logger.Error("error updating task", zap.String("op", opUpdate), zap.Int64("id", id), zap.Error(ErrNotFound))
		return model.Task{}, notFound(opUpdate, id)
	}
	return mapper.ToUI(updated), nil
}

// Delete reports true once the store confirms the record is gone.
func (s *TaskService) Delete(ctx context.Context, id int64) (bool, error) {
	env, err := s.client.DeleteRecord(ctx, s.table, apper.DeleteParams{RecordIds: []int64{id}})
	if err = s.checkCall(ctx, opDelete, id, env, err); err != nil {
		return false, err
	}

	if _, ok := s.firstSucceeded(ctx, opDelete, env); !ok {
		s.logger.Error("error deleting task", zap.String("op", opDelete), zap.Int64("id", id), zap.Error(ErrNotFound))
		return false, notFound(opDelete, id)
	}
	return true, nil
}

// checkCall turns a transport error or an envelope-level failure into an
// OpError. Envelope failures are also shown to the user.
func (s *TaskService) checkCall(ctx context.Context, op string, id int64, env *apper.Envelope, err error) error {
	if err == nil && env == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		s.logger.Error("remote call failed", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
		return &OpError{Op: op, ID: id, Err: err}
	}
	if !env.Success {
		s.logger.Error("remote call rejected", zap.String("op", op), zap.Int64("id", id), zap.String("message", env.Message))
		s.notifier.Notify(ctx, notify.Error(op, env.Message))
		return &OpError{Op: op, ID: id, Message: env.Message, Err: ErrRemote}
	}
	return nil
}

// firstSucceeded notifies every per-record failure and returns the data of the
// first successful result, if any.
func (s *TaskService) firstSucceeded(ctx context.Context, op string, env *apper.Envelope) (apper.Record, bool) {
	succeeded, failed := env.Split()
	if len(failed) > 0 {
		s.logger.Error(fmt.Sprintf("failed to %s %d tasks", op, len(failed)), zap.String("op", op), zap.Any("results", failed))
		for _, r := range failed {
			for _, fe := range r.Errors {
				s.notifier.Notify(ctx, notify.Error(op, fe.String()))
			}
			if r.Message != "" {
				s.notifier.Notify(ctx, notify.Error(op, r.Message))
			}
		}
	}
	if len(succeeded) == 0 {
		return nil, false
	}
	data := succeeded[0].Data
	if data == nil {
		data = apper.Record{}
	}
	return data, true
}
