package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/flowtrack/internal/apper"
	"github.com/BuzzLyutic/flowtrack/internal/files"
	"github.com/BuzzLyutic/flowtrack/internal/model"
	"github.com/BuzzLyutic/flowtrack/internal/notify"
)

// MockClient - мок клиента записей
type MockClient struct {
	mock.Mock
}

func (m *MockClient) FetchRecords(ctx context.Context, entity string, params apper.FetchParams) (*apper.Envelope, error) {
	args := m.Called(ctx, entity, params)
	env, _ := args.Get(0).(*apper.Envelope)
	return env, args.Error(1)
}

func (m *MockClient) GetRecordByID(ctx context.Context, entity string, id int64, params apper.FetchParams) (*apper.Envelope, error) {
	args := m.Called(ctx, entity, id, params)
	env, _ := args.Get(0).(*apper.Envelope)
	return env, args.Error(1)
}

func (m *MockClient) CreateRecord(ctx context.Context, entity string, params apper.WriteParams) (*apper.Envelope, error) {
	args := m.Called(ctx, entity, params)
	env, _ := args.Get(0).(*apper.Envelope)
	return env, args.Error(1)
}

func (m *MockClient) UpdateRecord(ctx context.Context, entity string, params apper.WriteParams) (*apper.Envelope, error) {
	args := m.Called(ctx, entity, params)
	env, _ := args.Get(0).(*apper.Envelope)
	return env, args.Error(1)
}

func (m *MockClient) DeleteRecord(ctx context.Context, entity string, params apper.DeleteParams) (*apper.Envelope, error) {
	args := m.Called(ctx, entity, params)
	env, _ := args.Get(0).(*apper.Envelope)
	return env, args.Error(1)
}

// recorder collects notices instead of showing them.
type recorder struct {
	notices []notify.Notice
}

func (r *recorder) Notify(_ context.Context, n notify.Notice) {
	r.notices = append(r.notices, n)
}

func (r *recorder) messages() []string {
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Message)
	}
	return out
}

func newService(client apper.Client, conv files.Converter) (*TaskService, *recorder) {
	rec := &recorder{}
	return NewTaskService(client, "", conv, rec, zap.NewNop()), rec
}

func dataEnvelope(t *testing.T, v any) *apper.Envelope {
	t.Helper()
	env, err := apper.WithData(v)
	require.NoError(t, err)
	return env
}

func TestTaskService_List(t *testing.T) {
	tests := []struct {
		name        string
		env         *apper.Envelope
		err         error
		wantLen     int
		wantNotices []string
	}{
		{
			name: "maps records",
			env: dataEnvelope(t, []apper.Record{
				{"Id": 2, "title_c": "second", "CreatedOn": "2024-01-02T00:00:00Z"},
				{"Id": 1, "title_c": "first", "CreatedOn": "2024-01-01T00:00:00Z"},
			}),
			wantLen: 2,
		},
		{
			name:    "empty data",
			env:     &apper.Envelope{Success: true},
			wantLen: 0,
		},
		{
			name:        "envelope failure returns empty",
			env:         apper.Failure("Table not found"),
			wantLen:     0,
			wantNotices: []string{"Table not found"},
		},
		{
			name:    "transport error returns empty",
			err:     errors.New("connection refused"),
			wantLen: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockClient)
			client.On("FetchRecords", mock.Anything, "task_c", mock.MatchedBy(func(p apper.FetchParams) bool {
				return len(p.Fields) == 7 &&
					len(p.OrderBy) == 1 &&
					p.OrderBy[0].FieldName == "CreatedOn" &&
					p.OrderBy[0].SortType == "DESC"
			})).Return(tt.env, tt.err)

			svc, rec := newService(client, nil)
			tasks := svc.List(context.Background())

			require.NotNil(t, tasks)
			assert.Len(t, tasks, tt.wantLen)
			if tt.wantNotices == nil {
				assert.Empty(t, rec.notices)
			} else {
				assert.Equal(t, tt.wantNotices, rec.messages())
			}
			client.AssertExpectations(t)
		})
	}

	t.Run("keeps remote order", func(t *testing.T) {
		client := new(MockClient)
		client.On("FetchRecords", mock.Anything, "task_c", mock.Anything).Return(dataEnvelope(t, []apper.Record{
			{"Id": 5}, {"Id": 3}, {"Id": 4},
		}), nil)

		svc, _ := newService(client, nil)
		tasks := svc.List(context.Background())
		require.Len(t, tasks, 3)
		assert.Equal(t, []int64{5, 3, 4}, []int64{tasks[0].ID, tasks[1].ID, tasks[2].ID})
	})
}

func TestTaskService_Get(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetRecordByID", mock.Anything, "task_c", int64(3), mock.Anything).
			Return(dataEnvelope(t, apper.Record{"Id": 3, "title_c": "x", "status_c": "completed"}), nil)

		svc, rec := newService(client, nil)
		task, err := svc.Get(context.Background(), 3)

		require.NoError(t, err)
		assert.Equal(t, int64(3), task.ID)
		assert.Equal(t, "completed", task.Status)
		assert.Empty(t, rec.notices)
	})

	t.Run("envelope failure is not found", func(t *testing.T) {
		client := new(MockClient)
		client.On("GetRecordByID", mock.Anything, "task_c", int64(99), mock.Anything).
			Return(apper.Failure("Record does not exist"), nil)

		svc, rec := newService(client, nil)
		_, err := svc.Get(context.Background(), 99)

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Contains(t, err.Error(), "Task with Id 99 not found")
		assert.Equal(t, []string{"Record does not exist"}, rec.messages())
	})

	t.Run("transport error is re-raised", func(t *testing.T) {
		boom := errors.New("timeout")
		client := new(MockClient)
		client.On("GetRecordByID", mock.Anything, "task_c", int64(1), mock.Anything).Return(nil, boom)

		svc, _ := newService(client, nil)
		_, err := svc.Get(context.Background(), 1)

		assert.ErrorIs(t, err, boom)
		var opErr *OpError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, "get", opErr.Op)
		assert.Equal(t, int64(1), opErr.ID)
	})
}

func TestTaskService_Create(t *testing.T) {
	t.Run("buy milk", func(t *testing.T) {
		client := new(MockClient)
		client.On("CreateRecord", mock.Anything, "task_c", apper.WriteParams{Records: []apper.Record{{
			"Name":           "Buy milk",
			"title_c":        "Buy milk",
			"description_c":  "",
			"priority_c":     "medium",
			"status_c":       "active",
			"completed_at_c": nil,
		}}}).Return(apper.WithResults([]apper.Result{{
			Success: true,
			Data:    apper.Record{"Id": float64(7), "title_c": "Buy milk", "CreatedOn": "2024-01-01T00:00:00Z"},
		}}), nil)

		svc, rec := newService(client, nil)
		task, err := svc.Create(context.Background(), model.TaskPatch{Title: model.String("Buy milk")})

		require.NoError(t, err)
		assert.Equal(t, model.Task{
			ID:          7,
			Title:       "Buy milk",
			Description: "",
			Priority:    "medium",
			Status:      "active",
			CompletedAt: nil,
			CreatedAt:   "2024-01-01T00:00:00Z",
			Files:       []files.Descriptor{},
		}, task)
		assert.Empty(t, rec.notices)
		client.AssertExpectations(t)
	})

	t.Run("per-record failure", func(t *testing.T) {
		client := new(MockClient)
		client.On("CreateRecord", mock.Anything, "task_c", mock.Anything).Return(apper.WithResults([]apper.Result{{
			Success: false,
			Errors: []apper.FieldError{
				{FieldLabel: "Title", Message: "is required"},
				{FieldLabel: "Priority", Message: "is invalid"},
			},
			Message: "Validation failed",
		}}), nil)

		svc, rec := newService(client, nil)
		_, err := svc.Create(context.Background(), model.TaskPatch{})

		assert.ErrorIs(t, err, ErrCreateFailed)
		assert.Equal(t, []string{"Title: is required", "Priority: is invalid", "Validation failed"}, rec.messages())
	})

	t.Run("envelope failure", func(t *testing.T) {
		client := new(MockClient)
		client.On("CreateRecord", mock.Anything, "task_c", mock.Anything).Return(apper.Failure("quota exceeded"), nil)

		svc, rec := newService(client, nil)
		_, err := svc.Create(context.Background(), model.TaskPatch{Title: model.String("x")})

		assert.ErrorIs(t, err, ErrRemote)
		assert.Contains(t, err.Error(), "quota exceeded")
		assert.Equal(t, []string{"quota exceeded"}, rec.messages())
	})

	t.Run("no results", func(t *testing.T) {
		client := new(MockClient)
		client.On("CreateRecord", mock.Anything, "task_c", mock.Anything).Return(&apper.Envelope{Success: true}, nil)

		svc, _ := newService(client, nil)
		_, err := svc.Create(context.Background(), model.TaskPatch{Title: model.String("x")})
		assert.ErrorIs(t, err, ErrCreateFailed)
	})

	t.Run("files are converted", func(t *testing.T) {
		client := new(MockClient)
		client.On("CreateRecord", mock.Anything, "task_c", mock.MatchedBy(func(p apper.WriteParams) bool {
			got, ok := p.Records[0]["files_c"].([]files.Descriptor)
			return ok && len(got) == 1 && got[0]["Name"] == "a.txt"
		})).Return(apper.WithResults([]apper.Result{{
			Success: true,
			Data:    apper.Record{"Id": float64(1), "files_c": []any{map[string]any{"Id": float64(10), "Name": "a.txt"}}},
		}}), nil)

		svc, rec := newService(client, files.NewKeyCaseConverter())
		task, err := svc.Create(context.Background(), model.TaskPatch{
			Title: model.String("with file"),
			Files: []files.Descriptor{{"name": "a.txt"}},
		})

		require.NoError(t, err)
		assert.Equal(t, []files.Descriptor{{"Id": float64(10), "Name": "a.txt"}}, task.Files)
		assert.Empty(t, rec.notices)
	})

	t.Run("file conversion failure falls back to original", func(t *testing.T) {
		original := []files.Descriptor{{"id": "tmp"}}
		client := new(MockClient)
		client.On("CreateRecord", mock.Anything, "task_c", mock.MatchedBy(func(p apper.WriteParams) bool {
			got, ok := p.Records[0]["files_c"].([]files.Descriptor)
			return ok && len(got) == 1 && got[0]["id"] == "tmp"
		})).Return(apper.WithResults([]apper.Result{{Success: true, Data: apper.Record{"Id": float64(2)}}}), nil)

		svc, rec := newService(client, files.NewKeyCaseConverter())
		task, err := svc.Create(context.Background(), model.TaskPatch{Title: model.String("x"), Files: original})

		require.NoError(t, err)
		assert.Equal(t, int64(2), task.ID)
		require.Len(t, rec.notices, 1)
		assert.Equal(t, notify.LevelWarning, rec.notices[0].Level)
		client.AssertExpectations(t)
	})

	t.Run("empty files are not sent", func(t *testing.T) {
		client := new(MockClient)
		client.On("CreateRecord", mock.Anything, "task_c", mock.MatchedBy(func(p apper.WriteParams) bool {
			return !p.Records[0].Has("files_c")
		})).Return(apper.WithResults([]apper.Result{{Success: true, Data: apper.Record{"Id": float64(3)}}}), nil)

		svc, _ := newService(client, files.NewKeyCaseConverter())
		_, err := svc.Create(context.Background(), model.TaskPatch{Title: model.String("x"), Files: []files.Descriptor{}})
		require.NoError(t, err)
		client.AssertExpectations(t)
	})
}

func TestTaskService_Update(t *testing.T) {
	t.Run("sends only present fields", func(t *testing.T) {
		client := new(MockClient)
		client.On("UpdateRecord", mock.Anything, "task_c", apper.WriteParams{Records: []apper.Record{{
			"Id":             int64(4),
			"status_c":       "completed",
			"completed_at_c": "2024-06-01T12:00:00Z",
		}}}).Return(apper.WithResults([]apper.Result{{
			Success: true,
			Data: apper.Record{
				"Id":             float64(4),
				"title_c":        "Pay rent",
				"status_c":       "completed",
				"completed_at_c": "2024-06-01T12:00:00Z",
			},
		}}), nil)

		svc, rec := newService(client, nil)
		task, err := svc.Update(context.Background(), 4, model.TaskPatch{
			Status:      model.String("completed"),
			CompletedAt: model.SetString("2024-06-01T12:00:00Z"),
		})

		require.NoError(t, err)
		assert.Equal(t, "Pay rent", task.Title)
		assert.Equal(t, "completed", task.Status)
		assert.Equal(t, "2024-06-01T12:00:00Z", *task.CompletedAt)
		assert.Empty(t, rec.notices)
		client.AssertExpectations(t)
	})

	t.Run("no successful result is not found", func(t *testing.T) {
		client := new(MockClient)
		client.On("UpdateRecord", mock.Anything, "task_c", mock.Anything).Return(apper.WithResults([]apper.Result{{
			Success: false,
			Message: "Record does not exist",
		}}), nil)

		svc, rec := newService(client, nil)
		_, err := svc.Update(context.Background(), 8, model.TaskPatch{Title: model.String("x")})

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, []string{"Record does not exist"}, rec.messages())
	})

	t.Run("envelope failure", func(t *testing.T) {
		client := new(MockClient)
		client.On("UpdateRecord", mock.Anything, "task_c", mock.Anything).Return(apper.Failure("x"), nil)

		svc, _ := newService(client, nil)
		_, err := svc.Update(context.Background(), 8, model.TaskPatch{})
		assert.ErrorIs(t, err, ErrRemote)
	})
}

func TestTaskService_Delete(t *testing.T) {
	tests := []struct {
		name        string
		env         *apper.Envelope
		err         error
		want        bool
		wantErr     error
		wantNotices []string
	}{
		{
			name: "success",
			env:  apper.WithResults([]apper.Result{{Success: true}}),
			want: true,
		},
		{
			name:        "envelope failure",
			env:         apper.Failure("x"),
			wantErr:     ErrRemote,
			wantNotices: []string{"x"},
		},
		{
			name:        "record failure",
			env:         apper.WithResults([]apper.Result{{Success: false, Message: "Record does not exist"}}),
			wantErr:     ErrNotFound,
			wantNotices: []string{"Record does not exist"},
		},
		{
			name:    "no results",
			env:     &apper.Envelope{Success: true},
			wantErr: ErrNotFound,
		},
		{
			name:    "transport error",
			err:     context.DeadlineExceeded,
			wantErr: context.DeadlineExceeded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(MockClient)
			client.On("DeleteRecord", mock.Anything, "task_c", apper.DeleteParams{RecordIds: []int64{7}}).Return(tt.env, tt.err)

			svc, rec := newService(client, nil)
			ok, err := svc.Delete(context.Background(), 7)

			assert.Equal(t, tt.want, ok)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			if tt.wantNotices == nil {
				assert.Empty(t, rec.notices)
			} else {
				assert.Equal(t, tt.wantNotices, rec.messages())
			}
			client.AssertExpectations(t)
		})
	}
}

func TestOpError(t *testing.T) {
	err := &OpError{Op: "update", ID: 3, Err: ErrRemote}
	assert.Equal(t, "update task 3: remote request failed", err.Error())

	err = &OpError{Op: "create", Message: "quota exceeded", Err: ErrRemote}
	assert.Equal(t, "create task: quota exceeded", err.Error())
	assert.True(t, errors.Is(err, ErrRemote))
}
