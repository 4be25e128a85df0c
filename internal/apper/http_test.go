package apper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewHTTPClient(context.Background(), HTTPConfig{
		BaseURL:   srv.URL + "/",
		ProjectID: "proj-1",
		PublicKey: "pk-123",
	}, zap.NewNop())
}

func TestHTTPClient_FetchRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/proj-1/tables/task_c/records/fetch", r.URL.Path)
		assert.Equal(t, "Bearer pk-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var params FetchParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, []string{"Name", "title_c"}, params.Names())
		assert.Equal(t, []OrderBy{{FieldName: "CreatedOn", SortType: SortDesc}}, params.OrderBy)

		w.Write([]byte(`{"success":true,"data":[{"Id":1,"title_c":"a"},{"Id":2,"title_c":"b"}]}`))
	})

	env, err := client.FetchRecords(context.Background(), "task_c", FetchParams{
		Fields:  Fields("Name", "title_c"),
		OrderBy: []OrderBy{{FieldName: "CreatedOn", SortType: SortDesc}},
	})
	require.NoError(t, err)
	assert.True(t, env.Success)

	records, err := env.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(2), records[1].Int64("Id"))
	assert.Equal(t, "a", records[0].String("title_c"))
}

func TestHTTPClient_GetRecordByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/proj-1/tables/task_c/records/42", r.URL.Path)
		assert.Equal(t, "Name,title_c", r.URL.Query().Get("fields"))
		w.Write([]byte(`{"success":true,"data":{"Id":42,"title_c":"x"}}`))
	})

	env, err := client.GetRecordByID(context.Background(), "task_c", 42, FetchParams{Fields: Fields("Name", "title_c")})
	require.NoError(t, err)

	rec, err := env.Record()
	require.NoError(t, err)
	assert.Equal(t, int64(42), rec.Int64("Id"))
}

func TestHTTPClient_WriteCalls(t *testing.T) {
	tests := []struct {
		name       string
		wantMethod string
		call       func(c *HTTPClient) (*Envelope, error)
		checkBody  func(t *testing.T, body map[string]any)
	}{
		{
			name:       "create",
			wantMethod: http.MethodPost,
			call: func(c *HTTPClient) (*Envelope, error) {
				return c.CreateRecord(context.Background(), "task_c", WriteParams{Records: []Record{{"title_c": "a"}}})
			},
			checkBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{map[string]any{"title_c": "a"}}, body["records"])
			},
		},
		{
			name:       "update",
			wantMethod: http.MethodPut,
			call: func(c *HTTPClient) (*Envelope, error) {
				return c.UpdateRecord(context.Background(), "task_c", WriteParams{Records: []Record{{"Id": 3, "status_c": "completed"}}})
			},
			checkBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{map[string]any{"Id": float64(3), "status_c": "completed"}}, body["records"])
			},
		},
		{
			name:       "delete",
			wantMethod: http.MethodDelete,
			call: func(c *HTTPClient) (*Envelope, error) {
				return c.DeleteRecord(context.Background(), "task_c", DeleteParams{RecordIds: []int64{9}})
			},
			checkBody: func(t *testing.T, body map[string]any) {
				assert.Equal(t, []any{float64(9)}, body["RecordIds"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantMethod, r.Method)
				assert.Equal(t, "/api/v1/proj-1/tables/task_c/records", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				tt.checkBody(t, body)

				w.Write([]byte(`{"success":true,"results":[{"success":true,"data":{"Id":1}}]}`))
			})

			env, err := tt.call(client)
			require.NoError(t, err)
			ok, failed := env.Split()
			assert.Len(t, ok, 1)
			assert.Empty(t, failed)
		})
	}
}

func TestHTTPClient_Failures(t *testing.T) {
	t.Run("envelope failure with error status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"Invalid table"}`))
		})

		env, err := client.FetchRecords(context.Background(), "nope", FetchParams{})
		require.NoError(t, err)
		assert.False(t, env.Success)
		assert.Equal(t, "Invalid table", env.Message)
	})

	t.Run("non-json error status", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})

		_, err := client.DeleteRecord(context.Background(), "task_c", DeleteParams{RecordIds: []int64{1}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unexpected status 502")
	})

	t.Run("malformed success body", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`not json`))
		})

		_, err := client.CreateRecord(context.Background(), "task_c", WriteParams{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode envelope")
	})

	t.Run("cancelled context", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true}`))
		})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.UpdateRecord(ctx, "task_c", WriteParams{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestHTTPClient_NoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	client := NewHTTPClient(context.Background(), HTTPConfig{BaseURL: srv.URL, ProjectID: "p"}, zap.NewNop())
	env, err := client.FetchRecords(context.Background(), "task_c", FetchParams{})
	require.NoError(t, err)

	records, err := env.Records()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestHTTPClient_LargeIDsInResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"results":[{"success":true,"data":{"Id":9007199254740993}}]}`))
	})

	env, err := client.CreateRecord(context.Background(), "task_c", WriteParams{Records: []Record{{"title_c": "a"}}})
	require.NoError(t, err)
	ok, _ := env.Split()
	require.Len(t, ok, 1)
	assert.Equal(t, int64(9007199254740993), ok[0].Data.Int64("Id"))
}

func TestHTTPClient_ClientCredentials(t *testing.T) {
	var tokenRequests int
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		tokenRequests++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))

		user, pass, ok := r.BasicAuth()
		if ok {
			assert.Equal(t, "client-1", user)
			assert.Equal(t, "secret-1", pass)
		} else {
			assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"t","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/api/v1/proj-1/tables/task_c/records/fetch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		w.Write([]byte(`{"success":true,"data":[]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPClient(context.Background(), HTTPConfig{
		BaseURL:      srv.URL,
		ProjectID:    "proj-1",
		PublicKey:    "ignored-when-client-credentials-set",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		TokenURL:     srv.URL + "/oauth/token",
	}, zap.NewNop())

	for i := 0; i < 2; i++ {
		env, err := client.FetchRecords(context.Background(), "task_c", FetchParams{})
		require.NoError(t, err)
		assert.True(t, env.Success)
	}
	assert.Equal(t, 1, tokenRequests, "token is cached between calls")
}

func TestHTTPClient_TokenEndpointFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_client"}`, http.StatusUnauthorized)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("records endpoint must not be called without a token: %s", r.URL.Path)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewHTTPClient(context.Background(), HTTPConfig{
		BaseURL:      srv.URL,
		ProjectID:    "proj-1",
		ClientID:     "client-1",
		ClientSecret: "wrong",
		TokenURL:     srv.URL + "/oauth/token",
	}, zap.NewNop())

	_, err := client.FetchRecords(context.Background(), "task_c", FetchParams{})
	require.Error(t, err)
}
