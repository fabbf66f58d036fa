package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/pkg/api"
)

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.Equal(t, "http://localhost:8080", client.baseURL)
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)

	client = NewClient("http://localhost:8080", WithTimeout(5*time.Second), WithToken("tkn"))
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
	assert.Equal(t, "tkn", client.token)
}

// TestClient_Push проверяет отправку снимка
func TestClient_Push(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sync", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body api.Snapshot
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `[{"id":"o1"}]`, string(body["orders"]))

		_ = json.NewEncoder(w).Encode(api.PushResponse{Accepted: []string{"orders"}, Timestamp: "3"})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithToken("secret"))
	resp, err := client.Push(context.Background(), api.Snapshot{"orders": json.RawMessage(`[{"id":"o1"}]`)})

	require.NoError(t, err)
	assert.Equal(t, []string{"orders"}, resp.Accepted)
	assert.Equal(t, "3", resp.Timestamp)
}

// TestClient_Push_EmptyAck проверяет, что пустое тело 200 считается подтверждением
func TestClient_Push_EmptyAck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Push(context.Background(), api.Snapshot{})
	require.NoError(t, err)
	assert.NotNil(t, resp)
}

// TestClient_Errors проверяет обработку ошибочных ответов
func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name           string
		statusCode     int
		body           string
		expectedErrMsg string
	}{
		{
			name:           "json error body",
			statusCode:     http.StatusBadRequest,
			body:           `{"error":"unknown sync key"}`,
			expectedErrMsg: "server error (400): unknown sync key",
		},
		{
			name:           "plain text body",
			statusCode:     http.StatusInternalServerError,
			body:           "Internal Server Error",
			expectedErrMsg: "request failed with status 500",
		},
		{
			name:           "created is not success",
			statusCode:     http.StatusCreated,
			body:           `{}`,
			expectedErrMsg: "request failed with status 201",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := NewClient(server.URL).Push(context.Background(), api.Snapshot{})
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Contains(t, err.Error(), tt.expectedErrMsg)
		})
	}
}

// TestClient_Snapshot проверяет получение полного снимка
func TestClient_Snapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/sync", r.URL.Path)
		_, _ = w.Write([]byte(`{"stock":{"rose":4},"orders":[]}`))
	}))
	defer server.Close()

	snapshot, err := NewClient(server.URL).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snapshot, 2)
	assert.JSONEq(t, `{"rose":4}`, string(snapshot["stock"]))
}

// TestClient_PullSince проверяет инкрементальное получение изменений
func TestClient_PullSince(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/pull", r.URL.Path)
		if r.URL.Query().Get("since") == "7" {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"messages":[]},"timestamp":"7"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.PullSince(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "7", resp.Timestamp)
	assert.Contains(t, resp.Data, "messages")

	resp, err = client.PullSince(context.Background(), "7")
	assert.ErrorIs(t, err, ErrNotModified)
	assert.Nil(t, resp)
}

// TestClient_Timeout проверяет, что зависший запрос завершается по таймауту
func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	_, err := client.PullSince(context.Background(), "1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotModified)
}

// TestClient_Unreachable проверяет ошибку сети
func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url).Snapshot(context.Background())
	assert.Error(t, err)
}

// TestClient_PullSince_InvalidCursor проверяет, что 400 на курсор отличается от прочих ошибок
func TestClient_PullSince_InvalidCursor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("since") != "" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid since parameter"}`))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	_, err := client.PullSince(context.Background(), "2026-01-01T10:00:00Z")
	require.ErrorIs(t, err, ErrInvalidCursor)
	assert.Contains(t, err.Error(), "invalid since parameter")

	_, err = client.PullSince(context.Background(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCursor)
}
