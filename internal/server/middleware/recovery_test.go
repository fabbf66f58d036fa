package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/petalsync/pkg/api"
)

func TestRecoveryMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		panic any
	}{
		{name: "string panic", panic: "boom"},
		{name: "error panic", panic: errors.New("storage exploded")},
		{name: "struct panic", panic: struct{ code int }{code: 7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := setupTestLogger()
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				panic(tt.panic)
			})

			rec := httptest.NewRecorder()
			require.NotPanics(t, func() {
				RecoveryMiddleware(logger)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
			})

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var resp api.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, "internal server error", resp.Error)

			assert.Contains(t, buf.String(), "Panic recovered")
			assert.Contains(t, buf.String(), "stack")
		})
	}
}

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	logger, buf := setupTestLogger()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	RecoveryMiddleware(logger)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, buf.String())
}

func TestRecoveryMiddleware_AbortHandler(t *testing.T) {
	logger, _ := setupTestLogger()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		RecoveryMiddleware(logger)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sync", nil))
	})
}
