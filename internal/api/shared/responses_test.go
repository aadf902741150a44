package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithLogger(t *testing.T) (*http.Request, *logger.TestLogBuffer) {
	t.Helper()
	l, buf := logger.NewTestLogger()
	ctx := logger.WithLogger(SetTraceID(context.Background()), l)
	return httptest.NewRequest(http.MethodGet, "/api/tasks", nil).WithContext(ctx), buf
}

func TestRespondWithJSON(t *testing.T) {
	r, _ := requestWithLogger(t)
	w := httptest.NewRecorder()

	RespondWithJSON(w, r, http.StatusCreated, map[string]any{"id": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestRespondWithJSON_EncodingError(t *testing.T) {
	r, buf := requestWithLogger(t)
	w := httptest.NewRecorder()

	RespondWithJSON(w, r, http.StatusOK, map[string]any{"bad": make(chan int)})

	assert.Contains(t, buf.String(), "failed to encode JSON response")
}

func TestRespondWithError(t *testing.T) {
	r, _ := requestWithLogger(t)
	w := httptest.NewRecorder()

	RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request format", resp.Error)
	assert.Equal(t, GetTraceID(r.Context()), resp.TraceID)
	assert.NotContains(t, w.Body.String(), `"Code"`)
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		opts      []ResponseOption
		wantLevel string
	}{
		{"server error", http.StatusInternalServerError, nil, "ERROR"},
		{"client error", http.StatusNotFound, nil, "DEBUG"},
		{"rate limited", http.StatusTooManyRequests, nil, "WARN"},
		{"elevated client error", http.StatusUnauthorized, []ResponseOption{WithElevatedLogLevel()}, "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := requestWithLogger(t)
			w := httptest.NewRecorder()
			err := errors.New("connect postgres://app:hunter22@db:5432/taskflow failed")

			RespondWithErrorAndLog(w, r, tt.status, "Something went wrong", err, tt.opts...)

			assert.Equal(t, tt.status, w.Code)
			assert.NotContains(t, w.Body.String(), "postgres")

			entries, parseErr := buf.Entries()
			require.NoError(t, parseErr)
			require.NotEmpty(t, entries)
			last := entries[len(entries)-1]
			assert.Equal(t, tt.wantLevel, last["level"])
			assert.Equal(t, "API error response", last["msg"])
			assert.NotContains(t, last["error"], "hunter22")
		})
	}
}

func TestErrorLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, errorLogLevel(http.StatusOK, true))
	assert.Equal(t, slog.LevelWarn, errorLogLevel(http.StatusForbidden, true))
	assert.Equal(t, slog.LevelError, errorLogLevel(http.StatusBadGateway, false))
}
