package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collectdash/internal/shared/testutil"
)

type loginForm struct {
	Username string `validate:"required"`
	Role     string `validate:"oneof=agent admin superadmin"`
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestErrorHandler_HandleError(t *testing.T) {
	verr := validator.New().Struct(loginForm{Role: "guest"})
	require.Error(t, verr)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantDetail string
	}{
		{
			name:       "deadline exceeded",
			err:        context.DeadlineExceeded,
			wantStatus: http.StatusGatewayTimeout,
			wantType:   TypeTimeout,
		},
		{
			name:       "wrapped empty data",
			err:        fmt.Errorf("snapshot: %w", ErrEmptyData),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDataEmpty,
			wantDetail: "No collections data available",
		},
		{
			name:       "api not found",
			err:        NotFoundError("message"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "bad credentials",
			err:        ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantType:   TypeUnauthorized,
		},
		{
			name:       "validator errors",
			err:        verr,
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "app data error",
			err:        NewDataError("no agent batches produced records", nil),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeDataEmpty,
			wantDetail: "no agent batches produced records",
		},
		{
			name:       "app permission error",
			err:        &AppError{Type: ErrTypePermission, Message: "admins only"},
			wantStatus: http.StatusForbidden,
			wantType:   TypeForbidden,
		},
		{
			name:       "app storage error hides cause",
			err:        NewStorageError("redis write", fmt.Errorf("secret host down")),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
			wantDetail: "An unexpected error occurred while processing your request",
		},
		{
			name:       "app network error",
			err:        NewNetworkError("collections source unavailable", fmt.Errorf("dial tcp: refused")),
			wantStatus: http.StatusBadGateway,
			wantType:   TypeSourceUnavailable,
			wantDetail: "collections source unavailable",
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, _ := testutil.NewTestLogger(t)
			h := NewErrorHandler(logger, false)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/dashboard", body["instance"])
			assert.NotContains(t, body, "stack")
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, body["detail"])
			}
		})
	}
}

func TestErrorHandler_HandleError_Nil(t *testing.T) {
	h := NewErrorHandler(nil, false)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Zero(t, rec.Body.Len())
}

func TestErrorHandler_LogLevel(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, true)

	h.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil), ErrForbidden)
	h.HandleError(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil), fmt.Errorf("boom"))

	assert.Len(t, handler.GetRecordsByLevel(slog.LevelWarn), 1)
	assert.Len(t, handler.GetRecordsByLevel(slog.LevelError), 1)
}

func TestErrorHandler_IncludeStack(t *testing.T) {
	h := NewErrorHandler(nil, true)
	rec := httptest.NewRecorder()
	h.HandleError(rec, httptest.NewRequest(http.MethodGet, "/", nil), fmt.Errorf("boom"))
	assert.Contains(t, decodeProblem(t, rec), "stack")
}

func TestErrorHandler_HandlePanic(t *testing.T) {
	logger, handler := testutil.NewTestLogger(t)
	h := NewErrorHandler(logger, false)

	rec := httptest.NewRecorder()
	h.HandlePanic(rec, httptest.NewRequest(http.MethodPost, "/api/chat/messages", nil), "nil map")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, body["type"])
	assert.NotContains(t, body, "panic")
	testutil.AssertLogContains(t, handler, slog.LevelError, "panic recovered")
}

func TestErrorHandler_NotFoundAndMethod(t *testing.T) {
	h := NewErrorHandler(nil, false)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, TypeNotFound, decodeProblem(t, rec)["type"])

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodPut, "/api/dashboard", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "PUT")
}
