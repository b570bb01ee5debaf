package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance/payplan/internal/domain/payplan"
	"github.com/insurance/payplan/internal/domain/shared"
	"github.com/insurance/payplan/internal/interfaces/http/dto"
	"github.com/insurance/payplan/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newBaseContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/", nil)
	c.Set(middleware.RequestIDKey, "req-base")
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	h := &BaseHandler{}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"store unavailable", payplan.StoreUnavailable("load record", errors.New("dial tcp")), http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
		{"validation failed", payplan.ValidationFailed("A schedule needs at least one installment"), http.StatusUnprocessableEntity, "VALIDATION_FAILED"},
		{"partial write", payplan.PartialWriteFailure(errors.New("2 rows")), http.StatusInternalServerError, "PARTIAL_WRITE_FAILURE"},
		{"wrapped domain error", fmt.Errorf("service: %w", shared.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newBaseContext()
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeBody(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
			assert.Equal(t, "req-base", resp.Error.RequestID)
			assert.Len(t, c.Errors, 1)
		})
	}
}

func TestBaseHandler_HandleErrorHidesInternalMessages(t *testing.T) {
	h := &BaseHandler{}
	c, w := newBaseContext()

	h.HandleError(c, errors.New("pq: password authentication failed"))

	resp := decodeBody(t, w)
	assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	c, w := newBaseContext()

	h.HandleError(c, nil)

	assert.False(t, c.Writer.Written())
	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_HandleErrorWithData(t *testing.T) {
	h := &BaseHandler{}
	c, w := newBaseContext()

	h.HandleErrorWithData(c, payplan.StoreUnavailable("toggle installment", errors.New("timeout")), gin.H{"status": "pending"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, map[string]any{"status": "pending"}, resp.Data)
	assert.Equal(t, "STORE_UNAVAILABLE", resp.Error.Code)
}

func TestBaseHandler_Responses(t *testing.T) {
	h := &BaseHandler{}

	t.Run("success", func(t *testing.T) {
		c, w := newBaseContext()
		h.Success(c, gin.H{"ok": true})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, decodeBody(t, w).Success)
	})

	t.Run("created", func(t *testing.T) {
		c, w := newBaseContext()
		h.Created(c, gin.H{"id": 1})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("bad request", func(t *testing.T) {
		c, w := newBaseContext()
		h.BadRequest(c, "nope")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeBody(t, w).Error.Code)
	})

	t.Run("confirmation required", func(t *testing.T) {
		c, w := newBaseContext()
		h.ConfirmationRequired(c, "confirm first")
		assert.Equal(t, http.StatusPreconditionRequired, w.Code)
		assert.Equal(t, dto.ErrCodeConfirmationRequired, decodeBody(t, w).Error.Code)
	})
}
