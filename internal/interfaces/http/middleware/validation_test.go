package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insurance/payplan/internal/interfaces/http/dto"
)

type amountRequest struct {
	Amount   decimal.Decimal  `json:"amount" binding:"brl_amount"`
	Optional *decimal.Decimal `json:"optional" binding:"omitempty,brl_amount"`
	Method   string           `json:"payment_method" binding:"required,oneof=boleto cartao_credito"`
}

func newValidationRouter(t *testing.T) *gin.Engine {
	t.Helper()
	require.NoError(t, SetupValidator())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req amountRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(req.Amount.String()))
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBRLAmountValidation(t *testing.T) {
	router := newValidationRouter(t)

	t.Run("accepts string and number amounts", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, postJSON(router, `{"amount":"1234.56","payment_method":"boleto"}`).Code)
		assert.Equal(t, http.StatusOK, postJSON(router, `{"amount":0,"payment_method":"boleto"}`).Code)
	})

	t.Run("rejects negative amounts with field details", func(t *testing.T) {
		w := postJSON(router, `{"amount":"-1","payment_method":"boleto"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "req-42", resp.Error.RequestID)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "amount", resp.Error.Details[0].Field)
	})

	t.Run("validates optional pointers only when set", func(t *testing.T) {
		w := postJSON(router, `{"amount":"10","optional":"-5","payment_method":"boleto"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "optional", resp.Error.Details[0].Field)
	})

	t.Run("rejects absurd magnitudes", func(t *testing.T) {
		w := postJSON(router, `{"amount":"100000000000000000","payment_method":"boleto"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter(t)

	t.Run("uses json field names", func(t *testing.T) {
		w := postJSON(router, `{"amount":"1","payment_method":"pix"}`)
		resp := decodeResponse(t, w)
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "payment_method", resp.Error.Details[0].Field)
		assert.Equal(t, "Must be one of: boleto cartao_credito", resp.Error.Details[0].Message)
	})

	t.Run("malformed JSON is not a validation error", func(t *testing.T) {
		w := postJSON(router, `{"amount":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
		assert.Empty(t, resp.Error.Details)
	})
}
