package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/insurance/payplan/internal/domain/shared"
	"github.com/insurance/payplan/internal/infrastructure/logger"
	"github.com/insurance/payplan/internal/interfaces/http/dto"
	"github.com/insurance/payplan/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ConfirmationRequired rejects a destructive call sent without confirm=true
func (h *BaseHandler) ConfirmationRequired(c *gin.Context, message string) {
	h.Error(c, http.StatusPreconditionRequired, dto.ErrCodeConfirmationRequired, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts domain errors to HTTP responses. Anything that is not
// a DomainError is logged and hidden behind a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.HandleErrorWithData(c, err, nil)
}

// HandleErrorWithData is HandleError with a data payload kept in the envelope,
// used when a failed operation still has a meaningful entity to show.
func (h *BaseHandler) HandleErrorWithData(c *gin.Context, err error, data any) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var resp dto.Response
	status := http.StatusInternalServerError

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status = dto.GetHTTPStatus(domainErr.Code)
		resp = dto.NewErrorResponseWithRequestID(domainErr.Code, domainErr.Message, middleware.GetRequestID(c))
	} else {
		logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
		resp = dto.NewErrorResponseWithRequestID(dto.ErrCodeInternal, "An unexpected error occurred", middleware.GetRequestID(c))
	}
	resp.Data = data
	c.JSON(status, resp)
}
