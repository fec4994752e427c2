package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/repoflow/backend/internal/domain/shared"
	"github.com/repoflow/backend/internal/infrastructure/logger"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
	"github.com/repoflow/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler holds the response helpers shared by every handler. Success
// bodies are written bare; failures use the dto error envelope.
type BaseHandler struct{}

func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail writes the error envelope for code, API or domain, with the
// status that code maps to.
func (h *BaseHandler) Fail(c *gin.Context, code, message string) {
	code = dto.NormalizeErrorCode(code)
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BindJSON decodes the body into obj. On failure it has already answered
// the request and returns false: 422 for binding-tag violations, 413 for an
// oversized body, 400 for anything that is not the expected JSON.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return true
	case middleware.IsValidationError(err):
		middleware.HandleValidationError(c, err)
	case errors.As(err, &tooLarge):
		h.Fail(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
	case errors.Is(err, io.EOF):
		h.Fail(c, dto.ErrCodeInvalidJSON, "Request body is required")
	default:
		h.Fail(c, dto.ErrCodeInvalidJSON, "Invalid JSON: "+err.Error())
	}
	return false
}

// HandleError maps domain errors onto their codes. Anything else is logged
// and reported as a bare 500 so storage details stay server side.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		h.Fail(c, de.Code, de.Message)
		return
	}

	logger.FromContext(c.Request.Context()).Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	_ = c.Error(err)
	h.Fail(c, dto.ErrCodeInternal, "An unexpected error occurred")
}
