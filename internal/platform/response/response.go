// Package response writes the JSON bodies returned by every handler.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
)

// ErrorBody is the JSON shape of every failed request.
type ErrorBody struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Success writes a 200 response.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Created writes a 201 response.
func Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// Error maps err to its HTTP status. Errors that are not *apperror.AppError become 500s.
func Error(c *gin.Context, err error) {
	appErr, ok := apperror.As(err)
	if !ok {
		appErr = apperror.NewInternalError("internal server error", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.HTTPStatus, ErrorBody{
		Message: appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}
