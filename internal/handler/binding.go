package handler

import (
	"encoding/json"
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/hallbook/service-reservation/internal/platform/apperror"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their JSON name.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// bindJSON decodes and validates the request body into req.
func bindJSON(c *gin.Context, req any) error {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make(map[string]any, len(validationErrs))
		for _, fe := range validationErrs {
			if fe.Tag() == "required" {
				details[fe.Field()] = "is required"
				continue
			}
			details[fe.Field()] = "failed " + fe.Tag() + " validation"
		}
		return apperror.NewValidationError("Missing required fields").WithDetails(details)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return apperror.NewValidationError("Invalid request body").
			WithDetails(map[string]any{typeErr.Field: "must be a " + typeErr.Type.String()})
	}
	return apperror.NewValidationError("Invalid request body").
		WithDetails(map[string]any{"body": err.Error()})
}

// parseRoomID reads the :id path parameter.
func parseRoomID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewValidationError("Invalid room ID").
			WithDetails(map[string]any{"id": c.Param("id")})
	}
	return id, nil
}
