package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/repoflow/backend/internal/interfaces/http/dto"
)

var validatorOnce sync.Once

// SetupValidator makes gin's validator name fields by their json tag, so
// error details say "title" rather than "Title". Safe to call repeatedly.
func SetupValidator() {
	validatorOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return ""
		})
	})
}

// IsValidationError reports whether err came from binding tags.
func IsValidationError(err error) bool {
	var ve validator.ValidationErrors
	return errors.As(err, &ve)
}

// HandleValidationError answers 422 with one detail per rejected field.
func HandleValidationError(c *gin.Context, err error) {
	var details []dto.ValidationDetail
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		details = make([]dto.ValidationDetail, 0, len(ve))
		for _, fe := range ve {
			details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: fieldMessage(fe), Tag: fe.Tag()})
		}
	}
	c.JSON(http.StatusUnprocessableEntity,
		dto.NewValidationErrorResponse("Request validation failed", GetRequestID(c), details))
}

// tag -> message; %s is the tag parameter
var tagMessages = map[string]string{
	"required": "This field is required",
	"min":      "Must be at least %s",
	"max":      "Must be at most %s",
	"gte":      "Must be greater than or equal to %s",
	"gt":       "Must be greater than %s",
	"numeric":  "Must be numeric",
}

func fieldMessage(fe validator.FieldError) string {
	format, ok := tagMessages[fe.Tag()]
	if !ok {
		return "Invalid value"
	}
	if !strings.Contains(format, "%s") {
		return format
	}
	msg := fmt.Sprintf(format, fe.Param())
	if fe.Kind() == reflect.String && (fe.Tag() == "min" || fe.Tag() == "max") {
		msg += " characters"
	}
	return msg
}
