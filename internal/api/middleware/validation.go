package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"voxledger/internal/api/errors"
)

// ValidateJSON binds the body and translates struct-tag failures into
// the field map clients see.
func ValidateJSON(c *gin.Context, req interface{}) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return errors.NewValidationError("validation failed", fieldErrors(err))
	}
	return nil
}

// ValidateForm binds multipart/form fields the same way.
func ValidateForm(c *gin.Context, req interface{}) error {
	if err := c.ShouldBind(req); err != nil {
		return errors.NewValidationError("validation failed", fieldErrors(err))
	}
	return nil
}

func fieldErrors(err error) map[string]string {
	fields := make(map[string]string)
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		fields["request"] = "malformed request body"
		return fields
	}

	for _, fieldError := range validationErrs {
		field := strings.ToLower(fieldError.Field())
		switch fieldError.Tag() {
		case "required":
			fields[field] = "is required"
		case "email":
			fields[field] = "must be a valid email"
		case "oneof":
			fields[field] = "must be one of the allowed values"
		case "min":
			fields[field] = "is too small"
		case "max":
			fields[field] = "is too large"
		default:
			fields[field] = "is invalid"
		}
	}
	return fields
}
