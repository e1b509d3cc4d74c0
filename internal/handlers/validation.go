package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Global validator instance (reused across all handlers)
var validate = validator.New()

// LoginForm represents the sign-in form submission
type LoginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// CodeForm represents a one-time code submission
type CodeForm struct {
	Code string `validate:"required,len=6,numeric"`
}

// ValidateForm validates a form struct using go-playground/validator and
// returns a user-friendly message for the first failing field
func ValidateForm(form interface{}) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return fmt.Errorf("%s: %s", ve[0].Field(), formatValidationError(ve[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "numeric":
		return "must contain only digits"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
