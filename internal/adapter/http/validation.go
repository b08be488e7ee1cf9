package http

import (
	"errors"
	"reflect"
	"strings"
	"time"

	domain "timeaway-backend/internal/domain/request"

	"github.com/go-playground/validator/v10"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// report json names, not Go field names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// calendar date, MM/DD/YYYY; month and day may be unpadded
	_ = v.RegisterValidation("mmddyyyy", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDate(fl.Field().String(), time.UTC)
		return err == nil
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseStatus(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("charge", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseChargeAgainst(fl.Field().String())
		return err == nil
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "mmddyyyy":
			out = append(out, FieldError{Field: field, Message: "must be a date in MM/DD/YYYY format"})
		case "status":
			out = append(out, FieldError{Field: field, Message: "must be one of " + joinNames(domain.Statuses)})
		case "charge":
			out = append(out, FieldError{Field: field, Message: "must be one of " + joinNames(domain.ChargeCategories)})
		case "max":
			out = append(out, FieldError{Field: field, Message: "must be at most " + e.Param() + " characters"})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}

func joinNames[T ~string](vs []T) string {
	s := make([]string, len(vs))
	for i, v := range vs {
		s[i] = string(v)
	}
	return strings.Join(s, ", ")
}
