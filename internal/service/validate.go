package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/joshijoe05/records-backend/internal/apperror"
)

// validate is safe for concurrent use and caches struct metadata, so one
// instance serves the whole package.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names, which is what clients sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks the `validate` tags of in and turns the first failure
// into an apperror.ValidationFailed for that field.
func validateInput(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("service: validating %T: %w", in, err)
	}

	fe := fieldErrs[0]
	return apperror.ValidationFailed(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "url":
		return fmt.Sprintf("%s must be a valid url", fe.Field())
	case "min":
		return fmt.Sprintf("%s length must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s length must be less than or equal to %s characters long", fe.Field(), fe.Param())
	case "dive":
		return fmt.Sprintf("%s contains an invalid value", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// normalizeEmail lower-cases and trims an address so lookups and the unique
// index agree on one spelling.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
