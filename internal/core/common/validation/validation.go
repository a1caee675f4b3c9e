package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/frahmantamala/rbac-api/internal"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// report json field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		_, err := NormalizePhone(fl.Field().String())
		return err == nil
	})

	return v
}

// Struct validates dto against its `validate` tags. The returned error is an
// *internal.AppError with one entry per failing field, or nil.
func Struct(dto interface{}) error {
	err := validate.Struct(dto)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	out := make([]internal.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, internal.ValidationError{
			Field:   fe.Field(),
			Message: messageFor(fe, fe.Field()),
			Code:    strings.ToUpper(fe.Tag()),
		})
	}
	return internal.NewValidationFieldErrors(out)
}

// Var validates a single value with a tag expression, reporting it under field.
func Var(field string, value interface{}, tag string) error {
	if err := validate.Var(value, tag); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return internal.NewValidationFieldError(field, messageFor(fe, field), internal.ErrorCode(strings.ToUpper(fe.Tag())))
		}
		return internal.NewValidationFieldError(field, err.Error(), internal.ErrCodeValidationFailed)
	}
	return nil
}

func messageFor(fe validator.FieldError, field string) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", field, fe.Param())
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "phone":
		return "Phone number must be between 10 and 15 digits"
	}
	return fmt.Sprintf("%s is invalid", field)
}

// NormalizePhone strips everything but digits and returns "+<digits>".
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", errors.New("phone number must be between 10 and 15 digits")
	}
	return "+" + digits, nil
}
