package authclient

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

func validateEmail(field, value string) error {
	return invalidArgument(field, validation.Validate(value, validation.Required, is.Email))
}

func validateRequired(field, value string) error {
	return invalidArgument(field, validation.Validate(value, validation.Required))
}

func validateID(field string, id int64) error {
	return invalidArgument(field, validation.Validate(id, validation.Required, validation.Min(int64(1))))
}

// validateOneOf rejects values outside allowed. Empty values are rejected too.
func validateOneOf[T ~string](field string, value T, allowed ...T) error {
	elements := make([]any, len(allowed))
	for i, a := range allowed {
		elements[i] = string(a)
	}
	return invalidArgument(field, validation.Validate(string(value),
		validation.Required,
		validation.In(elements...).Error("must be one of the supported values"),
	))
}

// firstError returns the first non nil error
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
