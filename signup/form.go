package signup

import (
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/nyaruka/phonenumbers"

	authclient "github.com/goliatone/go-auth-client"
)

// Form field names, they double as the input ids of the signup page
const (
	FieldFirstName       = "first_name"
	FieldLastName        = "last_name"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldPasswordConfirm = "password_confirm"
	FieldPhone           = "phone"
	FieldTerms           = "terms"
)

// DefaultPhoneRegion is used to parse numbers written without a country code
const DefaultPhoneRegion = "US"

// Form is what the visitor typed
type Form struct {
	FirstName       string
	LastName        string
	Email           string
	Password        string
	PasswordConfirm string
	Phone           string
	TermsRequired   bool
	TermsAccepted   bool
}

var errPasswordMismatch = validation.NewError("validation_password_mismatch", "Passwords do not match")

type rule struct {
	field string
	value any
	rules []validation.Rule
}

// Validate checks the form rules in page order and stops at the first
// failure. On success it returns the trimmed fields ready to submit, with
// the phone number in E.164 form.
func (f Form) Validate(minPasswordLength int) (authclient.SignupFields, *authclient.Failure) {
	fields := authclient.SignupFields{
		FirstName: strings.TrimSpace(f.FirstName),
		LastName:  strings.TrimSpace(f.LastName),
		Email:     strings.TrimSpace(f.Email),
		Password:  f.Password,
	}

	checks := []rule{
		{FieldFirstName, fields.FirstName, []validation.Rule{validation.Required.Error("First name is required")}},
		{FieldLastName, fields.LastName, []validation.Rule{validation.Required.Error("Last name is required")}},
		{FieldEmail, fields.Email, []validation.Rule{
			validation.Required.Error("Email is required"),
			is.EmailFormat.Error("Please enter a valid email address"),
		}},
		{FieldPassword, fields.Password, []validation.Rule{
			validation.Required.Error("Password is required"),
			validation.RuneLength(minPasswordLength, 0).
				Error(fmt.Sprintf("Password must be at least %d characters", minPasswordLength)),
		}},
		{FieldPasswordConfirm, f.PasswordConfirm, []validation.Rule{
			validation.By(func(v any) error {
				if v.(string) != fields.Password {
					return errPasswordMismatch
				}
				return nil
			}),
		}},
		{FieldTerms, f.TermsAccepted, []validation.Rule{
			validation.When(f.TermsRequired, validation.Required.Error("Please agree to the Terms of Service")),
		}},
	}

	for _, c := range checks {
		if err := validation.Validate(c.value, c.rules...); err != nil {
			return fields, fieldFailure(c.field, err.Error())
		}
	}

	phone, err := NormalizePhone(f.Phone)
	if err != nil {
		return fields, fieldFailure(FieldPhone, "Please enter a valid phone number")
	}
	fields.Phone = phone
	return fields, nil
}

// NormalizePhone returns raw in E.164 form. An empty input is allowed and
// stays empty.
func NormalizePhone(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := phonenumbers.Parse(raw, DefaultPhoneRegion)
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func fieldFailure(field, message string) *authclient.Failure {
	return &authclient.Failure{
		Kind:    authclient.KindValidation,
		Message: message,
		Code:    authclient.TextCodeValidation,
		Fields:  map[string]string{field: message},
	}
}
