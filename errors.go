package authclient

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// CategoryConfiguration marks failures caused by missing or invalid
// client configuration.
const CategoryConfiguration goerrors.Category = "configuration"

const (
	TextCodeUnknown            = "UNKNOWN_ERROR"
	TextCodeNetwork            = "NETWORK_ERROR"
	TextCodeInvalidResponse    = "INVALID_RESPONSE"
	TextCodeNotAuthenticated   = "NOT_AUTHENTICATED"
	TextCodeMissingConfig      = "MISSING_CONFIGURATION"
	TextCodeValidation         = "VALIDATION_ERROR"
	TextCodeSignupDisabled     = "SIGNUP_WITHOUT_INVITE_DISABLED"
	textCodeInvalidTransition  = "INVALID_SESSION_TRANSITION"
	defaultFailureMessage      = "Request failed"
	notAuthenticatedMessage    = "Not authenticated"
	invalidResponseMessage     = "Invalid response from server"
	signupWithoutInviteMessage = "Signup without an invitation is not enabled"
)

// ErrInvalidSessionTransition is returned when the lifecycle is asked to
// move along an edge it does not have.
var ErrInvalidSessionTransition = goerrors.New("invalid session state transition", goerrors.CategoryConflict).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeConflict)

func notAuthenticatedError(operation string) error {
	return goerrors.New(notAuthenticatedMessage, goerrors.CategoryAuth).
		WithCode(goerrors.CodeUnauthorized).
		WithTextCode(TextCodeNotAuthenticated).
		WithMetadata(map[string]any{"operation": operation})
}

func configurationError(format string, args ...any) error {
	return goerrors.New(fmt.Sprintf(format, args...), CategoryConfiguration).
		WithTextCode(TextCodeMissingConfig)
}

func signupDisabledError() error {
	return goerrors.New(signupWithoutInviteMessage, CategoryConfiguration).
		WithTextCode(TextCodeSignupDisabled)
}

func invalidResponseError(path string, source error) error {
	err := goerrors.New(invalidResponseMessage, goerrors.CategoryExternal).
		WithTextCode(TextCodeInvalidResponse).
		WithMetadata(map[string]any{"path": path})
	if source != nil {
		err.Source = source
	}
	return err
}

// invalidArgument converts an ozzo validation error for a single field.
func invalidArgument(field string, source error) error {
	if source == nil {
		return nil
	}
	return goerrors.NewValidation(fmt.Sprintf("%s %s", field, source.Error()), goerrors.FieldError{
		Field:   field,
		Message: source.Error(),
	}).WithTextCode(TextCodeValidation).WithCode(goerrors.CodeBadRequest)
}

// IsNotAuthenticated reports whether err is the local missing credential failure
func IsNotAuthenticated(err error) bool {
	var e *goerrors.Error
	if goerrors.As(err, &e) {
		return e.TextCode == TextCodeNotAuthenticated
	}
	return false
}
