package authclient

import (
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// FailureKind tags a Failure so callers can branch on it
type FailureKind string

const (
	// KindTransport covers network errors and non 2xx responses
	KindTransport FailureKind = "transport"
	// KindAuth is a 401 or a missing credential. A 401 has already torn
	// down the session by the time the caller sees it.
	KindAuth FailureKind = "auth"
	// KindValidation is a client side rule violation, no request was sent
	KindValidation FailureKind = "validation"
	// KindConfiguration means the client is missing required settings
	KindConfiguration FailureKind = "configuration"
)

// Failure is the error branch of a Result
type Failure struct {
	Kind      FailureKind
	Message   string
	Code      string
	Status    int
	RequestID string
	Fields    map[string]string
	err       error
}

func (f *Failure) Error() string {
	if f == nil {
		return "<nil>"
	}
	if f.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", f.Kind, f.Message, f.Code)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.err
}

// Is matches failures by kind and code, so a Failure can be compared
// against a template with errors.Is.
func (f *Failure) Is(target error) bool {
	t, ok := target.(*Failure)
	if !ok || f == nil || t == nil {
		return false
	}
	if t.Kind != "" && t.Kind != f.Kind {
		return false
	}
	return t.Code == "" || t.Code == f.Code
}

func failureFrom(err error) *Failure {
	if err == nil {
		return nil
	}

	var f *Failure
	if goerrors.As(err, &f) {
		return f
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return &Failure{
			Kind:    KindTransport,
			Message: err.Error(),
			Code:    TextCodeUnknown,
			err:     err,
		}
	}

	out := &Failure{
		Kind:      kindFromCategory(rich.Category),
		Message:   rich.Message,
		Code:      rich.TextCode,
		Status:    rich.Code,
		RequestID: rich.RequestID,
		err:       err,
	}
	if fields := rich.ValidationMap(); len(fields) > 0 {
		out.Fields = fields
	}
	return out
}

func kindFromCategory(cat goerrors.Category) FailureKind {
	switch cat {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return KindAuth
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return KindValidation
	case CategoryConfiguration:
		return KindConfiguration
	default:
		return KindTransport
	}
}

// Result is the outcome of a public operation: either a value or a Failure.
type Result[T any] struct {
	value   T
	failure *Failure
}

// Ok wraps a successful value
func Ok[T any](value T) Result[T] {
	return Result[T]{value: value}
}

// Fail wraps a failure. A nil failure is replaced with a generic one so
// the result never looks successful by accident.
func Fail[T any](f *Failure) Result[T] {
	if f == nil {
		f = &Failure{Kind: KindTransport, Message: defaultFailureMessage, Code: TextCodeUnknown}
	}
	return Result[T]{failure: f}
}

func (r Result[T]) IsOk() bool {
	return r.failure == nil
}

// Value returns the wrapped value, the zero value on failure
func (r Result[T]) Value() T {
	return r.value
}

// Failure returns nil on success
func (r Result[T]) Failure() *Failure {
	return r.failure
}

// Get splits the result into value and error, for callers that prefer
// the usual Go shape.
func (r Result[T]) Get() (T, error) {
	if r.failure != nil {
		return r.value, r.failure
	}
	return r.value, nil
}

// Match calls exactly one of the branches.
func (r Result[T]) Match(ok func(T), failed func(*Failure)) {
	if r.failure != nil {
		if failed != nil {
			failed(r.failure)
		}
		return
	}
	if ok != nil {
		ok(r.value)
	}
}

func resultOf[T any](value T, err error) Result[T] {
	if err != nil {
		return Fail[T](failureFrom(err))
	}
	return Ok(value)
}

func mapResult[T, U any](r Result[T], fn func(T) U) Result[U] {
	if r.failure != nil {
		return Result[U]{failure: r.failure}
	}
	return Ok(fn(r.value))
}
