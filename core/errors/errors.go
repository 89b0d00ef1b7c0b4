package errors

import (
	"errors"
	"fmt"
)

type Category string

const (
	CategoryInvalidInput      Category = "invalid_input"
	CategoryVerification      Category = "verification_failed"
	CategoryDependencyMissing Category = "dependency_missing"
	CategoryIOFailure         Category = "io_failure"
	CategoryInternalFailure   Category = "internal_failure"
)

// Categories lists every category in exit-code precedence order.
var Categories = []Category{
	CategoryInvalidInput,
	CategoryVerification,
	CategoryDependencyMissing,
	CategoryIOFailure,
	CategoryInternalFailure,
}

// Details is the classification attached to an error by Wrap.
type Details struct {
	Category  Category
	Code      string
	Hint      string
	Retryable bool
}

type classifiedError struct {
	Details
	cause error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

// Wrap attaches a classification to cause. The outermost classification wins
// when an already classified error is wrapped again.
func Wrap(cause error, category Category, code, hint string, retryable bool) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{
		Details: Details{Category: category, Code: code, Hint: hint, Retryable: retryable},
		cause:   cause,
	}
}

// Newf builds a non-retryable classified error from a format string.
func Newf(category Category, code, hint, format string, args ...any) error {
	return Wrap(fmt.Errorf(format, args...), category, code, hint, false)
}

func DetailsOf(err error) (Details, bool) {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.Details, true
	}
	return Details{}, false
}

func CategoryOf(err error) Category {
	details, _ := DetailsOf(err)
	return details.Category
}

func CodeOf(err error) string {
	details, _ := DetailsOf(err)
	return details.Code
}

func HintOf(err error) string {
	details, _ := DetailsOf(err)
	return details.Hint
}

func RetryableOf(err error) bool {
	details, _ := DetailsOf(err)
	return details.Retryable
}
