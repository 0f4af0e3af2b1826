package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeAlreadyCompleted   Code = "ALREADY_COMPLETED"
	CodeConsecutiveWriting Code = "CONSECUTIVE_WRITING_NOT_ALLOWED"
	CodeSequenceMismatch   Code = "SEQUENCE_MISMATCH"
	CodeNotOwner           Code = "NOT_OWNER"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeValidationFailed   Code = "VALIDATION_FAILED"
	CodeUnauthenticated    Code = "UNAUTHENTICATED"
	CodeInternal           Code = "INTERNAL"
)

// APIError is a business failure that is surfaced to the caller.
type APIError struct {
	Status   int               `json:"-"`
	Code     Code              `json:"code"`
	Message  string            `json:"message"`
	Fields   map[string]string `json:"fields,omitempty"`
	Internal error             `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

// Is matches any APIError carrying the same code, so callers can write
// errors.Is(err, errors.ErrSequenceMismatch).
func (e *APIError) Is(target error) bool {
	var t *APIError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func newError(status int, code Code, message string, err error) *APIError {
	return &APIError{
		Status:   status,
		Code:     code,
		Message:  message,
		Internal: err,
	}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound           = &APIError{Code: CodeNotFound}
	ErrAlreadyCompleted   = &APIError{Code: CodeAlreadyCompleted}
	ErrConsecutiveWriting = &APIError{Code: CodeConsecutiveWriting}
	ErrSequenceMismatch   = &APIError{Code: CodeSequenceMismatch}
	ErrNotOwner           = &APIError{Code: CodeNotOwner}
	ErrInvalidInput       = &APIError{Code: CodeInvalidInput}
	ErrUnauthenticated    = &APIError{Code: CodeUnauthenticated}
)

func NotFound(message string, err error) *APIError {
	return newError(http.StatusNotFound, CodeNotFound, message, err)
}

func AlreadyCompleted(message string) *APIError {
	return newError(http.StatusBadRequest, CodeAlreadyCompleted, message, nil)
}

func ConsecutiveWriting(message string) *APIError {
	return newError(http.StatusForbidden, CodeConsecutiveWriting, message, nil)
}

func SequenceMismatch(message string) *APIError {
	return newError(http.StatusBadRequest, CodeSequenceMismatch, message, nil)
}

func NotOwner(message string) *APIError {
	return newError(http.StatusForbidden, CodeNotOwner, message, nil)
}

func InvalidInput(message string, err error) *APIError {
	return newError(http.StatusBadRequest, CodeInvalidInput, message, err)
}

func Unauthenticated(message string, err error) *APIError {
	return newError(http.StatusUnauthorized, CodeUnauthenticated, message, err)
}

func Internal(err error) *APIError {
	return newError(http.StatusInternalServerError, CodeInternal, "Internal server error", err)
}

// NewValidationError turns binding errors into a 422 listing every failing field.
func NewValidationError(err error) *APIError {
	apiErr := newError(http.StatusUnprocessableEntity, CodeValidationFailed, "Validation failed", err)

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apiErr
	}

	apiErr.Fields = make(map[string]string, len(verrs))
	for _, fe := range verrs {
		apiErr.Fields[strings.ToLower(fe.Field())] = describe(fe)
	}
	return apiErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

// CodeOf returns the business code carried by err, or CodeInternal.
func CodeOf(err error) Code {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return CodeInternal
}
