// Package errors classifies storefront failures. Every error that reaches an
// HTTP response carries a Code, and the Code alone decides the status, the
// fallback shopper-facing message and whether details may be shown.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

// Code is the stable machine-readable error kind sent to clients.
type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodePersistence   Code = "PERSISTENCE_ERROR"
	CodeUpstream      Code = "UPSTREAM_ERROR"
)

// Metadata is the response policy for one Code.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func policy(status int, message string, retryable, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: retryable, PublicMessage: message, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    policy(http.StatusBadRequest, "some fields need attention", false, true),
	CodeUnauthorized:  policy(http.StatusUnauthorized, "sign in to continue", false, false),
	CodeForbidden:     policy(http.StatusForbidden, "not allowed for this session", false, false),
	CodeNotFound:      policy(http.StatusNotFound, "not found", false, false),
	CodeConflict:      policy(http.StatusConflict, "conflicts with the current store data", false, false),
	CodeStateConflict: policy(http.StatusUnprocessableEntity, "the order cannot move to that status", false, true),
	CodeIdempotency:   policy(http.StatusConflict, "checkout key already used for another request", false, true),
	CodeRateLimit:     policy(http.StatusTooManyRequests, "too many requests, try again shortly", false, false),
	CodeInternal:      policy(http.StatusInternalServerError, "something went wrong on our side", true, false),
	CodeDependency:    policy(http.StatusServiceUnavailable, "the store is briefly unavailable", true, true),
	CodePersistence:   policy(http.StatusServiceUnavailable, "order records are briefly unavailable", true, false),
	CodeUpstream:      policy(http.StatusBadGateway, "the payment provider did not respond", true, false),
}

// MetadataFor falls back to the internal policy for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error pairs a Code with an operator message and optional client details.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Wrap keeps err reachable through errors.Is and errors.As.
func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches data shown only for codes whose policy allows it.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in the chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode checks the code of the outermost typed error in the chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
