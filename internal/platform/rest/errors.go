package rest

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ehr/restws/internal/domain"
)

// Code is a machine-readable error kind surfaced to REST clients.
type Code string

const (
	CodeUnknown                   Code = "UNKNOWN"
	CodeNotFound                  Code = "NOT_FOUND"
	CodeMalformedSpecification    Code = "MALFORMED_SPECIFICATION"
	CodeUnknownProperty           Code = "UNKNOWN_PROPERTY"
	CodeConversionFailed          Code = "CONVERSION_FAILED"
	CodeValidationFailed          Code = "VALIDATION_FAILED"
	CodeDependencyConflict        Code = "DEPENDENCY_CONFLICT"
	CodeUnsupportedRepresentation Code = "UNSUPPORTED_REPRESENTATION"
	CodeOperationNotSupported     Code = "OPERATION_NOT_SUPPORTED"
	CodeUnknownResource           Code = "UNKNOWN_RESOURCE"
)

// Sentinels for conversion causes. They are wrapped inside an *Error and can
// be matched with errors.Is.
var (
	ErrReadOnly              = errors.New("property is read-only")
	ErrOperationNotSupported = errors.New("operation not supported by this resource")
)

// Error is the single failure surface of the REST layer. Every low-level
// cause is wrapped into one of these with enough context for the caller.
type Error struct {
	Code     Code
	Message  string
	Property string
	Metadata map[string]string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Property != "" {
		msg = fmt.Sprintf("%s (property %q)", msg, e.Property)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// With returns a copy of e with an extra metadata entry.
func (e *Error) With(key, value string) *Error {
	cp := *e
	cp.Metadata = make(map[string]string, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		cp.Metadata[k] = v
	}
	cp.Metadata[key] = value
	return &cp
}

func newError(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Message: msg, Err: cause}
}

// NotFound reports an identifier that does not resolve to a live entity.
func NotFound(resource, id string) *Error {
	return newError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id), nil).
		With("resource", resource).With("uuid", id)
}

// MalformedSpecification reports an unparseable representation string.
func MalformedSpecification(spec string, offset int, reason string) *Error {
	return newError(CodeMalformedSpecification,
		fmt.Sprintf("malformed representation %q at offset %d: %s", spec, offset, reason), nil).
		With("representation", spec)
}

// UnknownProperty reports a property the resource type does not declare.
func UnknownProperty(resource, property string) *Error {
	e := newError(CodeUnknownProperty, fmt.Sprintf("%s has no property %q", resource, property), nil)
	e.Property = property
	return e.With("resource", resource)
}

// ConversionFailed wraps any get/set failure on a named property. A cause
// that is already an UNKNOWN_PROPERTY error keeps its code.
func ConversionFailed(property string, cause error) *Error {
	var re *Error
	if errors.As(cause, &re) && re.Code == CodeUnknownProperty {
		return re
	}
	e := newError(CodeConversionFailed, "unable to convert property", cause)
	e.Property = property
	return e
}

// ValidationFailed passes a domain rule rejection through to the client.
func ValidationFailed(msg string, cause error) *Error {
	return newError(CodeValidationFailed, msg, cause)
}

// DependencyConflict reports a purge blocked by referential dependents.
func DependencyConflict(resource, id string, cause error) *Error {
	return newError(CodeDependencyConflict,
		fmt.Sprintf("%s %s has dependent data and cannot be purged", resource, id), cause).
		With("resource", resource).With("uuid", id)
}

// UnsupportedRepresentation reports a representation the resource does not describe.
func UnsupportedRepresentation(resource string, rep Representation) *Error {
	return newError(CodeUnsupportedRepresentation,
		fmt.Sprintf("%s does not support the %s representation", resource, rep), nil).
		With("resource", resource).With("representation", rep.String())
}

// OperationNotSupported reports an operation the resource does not offer.
func OperationNotSupported(resource, op string) *Error {
	return newError(CodeOperationNotSupported,
		fmt.Sprintf("%s does not support %s", resource, op), ErrOperationNotSupported).
		With("resource", resource).With("operation", op)
}

// UnknownResource reports a resource name with no registered handler.
func UnknownResource(name string) *Error {
	return newError(CodeUnknownResource, fmt.Sprintf("unknown resource %q", name), nil).
		With("resource", name)
}

// FromDomain maps a domain-service failure onto the REST taxonomy. Errors
// that already are *Error pass through; unrecognised errors are returned
// unchanged so the dispatch boundary reports them as server faults.
func FromDomain(resource, id string, err error) error {
	if err == nil {
		return nil
	}
	var re *Error
	if errors.As(err, &re) {
		return err
	}
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		e := NotFound(resource, id)
		e.Err = err
		return e
	case errors.As(err, &ve):
		e := ValidationFailed(ve.Message, err)
		e.Property = ve.Field
		return e.With("resource", resource)
	case errors.Is(err, domain.ErrHasDependents):
		return DependencyConflict(resource, id, err)
	case errors.Is(err, ErrOperationNotSupported):
		return OperationNotSupported(resource, "this operation")
	}
	return err
}

// CodeOf extracts the code from any error, CodeUnknown when absent.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// HTTPStatus translates an error into the wire-protocol status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound, CodeUnknownResource:
		return http.StatusNotFound
	case CodeDependencyConflict:
		return http.StatusConflict
	case CodeMalformedSpecification, CodeUnknownProperty, CodeConversionFailed,
		CodeValidationFailed, CodeUnsupportedRepresentation, CodeOperationNotSupported:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
