// Package errors provides structured domain errors with boundary mappings.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"
	// CodeNotFound reports that a referenced entity is absent.
	CodeNotFound Code = "NOT_FOUND"
	// CodeForbidden reports that the actor has no rights over the entity.
	CodeForbidden Code = "FORBIDDEN"
	// CodeConflict reports a state, capacity, or uniqueness precondition failure.
	CodeConflict Code = "CONFLICT"
	// CodeDateInvalid reports a violated temporal precondition.
	CodeDateInvalid Code = "DATE_INVALID"
	// CodeInvalidArgument reports malformed or out-of-range input.
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
)

// HTTPStatus returns the HTTP status code for this error code.
//
// Forbidden maps to 404 so callers cannot probe for entities they do not own.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound, CodeForbidden:
		return http.StatusNotFound
	case CodeConflict, CodeDateInvalid:
		return http.StatusConflict
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
