// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for the domain layer. Services wrap these with %w so
// handlers can map an outcome to a status code without inspecting strings.
var (
	// ErrValidation covers malformed or missing required input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound covers lookups that miss.
	ErrNotFound = errors.New("not found")
	// ErrConflict covers state-machine transitions attempted from an
	// ineligible state. The wrapping message carries the current state.
	ErrConflict = errors.New("conflict")
	// ErrIntegrity covers writes that would violate a balance or
	// uniqueness invariant. Never coerced silently.
	ErrIntegrity = errors.New("integrity violation")
	// ErrExternal covers provider call failures and signature mismatches.
	ErrExternal = errors.New("external dependency failure")
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrIntegrity):
		Problem(w, http.StatusUnprocessableEntity, "Integrity Violation", err.Error())
	case errors.Is(err, ErrExternal):
		Problem(w, http.StatusBadGateway, "Upstream Failure", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
