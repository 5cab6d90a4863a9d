package apperrors

import "errors"

// ErrNotFound indicates that a requested resource could not be found.
// Return on a transaction owned by someone else also reports ErrNotFound.
var ErrNotFound = errors.New("resource not found")

// ErrInvalidArgument indicates malformed input: unknown enum values, bad ids, failed validation.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrConflict indicates the resource is not in a state that allows the operation,
// or a concurrent write won the race.
var ErrConflict = errors.New("conflict")

// ErrUnauthorized indicates missing or invalid credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ErrForbidden indicates the caller is authenticated but lacks the required role.
var ErrForbidden = errors.New("forbidden")
