// Package lerrors defines the error kinds surfaced at Lust's domain
// boundary and their mapping onto HTTP status codes.
package lerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a domain failure for targeted handling, monitoring, and
// HTTP status translation.
type Kind string

const (
	InvalidImage         Kind = "invalid_image"
	ImageTooLarge        Kind = "image_too_large"
	PayloadTooLarge      Kind = "payload_too_large"
	FormatNotEnabled     Kind = "format_not_enabled"
	UnknownPreset        Kind = "unknown_preset"
	UnknownBucket        Kind = "unknown_bucket"
	CustomSizeNotAllowed Kind = "custom_size_not_allowed"
	NotFound             Kind = "not_found"
	EncodingFailure      Kind = "encoding_failure"
	StorageFailure       Kind = "storage_failure"
	CacheFailure         Kind = "cache_failure"
)

// statusByKind maps each error Kind to its HTTP status code.
var statusByKind = map[Kind]int{
	InvalidImage:         http.StatusBadRequest,
	ImageTooLarge:        http.StatusRequestEntityTooLarge,
	PayloadTooLarge:      http.StatusRequestEntityTooLarge,
	FormatNotEnabled:     http.StatusBadRequest,
	UnknownPreset:        http.StatusBadRequest,
	UnknownBucket:        http.StatusNotFound,
	CustomSizeNotAllowed: http.StatusBadRequest,
	NotFound:             http.StatusNotFound,
	EncodingFailure:      http.StatusInternalServerError,
	StorageFailure:       http.StatusInternalServerError,
	CacheFailure:         http.StatusInternalServerError,
}

// Error is the structured error type returned by every domain operation.
type Error struct {
	Kind Kind
	Op   string // operation name, e.g. "bucket.upload"
	Err  error  // underlying cause, nil for a bare classification
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error of the given kind with no wrapped cause.
func New(kind Kind, op string) *Error {
	return &Error{Kind: kind, Op: op}
}

// Wrap builds an *Error of the given kind around err. Wrap(kind, op, nil)
// returns nil, so call sites can wrap unconditionally.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or something it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, if any.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// HTTPStatus maps err's Kind onto an HTTP status code. Errors with no Kind
// (not constructed via this package) map to 500.
func HTTPStatus(err error) int {
	kind, ok := KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}
