package reel

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a resolution failure
type Kind int

const (
	// KindUnknownFailure is any unexpected failure while orchestrating the lookups
	KindUnknownFailure Kind = iota
	// KindMissingInput means no source URL was supplied
	KindMissingInput
	// KindMediaResolutionFailed means the media collaborator returned an error
	KindMediaResolutionFailed
	// KindMediaNotFound means the media collaborator found no URLs
	KindMediaNotFound
)

func (k Kind) String() string {
	switch k {
	case KindMissingInput:
		return "missing_input"
	case KindMediaResolutionFailed:
		return "media_resolution_failed"
	case KindMediaNotFound:
		return "media_not_found"
	default:
		return "unknown_failure"
	}
}

// Error is a typed resolution failure. Details carries the underlying
// collaborator message when there is one.
type Error struct {
	Kind    Kind
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message(), e.Details)
	}
	return e.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message is the public, client-facing description of the failure
func (e *Error) Message() string {
	switch e.Kind {
	case KindMissingInput:
		return "Missing URL parameter"
	case KindMediaResolutionFailed:
		return "Failed to extract video URL"
	case KindMediaNotFound:
		return "Could not find video URL"
	default:
		return "Failed to process request"
	}
}

// StatusCode maps the failure kind onto an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindMissingInput:
		return http.StatusBadRequest
	case KindMediaNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// StatusCode returns the HTTP status for any error returned by Resolve.
// Errors that are not *Error map to 500.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode()
	}
	return http.StatusInternalServerError
}

// KindOf returns the Kind of err, or KindUnknownFailure
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknownFailure
}
