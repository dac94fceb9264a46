// Package apperr defines the error taxonomy shared by the service and its transports.
//
// Operations return *Error values carrying a Kind. Transports recover the kind with
// KindOf (which looks through wrapped errors) and map it to a status code.
// Validation failures with several reasons carry them in Details; build those from a
// *multierror.Error with Invalid.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
)

// Kind classifies an error.
type Kind string

const (
	BadRequest  Kind = "bad_request"
	NotFound    Kind = "not_found"
	Conflict    Kind = "conflict"
	QueueFull   Kind = "queue_full"
	RenderError Kind = "render_error"
	Internal    Kind = "internal"
)

// Error is a classified error.
type Error struct {
	Kind    Kind
	Message string
	// Details lists individual reasons for a validation failure, if any.
	Details []string
	// RetryAfter is an advisory wait before retrying. Only set for QueueFull.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Invalid returns a BadRequest error whose details are the individual reasons of err.
// A *multierror.Error contributes one detail per wrapped error.
func Invalid(message string, err error) *Error {
	e := &Error{Kind: BadRequest, Message: message}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, reason := range merr.Errors {
			e.Details = append(e.Details, reason.Error())
		}
	} else if err != nil {
		e.Details = []string{err.Error()}
	}
	return e
}

// Full returns a QueueFull error with the given retry hint.
func Full(capacity int, retryAfter time.Duration) *Error {
	return &Error{
		Kind:       QueueFull,
		Message:    fmt.Sprintf("queue is full (capacity %d), retry later", capacity),
		RetryAfter: retryAfter,
	}
}

// KindOf reports the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to the status code used by the HTTP API.
func HTTPStatus(kind Kind) int {
	switch kind {
	case BadRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case QueueFull:
		return http.StatusTooManyRequests
	case RenderError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
