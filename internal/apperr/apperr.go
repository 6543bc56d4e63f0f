// Package apperr defines the error taxonomy shared by every patchbay component.
//
// Components return *Error values so the HTTP layer can pick a status code and
// a human-readable message without inspecting error strings.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a failure.
type Kind int

const (
	// KindPersistence covers transaction and query failures. Anything that is
	// not explicitly classified is treated as persistence.
	KindPersistence Kind = iota
	// KindValidation is malformed input, a cross-rack link or a wrong port range.
	KindValidation
	// KindNotFound is a missing endpoint, alarm, switch or panel.
	KindNotFound
	// KindConflict is an occupied rack slot or a state the operation cannot
	// move from.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	default:
		return "persistence"
	}
}

// Error is a classified failure. Entity names the conflicting or missing
// object when there is one.
type Error struct {
	Kind    Kind
	Message string
	Entity  string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Validationf builds a validation error.
func Validationf(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf builds a not-found error for the named entity.
func NotFoundf(entity, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error naming the conflicting entity.
func Conflictf(entity, format string, args ...any) error {
	return &Error{Kind: KindConflict, Entity: entity, Message: fmt.Sprintf(format, args...)}
}

// Persistence wraps a store failure. Already-classified errors pass through
// untouched so a validation failure raised inside a transaction keeps its kind.
func Persistence(err error, msg string) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindPersistence, Message: msg, Err: errors.WithStack(err)}
}

// KindOf reports the kind of err, defaulting to KindPersistence.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindPersistence
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
