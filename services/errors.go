package services

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindConflict         ErrorKind = "conflict"
	KindTransient        ErrorKind = "transient"
	KindNotFound         ErrorKind = "not_found"
	KindIntegrity        ErrorKind = "integrity"
)

// Error is the user-facing failure shape: a short title plus a description.
type Error struct {
	Kind        ErrorKind
	Title       string
	Description string
	FromServer  bool
	Err         error
}

var (
	ErrValidation       = &Error{Kind: KindValidation}
	ErrPermissionDenied = &Error{Kind: KindPermissionDenied}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrTransient        = &Error{Kind: KindTransient}
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrIntegrity        = &Error{Kind: KindIntegrity}
)

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Title != "" {
		msg += ": " + e.Title
	}
	if e.Description != "" {
		msg += " - " + e.Description
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare kind sentinels, so errors.Is(err, ErrConflict) holds
// for any conflict regardless of its title.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Title == "" && t.Description == "" && t.Err == nil && t.Kind == e.Kind
}

// Retryable reports whether the user should be offered a retry path.
func (e *Error) Retryable() bool {
	return e.Kind == KindConflict || e.Kind == KindTransient
}

func Validation(title, description string) *Error {
	return &Error{Kind: KindValidation, Title: title, Description: description}
}

func PermissionDenied(title, description string) *Error {
	return &Error{Kind: KindPermissionDenied, Title: title, Description: description}
}

func Conflict(title, description string) *Error {
	return &Error{Kind: KindConflict, Title: title, Description: description}
}

func Transient(title string, err error) *Error {
	return &Error{
		Kind:        KindTransient,
		Title:       title,
		Description: "The request could not be completed. Please try again.",
		Err:         err,
	}
}

func NotFound(title, description string) *Error {
	return &Error{Kind: KindNotFound, Title: title, Description: description}
}

// AsError unwraps err into an *Error, wrapping unknown failures as transient.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Transient("Unexpected error", err)
}
