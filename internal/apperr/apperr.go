// Package apperr defines the error kinds shared by the scheduling services.
//
// Services return *Error values carrying a Kind and a message suitable for
// display. Anything that does not carry a kind is treated as a store error.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindNotFound         Kind = "not_found"
	KindForbidden        Kind = "forbidden"
	KindInvalid          Kind = "invalid"
	KindConflict         Kind = "conflict"
	KindScheduleConflict Kind = "schedule_conflict"
	KindCapacityExceeded Kind = "capacity_exceeded"
	KindExpired          Kind = "expired"
	KindLimitReached     Kind = "limit_reached"
	KindStore            Kind = "store_error"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches sentinels by kind, so errors.Is(err, ErrNotFound) holds for any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

var (
	ErrNotFound         = &Error{Kind: KindNotFound}
	ErrForbidden        = &Error{Kind: KindForbidden}
	ErrInvalid          = &Error{Kind: KindInvalid}
	ErrConflict         = &Error{Kind: KindConflict}
	ErrScheduleConflict = &Error{Kind: KindScheduleConflict}
	ErrCapacityExceeded = &Error{Kind: KindCapacityExceeded}
	ErrExpired          = &Error{Kind: KindExpired}
	ErrLimitReached     = &Error{Kind: KindLimitReached}
)

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error  { return newf(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) error { return newf(KindForbidden, format, args...) }
func Invalid(format string, args ...any) error   { return newf(KindInvalid, format, args...) }
func Conflict(format string, args ...any) error  { return newf(KindConflict, format, args...) }
func Expired(format string, args ...any) error   { return newf(KindExpired, format, args...) }

func ScheduleConflict(format string, args ...any) error {
	return newf(KindScheduleConflict, format, args...)
}

func CapacityExceeded(format string, args ...any) error {
	return newf(KindCapacityExceeded, format, args...)
}

func LimitReached(format string, args ...any) error {
	return newf(KindLimitReached, format, args...)
}

// KindOf reports the kind of err, or KindStore when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStore
}

// Message returns the display message of a kinded error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return "internal server error"
}
