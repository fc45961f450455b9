package utils

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Handlers map these onto HTTP statuses with
// errors.Is; everything below an atomic unit wraps one of them so that a
// caller can always tell why the whole unit rolled back.
var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnauthorized      = errors.New("not authorized")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrBusy is the only retryable kind: a row lock could not be acquired
	// in time. Callers may retry with backoff.
	ErrBusy = errors.New("resource busy")
)

// ErrorRecordNotFound is kept as an alias for ErrNotFound so fetch helpers
// read the same as always.
var ErrorRecordNotFound = ErrNotFound

func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidArgument)...)
}

func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnauthorized)...)
}

func IllegalTransitionf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrIllegalTransition)...)
}

func InsufficientStockf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInsufficientStock)...)
}
