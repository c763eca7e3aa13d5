// Package errors declares the error categories shared by the planner and the
// executor. Callers test for a category with [errors.Is]; the concrete error
// carries a message and a stack trace.
package errors

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrPrecondition reports a violated programming contract, such as a
	// missing required argument.
	ErrPrecondition = errors.New("precondition violation")
	// ErrInvalidState reports an operation that is not valid in the current
	// state of its receiver.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnsupported reports an operation the receiver never supports.
	ErrUnsupported    = errors.New("unsupported operation")
	ErrNotImplemented = errors.New("not implemented")
)

// Preconditionf returns an error wrapping [ErrPrecondition].
func Preconditionf(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrPrecondition, format, args...)
}

// InvalidStatef returns an error wrapping [ErrInvalidState].
func InvalidStatef(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrInvalidState, format, args...)
}

// Unsupportedf returns an error wrapping [ErrUnsupported].
func Unsupportedf(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrUnsupported, format, args...)
}

// NotImplementedf returns an error wrapping [ErrNotImplemented].
func NotImplementedf(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrNotImplemented, format, args...)
}

// CheckNotNil returns a precondition error naming arg if ok is false.
func CheckNotNil(ok bool, arg string) error {
	if ok {
		return nil
	}
	return Preconditionf("%s is nil", arg)
}
